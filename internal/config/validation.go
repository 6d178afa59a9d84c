package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Strategy.validate(); err != nil {
		return err
	}
	if err := c.Tick.validate(); err != nil {
		return err
	}
	return nil
}

func (a AppConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(a.LogLevel)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("app.log_level must be one of debug|info|warn|error, got %q", a.LogLevel)
	}
	if strings.TrimSpace(a.StatePath) == "" {
		return fmt.Errorf("app.state_path cannot be empty")
	}
	return nil
}

func (m MarketConfig) validate() error {
	if strings.ToLower(strings.TrimSpace(m.Exchange)) != "binance" {
		return fmt.Errorf("market.exchange %q is not supported", m.Exchange)
	}
	if m.CleanSymbol() == "" {
		return fmt.Errorf("market.symbol cannot be empty")
	}
	if strings.TrimSpace(m.BaseAsset) == "" || strings.TrimSpace(m.QuoteAsset) == "" {
		return fmt.Errorf("market.base_asset and market.quote_asset cannot be empty")
	}
	if m.CandleLimit < 250 {
		return fmt.Errorf("market.candle_limit must be at least 250 to cover the slowest indicator lookback, got %d", m.CandleLimit)
	}
	if m.ProxyEnabled && strings.TrimSpace(m.RESTProxyURL) == "" {
		return fmt.Errorf("market.rest_proxy_url cannot be empty when market.proxy_enabled is true")
	}
	return nil
}

func (s StrategyConfig) validate() error {
	inUnit := func(name string, v float64) error {
		if v <= 0 || v >= 1 {
			return fmt.Errorf("strategy.%s must be in (0, 1), got %v", name, v)
		}
		return nil
	}
	positive := func(name string, v float64) error {
		if v <= 0 {
			return fmt.Errorf("strategy.%s must be positive, got %v", name, v)
		}
		return nil
	}
	checks := []error{
		inUnit("exposure_cap_notional_pct", s.ExposureCapNotionalPct),
		inUnit("target_alloc_pct", s.TargetAllocPct),
		inUnit("target_band", s.TargetBand),
		inUnit("base_risk_pct", s.BaseRiskPct),
		inUnit("add_size_decay", s.AddSizeDecay),
		inUnit("grid_step_min_pct", s.GridStepMinPct),
		inUnit("daily_loss_cap_pct", s.DailyLossCapPct),
		positive("add_spacing_atr", s.AddSpacingATR),
		positive("trend_tp_atr", s.TrendTPATR),
		positive("range_tp_atr", s.RangeTPATR),
		positive("trend_tp_floor_pct", s.TrendTPFloorPct),
		positive("range_tp_floor_pct", s.RangeTPFloorPct),
		positive("trail_arm_atr", s.TrailArmATR),
		positive("trail_dist_trend_atr", s.TrailDistTrendATR),
		positive("trail_dist_range_atr", s.TrailDistRangeATR),
		positive("no_rebuy_buffer_atr", s.NoRebuyBufferATR),
		positive("adx_trend_min", s.ADXTrendMin),
		positive("spread_max_bps", s.SpreadMaxBps),
		positive("slippage_max_bps", s.SlippageMaxBps),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	if s.MaxAdds < 0 || s.MaxAdds > 10 {
		return fmt.Errorf("strategy.max_adds must be in [0, 10], got %d", s.MaxAdds)
	}
	if s.GridLevels < 1 {
		return fmt.Errorf("strategy.grid_levels must be at least 1, got %d", s.GridLevels)
	}
	if s.TimeExitDays < 1 {
		return fmt.Errorf("strategy.time_exit_days must be at least 1, got %d", s.TimeExitDays)
	}
	if s.CooldownCandles1h < 0 {
		return fmt.Errorf("strategy.cooldown_candles_1h cannot be negative, got %d", s.CooldownCandles1h)
	}
	if s.UnfilledTimeoutSec < 10 {
		return fmt.Errorf("strategy.unfilled_timeout_sec must be at least 10, got %d", s.UnfilledTimeoutSec)
	}
	if s.DataMaxAgeMin < 1 {
		return fmt.Errorf("strategy.data_max_age_min must be at least 1, got %d", s.DataMaxAgeMin)
	}
	for name, period := range map[string]int{
		"ema_period":      s.EMAPeriod,
		"adx_period":      s.ADXPeriod,
		"atr_period":      s.ATRPeriod,
		"donchian_period": s.DonchianPeriod,
	} {
		if period < 2 {
			return fmt.Errorf("strategy.%s must be at least 2, got %d", name, period)
		}
	}
	return nil
}

func (t TickConfig) validate() error {
	if strings.TrimSpace(t.Interval) == "" {
		return fmt.Errorf("tick.interval cannot be empty")
	}
	if t.OffsetSeconds < 0 {
		return fmt.Errorf("tick.offset_seconds cannot be negative, got %d", t.OffsetSeconds)
	}
	return nil
}
