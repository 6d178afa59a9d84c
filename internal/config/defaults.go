package config

import "strings"

const (
	defaultAppEnv       = "dev"
	defaultAppLogLevel  = "info"
	defaultAppHTTPAddr  = ":9980"
	defaultStatePath    = "data/state.yaml"
	defaultJournalPath  = "data/journal.db"
	defaultExchange     = "binance"
	defaultRESTBaseURL  = "https://api.binance.com"
	defaultSymbol       = "ETHUSDT"
	defaultBaseAsset    = "ETH"
	defaultQuoteAsset   = "USDT"
	defaultFastInterval = "5m"
	defaultSlowInterval = "1h"
	defaultCandleLimit  = 500
	defaultHTTPTimeout  = 15
	defaultTakerFee     = 0.001
	defaultTickInterval = "5m"
	defaultTickOffset   = 5
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Strategy.applyDefaults(keys)
	c.Tick.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.state_path", &a.StatePath, defaultStatePath),
		stringFieldDefault("app.journal_path", &a.JournalPath, defaultJournalPath),
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("market.exchange", &m.Exchange, defaultExchange),
		stringFieldDefault("market.rest_base_url", &m.RESTBaseURL, defaultRESTBaseURL),
		stringFieldDefault("market.symbol", &m.Symbol, defaultSymbol),
		stringFieldDefault("market.base_asset", &m.BaseAsset, defaultBaseAsset),
		stringFieldDefault("market.quote_asset", &m.QuoteAsset, defaultQuoteAsset),
		stringFieldDefault("market.fast_interval", &m.FastInterval, defaultFastInterval),
		stringFieldDefault("market.slow_interval", &m.SlowInterval, defaultSlowInterval),
		intFieldDefault("market.candle_limit", &m.CandleLimit, defaultCandleLimit),
		intFieldDefault("market.http_timeout_seconds", &m.HTTPTimeoutSeconds, defaultHTTPTimeout),
		floatFieldDefault("market.default_taker_fee", &m.DefaultTakerFee, defaultTakerFee),
	)
}

func (s *StrategyConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("strategy.exposure_cap_notional_pct", &s.ExposureCapNotionalPct, 0.30),
		floatFieldDefault("strategy.target_alloc_pct", &s.TargetAllocPct, 0.50),
		floatFieldDefault("strategy.target_band", &s.TargetBand, 0.08),
		floatFieldDefault("strategy.base_risk_pct", &s.BaseRiskPct, 0.006),
		intFieldDefault("strategy.max_adds", &s.MaxAdds, 4),
		floatFieldDefault("strategy.add_size_decay", &s.AddSizeDecay, 0.80),
		floatFieldDefault("strategy.add_spacing_atr", &s.AddSpacingATR, 0.70),
		floatFieldDefault("strategy.grid_step_min_pct", &s.GridStepMinPct, 0.007),
		intFieldDefault("strategy.grid_levels", &s.GridLevels, 1),
		floatFieldDefault("strategy.trend_tp_atr", &s.TrendTPATR, 1.3),
		floatFieldDefault("strategy.range_tp_atr", &s.RangeTPATR, 1.1),
		floatFieldDefault("strategy.trend_tp_floor_pct", &s.TrendTPFloorPct, 0.011),
		floatFieldDefault("strategy.range_tp_floor_pct", &s.RangeTPFloorPct, 0.008),
		floatFieldDefault("strategy.trail_arm_atr", &s.TrailArmATR, 1.00),
		floatFieldDefault("strategy.trail_dist_trend_atr", &s.TrailDistTrendATR, 0.80),
		floatFieldDefault("strategy.trail_dist_range_atr", &s.TrailDistRangeATR, 1.10),
		floatFieldDefault("strategy.no_rebuy_buffer_atr", &s.NoRebuyBufferATR, 0.40),
		intFieldDefault("strategy.time_exit_days", &s.TimeExitDays, 4),
		intFieldDefault("strategy.cooldown_candles_1h", &s.CooldownCandles1h, 3),
		floatFieldDefault("strategy.spread_max_bps", &s.SpreadMaxBps, 15),
		floatFieldDefault("strategy.slippage_max_bps", &s.SlippageMaxBps, 10),
		intFieldDefault("strategy.unfilled_timeout_sec", &s.UnfilledTimeoutSec, 90),
		floatFieldDefault("strategy.daily_loss_cap_pct", &s.DailyLossCapPct, 0.012),
		intFieldDefault("strategy.data_max_age_min", &s.DataMaxAgeMin, 10),
		intFieldDefault("strategy.ema_period", &s.EMAPeriod, 200),
		intFieldDefault("strategy.adx_period", &s.ADXPeriod, 14),
		floatFieldDefault("strategy.adx_trend_min", &s.ADXTrendMin, 18),
		intFieldDefault("strategy.atr_period", &s.ATRPeriod, 14),
		intFieldDefault("strategy.donchian_period", &s.DonchianPeriod, 20),
	)
}

func (t *TickConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("tick.interval", &t.Interval, defaultTickInterval),
		intFieldDefault("tick.offset_seconds", &t.OffsetSeconds, defaultTickOffset),
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && *target <= 0
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && *target <= 0
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
