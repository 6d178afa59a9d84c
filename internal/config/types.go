package config

import (
	"strings"
	"time"

	"tidemark/internal/inventory"
	"tidemark/internal/risk"
	"tidemark/internal/signal"
)

// Config is the immutable process configuration: loaded once, shared
// read-only by every component.
type Config struct {
	App      AppConfig      `toml:"app"`
	Market   MarketConfig   `toml:"market"`
	Strategy StrategyConfig `toml:"strategy"`
	Tick     TickConfig     `toml:"tick"`
}

type AppConfig struct {
	Env         string `toml:"env"`
	LogLevel    string `toml:"log_level"`
	LogPath     string `toml:"log_path"`
	HTTPAddr    string `toml:"http_addr"`
	StatePath   string `toml:"state_path"`
	JournalPath string `toml:"journal_path"`
}

type MarketConfig struct {
	Exchange           string  `toml:"exchange"`
	RESTBaseURL        string  `toml:"rest_base_url"`
	RESTProxyURL       string  `toml:"rest_proxy_url"`
	ProxyEnabled       bool    `toml:"proxy_enabled"`
	APIKey             string  `toml:"api_key"`
	APISecret          string  `toml:"api_secret"`
	Symbol             string  `toml:"symbol"`
	BaseAsset          string  `toml:"base_asset"`
	QuoteAsset         string  `toml:"quote_asset"`
	FastInterval       string  `toml:"fast_interval"`
	SlowInterval       string  `toml:"slow_interval"`
	CandleLimit        int     `toml:"candle_limit"`
	HTTPTimeoutSeconds int     `toml:"http_timeout_seconds"`
	DefaultTakerFee    float64 `toml:"default_taker_fee"`
}

// StrategyConfig carries every numeric threshold. Percentages are fractions
// (0.006 = 0.6%).
type StrategyConfig struct {
	ExposureCapNotionalPct float64 `toml:"exposure_cap_notional_pct"`
	TargetAllocPct         float64 `toml:"target_alloc_pct"`
	TargetBand             float64 `toml:"target_band"`
	BaseRiskPct            float64 `toml:"base_risk_pct"`
	MaxAdds                int     `toml:"max_adds"`
	AddSizeDecay           float64 `toml:"add_size_decay"`
	AddSpacingATR          float64 `toml:"add_spacing_atr"`
	GridStepMinPct         float64 `toml:"grid_step_min_pct"`
	GridLevels             int     `toml:"grid_levels"`
	TrendTPATR             float64 `toml:"trend_tp_atr"`
	RangeTPATR             float64 `toml:"range_tp_atr"`
	TrendTPFloorPct        float64 `toml:"trend_tp_floor_pct"`
	RangeTPFloorPct        float64 `toml:"range_tp_floor_pct"`
	TrailArmATR            float64 `toml:"trail_arm_atr"`
	TrailDistTrendATR      float64 `toml:"trail_dist_trend_atr"`
	TrailDistRangeATR      float64 `toml:"trail_dist_range_atr"`
	NoRebuyBufferATR       float64 `toml:"no_rebuy_buffer_atr"`
	TimeExitDays           int     `toml:"time_exit_days"`
	CooldownCandles1h      int     `toml:"cooldown_candles_1h"`
	SpreadMaxBps           float64 `toml:"spread_max_bps"`
	SlippageMaxBps         float64 `toml:"slippage_max_bps"`
	UnfilledTimeoutSec     int     `toml:"unfilled_timeout_sec"`
	DailyLossCapPct        float64 `toml:"daily_loss_cap_pct"`
	DataMaxAgeMin          int     `toml:"data_max_age_min"`
	EMAPeriod              int     `toml:"ema_period"`
	ADXPeriod              int     `toml:"adx_period"`
	ADXTrendMin            float64 `toml:"adx_trend_min"`
	ATRPeriod              int     `toml:"atr_period"`
	DonchianPeriod         int     `toml:"donchian_period"`
}

type TickConfig struct {
	Interval       string `toml:"interval"`
	OffsetSeconds  int    `toml:"offset_seconds"`
	RunImmediately bool   `toml:"run_immediately"`
}

func (m MarketConfig) HTTPTimeout() time.Duration {
	return time.Duration(m.HTTPTimeoutSeconds) * time.Second
}

// CleanSymbol is the venue pair without separators, upper-cased.
func (m MarketConfig) CleanSymbol() string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(m.Symbol), "/", ""))
}

// RiskParams maps strategy knobs onto the sizer.
func (s StrategyConfig) RiskParams() risk.Params {
	return risk.Params{
		BaseRiskPct:    s.BaseRiskPct,
		MaxAdds:        s.MaxAdds,
		AddSizeDecay:   s.AddSizeDecay,
		ExposureCapPct: s.ExposureCapNotionalPct,
	}
}

// SignalParams maps strategy knobs onto the signal generator.
func (s StrategyConfig) SignalParams() signal.Params {
	return signal.Params{
		DonchianPeriod: s.DonchianPeriod,
		GridStepMinPct: s.GridStepMinPct,
		TrendTPATR:     s.TrendTPATR,
		RangeTPATR:     s.RangeTPATR,
		TrendTPFloor:   s.TrendTPFloorPct,
		RangeTPFloor:   s.RangeTPFloorPct,
		TrailArmATR:    s.TrailArmATR,
		TrailTrendATR:  s.TrailDistTrendATR,
		TrailRangeATR:  s.TrailDistRangeATR,
		NoRebuyATR:     s.NoRebuyBufferATR,
	}
}

// InventoryParams maps strategy knobs onto the bootstrapper.
func (s StrategyConfig) InventoryParams() inventory.Params {
	return inventory.Params{
		TargetAllocPct: s.TargetAllocPct,
		TargetBand:     s.TargetBand,
	}
}

// UnfilledTimeout is the resting-order staleness cutoff.
func (s StrategyConfig) UnfilledTimeout() time.Duration {
	return time.Duration(s.UnfilledTimeoutSec) * time.Second
}

// DataMaxAge is the candle freshness guard window.
func (s StrategyConfig) DataMaxAge() time.Duration {
	return time.Duration(s.DataMaxAgeMin) * time.Minute
}

// keySet tracks which config paths were explicitly set in the file, so an
// explicit zero is never overridden by a default.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault is one default-value rule.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
