// Package signal produces entry signals and exit parameters conditioned on
// the current regime.
package signal

import (
	"tidemark/internal/indicator"
	"tidemark/internal/market"
	"tidemark/internal/regime"
)

// Params carry the regime-dependent distances. Defaults mirror the shipped
// configuration: TREND take-profit 1.3xATR with a 1.1% floor, RANGE 1.1xATR
// with a 0.8% floor, arm at 1xATR, trail 0.8xATR / 1.1xATR.
type Params struct {
	DonchianPeriod int
	GridStepMinPct float64
	TrendTPATR     float64
	RangeTPATR     float64
	TrendTPFloor   float64
	RangeTPFloor   float64
	TrailArmATR    float64
	TrailTrendATR  float64
	TrailRangeATR  float64
	NoRebuyATR     float64
}

// Signals is the per-tick entry signal set. LongBreakout is meaningful in
// TREND, GridStep (>0) in RANGE.
type Signals struct {
	LongBreakout bool
	GridStep     float64
	VWAP         float64
}

// Entry evaluates entry conditions on the higher-timeframe series. Returns
// false when required indicators are not ready.
func Entry(candles []market.Candle, reg regime.Regime, atr14 float64, p Params) (Signals, bool) {
	var sig Signals
	if len(candles) == 0 {
		return sig, false
	}
	sig.VWAP = indicator.VWAP(candles)
	lastClose := market.LastClose(candles)

	switch reg {
	case regime.Trend:
		dcHigh, ok := indicator.Last(indicator.DonchianHigh(market.Highs(candles), p.DonchianPeriod))
		if !ok {
			return sig, false
		}
		aw := indicator.AnchoredWeekVWAP(candles)
		sig.LongBreakout = lastClose > dcHigh || (aw > 0 && lastClose > aw)
	default:
		step := 0.75 * atr14
		if floor := p.GridStepMinPct * sig.VWAP; floor > step {
			step = floor
		}
		sig.GridStep = step
	}
	return sig, true
}

// ExitRules are the distances driving take-profit, trailing stop and re-entry
// suppression for one open position.
type ExitRules struct {
	TPDist      float64
	TrailArm    float64
	TrailDist   float64
	RebuyBuffer float64
}

// Exits derives the regime-specific exit distances for a position entered at
// entryPrice.
func Exits(reg regime.Regime, atr14, entryPrice float64, p Params) ExitRules {
	var r ExitRules
	if reg == regime.Trend {
		r.TPDist = maxf(p.TrendTPATR*atr14, p.TrendTPFloor*entryPrice)
		r.TrailDist = p.TrailTrendATR * atr14
	} else {
		r.TPDist = maxf(p.RangeTPATR*atr14, p.RangeTPFloor*entryPrice)
		r.TrailDist = p.TrailRangeATR * atr14
	}
	r.TrailArm = p.TrailArmATR * atr14
	r.RebuyBuffer = p.NoRebuyATR * atr14
	return r
}

// SymmetricGrid returns 2*levels+1 ascending prices spaced step apart and
// centered on anchor.
func SymmetricGrid(anchor, step float64, levels int) []float64 {
	if levels < 0 {
		levels = 0
	}
	out := make([]float64, 0, 2*levels+1)
	for i := -levels; i <= levels; i++ {
		out = append(out, anchor+float64(i)*step)
	}
	return out
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
