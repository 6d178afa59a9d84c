// Package regime classifies the market into trending or ranging. The
// classification is recomputed from scratch every tick; persisted regime
// memory is for logging only and never feeds back into the rule.
package regime

import (
	"tidemark/internal/indicator"
	"tidemark/internal/market"
)

type Regime string

const (
	Trend Regime = "TREND"
	Range Regime = "RANGE"
)

// Classify applies the regime rule: TREND iff the slow EMA slope is positive
// and ADX clears the threshold.
func Classify(emaSlope, adx, adxMin float64) Regime {
	if emaSlope > 0 && adx >= adxMin {
		return Trend
	}
	return Range
}

// FromCandles derives the regime from a higher-timeframe candle series.
// Returns false when the indicators are not ready yet.
func FromCandles(candles []market.Candle, emaPeriod, adxPeriod int, adxMin float64) (Regime, bool) {
	if len(candles) < 2 {
		return Range, false
	}
	closes := market.Closes(candles)
	slope, ok := indicator.Slope(indicator.EMA(closes, emaPeriod))
	if !ok {
		return Range, false
	}
	adx, ok := indicator.Last(indicator.ADX(market.Highs(candles), market.Lows(candles), closes, adxPeriod))
	if !ok {
		return Range, false
	}
	return Classify(slope, adx, adxMin), true
}
