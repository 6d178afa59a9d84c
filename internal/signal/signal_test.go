package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidemark/internal/market"
	"tidemark/internal/regime"
)

var testParams = Params{
	DonchianPeriod: 20,
	GridStepMinPct: 0.007,
	TrendTPATR:     1.3,
	RangeTPATR:     1.1,
	TrendTPFloor:   0.011,
	RangeTPFloor:   0.008,
	TrailArmATR:    1.0,
	TrailTrendATR:  0.8,
	TrailRangeATR:  1.1,
	NoRebuyATR:     0.4,
}

func flatCandles(n int, price float64) []market.Candle {
	base := time.Date(2024, 4, 9, 0, 0, 0, 0, time.UTC)
	out := make([]market.Candle, n)
	for i := range out {
		out[i] = market.Candle{
			CloseTime: base.Add(time.Duration(i) * time.Hour).UnixMilli(),
			Open:      price, High: price + 1, Low: price - 1, Close: price,
			Volume: 10,
		}
	}
	return out
}

func TestSymmetricGrid(t *testing.T) {
	assert.Equal(t, []float64{80, 90, 100, 110, 120}, SymmetricGrid(100, 10, 2))
	assert.Equal(t, []float64{100}, SymmetricGrid(100, 10, 0))
	assert.Len(t, SymmetricGrid(50, 2.5, 3), 7)
}

func TestEntryTrendBreakout(t *testing.T) {
	candles := flatCandles(40, 100)
	// Last close pierces the prior Donchian high and the weekly VWAP.
	candles[len(candles)-1].Close = 120
	candles[len(candles)-1].High = 121

	sig, ok := Entry(candles, regime.Trend, 2, testParams)
	require.True(t, ok)
	assert.True(t, sig.LongBreakout)

	flat, ok := Entry(flatCandles(40, 100), regime.Trend, 2, testParams)
	require.True(t, ok)
	assert.False(t, flat.LongBreakout)
}

func TestEntryTrendNotReady(t *testing.T) {
	_, ok := Entry(flatCandles(5, 100), regime.Trend, 2, testParams)
	assert.False(t, ok)
	_, ok = Entry(nil, regime.Trend, 2, testParams)
	assert.False(t, ok)
}

func TestEntryRangeGridStep(t *testing.T) {
	candles := flatCandles(40, 100)

	// ATR-dominated: 0.75*4 = 3 beats 0.7% of VWAP (~0.7).
	sig, ok := Entry(candles, regime.Range, 4, testParams)
	require.True(t, ok)
	assert.InDelta(t, 3.0, sig.GridStep, 1e-9)
	assert.InDelta(t, 100.0, sig.VWAP, 1e-9)

	// Floor-dominated when ATR is tiny.
	sig, ok = Entry(candles, regime.Range, 0.1, testParams)
	require.True(t, ok)
	assert.InDelta(t, 0.7, sig.GridStep, 1e-9)
}

func TestExitsByRegime(t *testing.T) {
	trend := Exits(regime.Trend, 20, 2000, testParams)
	assert.InDelta(t, 26.0, trend.TPDist, 1e-9) // 1.3*20 > 1.1%*2000=22
	assert.InDelta(t, 20.0, trend.TrailArm, 1e-9)
	assert.InDelta(t, 16.0, trend.TrailDist, 1e-9)
	assert.InDelta(t, 8.0, trend.RebuyBuffer, 1e-9)

	rng := Exits(regime.Range, 20, 2000, testParams)
	assert.InDelta(t, 22.0, rng.TPDist, 1e-9) // 1.1*20 vs 0.8%*2000=16
	assert.InDelta(t, 22.0, rng.TrailDist, 1e-9)

	// Floor wins when ATR is small relative to price.
	floor := Exits(regime.Trend, 1, 2000, testParams)
	assert.InDelta(t, 22.0, floor.TPDist, 1e-9)
}
