package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidemark/internal/market"
)

func TestEMARecursion(t *testing.T) {
	series := []float64{10, 12, 11, 13}
	out := EMA(series, 3)
	require.Len(t, out, 4)

	alpha := 2.0 / 4.0
	want := []float64{10, 0, 0, 0}
	want[1] = want[0] + alpha*(12-want[0])
	want[2] = want[1] + alpha*(11-want[1])
	want[3] = want[2] + alpha*(13-want[2])
	for i := range want {
		assert.InDelta(t, want[i], out[i], 1e-12)
	}
}

func TestATRBoundary(t *testing.T) {
	const period = 14
	highs := make([]float64, 30)
	lows := make([]float64, 30)
	closes := make([]float64, 30)
	for i := range highs {
		highs[i] = 105 + float64(i)
		lows[i] = 95 + float64(i)
		closes[i] = 100 + float64(i)
	}
	out := ATR(highs, lows, closes, period)
	for i := 0; i < period-1; i++ {
		assert.True(t, math.IsNaN(out[i]), "bar %d should be undefined", i)
	}
	for i := period - 1; i < len(out); i++ {
		assert.True(t, Valid(out[i]), "bar %d should be defined", i)
	}
}

func TestATRShortSeries(t *testing.T) {
	out := ATR([]float64{2, 3}, []float64{1, 2}, []float64{1.5, 2.5}, 14)
	for _, v := range out {
		assert.True(t, math.IsNaN(v))
	}
}

func TestADXBoundary(t *testing.T) {
	const period = 14
	n := 40
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		base := 100 + 2*float64(i)
		highs[i] = base + 1
		lows[i] = base - 1
		closes[i] = base
	}
	out := ADX(highs, lows, closes, period)
	for i := 0; i < period-1; i++ {
		assert.True(t, math.IsNaN(out[i]), "bar %d should be undefined", i)
	}
	for i := period - 1; i < n; i++ {
		require.True(t, Valid(out[i]), "bar %d should be defined", i)
		assert.Greater(t, out[i], 0.0)
		assert.LessOrEqual(t, out[i], 100.0)
	}
}

func TestDonchian(t *testing.T) {
	highs := []float64{1, 5, 3, 4, 9, 2}
	out := DonchianHigh(highs, 3)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.Equal(t, 5.0, out[2])
	assert.Equal(t, 5.0, out[3])
	assert.Equal(t, 9.0, out[4])
	assert.Equal(t, 9.0, out[5])

	lows := []float64{5, 2, 4, 1, 6, 7}
	low := DonchianLow(lows, 3)
	assert.True(t, math.IsNaN(low[1]))
	assert.Equal(t, 2.0, low[2])
	assert.Equal(t, 1.0, low[3])
	assert.Equal(t, 1.0, low[5])
}

func TestVWAP(t *testing.T) {
	candles := []market.Candle{
		{Close: 100, Volume: 1},
		{Close: 200, Volume: 3},
	}
	assert.InDelta(t, 175.0, VWAP(candles), 1e-9)
	assert.Zero(t, VWAP(nil))
	assert.Zero(t, VWAP([]market.Candle{{Close: 100, Volume: 0}}))
}

func TestAnchoredWeekVWAP(t *testing.T) {
	// Monday 2024-04-08 00:00 UTC is the anchor for the last bar.
	monday := time.Date(2024, 4, 8, 0, 0, 0, 0, time.UTC)
	candles := []market.Candle{
		{CloseTime: monday.Add(-2 * time.Hour).UnixMilli(), Close: 50, Volume: 10}, // previous week, excluded
		{CloseTime: monday.Add(1 * time.Hour).UnixMilli(), Close: 100, Volume: 1},
		{CloseTime: monday.Add(2 * time.Hour).UnixMilli(), Close: 200, Volume: 1},
	}
	assert.InDelta(t, 150.0, AnchoredWeekVWAP(candles), 1e-9)
}

func TestSlopeAndLast(t *testing.T) {
	_, ok := Slope([]float64{1})
	assert.False(t, ok)

	s, ok := Slope([]float64{1, 3})
	require.True(t, ok)
	assert.Equal(t, 2.0, s)

	_, ok = Last([]float64{math.NaN()})
	assert.False(t, ok)
	v, ok := Last([]float64{1, math.NaN()})
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
}
