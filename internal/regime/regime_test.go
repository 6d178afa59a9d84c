package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidemark/internal/market"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name  string
		slope float64
		adx   float64
		want  Regime
	}{
		{"trending", 0.5, 25, Trend},
		{"adx at threshold", 0.5, 18, Trend},
		{"flat slope", 0, 30, Range},
		{"negative slope", -0.1, 30, Range},
		{"weak adx", 0.5, 17.9, Range},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.slope, tc.adx, 18))
		})
	}
}

func TestFromCandles(t *testing.T) {
	up := make([]market.Candle, 60)
	for i := range up {
		base := 100 + 2*float64(i)
		up[i] = market.Candle{Open: base - 1, High: base + 1, Low: base - 1, Close: base, Volume: 10}
	}
	reg, ok := FromCandles(up, 20, 14, 18)
	require.True(t, ok)
	assert.Equal(t, Trend, reg)

	down := make([]market.Candle, 60)
	for i := range down {
		base := 300 - 2*float64(i)
		down[i] = market.Candle{Open: base + 1, High: base + 1, Low: base - 1, Close: base, Volume: 10}
	}
	reg, ok = FromCandles(down, 20, 14, 18)
	require.True(t, ok)
	assert.Equal(t, Range, reg)

	_, ok = FromCandles(up[:5], 20, 14, 18)
	assert.False(t, ok)
}
