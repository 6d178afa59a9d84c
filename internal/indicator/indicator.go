// Package indicator computes the derived series the controller trades on. All
// series functions return a slice the same length as the input; entries that
// cannot be computed yet carry NaN, and callers must treat NaN as "data not
// ready" rather than a value.
package indicator

import (
	"math"
	"time"

	"github.com/markcheno/go-talib"

	"tidemark/internal/market"
)

// Valid reports whether v is a usable indicator value.
func Valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Last returns the newest valid value of a series.
func Last(series []float64) (float64, bool) {
	for i := len(series) - 1; i >= 0; i-- {
		if Valid(series[i]) {
			return series[i], true
		}
	}
	return 0, false
}

// Slope returns the difference between the last two values of a series.
func Slope(series []float64) (float64, bool) {
	if len(series) < 2 {
		return 0, false
	}
	a, b := series[len(series)-2], series[len(series)-1]
	if !Valid(a) || !Valid(b) {
		return 0, false
	}
	return b - a, true
}

// EMA computes an exponential moving average seeded with the first value,
// smoothing factor 2/(period+1).
func EMA(series []float64, period int) []float64 {
	out := make([]float64, len(series))
	if len(series) == 0 || period <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	alpha := 2.0 / float64(period+1)
	out[0] = series[0]
	for i := 1; i < len(series); i++ {
		out[i] = out[i-1] + alpha*(series[i]-out[i-1])
	}
	return out
}

// TrueRange computes the per-bar true range. The first bar has no previous
// close, so its range is just high-low.
func TrueRange(highs, lows, closes []float64) []float64 {
	n := len(closes)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		hl := highs[i] - lows[i]
		if i == 0 {
			out[i] = hl
			continue
		}
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

// ATR is the rolling mean of the true range over period bars. NaN until
// period bars exist.
func ATR(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || n < period {
		return out
	}
	tr := TrueRange(highs, lows, closes)
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += tr[i]
		if i >= period {
			sum -= tr[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// ADX applies Wilder smoothing (alpha = 1/period) to +DM, -DM and the
// rolling-mean ATR, then smooths the resulting DX the same way. Entries are
// NaN until the ATR is defined, and DX is NaN wherever +DI + -DI is zero.
func ADX(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || n < period {
		return out
	}
	atr := ATR(highs, lows, closes, period)
	alpha := 1.0 / float64(period)

	var plusS, minusS float64
	var haveDM bool
	var adx float64
	var haveADX bool
	for i := 1; i < n; i++ {
		plusDM := math.Max(highs[i]-highs[i-1], 0)
		minusDM := math.Max(lows[i-1]-lows[i], 0)
		if !haveDM {
			plusS, minusS = plusDM, minusDM
			haveDM = true
		} else {
			plusS += alpha * (plusDM - plusS)
			minusS += alpha * (minusDM - minusS)
		}
		if !Valid(atr[i]) || atr[i] == 0 {
			continue
		}
		plusDI := 100 * plusS / atr[i]
		minusDI := 100 * minusS / atr[i]
		den := plusDI + minusDI
		if den == 0 {
			continue
		}
		dx := 100 * math.Abs(plusDI-minusDI) / den
		if !haveADX {
			adx = dx
			haveADX = true
		} else {
			adx += alpha * (dx - adx)
		}
		out[i] = adx
	}
	return out
}

// DonchianHigh is the rolling max of highs over period bars, NaN during the
// lookback.
func DonchianHigh(highs []float64, period int) []float64 {
	return maskLookback(talib.Max(highs, period), period)
}

// DonchianLow is the rolling min of lows over period bars, NaN during the
// lookback.
func DonchianLow(lows []float64, period int) []float64 {
	return maskLookback(talib.Min(lows, period), period)
}

// talib fills the lookback window with zeros; the contract here is NaN.
func maskLookback(series []float64, period int) []float64 {
	out := make([]float64, len(series))
	copy(out, series)
	for i := 0; i < len(out) && i < period-1; i++ {
		out[i] = math.NaN()
	}
	return out
}

// VWAP returns cumulative close*volume over cumulative volume for the whole
// supplied window. The caller controls the anchor by slicing the series.
// Returns 0 when there is no volume.
func VWAP(candles []market.Candle) float64 {
	var pv, vol float64
	for _, c := range candles {
		pv += c.Close * c.Volume
		vol += c.Volume
	}
	if vol == 0 {
		return 0
	}
	return pv / vol
}

// AnchoredWeekVWAP restricts VWAP to bars since the most recent Monday 00:00
// UTC relative to the newest bar.
func AnchoredWeekVWAP(candles []market.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	last := candles[len(candles)-1].CloseAt()
	anchor := weekStart(last)
	start := len(candles)
	for i, c := range candles {
		if !c.CloseAt().Before(anchor) {
			start = i
			break
		}
	}
	return VWAP(candles[start:])
}

func weekStart(t time.Time) time.Time {
	t = t.UTC()
	days := (int(t.Weekday()) + 6) % 7 // Monday = 0
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -days)
}
