// Package risk converts equity and volatility into a bounded ladder of
// position-add sizes.
package risk

import (
	"math"

	"github.com/shopspring/decimal"
)

const qtyScale = 6

// Params are the sizing knobs. All percentages are fractions (0.006 = 0.6%).
type Params struct {
	BaseRiskPct    float64
	MaxAdds        int
	AddSizeDecay   float64
	ExposureCapPct float64
}

// UnitRisk is the volatility floor used to size the base stake:
// max(0.8*ATR14, 1.2% of price).
func UnitRisk(atr14, price float64) float64 {
	return math.Max(0.8*atr14, 0.012*price)
}

// BaseStake is the base quantity risking BaseRiskPct of equity against
// unitRisk, rounded to 6 decimals. Zero when unitRisk is zero.
func BaseStake(equity, unitRisk, baseRiskPct float64) float64 {
	if unitRisk == 0 {
		return 0
	}
	return round6(baseRiskPct * equity / unitRisk)
}

// ComputeStakes builds the add ladder: the base stake followed by up to
// MaxAdds geometrically decayed sizes, truncated at the first size whose
// cumulative notional would exceed ExposureCapPct of equity. Sizes past the
// cut are dropped, so the result may be shorter than MaxAdds+1 (or empty);
// callers must index defensively.
func ComputeStakes(equity, unitRisk, price float64, p Params) []float64 {
	base := BaseStake(equity, unitRisk, p.BaseRiskPct)
	ladder := make([]float64, 0, p.MaxAdds+1)
	ladder = append(ladder, base)
	qty := base
	for i := 0; i < p.MaxAdds; i++ {
		qty *= p.AddSizeDecay
		ladder = append(ladder, round6(qty))
	}

	cap := p.ExposureCapPct * equity
	total := 0.0
	out := make([]float64, 0, len(ladder))
	for _, q := range ladder {
		notional := q * price
		if total+notional > cap {
			break
		}
		out = append(out, q)
		total += notional
	}
	return out
}

func round6(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	f, _ := decimal.NewFromFloat(v).Round(qtyScale).Float64()
	return f
}
