// Package inventory converges held inventory toward a target allocation band
// before regular trading starts.
package inventory

import (
	"math"

	"tidemark/internal/order"
)

// Params describe the target allocation band. Fractions, not percents.
type Params struct {
	TargetAllocPct float64
	TargetBand     float64
}

// AllocationPct is the base-asset fraction of total portfolio value.
// Returns 0 for an empty portfolio.
func AllocationPct(baseQty, quoteValue, price float64) float64 {
	baseVal := baseQty * price
	total := baseVal + quoteValue
	if total == 0 {
		return 0
	}
	return baseVal / total
}

// InBand reports whether alloc lies inside the target band.
func (p Params) InBand(alloc float64) bool {
	return alloc >= p.TargetAllocPct-p.TargetBand && alloc <= p.TargetAllocPct+p.TargetBand
}

// RebalanceOrder emits at most one post-only order moving the allocation to
// the nearest band edge, priced 0.6 ATR away from VWAP on the favourable
// side. ok is false when the allocation is already in band or inputs are
// degenerate.
func RebalanceOrder(alloc, portfolioValue, price, vwap, atr14 float64, p Params) (order.Desired, bool) {
	if price <= 0 || portfolioValue <= 0 || p.InBand(alloc) {
		return order.Desired{}, false
	}
	step := 0.6 * atr14
	var d order.Desired
	if alloc > p.TargetAllocPct+p.TargetBand {
		edge := p.TargetAllocPct + p.TargetBand
		d = order.Desired{
			Side:     order.SideSell,
			Type:     order.TypeLimit,
			Price:    vwap + step,
			Quantity: math.Abs(alloc-edge) * portfolioValue / price,
			PostOnly: true,
		}
	} else {
		edge := p.TargetAllocPct - p.TargetBand
		d = order.Desired{
			Side:     order.SideBuy,
			Type:     order.TypeLimit,
			Price:    vwap - step,
			Quantity: math.Abs(edge-alloc) * portfolioValue / price,
			PostOnly: true,
		}
	}
	if d.Quantity <= 0 || d.Price <= 0 {
		return order.Desired{}, false
	}
	return d, true
}
