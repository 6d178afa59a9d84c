package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidemark/internal/order"
)

var testParams = Params{TargetAllocPct: 0.5, TargetBand: 0.08}

func TestAllocationPct(t *testing.T) {
	assert.InDelta(t, 0.5, AllocationPct(2, 4000, 2000), 1e-9)
	assert.InDelta(t, 1.0, AllocationPct(2, 0, 2000), 1e-9)
	assert.Zero(t, AllocationPct(0, 0, 2000))
}

func TestInBand(t *testing.T) {
	assert.True(t, testParams.InBand(0.5))
	assert.True(t, testParams.InBand(0.42))
	assert.True(t, testParams.InBand(0.58))
	assert.False(t, testParams.InBand(0.41))
	assert.False(t, testParams.InBand(0.59))
}

func TestRebalanceOrderOverAllocated(t *testing.T) {
	// 80% in base vs 58% upper edge: sell 22% of portfolio value.
	d, ok := RebalanceOrder(0.80, 10000, 2000, 2010, 20, testParams)
	require.True(t, ok)
	assert.Equal(t, order.SideSell, d.Side)
	assert.True(t, d.PostOnly)
	assert.InDelta(t, 2022.0, d.Price, 1e-9) // vwap + 0.6*atr
	assert.InDelta(t, 0.22*10000/2000, d.Quantity, 1e-9)
}

func TestRebalanceOrderUnderAllocated(t *testing.T) {
	d, ok := RebalanceOrder(0.10, 10000, 2000, 2010, 20, testParams)
	require.True(t, ok)
	assert.Equal(t, order.SideBuy, d.Side)
	assert.InDelta(t, 1998.0, d.Price, 1e-9)
	assert.InDelta(t, 0.32*10000/2000, d.Quantity, 1e-9)
}

func TestRebalanceOrderInBandOrDegenerate(t *testing.T) {
	_, ok := RebalanceOrder(0.5, 10000, 2000, 2010, 20, testParams)
	assert.False(t, ok)
	_, ok = RebalanceOrder(0.9, 0, 2000, 2010, 20, testParams)
	assert.False(t, ok)
	_, ok = RebalanceOrder(0.9, 10000, 0, 2010, 20, testParams)
	assert.False(t, ok)
}

func TestRebalanceConvergence(t *testing.T) {
	// Applying each emitted order's fill moves the allocation into the band
	// within a bounded number of rounds.
	price := 2000.0
	baseQty := 4.5 // 9000 of 10000 -> 90% allocated
	quote := 1000.0
	for i := 0; i < 10; i++ {
		port := baseQty*price + quote
		alloc := AllocationPct(baseQty, quote, price)
		d, ok := RebalanceOrder(alloc, port, price, price, 20, testParams)
		if !ok {
			break
		}
		if d.Side == order.SideSell {
			baseQty -= d.Quantity
			quote += d.Quantity * price
		} else {
			baseQty += d.Quantity
			quote -= d.Quantity * price
		}
	}
	assert.True(t, testParams.InBand(AllocationPct(baseQty, quote, price)))
}
