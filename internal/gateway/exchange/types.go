package exchange

import (
	"fmt"
	"time"
)

const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	TypeMarket = "MARKET"
	TypeLimit  = "LIMIT"
)

// TopOfBook is the best bid/ask snapshot. Zero values signal an empty book.
type TopOfBook struct {
	Bid    float64
	Ask    float64
	Spread float64
}

// Mid is the midpoint price, 0 when either side is missing.
func (t TopOfBook) Mid() float64 {
	if t.Bid <= 0 || t.Ask <= 0 {
		return 0
	}
	return (t.Bid + t.Ask) / 2
}

// SpreadBps is the relative spread in basis points.
func (t TopOfBook) SpreadBps() float64 {
	mid := t.Mid()
	if mid == 0 {
		return 0
	}
	return t.Spread / mid * 10000
}

// Balance is one asset's free/locked split.
type Balance struct {
	Free   float64
	Locked float64
}

func (b Balance) Total() float64 { return b.Free + b.Locked }

// OpenOrder is a resting order as reported by the venue.
type OpenOrder struct {
	ID        string
	Side      string
	Price     float64
	Quantity  float64
	Executed  float64
	CreatedAt time.Time
}

// Remaining is the unfilled quantity.
func (o OpenOrder) Remaining() float64 {
	r := o.Quantity - o.Executed
	if r < 0 {
		return 0
	}
	return r
}

// PartiallyFilled reports whether some but not all quantity executed.
func (o OpenOrder) PartiallyFilled() bool {
	return o.Executed > 0 && o.Remaining() > 0
}

// Meta is the pair's trading rules.
type Meta struct {
	PricePrecision int32
	QtyPrecision   int32
	MinNotional    float64
	TakerFee       float64
}

// PlaceOrderRequest describes one order submission. Price is ignored for
// market orders; PostOnly limit orders must never take liquidity.
type PlaceOrderRequest struct {
	Symbol        string
	Side          string
	Type          string
	Quantity      float64
	Price         float64
	PostOnly      bool
	ClientOrderID string
}

// VenueError wraps any venue call failure with the operation and symbol so
// call sites can log it and treat the operation as not-happened.
type VenueError struct {
	Op     string
	Symbol string
	Err    error
}

func (e *VenueError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("venue %s %s: %v", e.Op, e.Symbol, e.Err)
	}
	return fmt.Sprintf("venue %s: %v", e.Op, e.Err)
}

func (e *VenueError) Unwrap() error { return e.Err }
