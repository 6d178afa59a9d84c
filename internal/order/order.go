// Package order defines the desired-order record the strategy hands to the
// reconciler. A set of Desired orders, keyed structurally by side, rounded
// price and rounded quantity, is the target book state for one tick.
package order

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	TypeMarket = "MARKET"
	TypeLimit  = "LIMIT"
)

// Desired is one order the strategy wants resting on the venue. Price 0
// means a market order.
type Desired struct {
	Side     string
	Type     string
	Price    float64
	Quantity float64
	PostOnly bool
}

// Market reports whether the order has no limit price.
func (d Desired) Market() bool {
	return d.Price <= 0 || d.Type == TypeMarket
}

// Notional is price*quantity; 0 for market orders.
func (d Desired) Notional() float64 {
	if d.Market() {
		return 0
	}
	return d.Price * d.Quantity
}

// Key builds the structural identity used to diff desired against live
// orders: side plus price and quantity rounded to venue precision. Orders are
// compared by this key, never by venue order id.
func (d Desired) Key(pricePrecision, qtyPrecision int32) string {
	return Key(d.Side, d.Price, d.Quantity, pricePrecision, qtyPrecision)
}

// Key is the shared key constructor so live venue orders can be hashed the
// same way as desired ones.
func Key(side string, price, qty float64, pricePrecision, qtyPrecision int32) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(strings.TrimSpace(side)))
	b.WriteByte('|')
	b.WriteString(decimal.NewFromFloat(price).Round(pricePrecision).String())
	b.WriteByte('|')
	b.WriteString(decimal.NewFromFloat(qty).Round(qtyPrecision).String())
	return b.String()
}
