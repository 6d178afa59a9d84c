// Package exchange defines the narrow venue gateway the controller trades
// through, so the core logic stays independent of any one exchange SDK.
package exchange

import (
	"context"
	"time"

	"tidemark/internal/market"
)

// Gateway is the venue surface the tick pipeline consumes. All calls are
// blocking; implementations must honor ctx cancellation per call. Failures
// surface as *VenueError so callers can log-and-continue explicitly instead
// of a silent catch-all.
type Gateway interface {
	FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error)

	FetchTopOfBook(ctx context.Context, symbol string) (TopOfBook, error)

	FetchBalances(ctx context.Context) (map[string]Balance, error)

	FetchOpenOrders(ctx context.Context, symbol string) ([]OpenOrder, error)

	FetchMarketMeta(ctx context.Context, symbol string) (Meta, error)

	// PlaceOrder submits an order and returns the venue order id.
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (string, error)

	CancelOrder(ctx context.Context, symbol, orderID string) error

	ServerTime(ctx context.Context) (time.Time, error)
}
