package engine

import (
	"context"

	"tidemark/internal/gateway/exchange"
	"tidemark/internal/logger"
	"tidemark/internal/order"
)

// reconcile drives the live order book toward the desired set. Orders are
// matched structurally by (side, price, quantity) rounded to venue precision,
// never by venue id. Three passes:
//
//  1. any live order older than the unfilled timeout is cancelled, desired or
//     not; a partial fill whose remainder clears min notional is re-placed at
//     the same price and side (top-up)
//  2. live orders absent from the desired set are cancelled
//  3. desired orders absent from the live set are placed, dropping anything
//     below min notional
//
// Every venue failure is logged and skipped; the next tick's diff naturally
// retries.
func (e *Engine) reconcile(ctx context.Context, symbol string, snap *snapshot, desired []order.Desired) {
	meta := snap.meta
	timeout := e.cfg.Strategy.UnfilledTimeout()

	wanted := make(map[string]order.Desired, len(desired))
	for _, d := range desired {
		if d.Market() {
			continue
		}
		if d.Notional() < meta.MinNotional {
			logger.Debugf("[reconcile] dropping %s %.6f @ %.2f below min notional %.2f",
				d.Side, d.Quantity, d.Price, meta.MinNotional)
			continue
		}
		wanted[d.Key(meta.PricePrecision, meta.QtyPrecision)] = d
	}

	matched := make(map[string]struct{}, len(wanted))
	for _, o := range snap.open {
		key := order.Key(o.Side, o.Price, o.Quantity, meta.PricePrecision, meta.QtyPrecision)

		if snap.now.Sub(o.CreatedAt) >= timeout {
			if !e.cancel(ctx, symbol, o.ID) {
				continue
			}
			logger.Infof("[reconcile] cancelled stale order %s (%s %.6f @ %.2f)",
				o.ID, o.Side, o.Quantity, o.Price)
			if o.PartiallyFilled() && o.Remaining()*o.Price >= meta.MinNotional {
				e.place(ctx, order.Desired{
					Side:     o.Side,
					Type:     order.TypeLimit,
					Price:    o.Price,
					Quantity: o.Remaining(),
					PostOnly: true,
				}, symbol, meta)
			}
			continue
		}

		if _, ok := wanted[key]; ok {
			matched[key] = struct{}{}
			continue
		}
		if e.cancel(ctx, symbol, o.ID) {
			logger.Debugf("[reconcile] cancelled undesired order %s (%s %.6f @ %.2f)",
				o.ID, o.Side, o.Quantity, o.Price)
		}
	}

	for key, d := range wanted {
		if _, ok := matched[key]; ok {
			continue
		}
		e.place(ctx, d, symbol, meta)
	}
}

func (e *Engine) cancel(ctx context.Context, symbol, id string) bool {
	if err := e.gw.CancelOrder(ctx, symbol, id); err != nil {
		logger.Warnf("[reconcile] cancel %s failed: %v", id, err)
		return false
	}
	return true
}

func (e *Engine) place(ctx context.Context, d order.Desired, symbol string, meta exchange.Meta) {
	// Rounding must match order.Key exactly or the next tick's diff would
	// cancel and re-place the same order forever.
	req := exchange.PlaceOrderRequest{
		Symbol:   symbol,
		Side:     d.Side,
		Type:     exchange.TypeLimit,
		Price:    roundHalfUp(d.Price, meta.PricePrecision),
		Quantity: roundHalfUp(d.Quantity, meta.QtyPrecision),
		PostOnly: d.PostOnly,
	}
	if req.Quantity*req.Price < meta.MinNotional {
		return
	}
	if err := e.placeDirect(ctx, req); err != nil {
		logger.Warnf("[reconcile] place %s %.6f @ %.2f failed: %v",
			req.Side, req.Quantity, req.Price, err)
		return
	}
	logger.Infof("[reconcile] placed %s %.6f @ %.2f", req.Side, req.Quantity, req.Price)
}
