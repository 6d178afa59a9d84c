// Package engine owns the per-tick trading decision: guards, the position
// state machine, the desired order set and its reconciliation against the
// venue. One Engine instance drives exactly one pair; OnTick never runs
// concurrently with itself.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tidemark/internal/config"
	"tidemark/internal/gateway/exchange"
	"tidemark/internal/indicator"
	"tidemark/internal/inventory"
	"tidemark/internal/journal"
	"tidemark/internal/logger"
	"tidemark/internal/market"
	"tidemark/internal/order"
	"tidemark/internal/regime"
	"tidemark/internal/risk"
	"tidemark/internal/signal"
	"tidemark/internal/state"
)

// ErrDataUnavailable aborts a tick before any state mutation: candles or book
// are empty or stale.
var ErrDataUnavailable = errors.New("market data unavailable")

type Engine struct {
	cfg   *config.Config
	gw    exchange.Gateway
	store *state.Store
	jnl   *journal.Journal

	st *state.State
	// dirty marks a mid-tick intent write that must be re-persisted even
	// when the tick leaves the state otherwise unchanged
	dirty bool

	mu     sync.Mutex
	status Status
}

// Status is the read-only snapshot served over HTTP. It never exposes the
// live state struct.
type Status struct {
	Symbol         string    `json:"symbol"`
	LastTickAt     time.Time `json:"last_tick_at"`
	Regime         string    `json:"regime"`
	BootstrapPhase string    `json:"bootstrap_phase"`
	EntryPrice     float64   `json:"entry_price"`
	PositionQty    float64   `json:"position_qty"`
	AddCount       int       `json:"add_count"`
	TrailActive    bool      `json:"trail_active"`
	TrailAnchor    float64   `json:"trail_anchor"`
	LastExitPrice  float64   `json:"last_exit_price"`
	DailyLoss      float64   `json:"daily_loss_realized"`
	OpenOrders     int       `json:"open_orders"`
	LastPrice      float64   `json:"last_price"`
	Equity         float64   `json:"equity"`
	GuardsPassed   bool      `json:"guards_passed"`
}

func New(cfg *config.Config, gw exchange.Gateway, store *state.Store, jnl *journal.Journal) (*Engine, error) {
	st, err := store.Load()
	if err != nil {
		return nil, err
	}
	if st.OrderIntent != "" {
		logger.Warnf("[engine] unresolved order intent %s from previous run, clearing", st.OrderIntent)
		st.OrderIntent = ""
	}
	return &Engine{cfg: cfg, gw: gw, store: store, jnl: jnl, st: st}, nil
}

// Snapshot returns the latest status for the HTTP layer.
func (e *Engine) Snapshot() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// snapshot is the per-tick market view. Discarded after the tick.
type snapshot struct {
	fast     []market.Candle
	slow     []market.Candle
	book     exchange.TopOfBook
	balances map[string]exchange.Balance
	open     []exchange.OpenOrder
	meta     exchange.Meta
	now      time.Time
}

func (s *snapshot) price() float64 {
	if mid := s.book.Mid(); mid > 0 {
		return mid
	}
	return market.LastClose(s.fast)
}

func (s *snapshot) equity(baseAsset, quoteAsset string, price float64) float64 {
	return s.balances[quoteAsset].Total() + s.balances[baseAsset].Total()*price
}

// OnTick runs one full evaluation cycle: snapshot, classify, size, signal,
// state machine, reconcile, persist. Ticks are strictly sequential; a tick
// always runs to completion once the snapshot is in hand.
func (e *Engine) OnTick(ctx context.Context) error {
	symbol := e.cfg.Market.CleanSymbol()
	snap, err := e.buildSnapshot(ctx, symbol)
	if err != nil {
		return err
	}

	st := e.st
	before := *st
	st.RollLossDay(snap.now)

	price := snap.price()
	equity := snap.equity(e.cfg.Market.BaseAsset, e.cfg.Market.QuoteAsset, price)

	strat := e.cfg.Strategy
	reg, ok := regime.FromCandles(snap.slow, strat.EMAPeriod, strat.ADXPeriod, strat.ADXTrendMin)
	if !ok {
		logger.Warnf("[engine] %s indicators not ready (%d slow candles), skipping tick", symbol, len(snap.slow))
		return nil
	}
	atr, ok := e.slowATR(snap)
	if !ok {
		logger.Warnf("[engine] %s ATR not ready, skipping tick", symbol)
		return nil
	}
	st.LastRegime = string(reg)

	var desired []order.Desired

	if st.Bootstrap == state.PhasePending {
		desired = e.bootstrapTick(snap, price, equity)
		if st.Bootstrap == state.PhasePending {
			// bootstrap is exclusive: no other trading until DONE
			e.reconcile(ctx, symbol, snap, desired)
			e.persist(before)
			e.publish(symbol, snap, reg, price, equity, false)
			return nil
		}
	}

	baseQty := snap.balances[e.cfg.Market.BaseAsset].Total()
	e.syncPosition(snap, baseQty, price)

	guardsOK := e.entryGuards(snap, equity)

	if st.HasPosition() {
		e.runExits(ctx, symbol, snap, reg, atr, price, baseQty)
	}

	if !st.HasPosition() && guardsOK {
		desired = append(desired, e.runEntry(ctx, symbol, snap, reg, atr, price, equity)...)
	}

	if st.HasPosition() && guardsOK {
		e.runAdds(ctx, symbol, snap, reg, atr, price, equity)
	}

	e.reconcile(ctx, symbol, snap, desired)
	e.persist(before)
	e.publish(symbol, snap, reg, price, equity, guardsOK)
	return nil
}

func (e *Engine) buildSnapshot(ctx context.Context, symbol string) (*snapshot, error) {
	m := e.cfg.Market
	fast, err := e.gw.FetchCandles(ctx, symbol, m.FastInterval, m.CandleLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	slow, err := e.gw.FetchCandles(ctx, symbol, m.SlowInterval, m.CandleLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if len(fast) == 0 || len(slow) == 0 {
		return nil, fmt.Errorf("%w: empty candle series", ErrDataUnavailable)
	}
	book, err := e.gw.FetchTopOfBook(ctx, symbol)
	if err != nil || book.Mid() == 0 {
		return nil, fmt.Errorf("%w: top of book (err=%v)", ErrDataUnavailable, err)
	}
	balances, err := e.gw.FetchBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: balances: %v", ErrDataUnavailable, err)
	}
	open, err := e.gw.FetchOpenOrders(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: open orders: %v", ErrDataUnavailable, err)
	}
	meta, err := e.gw.FetchMarketMeta(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: market meta: %v", ErrDataUnavailable, err)
	}
	now, err := e.gw.ServerTime(ctx)
	if err != nil {
		now = time.Now().UTC()
	}
	age := now.Sub(fast[len(fast)-1].CloseAt())
	if age > e.cfg.Strategy.DataMaxAge() {
		return nil, fmt.Errorf("%w: last candle %s old", ErrDataUnavailable, age.Round(time.Second))
	}
	return &snapshot{
		fast:     fast,
		slow:     slow,
		book:     book,
		balances: balances,
		open:     open,
		meta:     meta,
		now:      now,
	}, nil
}

func (e *Engine) slowATR(snap *snapshot) (float64, bool) {
	series := indicator.ATR(
		market.Highs(snap.slow), market.Lows(snap.slow), market.Closes(snap.slow),
		e.cfg.Strategy.ATRPeriod)
	return indicator.Last(series)
}

// bootstrapTick converges inventory toward the target band. Returns the
// desired rebalance order (at most one) while still converging.
func (e *Engine) bootstrapTick(snap *snapshot, price, equity float64) []order.Desired {
	p := e.cfg.Strategy.InventoryParams()
	baseQty := snap.balances[e.cfg.Market.BaseAsset].Total()
	quoteVal := snap.balances[e.cfg.Market.QuoteAsset].Total()
	alloc := inventory.AllocationPct(baseQty, quoteVal, price)
	if p.InBand(alloc) {
		e.st.Bootstrap = state.PhaseDone
		logger.Infof("[engine] bootstrap done: allocation %.4f inside band %.2f +/- %.2f",
			alloc, p.TargetAllocPct, p.TargetBand)
		return nil
	}
	atr, ok := e.slowATR(snap)
	if !ok {
		return nil
	}
	vwap := indicator.VWAP(snap.slow)
	d, ok := inventory.RebalanceOrder(alloc, equity, price, vwap, atr, p)
	if !ok {
		return nil
	}
	logger.Infof("[engine] bootstrap rebalance: alloc %.4f -> %s %.6f @ %.2f",
		alloc, d.Side, d.Quantity, d.Price)
	e.record(journal.Event{
		Kind: journal.KindBootstrapRebalance, Side: d.Side,
		Price: d.Price, Quantity: d.Quantity, Regime: e.st.LastRegime,
	})
	return []order.Desired{d}
}

// syncPosition reconciles persisted position memory against actual holdings.
// A held balance with no recorded entry adopts the current price (restart or
// grid-fill recovery); a vanished balance clears the position.
func (e *Engine) syncPosition(snap *snapshot, baseQty, price float64) {
	held := baseQty*price >= snap.meta.MinNotional
	st := e.st
	switch {
	case held && !st.HasPosition():
		logger.Infof("[engine] adopting held position %.6f @ %.2f", baseQty, price)
		st.OpenPosition(price, snap.now)
	case !held && st.HasPosition():
		logger.Warnf("[engine] position cleared outside the controller, resetting")
		st.EntryPrice = 0
		st.OpenedAt = 0
		st.AddCount = 0
		st.LastAddPrice = 0
		st.TrailActive = false
		st.TrailAnchorPrice = 0
		st.TrailDist = 0
	}
}

// entryGuards gates new entries and adds. Exits always run regardless.
func (e *Engine) entryGuards(snap *snapshot, equity float64) bool {
	strat := e.cfg.Strategy
	if spread := snap.book.SpreadBps(); spread > strat.SpreadMaxBps {
		logger.Warnf("[engine] spread guard: %.1f bps > %.1f bps", spread, strat.SpreadMaxBps)
		return false
	}
	mid := snap.book.Mid()
	if mid > 0 {
		slip := (snap.book.Ask - mid) / mid * 10000
		if slip > strat.SlippageMaxBps {
			logger.Warnf("[engine] slippage guard: %.1f bps > %.1f bps", slip, strat.SlippageMaxBps)
			return false
		}
	}
	if lossCap := strat.DailyLossCapPct * equity; e.st.DailyLossRealized >= lossCap {
		logger.Warnf("[engine] daily loss guard: %.2f >= %.2f", e.st.DailyLossRealized, lossCap)
		return false
	}
	return true
}

// runExits evaluates, in order: time exit, take-profit, trailing arm and
// trigger. Take-profit always precedes the trailing trigger; after any exit
// the position is flat and nothing else fires this tick.
func (e *Engine) runExits(ctx context.Context, symbol string, snap *snapshot, reg regime.Regime, atr, price, baseQty float64) {
	st := e.st
	rules := signal.Exits(reg, atr, st.EntryPrice, e.cfg.Strategy.SignalParams())

	if st.OpenedAt > 0 {
		age := snap.now.Sub(time.Unix(st.OpenedAt, 0))
		if age >= time.Duration(e.cfg.Strategy.TimeExitDays)*24*time.Hour {
			e.exitPosition(ctx, symbol, snap, price, baseQty, journal.KindTimeExit)
			return
		}
	}

	if price >= st.EntryPrice+rules.TPDist {
		e.exitPosition(ctx, symbol, snap, price, baseQty, journal.KindTakeProfit)
		return
	}

	if !st.TrailActive && price-st.EntryPrice >= rules.TrailArm {
		st.TrailActive = true
		st.TrailAnchorPrice = price
		st.TrailDist = rules.TrailDist
		logger.Infof("[engine] trailing stop armed @ %.2f dist %.2f", price, rules.TrailDist)
	}
	if st.TrailActive {
		if price > st.TrailAnchorPrice {
			st.TrailAnchorPrice = price
		}
		if price <= st.TrailAnchorPrice-st.TrailDist {
			e.exitPosition(ctx, symbol, snap, price, baseQty, journal.KindTrailingStop)
		}
	}
}

// exitPosition market-sells the whole holding. State mutates only after the
// venue accepts the order.
func (e *Engine) exitPosition(ctx context.Context, symbol string, snap *snapshot, price, baseQty float64, kind string) {
	st := e.st
	qty := roundDown(baseQty, snap.meta.QtyPrecision)
	if qty*price < snap.meta.MinNotional {
		logger.Warnf("[engine] exit below min notional (%.6f @ %.2f), leaving dust", qty, price)
		st.ClosePosition(price, snap.now)
		return
	}
	entry := st.EntryPrice
	if err := e.placeDirect(ctx, exchange.PlaceOrderRequest{
		Symbol:   symbol,
		Side:     exchange.SideSell,
		Type:     exchange.TypeMarket,
		Quantity: qty,
	}); err != nil {
		logger.Errorf("[engine] %s exit failed: %v", kind, err)
		return
	}
	pnl := (price - entry) * qty
	st.ClosePosition(price, snap.now)
	if pnl < 0 {
		st.DailyLossRealized += -pnl
	}
	logger.Infof("[engine] %s: sold %.6f @ %.2f pnl %.2f", kind, qty, price, pnl)
	e.record(journal.Event{
		Kind: kind, Side: exchange.SideSell,
		Price: price, Quantity: qty, Regime: st.LastRegime, PnL: pnl,
	})
}

// runEntry evaluates entry conditions for a flat book: TREND breakout buys at
// market, RANGE builds the symmetric grid around VWAP as a desired limit set.
func (e *Engine) runEntry(ctx context.Context, symbol string, snap *snapshot, reg regime.Regime, atr, price, equity float64) []order.Desired {
	st := e.st
	strat := e.cfg.Strategy

	if st.LastExitPrice > 0 {
		rules := signal.Exits(reg, atr, price, strat.SignalParams())
		if price <= st.LastExitPrice+rules.RebuyBuffer {
			return nil
		}
	}
	if st.LastExitAt > 0 {
		cooldown := time.Duration(strat.CooldownCandles1h) * time.Hour
		if snap.now.Sub(time.Unix(st.LastExitAt, 0)) < cooldown {
			return nil
		}
	}

	stakes := risk.ComputeStakes(equity, risk.UnitRisk(atr, price), price, strat.RiskParams())
	if len(stakes) == 0 || stakes[0] <= 0 {
		return nil
	}
	sig, ok := signal.Entry(snap.slow, reg, atr, strat.SignalParams())
	if !ok {
		return nil
	}

	if reg == regime.Trend {
		if !sig.LongBreakout {
			return nil
		}
		qty := roundDown(stakes[0], snap.meta.QtyPrecision)
		if qty*price < snap.meta.MinNotional {
			return nil
		}
		if err := e.placeDirect(ctx, exchange.PlaceOrderRequest{
			Symbol:   symbol,
			Side:     exchange.SideBuy,
			Type:     exchange.TypeMarket,
			Quantity: qty,
		}); err != nil {
			logger.Errorf("[engine] breakout entry failed: %v", err)
			return nil
		}
		st.OpenPosition(price, snap.now)
		logger.Infof("[engine] breakout entry: bought %.6f @ %.2f", qty, price)
		e.record(journal.Event{
			Kind: journal.KindEntry, Side: exchange.SideBuy,
			Price: price, Quantity: qty, Regime: string(reg),
		})
		return nil
	}

	if sig.GridStep <= 0 || sig.VWAP <= 0 {
		return nil
	}
	st.GridAnchor = sig.VWAP
	qty := stakes[0]
	var desired []order.Desired
	for _, level := range signal.SymmetricGrid(sig.VWAP, sig.GridStep, strat.GridLevels) {
		if level == sig.VWAP || level <= 0 {
			continue
		}
		side := order.SideBuy
		if level > sig.VWAP {
			side = order.SideSell
		}
		desired = append(desired, order.Desired{
			Side:     side,
			Type:     order.TypeLimit,
			Price:    level,
			Quantity: qty,
			PostOnly: true,
		})
	}
	return desired
}

// runAdds places at most one spaced post-only add per tick, walking the
// decayed stake ladder until it is exhausted.
func (e *Engine) runAdds(ctx context.Context, symbol string, snap *snapshot, reg regime.Regime, atr, price, equity float64) {
	st := e.st
	strat := e.cfg.Strategy
	stakes := risk.ComputeStakes(equity, risk.UnitRisk(atr, price), price, strat.RiskParams())
	if st.AddCount >= len(stakes)-1 {
		return
	}
	if st.LastAddPrice-price < strat.AddSpacingATR*atr {
		return
	}
	qty := roundDown(stakes[st.AddCount+1], snap.meta.QtyPrecision)
	if qty*price < snap.meta.MinNotional {
		return
	}
	if err := e.placeDirect(ctx, exchange.PlaceOrderRequest{
		Symbol:   symbol,
		Side:     exchange.SideBuy,
		Type:     exchange.TypeLimit,
		Price:    roundDown(price, snap.meta.PricePrecision),
		Quantity: qty,
		PostOnly: true,
	}); err != nil {
		logger.Errorf("[engine] add #%d failed: %v", st.AddCount+1, err)
		return
	}
	st.AddCount++
	st.LastAddPrice = price
	logger.Infof("[engine] add #%d: %.6f @ %.2f", st.AddCount, qty, price)
	e.record(journal.Event{
		Kind: journal.KindAdd, Side: exchange.SideBuy,
		Price: price, Quantity: qty, Regime: string(reg),
	})
}

// placeDirect submits one order outside the reconciler. The intent token is
// persisted before the venue call so a crash mid-submission is visible on the
// next start, and doubles as the client order id for venue-side dedup.
func (e *Engine) placeDirect(ctx context.Context, req exchange.PlaceOrderRequest) error {
	intent := uuid.NewString()
	req.ClientOrderID = intent
	e.st.OrderIntent = intent
	if err := e.store.Save(e.st); err != nil {
		logger.Warnf("[engine] persisting order intent failed: %v", err)
	}
	e.dirty = true
	_, err := e.gw.PlaceOrder(ctx, req)
	e.st.OrderIntent = ""
	return err
}

func (e *Engine) persist(before state.State) {
	if *e.st == before && !e.dirty {
		return
	}
	e.dirty = false
	if err := e.store.Save(e.st); err != nil {
		logger.Errorf("[engine] persisting state failed: %v", err)
	}
}

func (e *Engine) publish(symbol string, snap *snapshot, reg regime.Regime, price, equity float64, guardsOK bool) {
	st := e.st
	e.mu.Lock()
	e.status = Status{
		Symbol:         symbol,
		LastTickAt:     snap.now,
		Regime:         string(reg),
		BootstrapPhase: string(st.Bootstrap),
		EntryPrice:     st.EntryPrice,
		PositionQty:    snap.balances[e.cfg.Market.BaseAsset].Total(),
		AddCount:       st.AddCount,
		TrailActive:    st.TrailActive,
		TrailAnchor:    st.TrailAnchorPrice,
		LastExitPrice:  st.LastExitPrice,
		DailyLoss:      st.DailyLossRealized,
		OpenOrders:     len(snap.open),
		LastPrice:      price,
		Equity:         equity,
		GuardsPassed:   guardsOK,
	}
	e.mu.Unlock()
}

func (e *Engine) record(evt journal.Event) {
	evt.Symbol = e.cfg.Market.CleanSymbol()
	if err := e.jnl.Record(evt); err != nil {
		logger.Warnf("[engine] journal write failed: %v", err)
	}
}

func roundDown(v float64, precision int32) float64 {
	f, _ := decimal.NewFromFloat(v).RoundDown(precision).Float64()
	return f
}

func roundHalfUp(v float64, precision int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(precision).Float64()
	return f
}
