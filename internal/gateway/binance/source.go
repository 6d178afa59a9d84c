// Package binance implements the venue gateway on the go-binance spot SDK.
package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"tidemark/internal/gateway/exchange"
	"tidemark/internal/market"
)

const maxHistoryLimit = 1000

// Gateway talks to Binance spot over REST and maps responses onto the
// exchange types. All failures come back as *exchange.VenueError.
type Gateway struct {
	cfg    Config
	client *binance.Client
}

var _ exchange.Gateway = (*Gateway)(nil)

func New(cfg Config) (*Gateway, error) {
	final := cfg.withDefaults()
	client := binance.NewClient(final.APIKey, final.APISecret)
	client.BaseURL = strings.TrimSpace(final.RESTBaseURL)
	httpClient := &http.Client{Timeout: final.HTTPTimeout}
	if final.ProxyEnabled && final.RESTProxyURL != "" {
		proxyURL, err := url.Parse(final.RESTProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}
	client.HTTPClient = httpClient
	return &Gateway{cfg: final, client: client}, nil
}

func (g *Gateway) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	symbol = cleanSymbol(symbol)
	if symbol == "" {
		return nil, venueErr("klines", symbol, fmt.Errorf("symbol is required"))
	}
	kls, err := g.client.NewKlinesService().
		Symbol(symbol).
		Interval(strings.ToLower(strings.TrimSpace(interval))).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, venueErr("klines", symbol, err)
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
			Trades:    kl.TradeNum,
		})
	}
	return dropUnclosed(out, time.Now().UTC()), nil
}

func (g *Gateway) FetchTopOfBook(ctx context.Context, symbol string) (exchange.TopOfBook, error) {
	symbol = cleanSymbol(symbol)
	tickers, err := g.client.NewListBookTickersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return exchange.TopOfBook{}, venueErr("book_ticker", symbol, err)
	}
	if len(tickers) == 0 || tickers[0] == nil {
		return exchange.TopOfBook{}, venueErr("book_ticker", symbol, fmt.Errorf("empty book"))
	}
	bid := parseFloat(tickers[0].BidPrice)
	ask := parseFloat(tickers[0].AskPrice)
	return exchange.TopOfBook{Bid: bid, Ask: ask, Spread: ask - bid}, nil
}

func (g *Gateway) FetchBalances(ctx context.Context) (map[string]exchange.Balance, error) {
	acct, err := g.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, venueErr("account", "", err)
	}
	out := make(map[string]exchange.Balance, len(acct.Balances))
	for _, b := range acct.Balances {
		free := parseFloat(b.Free)
		locked := parseFloat(b.Locked)
		if free == 0 && locked == 0 {
			continue
		}
		out[strings.ToUpper(b.Asset)] = exchange.Balance{Free: free, Locked: locked}
	}
	return out, nil
}

func (g *Gateway) FetchOpenOrders(ctx context.Context, symbol string) ([]exchange.OpenOrder, error) {
	symbol = cleanSymbol(symbol)
	orders, err := g.client.NewListOpenOrdersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, venueErr("open_orders", symbol, err)
	}
	out := make([]exchange.OpenOrder, 0, len(orders))
	for _, o := range orders {
		if o == nil {
			continue
		}
		out = append(out, exchange.OpenOrder{
			ID:        strconv.FormatInt(o.OrderID, 10),
			Side:      strings.ToUpper(string(o.Side)),
			Price:     parseFloat(o.Price),
			Quantity:  parseFloat(o.OrigQuantity),
			Executed:  parseFloat(o.ExecutedQuantity),
			CreatedAt: time.UnixMilli(o.Time).UTC(),
		})
	}
	return out, nil
}

func (g *Gateway) FetchMarketMeta(ctx context.Context, symbol string) (exchange.Meta, error) {
	symbol = cleanSymbol(symbol)
	info, err := g.client.NewExchangeInfoService().Symbol(symbol).Do(ctx)
	if err != nil {
		return exchange.Meta{}, venueErr("exchange_info", symbol, err)
	}
	meta := exchange.Meta{PricePrecision: 2, QtyPrecision: 6, MinNotional: 10, TakerFee: g.cfg.DefaultTakerFee}
	for _, s := range info.Symbols {
		if !strings.EqualFold(s.Symbol, symbol) {
			continue
		}
		if f := s.PriceFilter(); f != nil {
			meta.PricePrecision = precisionFromStep(f.TickSize)
		}
		if f := s.LotSizeFilter(); f != nil {
			meta.QtyPrecision = precisionFromStep(f.StepSize)
		}
		if f := s.NotionalFilter(); f != nil {
			meta.MinNotional = parseFloat(f.MinNotional)
		}
		break
	}
	// Account-level commission is authoritative when credentials allow it.
	if acct, err := g.client.NewGetAccountService().Do(ctx); err == nil && acct != nil {
		if acct.TakerCommission > 0 {
			meta.TakerFee = float64(acct.TakerCommission) / 10000
		}
	}
	return meta, nil
}

func (g *Gateway) PlaceOrder(ctx context.Context, req exchange.PlaceOrderRequest) (string, error) {
	symbol := cleanSymbol(req.Symbol)
	svc := g.client.NewCreateOrderService().
		Symbol(symbol).
		Side(binance.SideType(strings.ToUpper(req.Side))).
		Quantity(formatDecimal(req.Quantity, 8))
	switch {
	case strings.EqualFold(req.Type, exchange.TypeMarket):
		svc = svc.Type(binance.OrderTypeMarket)
	case req.PostOnly:
		// Spot post-only is the LIMIT_MAKER order type.
		svc = svc.Type(binance.OrderTypeLimitMaker).Price(formatDecimal(req.Price, 8))
	default:
		svc = svc.Type(binance.OrderTypeLimit).
			TimeInForce(binance.TimeInForceTypeGTC).
			Price(formatDecimal(req.Price, 8))
	}
	if req.ClientOrderID != "" {
		svc = svc.NewClientOrderID(req.ClientOrderID)
	}
	res, err := svc.Do(ctx)
	if err != nil {
		return "", venueErr("place_order", symbol, err)
	}
	return strconv.FormatInt(res.OrderID, 10), nil
}

func (g *Gateway) CancelOrder(ctx context.Context, symbol, orderID string) error {
	symbol = cleanSymbol(symbol)
	id, err := strconv.ParseInt(strings.TrimSpace(orderID), 10, 64)
	if err != nil {
		return venueErr("cancel_order", symbol, fmt.Errorf("bad order id %q: %w", orderID, err))
	}
	if _, err := g.client.NewCancelOrderService().Symbol(symbol).OrderID(id).Do(ctx); err != nil {
		return venueErr("cancel_order", symbol, err)
	}
	return nil
}

func (g *Gateway) ServerTime(ctx context.Context) (time.Time, error) {
	ms, err := g.client.NewServerTimeService().Do(ctx)
	if err != nil {
		return time.Time{}, venueErr("server_time", "", err)
	}
	return time.UnixMilli(ms).UTC(), nil
}

// Binance accepts symbols without slashes (ETH/USDT -> ETHUSDT).
func cleanSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(symbol), "/", ""))
}

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f
}

func formatDecimal(v float64, scale int32) string {
	return decimal.NewFromFloat(v).Round(scale).String()
}

// precisionFromStep maps a filter step like "0.01000000" to 2 decimal
// places. The venue pads steps with trailing zeros, so the written exponent
// cannot be trusted.
func precisionFromStep(step string) int32 {
	d, err := decimal.NewFromString(strings.TrimSpace(step))
	if err != nil || d.IsZero() {
		return 8
	}
	var prec int32
	for !d.IsInteger() && prec < 12 {
		d = d.Shift(1)
		prec++
	}
	return prec
}

// The venue reports the still-forming candle as its last row; decisions only
// ever see closed bars.
func dropUnclosed(candles []market.Candle, now time.Time) []market.Candle {
	if len(candles) == 0 {
		return candles
	}
	last := candles[len(candles)-1]
	if last.CloseAt().After(now) {
		return candles[:len(candles)-1]
	}
	return candles
}

func venueErr(op, symbol string, err error) error {
	return &exchange.VenueError{Op: op, Symbol: symbol, Err: err}
}
