// Package app wires config, gateway, state, journal, engine and the HTTP
// surface into one runnable process.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"tidemark/internal/config"
	"tidemark/internal/engine"
	"tidemark/internal/gateway/binance"
	"tidemark/internal/journal"
	"tidemark/internal/logger"
	"tidemark/internal/scheduler"
	"tidemark/internal/state"
	statushttp "tidemark/internal/transport/http/status"
)

type App struct {
	cfg        *config.Config
	eng        *engine.Engine
	jnl        *journal.Journal
	statusHTTP *statushttp.Server
}

// NewApp builds the application from config without starting anything.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	gw, err := binance.New(binance.Config{
		APIKey:          cfg.Market.APIKey,
		APISecret:       cfg.Market.APISecret,
		RESTBaseURL:     cfg.Market.RESTBaseURL,
		RESTProxyURL:    cfg.Market.RESTProxyURL,
		ProxyEnabled:    cfg.Market.ProxyEnabled,
		HTTPTimeout:     cfg.Market.HTTPTimeout(),
		DefaultTakerFee: cfg.Market.DefaultTakerFee,
	})
	if err != nil {
		return nil, fmt.Errorf("building venue gateway: %w", err)
	}

	store := state.NewStore(cfg.App.StatePath, cfg.Strategy.MaxAdds)

	jnl, err := journal.Open(cfg.App.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("opening trade journal: %w", err)
	}

	eng, err := engine.New(cfg, gw, store, jnl)
	if err != nil {
		jnl.Close()
		return nil, fmt.Errorf("building engine: %w", err)
	}

	srv, err := statushttp.NewServer(statushttp.Config{
		Addr:    cfg.App.HTTPAddr,
		Engine:  eng,
		Journal: jnl,
	})
	if err != nil {
		jnl.Close()
		return nil, fmt.Errorf("building status server: %w", err)
	}

	return &App{cfg: cfg, eng: eng, jnl: jnl, statusHTTP: srv}, nil
}

// Run starts the tick loop and the status server and blocks until ctx is
// cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	interval, ok := scheduler.ParseIntervalDuration(a.cfg.Tick.Interval)
	if !ok {
		return fmt.Errorf("invalid tick interval %q", a.cfg.Tick.Interval)
	}
	offset := time.Duration(a.cfg.Tick.OffsetSeconds) * time.Second

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := a.statusHTTP.Start(ctx); err != nil {
			return fmt.Errorf("status http server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		defer a.jnl.Close()
		sched := scheduler.NewAlignedScheduler(ctx, interval, offset)
		sched.RunImmediately = a.cfg.Tick.RunImmediately
		sched.Start(func() { a.tick(ctx) })
		return nil
	})

	return group.Wait()
}

func (a *App) tick(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, a.cfg.Market.HTTPTimeout()*4)
	defer cancel()
	if err := a.eng.OnTick(tickCtx); err != nil {
		if errors.Is(err, engine.ErrDataUnavailable) {
			logger.Warnf("[app] tick skipped: %v", err)
			return
		}
		logger.Errorf("[app] tick failed: %v", err)
	}
}
