package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/equitrader/alert"
	"github.com/rustyeddy/equitrader/broker"
	"github.com/rustyeddy/equitrader/broker/kis"
	"github.com/rustyeddy/equitrader/config"
	"github.com/rustyeddy/equitrader/journal"
	"github.com/rustyeddy/equitrader/market"
	"github.com/rustyeddy/equitrader/monitor"
	"github.com/rustyeddy/equitrader/notify"
	"github.com/rustyeddy/equitrader/risk"
	"github.com/rustyeddy/equitrader/strategy"
)

// app holds the collaborators a command needs, built from cfg.
type app struct {
	loc      *time.Location
	journal  *journal.SQLite
	supplier *market.Mock
	broker   broker.Broker
}

func newApp() (*app, error) {
	loc, err := cfg.Watch.Location()
	if err != nil {
		return nil, err
	}
	j, err := journal.NewSQLite(cfg.DB.Path, journal.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	a := &app{loc: loc, journal: j, supplier: market.NewMock(cfg.Broker.Seed)}
	a.broker, err = a.newBroker()
	if err != nil {
		_ = j.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) Close() error {
	return a.journal.Close()
}

func (a *app) newBroker() (broker.Broker, error) {
	if cfg.Broker.Provider != "kis" {
		return broker.NewMock(a.journal, a.quote, log.With().Str("broker", "mock").Logger()), nil
	}

	timeout, err := cfg.Broker.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	ttl, err := cfg.Broker.PositionsTTLDuration()
	if err != nil {
		return nil, err
	}
	return kis.New(nil, a.journal, config.NewCredentialStore(cfg.Broker.KeysPath), kis.Options{
		Mode:            cfg.Mode,
		Paper:           cfg.Broker.Paper,
		Timeout:         timeout,
		PositionsTTL:    ttl,
		DailyLossLimitR: cfg.Risk.DailyLossLimitR,
		SymbolSuffix:    cfg.Broker.SymbolSuffix,
	}, log.With().Str("broker", "kis").Logger()), nil
}

// quote prices mock market orders at the latest close.
func (a *app) quote(ctx context.Context, symbol string) (float64, error) {
	candles, err := a.supplier.GetCandles(ctx, symbol, cfg.Watch.Timeframe, cfg.Watch.Limit)
	if err != nil {
		return 0, err
	}
	if len(candles) == 0 {
		return 0, fmt.Errorf("no candles for %s", symbol)
	}
	return candles[len(candles)-1].Close, nil
}

// names resolves display names from the journal's cache.
func (a *app) names(symbol string) string {
	return a.journal.SymbolName(market.Code(symbol))
}

func (a *app) universe() []string {
	return a.supplier.GetUniverse(cfg.Watch.Universe, cfg.Watch.Symbols)
}

func (a *app) scanner() *strategy.Scanner {
	sc := strategy.NewScanner(strategy.NewScorer(cfg.Strategy), a.supplier, log)
	sc.Names = a.names
	sc.Timeframe = cfg.Watch.Timeframe
	sc.Limit = cfg.Watch.Limit
	return sc
}

func (a *app) monitor(n notify.Notifier) *monitor.Monitor {
	eval := risk.NewEvaluator(cfg.Risk)
	eval.Now = func() time.Time { return time.Now().In(a.loc) }

	return monitor.New(a.journal, a.broker, a.priceSupplier(), eval,
		alert.New(a.journal, a.loc, log), n,
		monitor.Options{
			Timeframe: cfg.Watch.Timeframe,
			Limit:     cfg.Watch.Limit,
			AutoExit:  cfg.Watch.AutoExit,
			ShowNames: cfg.Watch.ShowNames,
			Names:     a.names,
		}, log.With().Str("component", "monitor").Logger())
}

// priceSupplier is the monitor's price source. The KIS balance already
// carries the current price, so kis positions are not repriced from the
// synthetic feed.
func (a *app) priceSupplier() market.Supplier {
	if cfg.Broker.Provider == "kis" {
		return nil
	}
	return a.supplier
}
