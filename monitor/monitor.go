// Package monitor re-evaluates open positions on a schedule: it refreshes
// prices, raises exit signals, dedupes and notifies, and optionally sells.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/equitrader/alert"
	"github.com/rustyeddy/equitrader/broker"
	"github.com/rustyeddy/equitrader/journal"
	"github.com/rustyeddy/equitrader/market"
	"github.com/rustyeddy/equitrader/metrics"
	"github.com/rustyeddy/equitrader/notify"
	"github.com/rustyeddy/equitrader/risk"
	"github.com/rustyeddy/equitrader/strategy"
)

// Store is the slice of the journal the monitor writes to.
type Store interface {
	UpsertPosition(p risk.Position, ts time.Time) error
	LogEvent(level, msg string) error
	RecordRealizedR(r float64) error
	IsDailyLossLimitExceeded(limit float64) (bool, error)
}

type Options struct {
	Timeframe string
	Limit     int
	AutoExit  bool
	ShowNames bool
	Names     strategy.NameResolver
}

type Monitor struct {
	store    Store
	broker   broker.Broker
	supplier market.Supplier
	eval     *risk.Evaluator
	dedup    *alert.Deduplicator
	notifier notify.Notifier
	opts     Options
	log      zerolog.Logger
}

func New(store Store, b broker.Broker, sup market.Supplier, eval *risk.Evaluator,
	dedup *alert.Deduplicator, n notify.Notifier, opts Options, log zerolog.Logger) *Monitor {
	if opts.Timeframe == "" {
		opts.Timeframe = "D"
	}
	if opts.Limit <= 0 {
		opts.Limit = 120
	}
	if n == nil {
		n = notify.Null{}
	}
	return &Monitor{
		store:    store,
		broker:   b,
		supplier: sup,
		eval:     eval,
		dedup:    dedup,
		notifier: n,
		opts:     opts,
		log:      log,
	}
}

func (m *Monitor) Evaluator() *risk.Evaluator { return m.eval }

// Report summarizes one Check cycle.
type Report struct {
	Positions []risk.Position
	Signals   []risk.ExitSignal
	Notified  int
	Exits     []broker.OrderResult
}

// Enrich refreshes every open position from the latest candle and writes
// the result back. Closed positions are dropped.
func (m *Monitor) Enrich(ctx context.Context) []risk.Position {
	held := m.broker.GetPositions(ctx)
	now := m.eval.Now()

	out := make([]risk.Position, 0, len(held))
	for _, p := range held {
		if p.Qty <= 0 {
			continue
		}
		p = risk.Enrich(p, m.lastPrice(ctx, p.Symbol))
		p.UpdatedAt = now
		if err := m.store.UpsertPosition(p, now); err != nil {
			m.log.Warn().Err(err).Str("symbol", p.Symbol).Msg("upsert position failed")
		}
		out = append(out, p)
	}
	return out
}

// lastPrice is the close of the newest candle, 0 when unavailable.
func (m *Monitor) lastPrice(ctx context.Context, symbol string) float64 {
	if m.supplier == nil {
		return 0
	}
	candles, err := m.supplier.GetCandles(ctx, symbol, m.opts.Timeframe, m.opts.Limit)
	if err != nil {
		m.log.Warn().Err(err).Str("symbol", symbol).Msg("last price unavailable")
		return 0
	}
	if len(candles) == 0 {
		return 0
	}
	return candles[len(candles)-1].Close
}

// Check runs one evaluation cycle.
func (m *Monitor) Check(ctx context.Context) Report {
	rep := Report{Positions: m.Enrich(ctx)}

	for _, p := range rep.Positions {
		sig := m.eval.EvaluateExit(p)
		if sig == nil {
			continue
		}
		rep.Signals = append(rep.Signals, *sig)
		metrics.ExitSignalsTotal.WithLabelValues(string(sig.Type)).Inc()

		if !m.dedup.Remember(sig.Symbol, sig.Type, sig.TriggeredAt) {
			m.log.Debug().Str("symbol", sig.Symbol).Str("type", string(sig.Type)).Msg("exit alert already sent today")
			continue
		}

		msg := risk.FormatExitMessage(*sig, m.name(sig.Symbol))
		m.logEvent(journal.LevelWarning, msg)
		if m.notifier.Send(msg) {
			rep.Notified++
		}
		m.log.Info().Str("symbol", sig.Symbol).Str("type", string(sig.Type)).Msg(sig.Message)

		if m.opts.AutoExit {
			rep.Exits = append(rep.Exits, m.exit(ctx, p, *sig))
		}
	}
	return rep
}

func (m *Monitor) exit(ctx context.Context, p risk.Position, sig risk.ExitSignal) broker.OrderResult {
	res := m.broker.PlaceOrder(ctx, broker.OrderRequest{
		Symbol:    p.Symbol,
		Side:      broker.Sell,
		Qty:       p.Qty,
		PriceType: broker.Market,
	})
	if !res.OK {
		m.log.Warn().Err(res.Err).Str("symbol", p.Symbol).Msg("auto exit failed")
		return res
	}
	m.notifier.Send(risk.Truncate(fmt.Sprintf("auto exit %s %d sold (%s)", p.Symbol, p.Qty, sig.Type), notify.MaxLen))
	m.bookRealized(p)
	return res
}

// bookRealized adds the closed trade's R to today's total and logs the
// breach the first time the total crosses the daily limit.
func (m *Monitor) bookRealized(p risk.Position) {
	limit := m.eval.Config.DailyLossLimitR
	before, err := m.store.IsDailyLossLimitExceeded(limit)
	if err != nil {
		// treat as not yet tripped so a breach is still announced
		m.log.Error().Err(err).Msg("daily loss check before booking failed")
		before = false
	}

	r := risk.RealizedR(p.AvgPrice, p.LastPrice, m.eval.Config.StopLossPct)
	if err := m.store.RecordRealizedR(r); err != nil {
		m.log.Error().Err(err).Str("symbol", p.Symbol).Msg("record realized R failed")
		return
	}

	after, err := m.store.IsDailyLossLimitExceeded(limit)
	if err != nil {
		m.log.Error().Err(err).Msg("daily loss check failed")
		return
	}
	if after && !before {
		msg := fmt.Sprintf("%s limit reached (%.2fR): new orders blocked for today", journal.DailyLossMarker, limit)
		m.logEvent(journal.LevelRisk, msg)
		m.notifier.Send(msg)
	}
}

func (m *Monitor) name(symbol string) string {
	if !m.opts.ShowNames {
		return ""
	}
	return strategy.ResolveName(m.opts.Names, m.supplier, symbol)
}

func (m *Monitor) logEvent(level, msg string) {
	if err := m.store.LogEvent(level, msg); err != nil {
		m.log.Warn().Err(err).Str("level", level).Msg("journal event failed")
	}
}

// Run calls Check every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context, interval time.Duration, onReport func(Report)) error {
	if interval <= 0 {
		return fmt.Errorf("monitor: interval must be positive, got %s", interval)
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		rep := m.Check(ctx)
		if onReport != nil {
			onReport(rep)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		}
	}
}
