// Package alert suppresses repeat exit notifications within a calendar day.
package alert

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/equitrader/metrics"
	"github.com/rustyeddy/equitrader/risk"
)

// Memory is the append-only log that records which alerts were sent.
type Memory interface {
	RememberAlert(symbol, signalType string, day time.Time) (bool, error)
}

type Deduplicator struct {
	mem Memory
	loc *time.Location
	log zerolog.Logger
}

// New builds a Deduplicator whose days are calendar dates in loc.
func New(mem Memory, loc *time.Location, log zerolog.Logger) *Deduplicator {
	if loc == nil {
		loc = time.Local
	}
	return &Deduplicator{mem: mem, loc: loc, log: log}
}

// Remember reports whether (symbol, type, date of at) is new. A failing
// memory suppresses the alert.
func (d *Deduplicator) Remember(symbol string, t risk.SignalType, at time.Time) bool {
	first, err := d.mem.RememberAlert(symbol, string(t), at.In(d.loc))
	if err != nil {
		d.log.Warn().Err(err).Str("symbol", symbol).Str("type", string(t)).Msg("alert memory failed")
		return false
	}
	if !first {
		metrics.AlertsSuppressedTotal.Inc()
	}
	return first
}
