// Package journal persists trades, positions and the append-only event
// log that backs alert dedup and the daily loss breaker.
package journal

import (
	"time"

	"github.com/rustyeddy/equitrader/risk"
)

// Event levels written to the log table.
const (
	LevelInfo      = "INFO"
	LevelWarning   = "WARNING"
	LevelRisk      = "risk"
	LevelOrderFail = "order_fail"
	LevelAlert     = "alert"
)

// DailyLossMarker is the substring that flags a daily loss breach in a
// risk event.
const DailyLossMarker = "daily_loss"

type TradeRecord struct {
	ID      string
	OrderID string
	Symbol  string
	Side    string
	Qty     int
	Price   float64
	Time    time.Time
}

type Event struct {
	ID      string
	Level   string
	Message string
	Day     string
	Time    time.Time
}

type Journal interface {
	RecordTrade(TradeRecord) error
	UpsertPosition(p risk.Position, ts time.Time) error
	GetPositions() ([]risk.Position, error)
	LogEvent(level, msg string) error
	RememberAlert(symbol, signalType string, day time.Time) (bool, error)
	IsDailyLossLimitExceeded(limit float64) (bool, error)
	Close() error
}
