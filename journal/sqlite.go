package journal

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/equitrader/pkg/id"
	"github.com/rustyeddy/equitrader/risk"
)

const dayLayout = "2006-01-02"

type SQLite struct {
	db  *sql.DB
	loc *time.Location
	now func() time.Time
}

type Option func(*SQLite)

// WithLocation sets the timezone that defines a trading day.
func WithLocation(loc *time.Location) Option {
	return func(j *SQLite) {
		if loc != nil {
			j.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(j *SQLite) {
		if now != nil {
			j.now = now
		}
	}
}

var _ Journal = (*SQLite)(nil)

func NewSQLite(path string, opts ...Option) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// one writer keeps RememberAlert's check-and-insert race free
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	j := &SQLite{db: db, loc: time.Local, now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Day formats t as a calendar date in the journal's timezone.
func (j *SQLite) Day(t time.Time) string {
	return t.In(j.loc).Format(dayLayout)
}

func (j *SQLite) today() string {
	return j.Day(j.now())
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	if t.ID == "" {
		t.ID = id.New()
	}
	if t.Time.IsZero() {
		t.Time = j.now()
	}
	_, err := j.db.Exec(`
		INSERT INTO trades (id, order_id, symbol, side, qty, price, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OrderID, t.Symbol, strings.ToLower(t.Side), t.Qty, t.Price, t.Time.UTC(),
	)
	return err
}

func (j *SQLite) UpsertPosition(p risk.Position, ts time.Time) error {
	_, err := j.db.Exec(`
		INSERT INTO positions
		(symbol, qty, avg_price, last_price, pnl_pct, trail_stop, hard_stop, take_profit_price, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			qty = excluded.qty,
			avg_price = excluded.avg_price,
			last_price = excluded.last_price,
			pnl_pct = excluded.pnl_pct,
			trail_stop = excluded.trail_stop,
			hard_stop = excluded.hard_stop,
			take_profit_price = excluded.take_profit_price,
			updated_at = excluded.updated_at`,
		p.Symbol, p.Qty, p.AvgPrice, p.LastPrice, p.PnLPct,
		p.TrailStop, p.HardStop, p.TakeProfitPrice, ts.UTC(),
	)
	return err
}

// GetPositions returns the last-known snapshot of every position row,
// closed ones included, ordered by symbol.
func (j *SQLite) GetPositions() ([]risk.Position, error) {
	rows, err := j.db.Query(`
		SELECT symbol, qty, avg_price, last_price, pnl_pct, trail_stop, hard_stop, take_profit_price, updated_at
		FROM positions
		ORDER BY symbol ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []risk.Position{}
	for rows.Next() {
		var p risk.Position
		if err := rows.Scan(
			&p.Symbol, &p.Qty, &p.AvgPrice, &p.LastPrice, &p.PnLPct,
			&p.TrailStop, &p.HardStop, &p.TakeProfitPrice, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (j *SQLite) LogEvent(level, msg string) error {
	now := j.now()
	_, err := j.db.Exec(`
		INSERT INTO logs (id, level, msg, day, ts) VALUES (?, ?, ?, ?, ?)`,
		id.New(), level, msg, j.Day(now), now.UTC(),
	)
	return err
}

// Events lists log rows for a level on a day (YYYY-MM-DD), oldest first.
// An empty level matches all levels.
func (j *SQLite) Events(level, day string) ([]Event, error) {
	rows, err := j.db.Query(`
		SELECT id, level, msg, day, ts FROM logs
		WHERE (? = '' OR level = ?) AND day = ?
		ORDER BY ts ASC, id ASC`, level, level, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Level, &e.Message, &e.Day, &e.Time); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AlertKey is the dedup key for an exit alert.
func AlertKey(symbol, signalType, day string) string {
	return symbol + ":" + signalType + ":" + day
}

// RememberAlert appends an alert row for (symbol, type, day) unless one is
// already there. It reports true only for the first call per key.
func (j *SQLite) RememberAlert(symbol, signalType string, day time.Time) (bool, error) {
	d := j.Day(day)
	key := AlertKey(symbol, signalType, d)
	res, err := j.db.Exec(`
		INSERT INTO logs (id, level, msg, day, ts)
		SELECT ?, ?, ?, ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM logs WHERE level = ? AND msg = ?)`,
		id.New(), LevelAlert, key, d, j.now().UTC(), LevelAlert, key,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RecordRealizedR adds r to today's realized R total.
func (j *SQLite) RecordRealizedR(r float64) error {
	_, err := j.db.Exec(`
		INSERT INTO daily_pnl (day, realized_r, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			realized_r = daily_pnl.realized_r + excluded.realized_r,
			updated_at = excluded.updated_at`,
		j.today(), r, j.now().UTC(),
	)
	return err
}

// RealizedR returns the realized R total for day, 0 when nothing closed.
func (j *SQLite) RealizedR(day string) (float64, error) {
	var r float64
	err := j.db.QueryRow(`SELECT realized_r FROM daily_pnl WHERE day = ?`, day).Scan(&r)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return r, err
}

// IsDailyLossLimitExceeded is true when a daily_loss risk event was logged
// today, or, for a negative limit, when today's realized R is at or below
// it.
func (j *SQLite) IsDailyLossLimitExceeded(limit float64) (bool, error) {
	today := j.today()

	var n int
	err := j.db.QueryRow(`
		SELECT COUNT(*) FROM logs
		WHERE level = ? AND day = ? AND instr(msg, ?) > 0`,
		LevelRisk, today, DailyLossMarker,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	if limit >= 0 {
		return false, nil
	}

	r, err := j.RealizedR(today)
	if err != nil {
		return false, err
	}
	return r <= limit, nil
}

func (j *SQLite) UpsertSymbol(code, name string) error {
	_, err := j.db.Exec(`
		INSERT INTO symbols (code, name, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at`,
		code, name, j.now().UTC(),
	)
	return err
}

// SymbolName returns the cached display name, "" when unknown.
func (j *SQLite) SymbolName(code string) string {
	var name string
	if err := j.db.QueryRow(`SELECT name FROM symbols WHERE code = ?`, code).Scan(&name); err != nil {
		return ""
	}
	return name
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
