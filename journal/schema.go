package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	id TEXT PRIMARY KEY,
	order_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	qty INTEGER NOT NULL,
	price REAL NOT NULL,
	ts DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades(ts);

CREATE TABLE IF NOT EXISTS positions (
	symbol TEXT PRIMARY KEY,
	qty INTEGER NOT NULL,
	avg_price REAL NOT NULL,
	last_price REAL NOT NULL DEFAULT 0,
	pnl_pct REAL NOT NULL DEFAULT 0,
	trail_stop REAL NOT NULL DEFAULT 0,
	hard_stop REAL NOT NULL DEFAULT 0,
	take_profit_price REAL NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS logs (
	id TEXT PRIMARY KEY,
	level TEXT NOT NULL,
	msg TEXT NOT NULL,
	day TEXT NOT NULL,
	ts DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_logs_level_day ON logs(level, day);

CREATE TABLE IF NOT EXISTS daily_pnl (
	day TEXT PRIMARY KEY,
	realized_r REAL NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS symbols (
	code TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`
