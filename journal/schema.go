package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	instrument TEXT NOT NULL,
	side TEXT NOT NULL,
	account TEXT NOT NULL,
	venue TEXT NOT NULL,
	quantity REAL NOT NULL,
	leverage REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	pnl REAL NOT NULL,
	pnl_percent REAL NOT NULL,
	fee REAL NOT NULL,
	reason TEXT NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	time DATETIME NOT NULL,
	account TEXT NOT NULL,
	balance REAL NOT NULL,
	unrealized REAL NOT NULL,
	equity REAL NOT NULL,
	open_count INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);
`
