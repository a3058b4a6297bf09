package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite journal: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, instrument, side, account, venue, quantity, leverage,
		 entry_price, exit_price, pnl, pnl_percent, fee, reason, open_time, close_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Instrument, t.Side, t.Account, t.Venue, t.Quantity, t.Leverage,
		t.EntryPrice, t.ExitPrice, t.PnL, t.PnLPercent, t.Fee, t.Reason, t.OpenTime, t.CloseTime,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(time, account, balance, unrealized, equity, open_count)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.Time, e.Account, e.Balance, e.Unrealized, e.Equity, e.OpenCount,
	)
	return err
}

// ListTrades returns recorded trades in close-time order, oldest first.
func (j *SQLiteJournal) ListTrades() ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, instrument, side, account, venue, quantity, leverage,
		       entry_price, exit_price, pnl, pnl_percent, fee, reason, open_time, close_time
		FROM trades ORDER BY close_time ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(
			&t.TradeID, &t.Instrument, &t.Side, &t.Account, &t.Venue, &t.Quantity, &t.Leverage,
			&t.EntryPrice, &t.ExitPrice, &t.PnL, &t.PnLPercent, &t.Fee, &t.Reason, &t.OpenTime, &t.CloseTime,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
