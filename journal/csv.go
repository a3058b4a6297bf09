package journal

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"
)

var tradeHeader = []string{
	"trade_id", "instrument", "side", "account", "venue", "quantity", "leverage",
	"entry_price", "exit_price", "pnl", "pnl_percent", "fee", "reason", "open_time", "close_time",
}

type CSVJournal struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

func NewCSV(tradesPath, equityPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	tw := csv.NewWriter(tf)
	ew := csv.NewWriter(ef)

	if err := tw.Write(tradeHeader); err != nil {
		return nil, err
	}
	if err := ew.Write([]string{"time", "account", "balance", "unrealized", "equity", "open_count"}); err != nil {
		return nil, err
	}

	tw.Flush()
	if err := tw.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{tw, ew, tf, ef}, nil
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	err := j.trades.Write(tradeRow(t))
	if err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	err := j.equity.Write([]string{
		e.Time.Format(time.RFC3339),
		e.Account,
		f(e.Balance),
		f(e.Unrealized),
		f(e.Equity),
		strconv.Itoa(e.OpenCount),
	})
	if err != nil {
		return err
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	j.equity.Flush()
	err1 := j.tf.Close()
	err2 := j.ef.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// WriteTradesCSV serializes records to w in the journal's trade format.
// It backs the operator API's read-only history export.
func WriteTradesCSV(w io.Writer, records []TradeRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradeHeader); err != nil {
		return err
	}
	for _, t := range records {
		if err := cw.Write(tradeRow(t)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func tradeRow(t TradeRecord) []string {
	return []string{
		t.TradeID,
		t.Instrument,
		t.Side,
		t.Account,
		t.Venue,
		f(t.Quantity),
		f(t.Leverage),
		f(t.EntryPrice),
		f(t.ExitPrice),
		f(t.PnL),
		f(t.PnLPercent),
		f(t.Fee),
		t.Reason,
		t.OpenTime.Format(time.RFC3339),
		t.CloseTime.Format(time.RFC3339),
	}
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
