// Package journal persists closed trades and equity snapshots. The ledger
// itself is process-lifetime state; the journal is the durable audit trail
// behind it.
package journal

import (
	"time"

	"cryptobot/ledger"
)

type TradeRecord struct {
	TradeID    string
	Instrument string
	Side       string
	Account    string
	Venue      string
	Quantity   float64
	Leverage   float64
	EntryPrice float64
	ExitPrice  float64
	PnL        float64
	PnLPercent float64
	Fee        float64
	Reason     string
	OpenTime   time.Time
	CloseTime  time.Time
}

// FromClosedTrade maps a settled ledger trade into its journal form.
func FromClosedTrade(t ledger.ClosedTrade) TradeRecord {
	return TradeRecord{
		TradeID:    t.ID,
		Instrument: t.Instrument,
		Side:       string(t.Side),
		Account:    string(t.Account),
		Venue:      string(t.Venue),
		Quantity:   t.Quantity,
		Leverage:   t.Leverage,
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		PnL:        t.PnL,
		PnLPercent: t.PnLPercent,
		Fee:        t.Fee,
		Reason:     t.Reason,
		OpenTime:   t.OpenedAt,
		CloseTime:  t.ClosedAt,
	}
}

type EquitySnapshot struct {
	Time       time.Time
	Account    string
	Balance    float64
	Unrealized float64
	Equity     float64
	OpenCount  int
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Nop discards everything; used when journaling is disabled.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error     { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) Close() error                      { return nil }
