package journal

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptobot/ledger"
	"cryptobot/market"
)

func sampleTrade(id string, closedAt time.Time) TradeRecord {
	return TradeRecord{
		TradeID:    id,
		Instrument: "BTC/USDT",
		Side:       "LONG",
		Account:    "DEMO",
		Venue:      "BINANCE",
		Quantity:   0.0615,
		Leverage:   20,
		EntryPrice: 65000,
		ExitPrice:  66700,
		PnL:        103.01,
		PnLPercent: 52.3,
		Fee:        1.6,
		Reason:     "TakeProfit",
		OpenTime:   closedAt.Add(-15 * time.Minute),
		CloseTime:  closedAt,
	}
}

func TestFromClosedTrade(t *testing.T) {
	t.Parallel()

	opened := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	closed := opened.Add(time.Hour)
	ct := ledger.ClosedTrade{
		Position: ledger.Position{
			ID:         "01TRADE",
			Instrument: "ETH/USDT",
			Side:       ledger.Short,
			EntryPrice: 3400,
			Quantity:   1.2,
			Leverage:   10,
			Venue:      market.Bybit,
			Account:    ledger.Real,
			OpenedAt:   opened,
		},
		ExitPrice:  3350,
		PnL:        58.4,
		PnLPercent: 14.7,
		Fee:        1.632,
		Reason:     "StopLoss",
		ClosedAt:   closed,
	}

	rec := FromClosedTrade(ct)
	assert.Equal(t, "01TRADE", rec.TradeID)
	assert.Equal(t, "SHORT", rec.Side)
	assert.Equal(t, "REAL", rec.Account)
	assert.Equal(t, "BYBIT", rec.Venue)
	assert.Equal(t, 3350.0, rec.ExitPrice)
	assert.Equal(t, opened, rec.OpenTime)
	assert.Equal(t, closed, rec.CloseTime)
}

func TestSQLiteRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	defer j.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := sampleTrade("01AAA", base)
	second := sampleTrade("01BBB", base.Add(time.Minute))

	require.NoError(t, j.RecordTrade(second))
	require.NoError(t, j.RecordTrade(first))

	got, err := j.ListTrades()
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Oldest close first, regardless of insertion order.
	assert.Equal(t, "01AAA", got[0].TradeID)
	assert.Equal(t, "01BBB", got[1].TradeID)
	assert.Equal(t, first.PnL, got[0].PnL)
	assert.Equal(t, first.Reason, got[0].Reason)
	assert.True(t, got[0].CloseTime.Equal(first.CloseTime))
}

func TestSQLiteRecordEquity(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	defer j.Close()

	err = j.RecordEquity(EquitySnapshot{
		Time:       time.Now(),
		Account:    "DEMO",
		Balance:    10078.4,
		Unrealized: -12.5,
		Equity:     10065.9,
		OpenCount:  2,
	})
	assert.NoError(t, err)
}

func TestCSVJournalWritesRows(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(tradesPath, equityPath)
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordTrade(sampleTrade("01CCC", at)))
	require.NoError(t, j.RecordEquity(EquitySnapshot{
		Time: at, Account: "DEMO", Balance: 10000, Equity: 10000,
	}))
	require.NoError(t, j.Close())

	trades, err := os.ReadFile(tradesPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(trades)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "trade_id,instrument,side"))
	assert.Contains(t, lines[1], "01CCC")
	assert.Contains(t, lines[1], "TakeProfit")

	equity, err := os.ReadFile(equityPath)
	require.NoError(t, err)
	assert.Contains(t, string(equity), "10000")
}

func TestWriteTradesCSV(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	err := WriteTradesCSV(&buf, []TradeRecord{
		sampleTrade("01DDD", at),
		sampleTrade("01EEE", at.Add(time.Minute)),
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "01DDD")
	assert.Contains(t, lines[2], "01EEE")
	assert.Contains(t, lines[1], "65000")
}
