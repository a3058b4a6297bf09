package advisor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptobot/ledger"
	"cryptobot/market"
)

func bullishSnapshot() market.Snapshot {
	return market.Snapshot{
		Instrument: "BTC/USDT",
		Price:      65000,
		RSI:        55,
		MACD:       market.MACD{Value: 12, Signal: 8, Histogram: 4},
		MA21:       65200,
		MA55:       64800,
		MA200:      62000,
		Support:    64100,
		Resistance: 66200,
	}
}

func TestHeuristicBullishAlignment(t *testing.T) {
	t.Parallel()

	h := NewHeuristic()
	resp := h.Advise(context.Background(), Request{Instrument: "BTC/USDT", Market: bullishSnapshot()})

	assert.Equal(t, Buy, resp.Signal)
	assert.GreaterOrEqual(t, resp.Confidence, 88.0)
	assert.InDelta(t, 66200, resp.TargetPrice, 1e-9)
	assert.InDelta(t, 64100, resp.StopLoss, 1e-9)
	require.NotNil(t, resp.Technical)
	assert.Equal(t, "BULLISH", resp.Technical.MAAlignment)
}

func TestHeuristicOverboughtHolds(t *testing.T) {
	t.Parallel()

	snap := bullishSnapshot()
	snap.RSI = 80

	resp := NewHeuristic().Advise(context.Background(), Request{Market: snap})
	assert.Equal(t, Hold, resp.Signal)
}

func TestHeuristicBearishAlignment(t *testing.T) {
	t.Parallel()

	snap := bullishSnapshot()
	snap.MA21, snap.MA55, snap.MA200 = 62000, 64800, 65200
	snap.MACD.Histogram = -4
	snap.RSI = 45

	resp := NewHeuristic().Advise(context.Background(), Request{Market: snap})
	assert.Equal(t, Sell, resp.Signal)
	assert.InDelta(t, 64100, resp.TargetPrice, 1e-9)
	assert.InDelta(t, 66200, resp.StopLoss, 1e-9)
}

func TestHeuristicMixedTrendHolds(t *testing.T) {
	t.Parallel()

	snap := bullishSnapshot()
	snap.MACD.Histogram = -1 // MAs bullish but MACD disagrees

	resp := NewHeuristic().Advise(context.Background(), Request{Market: snap})
	assert.Equal(t, Hold, resp.Signal)
	assert.Less(t, resp.Confidence, 88.0)
}

func TestHeuristicNoMarketData(t *testing.T) {
	t.Parallel()

	resp := NewHeuristic().Advise(context.Background(), Request{Instrument: "BTC/USDT"})
	assert.Equal(t, Hold, resp.Signal)
	assert.Zero(t, resp.Confidence)
}

func TestSummarizeCapsHistory(t *testing.T) {
	t.Parallel()

	trades := make([]ledger.ClosedTrade, MaxHistory+5)
	for i := range trades {
		trades[i] = ledger.ClosedTrade{
			Position: ledger.Position{
				Instrument: "BTC/USDT",
				Side:       ledger.Long,
				Account:    ledger.Demo,
				Strategy:   "SCALP",
			},
			PnLPercent: float64(i),
		}
	}

	got := Summarize(trades)
	assert.Len(t, got, MaxHistory)
	assert.Equal(t, "BTC/USDT", got[0].Instrument)
	assert.Equal(t, "LONG", got[0].Side)
}
