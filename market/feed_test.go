package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVenueOffset(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 65000, Binance.Offset(65000), 1e-9)
	assert.InDelta(t, 65006.5, Bybit.Offset(65000), 1e-9)
	assert.InDelta(t, 64993.5, Mexc.Offset(65000), 1e-9)
}

func TestPriceStore(t *testing.T) {
	t.Parallel()

	ps := NewPriceStore()
	_, err := ps.Get("BTC/USDT")
	assert.ErrorIs(t, err, ErrNoPrice)

	now := time.Now()
	ps.Set(Tick{Instrument: "BTC/USDT", Price: 65000, Time: now})

	tick, err := ps.Get("BTC/USDT")
	require.NoError(t, err)
	assert.InDelta(t, 65000, tick.Price, 1e-9)

	m := ps.Map()
	assert.InDelta(t, 65000, m["BTC/USDT"], 1e-9)
}

func TestFeedStepMovesWithinBounds(t *testing.T) {
	t.Parallel()

	f := NewFeed(map[string]float64{"BTC/USDT": 65000}, 42)
	ticks := f.Step()
	require.Len(t, ticks, 1)

	// Steps are bounded at ±4 bps.
	assert.InDelta(t, 65000, ticks[0].Price, 65000*0.0004+1e-9)

	stored, err := f.Prices().Get("BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, ticks[0].Price, stored.Price)
}

func TestFeedDeterministicWithSeed(t *testing.T) {
	t.Parallel()

	a := NewFeed(map[string]float64{"BTC/USDT": 65000}, 7)
	b := NewFeed(map[string]float64{"BTC/USDT": 65000}, 7)
	for i := 0; i < 10; i++ {
		ta := a.Step()
		tb := b.Step()
		assert.Equal(t, ta[0].Price, tb[0].Price)
	}
}

func TestFeedWindowBounded(t *testing.T) {
	t.Parallel()

	f := NewFeed(map[string]float64{"BTC/USDT": 65000}, 1)
	for i := 0; i < windowSize+50; i++ {
		f.Step()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	assert.LessOrEqual(t, len(f.windows["BTC/USDT"]), windowSize)
}

func TestSnapshotVenuePrice(t *testing.T) {
	t.Parallel()

	f := NewFeed(map[string]float64{"BTC/USDT": 65000}, 3)

	snap, ok := f.Snapshot("BTC/USDT", Binance)
	require.True(t, ok)
	assert.InDelta(t, 65000, snap.Price, 1e-9)

	snap, ok = f.Snapshot("BTC/USDT", Bybit)
	require.True(t, ok)
	assert.InDelta(t, 65006.5, snap.Price, 1e-9)

	_, ok = f.Snapshot("UNKNOWN/USDT", Binance)
	assert.False(t, ok)
}

func TestSnapshotIndicatorsAfterWarmup(t *testing.T) {
	t.Parallel()

	f := NewFeed(map[string]float64{"BTC/USDT": 65000}, 99)
	for i := 0; i < windowSize; i++ {
		f.Step()
	}

	snap, ok := f.Snapshot("BTC/USDT", Binance)
	require.True(t, ok)
	assert.Greater(t, snap.MA21, 0.0)
	assert.Greater(t, snap.MA55, 0.0)
	assert.Greater(t, snap.MA200, 0.0)
	assert.GreaterOrEqual(t, snap.RSI, 0.0)
	assert.LessOrEqual(t, snap.RSI, 100.0)
	assert.Greater(t, snap.Bollinger.Upper, snap.Bollinger.Lower)
	assert.Greater(t, snap.Resistance, snap.Support)
	assert.GreaterOrEqual(t, snap.Volatility, 0.0)
}

func TestFeedPush(t *testing.T) {
	t.Parallel()

	f := NewFeed(map[string]float64{"BTC/USDT": 65000}, 1)
	f.Push(Tick{Instrument: "BTC/USDT", Price: 67000, Time: time.Now()})

	tick, err := f.Prices().Get("BTC/USDT")
	require.NoError(t, err)
	assert.InDelta(t, 67000, tick.Price, 1e-9)

	snap, ok := f.Snapshot("BTC/USDT", Binance)
	require.True(t, ok)
	assert.InDelta(t, 67000, snap.Price, 1e-9)
}
