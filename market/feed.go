package market

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// DefaultUniverse maps the tradable pairs to a starting price for the
// simulated feed.
var DefaultUniverse = map[string]float64{
	"BTC/USDT":   65000,
	"ETH/USDT":   3400,
	"SOL/USDT":   150,
	"ADA/USDT":   0.45,
	"DOT/USDT":   7.2,
	"LINK/USDT":  14.5,
	"MATIC/USDT": 0.72,
	"AVAX/USDT":  36,
	"XRP/USDT":   0.52,
	"DOGE/USDT":  0.12,
}

// windowSize bounds the rolling price history kept per instrument. It must
// cover the slowest indicator (MA200).
const windowSize = 240

// Feed is the simulated price source: a bounded random walk per instrument,
// stepping every tick. It owns the rolling window the indicator snapshot is
// derived from.
type Feed struct {
	mu      sync.Mutex
	rng     *rand.Rand
	store   *PriceStore
	windows map[string][]float64
	now     func() time.Time
}

// NewFeed seeds a feed with the given starting prices. A nil seeds map uses
// DefaultUniverse.
func NewFeed(seeds map[string]float64, seed int64) *Feed {
	if seeds == nil {
		seeds = DefaultUniverse
	}
	f := &Feed{
		rng:     rand.New(rand.NewSource(seed)),
		store:   NewPriceStore(),
		windows: make(map[string][]float64, len(seeds)),
		now:     time.Now,
	}
	for instr, price := range seeds {
		f.windows[instr] = []float64{price}
		f.store.Set(Tick{Instrument: instr, Price: price, Time: f.now()})
	}
	return f
}

// Prices exposes the backing store for read access by the trading core.
func (f *Feed) Prices() *PriceStore { return f.store }

// Step advances every instrument one random-walk increment (±4 bps) and
// returns the new ticks.
func (f *Feed) Step() []Tick {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	ticks := make([]Tick, 0, len(f.windows))
	for instr, w := range f.windows {
		last := w[len(w)-1]
		next := last * (1 + (f.rng.Float64()*0.0008 - 0.0004))

		w = append(w, next)
		if len(w) > windowSize {
			w = w[len(w)-windowSize:]
		}
		f.windows[instr] = w

		t := Tick{Instrument: instr, Price: next, Time: now}
		f.store.Set(t)
		ticks = append(ticks, t)
	}
	return ticks
}

// Push injects an externally sourced tick, extending the instrument's
// window. Unknown instruments are added to the universe.
func (f *Feed) Push(t Tick) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w := append(f.windows[t.Instrument], t.Price)
	if len(w) > windowSize {
		w = w[len(w)-windowSize:]
	}
	f.windows[t.Instrument] = w
	f.store.Set(t)
}

// Snapshot derives the indicator state for one instrument at the given
// venue. The feed keeps venue-neutral prices; the venue offset is applied to
// the quoted price only. Returns false if the instrument is unknown.
func (f *Feed) Snapshot(instrument string, venue Venue) (Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w, ok := f.windows[instrument]
	if !ok || len(w) == 0 {
		return Snapshot{}, false
	}

	price := w[len(w)-1]
	support, resistance := rangeBounds(w, 55)

	return Snapshot{
		Instrument: instrument,
		Price:      venue.Offset(price),
		RSI:        RSI(w, 14),
		MACD:       ComputeMACD(w),
		Bollinger:  ComputeBollinger(w),
		MA21:       SMA(w, 21),
		MA55:       SMA(w, 55),
		MA200:      SMA(w, 200),
		Support:    support,
		Resistance: resistance,
		Volatility: returnVolatility(w, 20),
		Time:       f.now(),
	}, true
}

// Instruments returns the feed's instrument set.
func (f *Feed) Instruments() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.windows))
	for instr := range f.windows {
		out = append(out, instr)
	}
	return out
}

// rangeBounds returns the min and max over the last n prices.
func rangeBounds(prices []float64, n int) (lo, hi float64) {
	if len(prices) == 0 {
		return 0, 0
	}
	if len(prices) > n {
		prices = prices[len(prices)-n:]
	}
	lo, hi = prices[0], prices[0]
	for _, p := range prices[1:] {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	return lo, hi
}

// returnVolatility is the standard deviation of percent returns over the
// last n steps.
func returnVolatility(prices []float64, n int) float64 {
	if len(prices) < 3 {
		return 0
	}
	if len(prices) > n+1 {
		prices = prices[len(prices)-n-1:]
	}
	rets := make([]float64, 0, len(prices)-1)
	var mean float64
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		r := (prices[i] - prices[i-1]) / prices[i-1] * 100
		rets = append(rets, r)
		mean += r
	}
	if len(rets) < 2 {
		return 0
	}
	mean /= float64(len(rets))
	var variance float64
	for _, r := range rets {
		d := r - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(rets)))
}
