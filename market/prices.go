package market

import (
	"errors"
	"sync"
)

var ErrNoPrice = errors.New("price not found")

// PriceStore is a concurrency-safe map from instrument to its latest tick.
type PriceStore struct {
	mu     sync.RWMutex
	prices map[string]Tick
}

func NewPriceStore() *PriceStore {
	return &PriceStore{prices: make(map[string]Tick)}
}

func (ps *PriceStore) Set(t Tick) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.prices[t.Instrument] = t
}

func (ps *PriceStore) Get(instrument string) (Tick, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	t, ok := ps.prices[instrument]
	if !ok {
		return Tick{}, ErrNoPrice
	}
	return t, nil
}

// Map returns a copy of the current instrument→price mapping. Instruments
// without a tick yet are simply absent; callers must tolerate that.
func (ps *PriceStore) Map() map[string]float64 {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make(map[string]float64, len(ps.prices))
	for instr, t := range ps.prices {
		out[instr] = t.Price
	}
	return out
}
