package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrNotOpen   = errors.New("position not open")
	ErrDuplicate = errors.New("instrument already open in account")
	ErrCapacity  = errors.New("max open positions reached")
)

// Ledger owns the two account balances, the open-position set, and the
// closed-trade history. All mutation happens under one mutex so the price
// tick, the evaluation cycle, and settlement never interleave.
type Ledger struct {
	mu       sync.Mutex
	balances map[Account]float64
	open     []*Position
	history  []ClosedTrade
}

func New(demoBalance, realBalance float64) *Ledger {
	return &Ledger{
		balances: map[Account]float64{
			Demo: demoBalance,
			Real: realBalance,
		},
	}
}

// Balance returns the settled balance for the account. Unrealized PnL never
// touches it.
func (l *Ledger) Balance(acct Account) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[acct]
}

// UnrealizedPnL sums the floating PnL of the account's open positions at
// the given prices. A missing price falls back to the entry price, which
// contributes zero.
func (l *Ledger) UnrealizedPnL(acct Account, prices map[string]float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unrealizedLocked(acct, prices)
}

func (l *Ledger) unrealizedLocked(acct Account, prices map[string]float64) float64 {
	var total float64
	for _, p := range l.open {
		if p.Account != acct {
			continue
		}
		price, ok := prices[p.Instrument]
		if !ok {
			price = p.EntryPrice
		}
		total += p.UnrealizedPnL(price)
	}
	return total
}

// Equity is balance plus unrealized PnL, recomputed on every call.
func (l *Ledger) Equity(acct Account, prices map[string]float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[acct] + l.unrealizedLocked(acct, prices)
}

// TryOpen admits a position if the structural invariants hold: open count
// below maxOpen for the owning account, and no open position for the same
// (instrument, account) pair. It is the authoritative re-validation done
// under the ledger lock, after the admission gate's advisory check.
func (l *Ledger) TryOpen(p Position, maxOpen int) error {
	if p.ID == "" || p.EntryPrice <= 0 || p.Quantity <= 0 || p.Leverage < 1 {
		return fmt.Errorf("invalid position %q: entry=%v qty=%v lev=%v",
			p.ID, p.EntryPrice, p.Quantity, p.Leverage)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	count := 0
	for _, o := range l.open {
		if o.Account != p.Account {
			continue
		}
		if o.Instrument == p.Instrument {
			return ErrDuplicate
		}
		count++
	}
	if count >= maxOpen {
		return ErrCapacity
	}

	cp := p
	l.open = append(l.open, &cp)
	return nil
}

// Settle closes the position at exitPrice, deducts the round-trip fee, and
// credits the realized PnL to the owning account. It is idempotent: a second
// settle for the same id returns ErrNotOpen and changes nothing.
func (l *Ledger) Settle(id string, exitPrice, feeRate float64, reason string, at time.Time) (ClosedTrade, error) {
	if exitPrice <= 0 {
		return ClosedTrade{}, fmt.Errorf("settle %q: non-positive exit price %v", id, exitPrice)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	idx := -1
	for i, p := range l.open {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ClosedTrade{}, ErrNotOpen
	}
	p := l.open[idx]

	pct := p.PnLPercent(exitPrice)
	fee := p.Quantity * p.EntryPrice * feeRate
	pnl := pct/100*p.Margin() - fee

	ct := ClosedTrade{
		Position:   *p,
		ExitPrice:  exitPrice,
		PnL:        pnl,
		PnLPercent: pct,
		Fee:        fee,
		Reason:     reason,
		ClosedAt:   at,
	}

	l.open = append(l.open[:idx], l.open[idx+1:]...)
	l.history = append(l.history, ct)
	l.balances[p.Account] += pnl

	return ct, nil
}

// OpenPositions returns a copy of the open set in insertion order.
func (l *Ledger) OpenPositions() []Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Position, len(l.open))
	for i, p := range l.open {
		out[i] = *p
	}
	return out
}

// OpenCount returns the number of open positions in the account.
func (l *Ledger) OpenCount(acct Account) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, p := range l.open {
		if p.Account == acct {
			n++
		}
	}
	return n
}

// HasOpen reports whether the instrument is already open in the account.
func (l *Ledger) HasOpen(instrument string, acct Account) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.open {
		if p.Account == acct && p.Instrument == instrument {
			return true
		}
	}
	return false
}

// History returns a copy of the closed-trade history in insertion order.
func (l *Ledger) History() []ClosedTrade {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ClosedTrade, len(l.history))
	copy(out, l.history)
	return out
}

// RecentHistory returns the n most recent closed trades, newest first.
func (l *Ledger) RecentHistory(n int) []ClosedTrade {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n > len(l.history) {
		n = len(l.history)
	}
	out := make([]ClosedTrade, 0, n)
	for i := len(l.history) - 1; i >= len(l.history)-n; i-- {
		out = append(out, l.history[i])
	}
	return out
}

// WinRate is the percent of closed trades with positive realized PnL,
// 0 for an empty history.
func (l *Ledger) WinRate() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return winRateLocked(l.history)
}

func winRateLocked(history []ClosedTrade) float64 {
	if len(history) == 0 {
		return 0
	}
	wins := 0
	for _, t := range history {
		if t.PnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(history)) * 100
}

// CumulativePnL sums realized PnL over the whole history.
func (l *Ledger) CumulativePnL() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total float64
	for _, t := range l.history {
		total += t.PnL
	}
	return total
}

// Stats bundles the aggregates the advisory request carries.
func (l *Ledger) Stats() PerformanceStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total float64
	for _, t := range l.history {
		total += t.PnL
	}
	return PerformanceStats{
		WinRate:     winRateLocked(l.history),
		TotalPnL:    total,
		TotalTrades: len(l.history),
	}
}
