package ledger

import (
	"time"

	"cryptobot/market"
)

type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// Account selects which balance a position settles against.
type Account string

const (
	Demo Account = "DEMO"
	Real Account = "REAL"
)

// Position is an open leveraged position. It is immutable once opened;
// the only transition is settlement into a ClosedTrade.
type Position struct {
	ID         string       `json:"id"`
	Instrument string       `json:"instrument"`
	Side       Side         `json:"side"`
	EntryPrice float64      `json:"entry_price"`
	Quantity   float64      `json:"quantity"`
	Leverage   float64      `json:"leverage"`
	Strategy   string       `json:"strategy"`
	Timeframe  string       `json:"timeframe"`
	Venue      market.Venue `json:"venue"`

	// Account is captured at open time. The operator may flip the active
	// account while the position is in flight; settlement always credits
	// the account the position was opened under.
	Account Account `json:"account"`

	// Exit levels, absolute prices captured from the configuration in
	// force at open time.
	TakeProfit float64 `json:"take_profit"`
	StopLoss   float64 `json:"stop_loss"`

	OpenedAt time.Time `json:"opened_at"`
}

// Margin is the capital committed to the position.
func (p Position) Margin() float64 {
	if p.Leverage <= 0 {
		return 0
	}
	return p.Quantity * p.EntryPrice / p.Leverage
}

// PnLPercent is the leveraged return at the given price: directional price
// delta over entry, times 100, times leverage.
func (p Position) PnLPercent(price float64) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	delta := price - p.EntryPrice
	if p.Side == Short {
		delta = p.EntryPrice - price
	}
	return delta / p.EntryPrice * 100 * p.Leverage
}

// UnrealizedPnL is the position's floating profit at the given price,
// in account currency.
func (p Position) UnrealizedPnL(price float64) float64 {
	return p.PnLPercent(price) / 100 * p.Margin()
}

// hitTakeProfit reports whether price has crossed the take-profit level.
func (p Position) hitTakeProfit(price float64) bool {
	if p.TakeProfit <= 0 {
		return false
	}
	if p.Side == Long {
		return price >= p.TakeProfit
	}
	return price <= p.TakeProfit
}

// hitStopLoss reports whether price has crossed the stop-loss level.
func (p Position) hitStopLoss(price float64) bool {
	if p.StopLoss <= 0 {
		return false
	}
	if p.Side == Long {
		return price <= p.StopLoss
	}
	return price >= p.StopLoss
}

// CheckExit returns the close reason if price triggers either exit level.
func (p Position) CheckExit(price float64) (reason string, hit bool) {
	switch {
	case p.hitStopLoss(price):
		return "StopLoss", true
	case p.hitTakeProfit(price):
		return "TakeProfit", true
	}
	return "", false
}

// ClosedTrade is the settled form of a Position. Created exactly once per
// position, then append-only in the ledger history.
type ClosedTrade struct {
	Position
	ExitPrice  float64   `json:"exit_price"`
	PnL        float64   `json:"pnl"`
	PnLPercent float64   `json:"pnl_percent"`
	Fee        float64   `json:"fee"`
	Reason     string    `json:"reason"`
	ClosedAt   time.Time `json:"closed_at"`
}

// PerformanceStats is the aggregate view handed to the advisory layer.
type PerformanceStats struct {
	WinRate     float64 `json:"win_rate"`
	TotalPnL    float64 `json:"total_pnl"`
	TotalTrades int     `json:"total_trades"`
}
