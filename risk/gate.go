// Package risk is the admission gate in front of position opening: it
// decides whether a candidate instrument may be opened given the current
// ledger state and bot configuration, and sizes the position.
package risk

import (
	"fmt"

	"cryptobot/config"
)

type Violation struct {
	Code string
	Msg  string
}

// Decision is the gate's verdict for one candidate instrument in one cycle.
type Decision struct {
	Allowed   bool
	Violation Violation

	// Sizing, populated only when Allowed.
	Quantity float64
	Margin   float64
}

func deny(code, msg string) Decision {
	return Decision{Violation: Violation{Code: code, Msg: msg}}
}

// AccountView is the slice of ledger state the gate reads. It is captured by
// the caller so a decision is reproducible from its inputs alone.
type AccountView struct {
	Equity        float64
	OpenCount     int
	HasInstrument bool
}

// Evaluate applies the admission rules in order; the first failing rule
// rejects. price is the venue-adjusted entry price for the instrument.
func Evaluate(instrument string, price float64, view AccountView, cfg config.BotConfig) Decision {
	if !cfg.Active {
		return deny("BOT_INACTIVE", "bot is not active")
	}
	if view.OpenCount >= cfg.MaxOpenPositions {
		return deny("CAPACITY",
			fmt.Sprintf("open positions %d >= max %d", view.OpenCount, cfg.MaxOpenPositions))
	}
	if view.HasInstrument {
		return deny("DUPLICATE_INSTRUMENT",
			fmt.Sprintf("%s already open in %s account", instrument, cfg.Account))
	}

	qty, margin, err := Size(view.Equity, cfg.RiskPerTrade, cfg.Leverage, price)
	if err != nil {
		if price <= 0 || cfg.Leverage < 1 {
			return deny("BAD_PRICE", err.Error())
		}
		return deny("INSUFFICIENT_BALANCE", err.Error())
	}
	if margin > view.Equity {
		return deny("INSUFFICIENT_BALANCE",
			fmt.Sprintf("required margin %.2f exceeds equity %.2f", margin, view.Equity))
	}

	return Decision{Allowed: true, Quantity: qty, Margin: margin}
}

// Size computes the committed margin and quantity for a new position:
// margin = equity · riskPct/100, quantity = margin · leverage / price.
// Both must come out strictly positive; a non-positive price is a contract
// violation from the price feed and is reported as an error so the caller
// skips the candidate instead of crashing the cycle.
func Size(equity, riskPct, leverage, price float64) (quantity, margin float64, err error) {
	if price <= 0 {
		return 0, 0, fmt.Errorf("non-positive price %v", price)
	}
	if leverage < 1 {
		return 0, 0, fmt.Errorf("leverage %v below 1", leverage)
	}
	margin = equity * riskPct / 100
	if margin <= 0 {
		return 0, 0, fmt.Errorf("non-positive margin %.4f (equity %.2f, risk %.2f%%)", margin, equity, riskPct)
	}
	quantity = margin * leverage / price
	return quantity, margin, nil
}
