// Package advisor adapts the external analysis oracle: it translates market
// and strategy state into a signal request and maps the response into an
// actionable recommendation. All failure modes degrade to HOLD so the bot
// never opens a position on malformed or unavailable advisory data.
package advisor

import (
	"context"

	"cryptobot/ledger"
	"cryptobot/market"
)

type Signal string

const (
	Buy  Signal = "BUY"
	Sell Signal = "SELL"
	Hold Signal = "HOLD"
)

// MaxHistory caps the recent-trade context carried in a request, bounding
// payload size while still giving a learning-enabled oracle something to
// adapt on.
const MaxHistory = 10

// TradeSummary is the compact closed-trade form included in a request.
type TradeSummary struct {
	Account    string  `json:"account"`
	Instrument string  `json:"instrument"`
	Side       string  `json:"side"`
	PnLPercent float64 `json:"pnl_percent"`
	Strategy   string  `json:"strategy"`
}

// Request carries everything the oracle needs for one recommendation.
type Request struct {
	Instrument    string                  `json:"instrument"`
	Market        market.Snapshot         `json:"market"`
	Strategy      string                  `json:"strategy"`
	Timeframe     string                  `json:"timeframe"`
	Performance   ledger.PerformanceStats `json:"performance"`
	RecentHistory []TradeSummary          `json:"recent_history"`
	Learning      bool                    `json:"learning"`
}

// TechnicalDetails is the oracle's optional indicator commentary.
type TechnicalDetails struct {
	RSIStatus   string `json:"rsi_status"`
	MAAlignment string `json:"ma_alignment"`
	TrendType   string `json:"trend_type"`
}

// Response is the oracle's recommendation.
type Response struct {
	Signal      Signal            `json:"signal"`
	Reasoning   string            `json:"reasoning"`
	Confidence  float64           `json:"confidence"`
	TargetPrice float64           `json:"target_price"`
	StopLoss    float64           `json:"stop_loss"`
	Technical   *TechnicalDetails `json:"technical_details,omitempty"`
}

// Advisor is the oracle boundary. Advise never returns an error: a failed or
// untrusted call comes back as a degraded HOLD instead.
type Advisor interface {
	Advise(ctx context.Context, req Request) Response
}

// Degraded is the fallback response for any advisory failure.
func Degraded(reason string) Response {
	return Response{
		Signal:     Hold,
		Reasoning:  reason,
		Confidence: 0,
	}
}

// Summarize converts closed trades into the bounded request form, most
// recent first.
func Summarize(trades []ledger.ClosedTrade) []TradeSummary {
	if len(trades) > MaxHistory {
		trades = trades[:MaxHistory]
	}
	out := make([]TradeSummary, len(trades))
	for i, t := range trades {
		out[i] = TradeSummary{
			Account:    string(t.Account),
			Instrument: t.Instrument,
			Side:       string(t.Side),
			PnLPercent: t.PnLPercent,
			Strategy:   t.Strategy,
		}
	}
	return out
}
