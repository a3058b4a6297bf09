package advisor

import (
	"context"
	"fmt"
)

// Heuristic is a local rule-based advisor used when no oracle endpoint is
// configured. Entries are allowed only when the moving averages, RSI, and
// MACD agree; everything else holds. Deterministic by construction.
type Heuristic struct{}

func NewHeuristic() *Heuristic { return &Heuristic{} }

func (h *Heuristic) Advise(_ context.Context, req Request) Response {
	m := req.Market
	if m.Price <= 0 {
		return Degraded("no market data for " + req.Instrument)
	}

	bullAligned := m.MA21 > m.MA55 && m.MA55 > m.MA200
	bearAligned := m.MA21 < m.MA55 && m.MA55 < m.MA200
	overbought := m.RSI >= 70
	oversold := m.RSI <= 30
	macdUp := m.MACD.Histogram > 0
	macdDown := m.MACD.Histogram < 0

	details := &TechnicalDetails{
		RSIStatus:   rsiStatus(m.RSI),
		MAAlignment: maAlignment(bullAligned, bearAligned),
	}

	switch {
	case bullAligned && macdUp && !overbought:
		details.TrendType = "UPTREND"
		return Response{
			Signal: Buy,
			Reasoning: fmt.Sprintf(
				"MA21 %.2f > MA55 %.2f > MA200 %.2f with rising MACD histogram %.4f and RSI %.1f below overbought",
				m.MA21, m.MA55, m.MA200, m.MACD.Histogram, m.RSI),
			Confidence:  confidence(m.RSI, 50),
			TargetPrice: m.Resistance,
			StopLoss:    m.Support,
			Technical:   details,
		}

	case bearAligned && macdDown && !oversold:
		details.TrendType = "DOWNTREND"
		return Response{
			Signal: Sell,
			Reasoning: fmt.Sprintf(
				"MA alignment bearish with falling MACD histogram %.4f and RSI %.1f above oversold",
				m.MACD.Histogram, m.RSI),
			Confidence:  confidence(m.RSI, 50),
			TargetPrice: m.Support,
			StopLoss:    m.Resistance,
			Technical:   details,
		}
	}

	details.TrendType = "RANGE"
	return Response{
		Signal:     Hold,
		Reasoning:  fmt.Sprintf("mixed trend: RSI %.1f, MACD histogram %.4f", m.RSI, m.MACD.Histogram),
		Confidence: 50,
		Technical:  details,
	}
}

// confidence grows with RSI distance from the neutral pivot, between 88
// and 96. Aligned setups near the pivot are treated as freshly forming
// trends and score highest.
func confidence(rsi, pivot float64) float64 {
	dist := rsi - pivot
	if dist < 0 {
		dist = -dist
	}
	c := 96 - dist/5
	if c < 88 {
		c = 88
	}
	return c
}

func rsiStatus(rsi float64) string {
	switch {
	case rsi >= 70:
		return "OVERBOUGHT"
	case rsi <= 30:
		return "OVERSOLD"
	default:
		return "NEUTRAL"
	}
}

func maAlignment(bull, bear bool) string {
	switch {
	case bull:
		return "BULLISH"
	case bear:
		return "BEARISH"
	default:
		return "MIXED"
	}
}
