// Package market is the simulated price layer: a random-walk feed over a
// fixed instrument universe, per-venue price offsets, and the indicator
// snapshot the advisory layer consumes.
package market

import "time"

// Venue identifies a simulated exchange. Venues quote the same underlying
// price shifted by a fixed basis-point offset.
type Venue string

const (
	Binance Venue = "BINANCE"
	Bybit   Venue = "BYBIT"
	Mexc    Venue = "MEXC"
)

// Offset applies the venue's price basis to a neutral price: Bybit quotes
// one basis point above, MEXC one below, Binance at par.
func (v Venue) Offset(base float64) float64 {
	switch v {
	case Bybit:
		return base * 1.0001
	case Mexc:
		return base * 0.9999
	}
	return base
}

// Tick is one venue-neutral price observation.
type Tick struct {
	Instrument string    `json:"instrument"`
	Price      float64   `json:"price"`
	Time       time.Time `json:"time"`
}

// MACD is the latest moving average convergence/divergence state.
type MACD struct {
	Value     float64 `json:"value"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// Bollinger holds the 20-period bands; Width is the band spread as a percent
// of the middle band.
type Bollinger struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
	Width  float64 `json:"width"`
}

// Snapshot is the derived market state for one instrument at one venue,
// handed to the advisory layer as the basis for a recommendation.
type Snapshot struct {
	Instrument string    `json:"instrument"`
	Price      float64   `json:"price"`
	RSI        float64   `json:"rsi"`
	MACD       MACD      `json:"macd"`
	Bollinger  Bollinger `json:"bollinger"`
	MA21       float64   `json:"ma21"`
	MA55       float64   `json:"ma55"`
	MA200      float64   `json:"ma200"`
	Support    float64   `json:"support"`
	Resistance float64   `json:"resistance"`
	Volatility float64   `json:"volatility"`
	Time       time.Time `json:"time"`
}
