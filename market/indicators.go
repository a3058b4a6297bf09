package market

import "math"

// SMA returns the simple moving average of the last period values,
// or 0 when there is not enough data.
func SMA(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period {
		return 0
	}
	var sum float64
	for _, p := range prices[len(prices)-period:] {
		sum += p
	}
	return sum / float64(period)
}

// EMA returns the exponential moving average series for prices.
// Entries before the first full period are seeded with the SMA.
func EMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return nil
	}
	out := make([]float64, len(prices))
	k := 2.0 / float64(period+1)

	var seed float64
	for _, p := range prices[:period] {
		seed += p
	}
	seed /= float64(period)
	out[period-1] = seed

	for i := period; i < len(prices); i++ {
		out[i] = prices[i]*k + out[i-1]*(1-k)
	}
	for i := 0; i < period-1; i++ {
		out[i] = seed
	}
	return out
}

// RSI returns the relative strength index over period using Wilder
// smoothing, or 50 (neutral) when there is not enough data.
func RSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 50
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// ComputeMACD returns the latest MACD value, signal, and histogram for the
// standard 12/26/9 periods.
func ComputeMACD(prices []float64) MACD {
	const fast, slow, signal = 12, 26, 9
	if len(prices) < slow+signal {
		return MACD{}
	}

	fastEMA := EMA(prices, fast)
	slowEMA := EMA(prices, slow)

	macdLine := make([]float64, len(prices))
	for i := slow - 1; i < len(prices); i++ {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}

	signalLine := EMA(macdLine[slow-1:], signal)
	last := len(prices) - 1
	sig := signalLine[len(signalLine)-1]

	return MACD{
		Value:     macdLine[last],
		Signal:    sig,
		Histogram: macdLine[last] - sig,
	}
}

// ComputeBollinger returns the 20-period, 2-sigma Bollinger bands and the
// band width as a percent of the middle band.
func ComputeBollinger(prices []float64) Bollinger {
	const period = 20
	if len(prices) < period {
		return Bollinger{}
	}

	mid := SMA(prices, period)
	var variance float64
	for _, p := range prices[len(prices)-period:] {
		d := p - mid
		variance += d * d
	}
	sigma := math.Sqrt(variance / float64(period))

	b := Bollinger{
		Upper:  mid + 2*sigma,
		Middle: mid,
		Lower:  mid - 2*sigma,
	}
	if mid > 0 {
		b.Width = (b.Upper - b.Lower) / mid * 100
	}
	return b
}
