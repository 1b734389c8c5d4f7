package indicators

import "math"

// Default indicator windows.
const (
	DefaultRSIPeriod  = 14
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
)

// EMA produces the exponential moving average for the supplied values using
// alpha = 2/(span+1). The series is seeded with the first observation and
// carries no bias adjustment.
func EMA(values []float64, span int) []float64 {
	if span <= 0 || len(values) == 0 {
		return []float64{}
	}
	alpha := 2.0 / float64(span+1)
	result := make([]float64, len(values))
	result[0] = values[0]
	for i := 1; i < len(values); i++ {
		result[i] = alpha*values[i] + (1-alpha)*result[i-1]
	}
	return result
}

// MACDValue holds the latest point of the MACD, signal and histogram series.
type MACDValue struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD returns the latest MACD, signal and histogram values. An empty input
// yields NaN for all three.
func MACD(closes []float64, fast, slow, signal int) MACDValue {
	if len(closes) == 0 || fast <= 0 || slow <= 0 || signal <= 0 {
		nan := math.NaN()
		return MACDValue{MACD: nan, Signal: nan, Histogram: nan}
	}
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)

	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = emaFast[i] - emaSlow[i]
	}
	signalLine := EMA(line, signal)

	last := len(closes) - 1
	return MACDValue{
		MACD:      line[last],
		Signal:    signalLine[last],
		Histogram: line[last] - signalLine[last],
	}
}

// RSI returns the most recent Relative Strength Index using a trailing simple
// moving average of gains and losses over period steps. It needs at least
// period+1 closes and returns NaN otherwise, or when there was no movement at
// all inside the window.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return math.NaN()
	}

	var gainSum, lossSum float64
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gainSum += change
		} else {
			lossSum -= change
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)

	switch {
	case avgGain == 0 && avgLoss == 0:
		return math.NaN()
	case avgLoss == 0:
		return 100.0
	default:
		rs := avgGain / avgLoss
		return 100.0 - (100.0 / (1.0 + rs))
	}
}
