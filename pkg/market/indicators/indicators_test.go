package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEMA(t *testing.T) {
	result := EMA([]float64{1, 2, 3}, 3)
	require.Len(t, result, 3)
	require.InDelta(t, 1.0, result[0], 1e-9)
	require.InDelta(t, 1.5, result[1], 1e-9)
	require.InDelta(t, 2.25, result[2], 1e-9)

	require.Empty(t, EMA(nil, 3))
	require.Empty(t, EMA([]float64{1}, 0))
}

func TestMACD(t *testing.T) {
	got := MACD([]float64{1, 2, 3}, 2, 3, 2)
	require.InDelta(t, 0.305556, got.MACD, 1e-6)
	require.InDelta(t, 0.240741, got.Signal, 1e-6)
	require.InDelta(t, 0.064815, got.Histogram, 1e-6)
}

func TestMACDFlatSeries(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 10
	}
	got := MACD(closes, DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal)
	require.InDelta(t, 0.0, got.MACD, 1e-12)
	require.InDelta(t, 0.0, got.Signal, 1e-12)
	require.InDelta(t, 0.0, got.Histogram, 1e-12)
}

func TestMACDEmpty(t *testing.T) {
	got := MACD(nil, DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal)
	require.True(t, math.IsNaN(got.MACD))
	require.True(t, math.IsNaN(got.Signal))
	require.True(t, math.IsNaN(got.Histogram))
}

func TestRSI(t *testing.T) {
	// Last two deltas: -0.5, +1.0 -> avg gain 0.5, avg loss 0.25, rs = 2.
	require.InDelta(t, 66.666667, RSI([]float64{10, 11, 10.5, 11.5}, 2), 1e-6)
}

func TestRSIMonotonicIncrease(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.5
	}
	require.InDelta(t, 100.0, RSI(closes, DefaultRSIPeriod), 1e-12)
}

func TestRSIMonotonicDecrease(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 - float64(i)
	}
	require.InDelta(t, 0.0, RSI(closes, DefaultRSIPeriod), 1e-12)
}

func TestRSIInsufficientData(t *testing.T) {
	closes := make([]float64, DefaultRSIPeriod)
	for i := range closes {
		closes[i] = float64(i)
	}
	require.True(t, math.IsNaN(RSI(closes, DefaultRSIPeriod)))
}

func TestRSIUsesTrailingWindowOnly(t *testing.T) {
	// A large early drop falls outside the 3-step window.
	closes := []float64{100, 50, 51, 52, 53}
	require.InDelta(t, 100.0, RSI(closes, 3), 1e-12)
}
