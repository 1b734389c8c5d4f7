package market

import (
	"strings"
	"time"
)

// OptionType distinguishes calls from puts.
type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// ParseOptionType normalises a provider option type string.
func ParseOptionType(raw string) OptionType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "put", "p":
		return OptionPut
	default:
		return OptionCall
	}
}

// Greeks holds the subset of option greeks the engine consumes. Nil fields
// mean the provider did not report a value.
type Greeks struct {
	Gamma *float64
	Delta *float64
}

// OptionRecord is one contract observation for a single fetch.
type OptionRecord struct {
	Symbol       string
	Strike       float64
	OptionType   OptionType
	Volume       int64
	OpenInterest int64
	Greeks       *Greeks // nil when the provider returned no greeks
}

// OptionChain is the ordered set of contracts for one symbol and expiration.
// An empty chain is valid.
type OptionChain []OptionRecord

// Candle is a single OHLC bar. Only Close is used by the indicators.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Closes extracts close prices in order.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Quote is a single quote record. Optional numeric fields are nil when absent.
type Quote struct {
	Symbol      string
	Description string
	Last        *float64
	Change      *float64
	Open        *float64
	PrevClose   *float64
}
