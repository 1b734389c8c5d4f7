package tradier

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// oneOrMany decodes a field that the API returns as a single object, an array
// of objects, or null.
type oneOrMany[T any] []T

func (m *oneOrMany[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*m = nil
		return nil
	}
	if trimmed[0] == '[' {
		var many []T
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return err
		}
		*m = many
		return nil
	}
	if trimmed[0] == '{' {
		var one T
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return err
		}
		*m = []T{one}
		return nil
	}
	// Empty results are sometimes encoded as the string "null".
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil && (s == "" || s == "null") {
		*m = nil
		return nil
	}
	return fmt.Errorf("tradier: unexpected payload %s", string(trimmed))
}

// QuotesResponse mirrors GET /markets/quotes.
type QuotesResponse struct {
	Quotes *struct {
		Quote oneOrMany[QuoteEntry] `json:"quote"`
	} `json:"quotes"`
}

// QuoteEntry is one quote record.
type QuoteEntry struct {
	Symbol      string   `json:"symbol"`
	Description string   `json:"description"`
	Last        *float64 `json:"last"`
	Change      *float64 `json:"change"`
	Open        *float64 `json:"open"`
	PrevClose   *float64 `json:"prevclose"`
}

// ChainResponse mirrors GET /markets/options/chains.
type ChainResponse struct {
	Options *struct {
		Option oneOrMany[OptionEntry] `json:"option"`
	} `json:"options"`
}

// OptionEntry is one contract in a chain response.
type OptionEntry struct {
	Symbol       string       `json:"symbol"`
	Strike       float64      `json:"strike"`
	OptionType   string       `json:"option_type"`
	Volume       *int64       `json:"volume"`
	OpenInterest *int64       `json:"open_interest"`
	Greeks       *GreeksEntry `json:"greeks"`
}

// GreeksEntry holds the greeks returned when greeks=true.
type GreeksEntry struct {
	Delta *float64 `json:"delta"`
	Gamma *float64 `json:"gamma"`
	Theta *float64 `json:"theta"`
	Vega  *float64 `json:"vega"`
	MidIV *float64 `json:"mid_iv"`
}

// TimeSalesResponse mirrors GET /markets/timesales.
type TimeSalesResponse struct {
	Series *struct {
		Data oneOrMany[BarEntry] `json:"data"`
	} `json:"series"`
}

// BarEntry is a single interval bar.
type BarEntry struct {
	Time   string  `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}
