package snapshot

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NotAvailable is the sentinel rendered for any field whose source data could
// not be obtained.
const NotAvailable = "N/A"

// Trend labels for the short-window price direction.
const (
	TrendUp   = "Up"
	TrendDown = "Down"
	TrendFlat = "Flat"
)

// MarketSnapshot is the fixed-shape aggregate produced by one build pass.
// Every field is always populated; optional sources fall back to NotAvailable.
type MarketSnapshot struct {
	Symbol          string   `json:"symbol"`
	SpotPrice       float64  `json:"spot_price"`
	CallVolume      int64    `json:"call_volume"`
	PutVolume       int64    `json:"put_volume"`
	TopOIStrikes    []string `json:"top_oi_strikes"`
	TotalGEX        float64  `json:"total_gex"`
	TotalDEX        float64  `json:"total_dex"`
	VIXCurrent      string   `json:"vix_current"`
	VIXTrend        string   `json:"vix_trend"`
	RSI5Min         string   `json:"rsi_5min"`
	MACD5Min        string   `json:"macd_5min"`
	RecentTrend5Min string   `json:"recent_trend_5min"`
}

// Field is one flattened key/value pair of a snapshot.
type Field struct {
	Key   string
	Value string
}

// Fields flattens the snapshot into display strings in a stable order. GEX and
// DEX are rendered as whole-dollar amounts with thousands separators.
func (s *MarketSnapshot) Fields() []Field {
	if s == nil {
		return nil
	}
	strikes := NotAvailable
	if len(s.TopOIStrikes) > 0 {
		strikes = strings.Join(s.TopOIStrikes, ", ")
	}
	return []Field{
		{Key: "symbol", Value: s.Symbol},
		{Key: "spot_price", Value: formatNumber(s.SpotPrice)},
		{Key: "call_volume", Value: strconv.FormatInt(s.CallVolume, 10)},
		{Key: "put_volume", Value: strconv.FormatInt(s.PutVolume, 10)},
		{Key: "top_oi_strikes", Value: strikes},
		{Key: "vix_current", Value: orNA(s.VIXCurrent)},
		{Key: "vix_trend", Value: orNA(s.VIXTrend)},
		{Key: "rsi_5min", Value: orNA(s.RSI5Min)},
		{Key: "macd_5min", Value: orNA(s.MACD5Min)},
		{Key: "recent_trend_5min", Value: orNA(s.RecentTrend5Min)},
		{Key: "total_gex", Value: FormatCurrency(s.TotalGEX)},
		{Key: "total_dex", Value: FormatCurrency(s.TotalDEX)},
	}
}

// FieldMap returns Fields keyed by name.
func (s *MarketSnapshot) FieldMap() map[string]string {
	fields := s.Fields()
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}

var currencyPrinter = message.NewPrinter(language.English)

// FormatCurrency renders v as whole dollars with thousands separators, e.g.
// -1234567.8 becomes "-$1,234,568".
func FormatCurrency(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NotAvailable
	}
	rounded := math.Round(v)
	if rounded == 0 {
		return "$0"
	}
	sign := ""
	if rounded < 0 {
		sign = "-"
		rounded = -rounded
	}
	return currencyPrinter.Sprintf("%s$%.0f", sign, rounded)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orNA(v string) string {
	if strings.TrimSpace(v) == "" {
		return NotAvailable
	}
	return v
}
