package market

import (
	"context"
	"time"
)

// Gateway exposes the market data operations the snapshot builder needs.
// Implementations normalise provider response shapes before returning.
type Gateway interface {
	// SpotPrice returns the last traded price, or ErrDataUnavailable.
	SpotPrice(ctx context.Context, symbol string) (float64, error)
	// Quote returns the quote record, or nil when the provider has none.
	Quote(ctx context.Context, symbol string) (*Quote, error)
	// OptionChain returns contracts for expiration (YYYY-MM-DD); empty when none.
	OptionChain(ctx context.Context, symbol, expiration string) (OptionChain, error)
	// Candles returns bars for interval (e.g. "5min") starting at start when set.
	Candles(ctx context.Context, symbol, interval string, start *time.Time) ([]Candle, error)
}
