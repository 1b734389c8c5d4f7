package snapshot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"zerodte-api/pkg/market"
	"zerodte-api/pkg/market/indicators"
)

const (
	defaultVolatilitySymbol = "VIX"
	defaultCandleInterval   = "5min"
	defaultCandleLookback   = 72 * time.Hour
	topStrikeCount          = 5
	trendWindow             = 5

	// minIndicatorCloses guards the windows needed by RSI(14) and MACD.
	minIndicatorCloses = 21
)

// Builder runs one aggregation pass over the market data gateway and returns
// a complete MarketSnapshot. It never retries.
type Builder struct {
	gateway   market.Gateway
	symbol    string
	volSymbol string
	interval  string
	lookback  time.Duration
	location  *time.Location
	now       func() time.Time
}

// Option customises a Builder.
type Option func(*Builder)

// WithVolatilitySymbol sets the secondary quote symbol (default VIX).
func WithVolatilitySymbol(symbol string) Option {
	return func(b *Builder) {
		if s := strings.TrimSpace(symbol); s != "" {
			b.volSymbol = strings.ToUpper(s)
		}
	}
}

// WithCandleLookback sets how far back intraday candles are requested.
func WithCandleLookback(d time.Duration) Option {
	return func(b *Builder) {
		if d > 0 {
			b.lookback = d
		}
	}
}

// WithLocation sets the exchange time zone used to resolve the trading date.
func WithLocation(loc *time.Location) Option {
	return func(b *Builder) {
		if loc != nil {
			b.location = loc
		}
	}
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBuilder constructs a snapshot builder for symbol.
func NewBuilder(gateway market.Gateway, symbol string, opts ...Option) *Builder {
	b := &Builder{
		gateway:   gateway,
		symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		volSymbol: defaultVolatilitySymbol,
		interval:  defaultCandleInterval,
		lookback:  defaultCandleLookback,
		location:  newYork(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Symbol returns the underlying symbol the builder aggregates.
func (b *Builder) Symbol() string {
	return b.symbol
}

// Build fetches spot, chain, candles and the volatility quote and assembles a
// snapshot. Failures fetching the spot price or option chain abort the build;
// candle and volatility failures degrade only their own fields.
func (b *Builder) Build(ctx context.Context) (*MarketSnapshot, error) {
	if b.gateway == nil {
		return nil, errors.New("snapshot: market gateway not configured")
	}
	now := b.now().In(b.location)
	expiration := now.Format("2006-01-02")

	spot, err := b.gateway.SpotPrice(ctx, b.symbol)
	if err != nil {
		return nil, fmt.Errorf("snapshot: spot price %s: %w", b.symbol, err)
	}

	chain, err := b.gateway.OptionChain(ctx, b.symbol, expiration)
	if err != nil {
		return nil, fmt.Errorf("snapshot: option chain %s %s: %w", b.symbol, expiration, err)
	}

	callVol, putVol := AggregateVolume(chain)
	gex, dex := indicators.GammaDeltaExposure(chain, spot)

	tech := b.technicals(ctx, now)
	vix := b.volatility(ctx)

	return &MarketSnapshot{
		Symbol:          b.symbol,
		SpotPrice:       spot,
		CallVolume:      callVol,
		PutVolume:       putVol,
		TopOIStrikes:    TopOpenInterest(chain, topStrikeCount),
		TotalGEX:        gex,
		TotalDEX:        dex,
		VIXCurrent:      vix.current.orNA(),
		VIXTrend:        vix.trend.orNA(),
		RSI5Min:         tech.rsi.orNA(),
		MACD5Min:        tech.macd.orNA(),
		RecentTrend5Min: tech.trend.orNA(),
	}, nil
}

// field is the value-or-error result of a non-essential computation.
type field struct {
	value string
	err   error
}

func failed(err error) field {
	return field{err: err}
}

func (f field) orNA() string {
	if f.err != nil || f.value == "" {
		return NotAvailable
	}
	return f.value
}

type technicals struct {
	rsi, macd, trend field
}

var errShortWindow = errors.New("snapshot: not enough candles for indicators")

func (b *Builder) technicals(ctx context.Context, now time.Time) technicals {
	start := now.Add(-b.lookback)
	candles, err := b.gateway.Candles(ctx, b.symbol, b.interval, &start)
	if err != nil {
		logx.WithContext(ctx).Slowf("snapshot: candles %s degraded: %v", b.symbol, err)
		return technicals{rsi: failed(err), macd: failed(err), trend: failed(err)}
	}
	closes := market.Closes(candles)
	if len(closes) < minIndicatorCloses {
		logx.WithContext(ctx).Infof("snapshot: %d closes for %s, indicators unavailable", len(closes), b.symbol)
		return technicals{rsi: failed(errShortWindow), macd: failed(errShortWindow), trend: failed(errShortWindow)}
	}
	return computeTechnicals(closes)
}

func computeTechnicals(closes []float64) technicals {
	var out technicals

	if rsi := indicators.RSI(closes, indicators.DefaultRSIPeriod); math.IsNaN(rsi) {
		out.rsi = failed(errors.New("snapshot: rsi undefined"))
	} else {
		out.rsi = field{value: fmt.Sprintf("%.2f", rsi)}
	}

	m := indicators.MACD(closes, indicators.DefaultMACDFast, indicators.DefaultMACDSlow, indicators.DefaultMACDSignal)
	out.macd = field{value: fmt.Sprintf("MACD: %.2f, Signal: %.2f, Hist: %.2f", m.MACD, m.Signal, m.Histogram)}

	out.trend = field{value: RecentTrend(closes, trendWindow)}
	return out
}

type volatility struct {
	current, trend field
}

func (b *Builder) volatility(ctx context.Context) volatility {
	quote, err := b.gateway.Quote(ctx, b.volSymbol)
	if err == nil && quote == nil {
		err = fmt.Errorf("snapshot: no quote for %s: %w", b.volSymbol, market.ErrDataUnavailable)
	}
	if err != nil {
		logx.WithContext(ctx).Slowf("snapshot: volatility quote %s degraded: %v", b.volSymbol, err)
		return volatility{current: failed(err), trend: failed(err)}
	}

	var out volatility
	if quote.Last != nil {
		out.current = field{value: fmt.Sprintf("%.2f", *quote.Last)}
	} else {
		out.current = failed(market.ErrDataUnavailable)
	}
	if quote.Change != nil {
		out.trend = field{value: describeChange(*quote.Change)}
	} else {
		out.trend = failed(market.ErrDataUnavailable)
	}
	return out
}

func describeChange(change float64) string {
	switch {
	case change > 0:
		return fmt.Sprintf("Rising (%+.2f)", change)
	case change < 0:
		return fmt.Sprintf("Falling (%+.2f)", change)
	default:
		return "Flat (0.00)"
	}
}

// AggregateVolume sums contract volume by option type.
func AggregateVolume(chain market.OptionChain) (calls, puts int64) {
	for _, opt := range chain {
		if opt.OptionType == market.OptionPut {
			puts += opt.Volume
		} else {
			calls += opt.Volume
		}
	}
	return calls, puts
}

// TopOpenInterest returns up to n contracts by open interest, descending,
// formatted as "{strike} ({type})". Ties keep provider order.
func TopOpenInterest(chain market.OptionChain, n int) []string {
	sorted := make(market.OptionChain, len(chain))
	copy(sorted, chain)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OpenInterest > sorted[j].OpenInterest
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]string, 0, len(sorted))
	for _, opt := range sorted {
		out = append(out, fmt.Sprintf("%s (%s)", formatNumber(opt.Strike), opt.OptionType))
	}
	return out
}

// RecentTrend compares the last close with the close window-1 bars earlier.
func RecentTrend(closes []float64, window int) string {
	if window < 2 || len(closes) < window {
		return NotAvailable
	}
	first := closes[len(closes)-window]
	last := closes[len(closes)-1]
	switch {
	case last > first:
		return TrendUp
	case last < first:
		return TrendDown
	default:
		return TrendFlat
	}
}

func newYork() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}
