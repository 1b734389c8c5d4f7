package tradier

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"zerodte-api/pkg/market"
)

const defaultProviderTimeout = 8 * time.Second

// Provider wraps Tradier client calls behind the market.Gateway contract and
// normalises every response into fixed-shape market types.
type Provider struct {
	client     *Client
	timeout    time.Duration
	providerID string
}

type providerConfig struct {
	timeout      time.Duration
	clientConfig []Option
}

// ProviderOption customises the Tradier provider.
type ProviderOption func(*providerConfig)

// WithTimeout overrides the default per-call timeout.
func WithTimeout(timeout time.Duration) ProviderOption {
	return func(cfg *providerConfig) {
		if timeout > 0 {
			cfg.timeout = timeout
		}
	}
}

// WithClientOptions passes options to the underlying Tradier client.
func WithClientOptions(options ...Option) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.clientConfig = append(cfg.clientConfig, options...)
	}
}

// NewProvider constructs a Tradier market data gateway.
func NewProvider(opts ...ProviderOption) *Provider {
	cfg := &providerConfig{
		timeout: defaultProviderTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Provider{
		client:  NewClient(cfg.clientConfig...),
		timeout: cfg.timeout,
	}
}

func init() {
	builder := func(name string, cfg *market.ProviderConfig) (market.Gateway, error) {
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, fmt.Errorf("tradier: api_key is required")
		}
		opts := []ProviderOption{}
		clientOptions := []Option{WithToken(cfg.APIKey)}
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		if cfg.HTTPTimeout > 0 {
			clientOptions = append(clientOptions, WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}))
		}
		if cfg.BaseURL != "" {
			clientOptions = append(clientOptions, WithBaseURL(cfg.BaseURL))
		} else if strings.EqualFold(cfg.Type, "tradier-sandbox") {
			clientOptions = append(clientOptions, WithBaseURL(sandboxBaseURL))
		}
		if cfg.MaxRetries > 0 {
			clientOptions = append(clientOptions, WithMaxRetries(cfg.MaxRetries))
		}
		if cfg.RateLimit > 0 {
			clientOptions = append(clientOptions, WithRateLimit(cfg.RateLimit, cfg.Burst))
		}
		opts = append(opts, WithClientOptions(clientOptions...))
		provider := NewProvider(opts...)
		provider.providerID = name
		return provider, nil
	}
	market.RegisterProvider("tradier", builder)
	market.RegisterProvider("tradier-sandbox", builder)
}

// SpotPrice implements market.Gateway.
func (p *Provider) SpotPrice(ctx context.Context, symbol string) (float64, error) {
	quote, err := p.Quote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if quote == nil {
		return 0, fmt.Errorf("tradier: no quote returned for %s: %w", symbol, market.ErrDataUnavailable)
	}
	if quote.Last == nil {
		return 0, fmt.Errorf("tradier: quote for %s has no last price: %w", symbol, market.ErrDataUnavailable)
	}
	return *quote.Last, nil
}

// Quote implements market.Gateway.
func (p *Provider) Quote(ctx context.Context, symbol string) (*market.Quote, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	entries, err := p.client.GetQuotes(ctx, normalizeSymbol(symbol))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	e := entries[0]
	return &market.Quote{
		Symbol:      e.Symbol,
		Description: e.Description,
		Last:        e.Last,
		Change:      e.Change,
		Open:        e.Open,
		PrevClose:   e.PrevClose,
	}, nil
}

// OptionChain implements market.Gateway.
func (p *Provider) OptionChain(ctx context.Context, symbol, expiration string) (market.OptionChain, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	entries, err := p.client.GetOptionChain(ctx, normalizeSymbol(symbol), expiration)
	if err != nil {
		return nil, err
	}
	chain := make(market.OptionChain, 0, len(entries))
	for _, e := range entries {
		record := market.OptionRecord{
			Symbol:     e.Symbol,
			Strike:     e.Strike,
			OptionType: market.ParseOptionType(e.OptionType),
		}
		if e.Volume != nil {
			record.Volume = *e.Volume
		}
		if e.OpenInterest != nil {
			record.OpenInterest = *e.OpenInterest
		}
		if e.Greeks != nil {
			record.Greeks = &market.Greeks{Gamma: e.Greeks.Gamma, Delta: e.Greeks.Delta}
		}
		chain = append(chain, record)
	}
	return chain, nil
}

// Candles implements market.Gateway.
func (p *Provider) Candles(ctx context.Context, symbol, interval string, start *time.Time) ([]market.Candle, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	bars, err := p.client.GetTimeSales(ctx, normalizeSymbol(symbol), interval, start)
	if err != nil {
		return nil, err
	}
	candles := make([]market.Candle, 0, len(bars))
	for _, b := range bars {
		ts, err := time.ParseInLocation(barTimeLayout, b.Time, exchangeLocation)
		if err != nil {
			logx.WithContext(ctx).Slowf("tradier: %s bar has unparseable time %q: %v", symbol, b.Time, err)
		}
		candles = append(candles, market.Candle{
			Time:   ts,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	return candles, nil
}

func (p *Provider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, p.timeout)
}

// Name returns the configured provider identifier.
func (p *Provider) Name() string {
	if strings.TrimSpace(p.providerID) != "" {
		return p.providerID
	}
	return "tradier"
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
