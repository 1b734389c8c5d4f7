package tradier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"golang.org/x/time/rate"

	"zerodte-api/pkg/market"
)

const (
	defaultBaseURL          = "https://api.tradier.com/v1"
	sandboxBaseURL          = "https://sandbox.tradier.com/v1"
	defaultHTTPTimeout      = 10 * time.Second
	defaultMaxRetries       = 2
	defaultRetryBackoffBase = 200 * time.Millisecond
	defaultRateLimit        = 2.0
	defaultBurst            = 5

	barTimeLayout = "2006-01-02T15:04:05"
)

// exchangeLocation is the time zone Tradier uses for bar timestamps.
var exchangeLocation = mustLoadLocation("America/New_York")

// Client wraps access to the Tradier market data REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
	limiter    *rate.Limiter
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithToken sets the bearer credential.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithMaxRetries adjusts the retry budget for transient failures.
func WithMaxRetries(max int) Option {
	return func(c *Client) {
		if max >= 0 {
			c.maxRetries = max
		}
	}
}

// WithRateLimit sets the sustained requests per second and burst size.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewClient constructs a Tradier API client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		maxRetries: defaultMaxRetries,
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// GetQuotes fetches quote records for the given symbols.
func (c *Client) GetQuotes(ctx context.Context, symbols ...string) ([]QuoteEntry, error) {
	params := url.Values{}
	params.Set("symbols", strings.Join(symbols, ","))
	var resp QuotesResponse
	if err := c.get(ctx, "quotes", "/markets/quotes", params, &resp); err != nil {
		return nil, err
	}
	if resp.Quotes == nil {
		return nil, nil
	}
	return resp.Quotes.Quote, nil
}

// GetOptionChain fetches the chain for symbol and expiration with greeks.
func (c *Client) GetOptionChain(ctx context.Context, symbol, expiration string) ([]OptionEntry, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("expiration", expiration)
	params.Set("greeks", "true")
	var resp ChainResponse
	if err := c.get(ctx, "option_chain", "/markets/options/chains", params, &resp); err != nil {
		return nil, err
	}
	if resp.Options == nil {
		return nil, nil
	}
	return resp.Options.Option, nil
}

// GetTimeSales fetches interval bars, optionally starting at start.
func (c *Client) GetTimeSales(ctx context.Context, symbol, interval string, start *time.Time) ([]BarEntry, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("session_filter", "all")
	if start != nil {
		params.Set("start", start.In(exchangeLocation).Format("2006-01-02 15:04"))
	}
	var resp TimeSalesResponse
	if err := c.get(ctx, "candles", "/markets/timesales", params, &resp); err != nil {
		return nil, err
	}
	if resp.Series == nil {
		return nil, nil
	}
	return resp.Series.Data, nil
}

// get issues an authenticated GET and decodes the JSON body into result.
// Transport and non-2xx failures are returned as *market.TransportError.
func (c *Client) get(ctx context.Context, op, path string, params url.Values, result interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var lastErr error
	backoff := defaultRetryBackoffBase
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return &market.TransportError{Op: op, Err: err}
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("tradier: build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		retryable := true
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return &market.TransportError{Op: op, Err: ctx.Err()}
			}
			lastErr = &market.TransportError{Op: op, Err: err}
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = &market.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", readErr)}
			case resp.StatusCode < 200 || resp.StatusCode >= 300:
				lastErr = &market.TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(body)))}
				retryable = resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
			default:
				if result != nil {
					if err := json.Unmarshal(body, result); err != nil {
						return fmt.Errorf("tradier: decode %s response: %w", op, err)
					}
				}
				return nil
			}
		}

		if !retryable || attempt >= c.maxRetries {
			break
		}
		logx.WithContext(ctx).Slowf("tradier: %s attempt %d failed, retrying in %s: %v", op, attempt+1, backoff, lastErr)
		select {
		case <-ctx.Done():
			return &market.TransportError{Op: op, Err: ctx.Err()}
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return lastErr
}

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
