package tradier

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zerodte-api/pkg/market"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewProvider(
		WithTimeout(2*time.Second),
		WithClientOptions(
			WithBaseURL(server.URL),
			WithToken("test-token"),
			WithHTTPClient(server.Client()),
			WithMaxRetries(0),
			WithRateLimit(1000, 100),
		),
	)
}

func writeBody(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func TestProviderSpotPriceSingleQuote(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/quotes", r.URL.Path)
		assert.Equal(t, "SPX", r.URL.Query().Get("symbols"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		writeBody(w, `{"quotes":{"quote":{"symbol":"SPX","description":"S&P 500 Index","last":5012.34,"change":-3.5}}}`)
	})

	spot, err := provider.SpotPrice(context.Background(), "spx")
	require.NoError(t, err)
	require.InDelta(t, 5012.34, spot, 1e-9)
}

func TestProviderQuoteListTakesFirst(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, `{"quotes":{"quote":[{"symbol":"VIX","last":14.2,"change":0.8},{"symbol":"SPX","last":5000}]}}`)
	})

	quote, err := provider.Quote(context.Background(), "VIX")
	require.NoError(t, err)
	require.NotNil(t, quote)
	require.Equal(t, "VIX", quote.Symbol)
	require.NotNil(t, quote.Change)
	require.InDelta(t, 0.8, *quote.Change, 1e-9)
}

func TestProviderQuoteUnmatched(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, `{"quotes":{"unmatched_symbols":{"symbol":"NOPE"}}}`)
	})

	quote, err := provider.Quote(context.Background(), "NOPE")
	require.NoError(t, err)
	require.Nil(t, quote)

	_, err = provider.SpotPrice(context.Background(), "NOPE")
	require.ErrorIs(t, err, market.ErrDataUnavailable)
}

func TestProviderSpotPriceMissingLast(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, `{"quotes":{"quote":{"symbol":"SPX","last":null}}}`)
	})

	_, err := provider.SpotPrice(context.Background(), "SPX")
	require.ErrorIs(t, err, market.ErrDataUnavailable)
	require.False(t, market.IsTransport(err))
}

func TestProviderOptionChain(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/options/chains", r.URL.Path)
		assert.Equal(t, "2025-01-17", r.URL.Query().Get("expiration"))
		assert.Equal(t, "true", r.URL.Query().Get("greeks"))
		writeBody(w, `{"options":{"option":[
			{"symbol":"SPXW250117C05000000","strike":5000,"option_type":"call","volume":120,"open_interest":900,"greeks":{"delta":0.52,"gamma":0.004}},
			{"symbol":"SPXW250117P04990000","strike":4990,"option_type":"put","volume":80,"open_interest":null,"greeks":null}
		]}}`)
	})

	chain, err := provider.OptionChain(context.Background(), "SPX", "2025-01-17")
	require.NoError(t, err)
	require.Len(t, chain, 2)

	require.Equal(t, market.OptionCall, chain[0].OptionType)
	require.EqualValues(t, 120, chain[0].Volume)
	require.EqualValues(t, 900, chain[0].OpenInterest)
	require.NotNil(t, chain[0].Greeks)
	require.InDelta(t, 0.004, *chain[0].Greeks.Gamma, 1e-12)

	require.Equal(t, market.OptionPut, chain[1].OptionType)
	require.Zero(t, chain[1].OpenInterest)
	require.Nil(t, chain[1].Greeks)
}

func TestProviderOptionChainEmpty(t *testing.T) {
	for name, body := range map[string]string{
		"null options": `{"options":null}`,
		"null option":  `{"options":{"option":null}}`,
	} {
		t.Run(name, func(t *testing.T) {
			provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				writeBody(w, body)
			})
			chain, err := provider.OptionChain(context.Background(), "SPX", "2025-01-17")
			require.NoError(t, err)
			require.Empty(t, chain)
		})
	}
}

func TestProviderCandlesSingleBar(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/timesales", r.URL.Path)
		assert.Equal(t, "5min", r.URL.Query().Get("interval"))
		assert.Equal(t, "2025-01-17 09:30", r.URL.Query().Get("start"))
		writeBody(w, `{"series":{"data":{"time":"2025-01-17T09:30:00","open":1,"high":2,"low":0.5,"close":1.5,"volume":10}}}`)
	})

	start := time.Date(2025, 1, 17, 9, 30, 0, 0, exchangeLocation)
	candles, err := provider.Candles(context.Background(), "SPX", "5min", &start)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	require.InDelta(t, 1.5, candles[0].Close, 1e-12)
	require.True(t, candles[0].Time.Equal(start))
}

func TestProviderCandlesKeepsBarWithBadTime(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, `{"series":{"data":[{"time":"17/01/2025 09:30","close":1.5},{"time":"2025-01-17T09:35:00","close":2}]}}`)
	})

	candles, err := provider.Candles(context.Background(), "SPX", "5min", nil)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	require.True(t, candles[0].Time.IsZero())
	require.InDelta(t, 1.5, candles[0].Close, 1e-12)
	require.False(t, candles[1].Time.IsZero())
}

func TestProviderCandlesNoSeries(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, `{"series":null}`)
	})

	candles, err := provider.Candles(context.Background(), "SPX", "5min", nil)
	require.NoError(t, err)
	require.Empty(t, candles)
}

func TestProviderTransportError(t *testing.T) {
	var calls int32
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "invalid access token", http.StatusUnauthorized)
	})

	_, err := provider.SpotPrice(context.Background(), "SPX")
	require.Error(t, err)

	var te *market.TransportError
	require.True(t, errors.As(err, &te))
	require.Equal(t, http.StatusUnauthorized, te.StatusCode)
	require.False(t, errors.Is(err, market.ErrDataUnavailable))
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}
		writeBody(w, `{"quotes":{"quote":{"symbol":"SPX","last":5000}}}`)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()), WithMaxRetries(1), WithRateLimit(1000, 100))
	quotes, err := client.GetQuotes(context.Background(), "SPX")
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestOneOrManyRejectsScalars(t *testing.T) {
	var m oneOrMany[BarEntry]
	require.Error(t, m.UnmarshalJSON([]byte(`42`)))
	require.NoError(t, m.UnmarshalJSON([]byte(`"null"`)))
	require.Empty(t, m)
}
