package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/openai/openai-go"
)

// Backoff is the retry policy for completion calls. Zero fields take the
// package defaults when passed through WithBackoff or NewClient.
type Backoff struct {
	Retries int
	Base    time.Duration
	Cap     time.Duration
	Factor  float64
}

var defaultBackoff = Backoff{
	Base:   250 * time.Millisecond,
	Cap:    4 * time.Second,
	Factor: 2,
}

// transientStatus lists provider answers worth another attempt.
var transientStatus = map[int]struct{}{
	http.StatusRequestTimeout:      {},
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

func (b Backoff) normalized() Backoff {
	if b.Retries < 0 {
		b.Retries = 0
	}
	if b.Base <= 0 {
		b.Base = defaultBackoff.Base
	}
	if b.Cap <= 0 {
		b.Cap = defaultBackoff.Cap
	}
	if b.Cap < b.Base {
		b.Cap = b.Base
	}
	if b.Factor <= 1 {
		b.Factor = defaultBackoff.Factor
	}
	return b
}

// delay returns the pause before retry n (1-based).
func (b Backoff) delay(n int) time.Duration {
	d := float64(b.Base)
	for i := 1; i < n; i++ {
		d *= b.Factor
		if d >= float64(b.Cap) {
			return b.Cap
		}
	}
	return time.Duration(d)
}

// run calls op until it succeeds, fails permanently or retries run out.
// Cancellation of ctx during a pause returns the context error.
func (b Backoff) run(ctx context.Context, op func(context.Context) error) error {
	for n := 0; ; n++ {
		err := op(ctx)
		if err == nil || n >= b.Retries || !transient(err) {
			return err
		}

		timer := time.NewTimer(b.delay(n + 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func transient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var sdkErr *openai.Error
	if errors.As(err, &sdkErr) {
		_, ok := transientStatus[sdkErr.StatusCode]
		return ok
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		_, ok := transientStatus[apiErr.StatusCode]
		return ok
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
