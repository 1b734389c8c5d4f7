package market

import (
	"errors"
	"fmt"
)

// ErrDataUnavailable reports that the provider returned no usable record for
// a required field.
var ErrDataUnavailable = errors.New("market: data unavailable")

// TransportError wraps network and HTTP level failures talking to a provider.
type TransportError struct {
	Op         string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("market: %s: http status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("market: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
