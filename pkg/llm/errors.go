package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
)

// APIError is returned when the completion endpoint answers with a non-2xx
// status after retries are exhausted.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("llm: http %d", e.StatusCode)
	}
	return fmt.Sprintf("llm: http %d: %s", e.StatusCode, e.Message)
}

// IsRateLimited reports whether err is a provider rate-limit rejection.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return strings.Contains(err.Error(), "429")
}

// toAPIError converts SDK errors into APIError. openai.Error values built
// without Request/Response panic on Error(), so they never escape the package.
func toAPIError(err error) error {
	var oaErr *openai.Error
	if errors.As(err, &oaErr) {
		return &APIError{StatusCode: oaErr.StatusCode, Message: strings.TrimSpace(oaErr.Message)}
	}
	return err
}
