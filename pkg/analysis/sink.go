package analysis

import (
	"context"
	"errors"
	"fmt"
)

// ErrSinkFailure wraps every error reported by a Sink.
var ErrSinkFailure = errors.New("analysis: sink failure")

// Sink persists a completed result somewhere outside the process. Sinks are
// best effort: failures are logged and counted, never retried.
type Sink interface {
	Name() string
	Save(ctx context.Context, r Result) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc struct {
	SinkName string
	Fn       func(ctx context.Context, r Result) error
}

func (f SinkFunc) Name() string { return f.SinkName }

func (f SinkFunc) Save(ctx context.Context, r Result) error { return f.Fn(ctx, r) }

func sinkError(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrSinkFailure, name, err)
}
