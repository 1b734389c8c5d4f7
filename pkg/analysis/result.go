package analysis

import (
	"sync/atomic"
	"time"

	"zerodte-api/pkg/snapshot"
)

// PlaceholderText is served until the first run completes.
const PlaceholderText = "Waiting for initial analysis..."

// Result is one completed analysis. Values are replaced as a whole and never
// mutated after they are stored.
type Result struct {
	RunID     string                   `json:"run_id,omitempty"`
	Timestamp *time.Time               `json:"timestamp"`
	Text      string                   `json:"text"`
	Data      *snapshot.MarketSnapshot `json:"data"`
}

// Placeholder returns the result served before any run has completed.
func Placeholder() Result {
	return Result{Text: PlaceholderText}
}

// Ready reports whether r came from a completed run.
func (r Result) Ready() bool {
	return r.Timestamp != nil
}

// Store holds the latest Result. Reads never block on writers.
type Store struct {
	latest atomic.Pointer[Result]
}

// NewStore returns a store primed with the placeholder result.
func NewStore() *Store {
	s := &Store{}
	p := Placeholder()
	s.latest.Store(&p)
	return s
}

// Latest returns the current result.
func (s *Store) Latest() Result {
	return *s.latest.Load()
}

// Swap installs r and returns the previous value.
func (s *Store) Swap(r Result) Result {
	prev := s.latest.Swap(&r)
	return *prev
}

// Prime installs r only while the store still holds the placeholder. It is
// used to restore the last archived result at startup.
func (s *Store) Prime(r Result) bool {
	for {
		cur := s.latest.Load()
		if cur.Ready() || !r.Ready() {
			return false
		}
		if s.latest.CompareAndSwap(cur, &r) {
			return true
		}
	}
}
