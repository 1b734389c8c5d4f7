package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"

	"zerodte-api/pkg/narrative"
	"zerodte-api/pkg/snapshot"
)

const (
	DefaultInterval    = 10 * time.Minute
	DefaultCooldown    = 60 * time.Second
	DefaultWarmupDelay = 5 * time.Second
)

// TriggerOutcome describes what a trigger did.
type TriggerOutcome string

const (
	OutcomeRan      TriggerOutcome = "ran"
	OutcomePaused   TriggerOutcome = "paused"
	OutcomeCooldown TriggerOutcome = "cooldown"
	OutcomeBusy     TriggerOutcome = "busy"
	OutcomeFailed   TriggerOutcome = "failed"
)

// SnapshotSource builds one market snapshot.
type SnapshotSource interface {
	Build(ctx context.Context) (*snapshot.MarketSnapshot, error)
}

// Config controls scheduler timing.
type Config struct {
	Interval    time.Duration
	Cooldown    time.Duration
	WarmupDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	if c.WarmupDelay < 0 {
		c.WarmupDelay = DefaultWarmupDelay
	}
	return c
}

// Status is a point-in-time view of the scheduler state.
type Status struct {
	Paused      bool
	Running     bool
	LastRunTime *time.Time
	Interval    time.Duration
	Cooldown    time.Duration
}

// Scheduler decides when an analysis run happens and executes it. At most
// one run is in flight; concurrent triggers are skipped rather than queued.
type Scheduler struct {
	source    SnapshotSource
	generator narrative.Generator
	store     *Store
	sinks     []Sink
	cfg       Config
	now       func() time.Time
	newID     func() string
	metrics   *Metrics

	mu      sync.Mutex // guards paused, lastRun, cancel
	paused  bool
	lastRun time.Time
	cancel  context.CancelFunc

	runMu   sync.Mutex
	running atomic.Bool
	wg      sync.WaitGroup
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSinks appends result sinks, called in order after each run.
func WithSinks(sinks ...Sink) Option {
	return func(s *Scheduler) {
		for _, sink := range sinks {
			if sink != nil {
				s.sinks = append(s.sinks, sink)
			}
		}
	}
}

// WithMetrics records trigger outcomes and run timings.
func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithIDGenerator overrides run ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Scheduler) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewScheduler wires a scheduler around its collaborators.
func NewScheduler(source SnapshotSource, generator narrative.Generator, store *Store, cfg Config, opts ...Option) *Scheduler {
	if store == nil {
		store = NewStore()
	}
	s := &Scheduler{
		source:    source,
		generator: generator,
		store:     store,
		cfg:       cfg.withDefaults(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the interval loop and schedules one warm-up run after the
// configured delay. The warm-up run ignores the cooldown. Calling Start on a
// running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(loopCtx)
	logx.Infof("analysis: scheduler started interval=%s cooldown=%s warmup=%s",
		s.cfg.Interval, s.cfg.Cooldown, s.cfg.WarmupDelay)
}

// Stop ends the interval loop and waits for an in-flight run to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	logx.Info("analysis: scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	warmup := time.NewTimer(s.cfg.WarmupDelay)
	defer warmup.Stop()
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-warmup.C:
			s.trigger(ctx, "warmup", false)
		case <-ticker.C:
			s.trigger(ctx, "interval", true)
		}
	}
}

// Pause suppresses all triggers until Resume.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
	logx.Info("analysis: scheduler paused")
}

// Unpause clears the pause flag without triggering a run.
func (s *Scheduler) Unpause() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
	logx.Info("analysis: scheduler resumed")
}

// Resume clears the pause flag and issues an immediate manual trigger.
func (s *Scheduler) Resume(ctx context.Context) TriggerOutcome {
	s.Unpause()
	return s.trigger(ctx, "resume", true)
}

// Trigger requests a run, subject to the pause flag and the cooldown.
func (s *Scheduler) Trigger(ctx context.Context) TriggerOutcome {
	return s.trigger(ctx, "manual", true)
}

// Status reports the current scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Paused:   s.paused,
		Running:  s.running.Load(),
		Interval: s.cfg.Interval,
		Cooldown: s.cfg.Cooldown,
	}
	if !s.lastRun.IsZero() {
		last := s.lastRun
		st.LastRunTime = &last
	}
	return st
}

// Latest returns the current result without waiting for an in-flight run.
func (s *Scheduler) Latest() Result {
	return s.store.Latest()
}

// Store exposes the latest-result store.
func (s *Scheduler) Store() *Store {
	return s.store
}

func (s *Scheduler) trigger(ctx context.Context, source string, enforceCooldown bool) TriggerOutcome {
	logger := logx.WithContext(ctx)
	if !s.runMu.TryLock() {
		logger.Infof("analysis: %s trigger skipped, run in progress", source)
		s.metrics.outcome(OutcomeBusy)
		return OutcomeBusy
	}
	defer s.runMu.Unlock()

	outcome, startedAt := s.admit(enforceCooldown)
	if outcome != "" {
		logger.Infof("analysis: %s trigger skipped (%s)", source, outcome)
		s.metrics.outcome(outcome)
		return outcome
	}

	s.running.Store(true)
	defer s.running.Store(false)

	err := s.run(ctx)
	s.metrics.runDuration(s.now().Sub(startedAt).Seconds())
	if err != nil {
		logger.Errorf("analysis: %s run failed, keeping previous result: %v", source, err)
		s.metrics.outcome(OutcomeFailed)
		return OutcomeFailed
	}
	s.metrics.outcome(OutcomeRan)
	return OutcomeRan
}

// admit applies the pause and cooldown rules and, when the run may proceed,
// records the run start before returning.
func (s *Scheduler) admit(enforceCooldown bool) (TriggerOutcome, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused {
		return OutcomePaused, time.Time{}
	}
	now := s.now()
	if enforceCooldown && !s.lastRun.IsZero() && now.Sub(s.lastRun) < s.cfg.Cooldown {
		return OutcomeCooldown, time.Time{}
	}
	s.lastRun = now
	return "", now
}

func (s *Scheduler) run(ctx context.Context) error {
	if s.source == nil {
		return errors.New("analysis: snapshot source not configured")
	}
	snap, err := s.source.Build(ctx)
	if err != nil {
		return fmt.Errorf("analysis: build snapshot: %w", err)
	}

	var text string
	if s.generator == nil {
		text = narrative.Describe(narrative.ErrNotConfigured)
	} else if text, err = s.generator.Generate(ctx, snap); err != nil {
		return fmt.Errorf("analysis: generate narrative: %w", err)
	}

	ts := s.now().UTC()
	result := Result{
		RunID:     s.newID(),
		Timestamp: &ts,
		Text:      text,
		Data:      snap,
	}
	s.store.Swap(result)
	logx.WithContext(ctx).Infow("analysis: result stored",
		logx.Field("run_id", result.RunID),
		logx.Field("symbol", snap.Symbol),
		logx.Field("spot_price", snap.SpotPrice),
	)

	s.deliver(ctx, result)
	return nil
}

func (s *Scheduler) deliver(ctx context.Context, r Result) {
	for _, sink := range s.sinks {
		if err := sink.Save(ctx, r); err != nil {
			logx.WithContext(ctx).Errorf("%v", sinkError(sink.Name(), err))
			s.metrics.sinkFailed(sink.Name())
		}
	}
}
