package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zerodte-api/pkg/market"
	"zerodte-api/pkg/snapshot"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeSource struct {
	mu      sync.Mutex
	err     error
	spot    float64
	builds  atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (f *fakeSource) Build(ctx context.Context) (*snapshot.MarketSnapshot, error) {
	f.builds.Add(1)
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.spot++
	return &snapshot.MarketSnapshot{Symbol: "SPX", SpotPrice: 5000 + f.spot}, nil
}

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type fakeGenerator struct {
	err error
}

func (g *fakeGenerator) Generate(ctx context.Context, snap *snapshot.MarketSnapshot) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return fmt.Sprintf("commentary for %s at %.0f", snap.Symbol, snap.SpotPrice), nil
}

func newTestScheduler(src *fakeSource, clock *fakeClock, opts ...Option) *Scheduler {
	var n atomic.Int32
	base := []Option{
		WithClock(clock.Now),
		WithIDGenerator(func() string { return fmt.Sprintf("run-%d", n.Add(1)) }),
	}
	return NewScheduler(src, &fakeGenerator{}, NewStore(), Config{
		Interval: time.Hour,
		Cooldown: time.Minute,
	}, append(base, opts...)...)
}

func TestStoreStartsWithPlaceholder(t *testing.T) {
	s := NewStore()
	latest := s.Latest()
	assert.Equal(t, PlaceholderText, latest.Text)
	assert.Nil(t, latest.Timestamp)
	assert.Nil(t, latest.Data)
	assert.False(t, latest.Ready())
}

func TestStorePrimeOnlyReplacesPlaceholder(t *testing.T) {
	s := NewStore()
	ts := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	archived := Result{RunID: "archived", Timestamp: &ts, Text: "from archive"}

	assert.False(t, s.Prime(Placeholder()))
	assert.True(t, s.Prime(archived))
	assert.Equal(t, "archived", s.Latest().RunID)

	later := ts.Add(time.Hour)
	s.Swap(Result{RunID: "fresh", Timestamp: &later})
	assert.False(t, s.Prime(archived))
	assert.Equal(t, "fresh", s.Latest().RunID)
}

func TestTriggerRunsAndStores(t *testing.T) {
	clock := newFakeClock()
	src := &fakeSource{}
	sched := newTestScheduler(src, clock)

	require.Equal(t, OutcomeRan, sched.Trigger(context.Background()))

	latest := sched.Latest()
	require.True(t, latest.Ready())
	assert.Equal(t, "run-1", latest.RunID)
	assert.Equal(t, clock.Now(), *latest.Timestamp)
	assert.Equal(t, time.UTC, latest.Timestamp.Location())
	assert.Equal(t, "commentary for SPX at 5001", latest.Text)
	require.NotNil(t, latest.Data)
	assert.Equal(t, 5001.0, latest.Data.SpotPrice)

	st := sched.Status()
	require.NotNil(t, st.LastRunTime)
	assert.Equal(t, clock.Now(), *st.LastRunTime)
	assert.False(t, st.Paused)
	assert.False(t, st.Running)
	assert.Equal(t, time.Hour, st.Interval)
	assert.Equal(t, time.Minute, st.Cooldown)
}

func TestDoubleTriggerWithinCooldownRunsOnce(t *testing.T) {
	clock := newFakeClock()
	src := &fakeSource{}
	sched := newTestScheduler(src, clock)
	ctx := context.Background()

	require.Equal(t, OutcomeRan, sched.Trigger(ctx))
	first := sched.Latest()

	clock.Advance(30 * time.Second)
	require.Equal(t, OutcomeCooldown, sched.Trigger(ctx))
	assert.Equal(t, first, sched.Latest())
	assert.Equal(t, int32(1), src.builds.Load())

	clock.Advance(31 * time.Second)
	require.Equal(t, OutcomeRan, sched.Trigger(ctx))
	assert.Equal(t, int32(2), src.builds.Load())
	assert.True(t, sched.Latest().Timestamp.After(*first.Timestamp))
}

func TestPauseTriggerResume(t *testing.T) {
	clock := newFakeClock()
	src := &fakeSource{}
	sched := newTestScheduler(src, clock)
	ctx := context.Background()

	require.Equal(t, OutcomeRan, sched.Trigger(ctx))
	before := sched.Latest()

	sched.Pause()
	assert.True(t, sched.Status().Paused)

	clock.Advance(5 * time.Minute)
	require.Equal(t, OutcomePaused, sched.Trigger(ctx))
	assert.Equal(t, before, sched.Latest())
	assert.Equal(t, int32(1), src.builds.Load())

	require.Equal(t, OutcomeRan, sched.Resume(ctx))
	assert.False(t, sched.Status().Paused)
	assert.Equal(t, int32(2), src.builds.Load())
	after := sched.Latest()
	require.True(t, after.Ready())
	assert.True(t, after.Timestamp.After(*before.Timestamp))
}

func TestResumeWithinCooldownDoesNotRun(t *testing.T) {
	clock := newFakeClock()
	src := &fakeSource{}
	sched := newTestScheduler(src, clock)
	ctx := context.Background()

	require.Equal(t, OutcomeRan, sched.Trigger(ctx))
	sched.Pause()
	assert.Equal(t, OutcomeCooldown, sched.Resume(ctx))
	assert.False(t, sched.Status().Paused)
}

func TestDataUnavailableLeavesStoreUntouched(t *testing.T) {
	clock := newFakeClock()
	src := &fakeSource{}
	sched := newTestScheduler(src, clock)
	ctx := context.Background()

	// From the placeholder.
	src.fail(fmt.Errorf("tradier: no last price: %w", market.ErrDataUnavailable))
	placeholder := sched.Latest()
	require.Equal(t, OutcomeFailed, sched.Trigger(ctx))
	assert.Equal(t, placeholder, sched.Latest())

	// From a completed result.
	src.fail(nil)
	clock.Advance(2 * time.Minute)
	require.Equal(t, OutcomeRan, sched.Trigger(ctx))
	before := sched.Latest()

	src.fail(fmt.Errorf("spot: %w", market.ErrDataUnavailable))
	clock.Advance(2 * time.Minute)
	require.Equal(t, OutcomeFailed, sched.Trigger(ctx))
	assert.Equal(t, before, sched.Latest())

	// A failed run still consumed the cooldown window.
	require.Equal(t, OutcomeCooldown, sched.Trigger(ctx))
}

func TestGeneratorErrorLeavesStoreUntouched(t *testing.T) {
	clock := newFakeClock()
	sched := NewScheduler(&fakeSource{}, &fakeGenerator{err: errors.New("template broken")}, NewStore(),
		Config{Interval: time.Hour, Cooldown: time.Minute}, WithClock(clock.Now))

	require.Equal(t, OutcomeFailed, sched.Trigger(context.Background()))
	assert.False(t, sched.Latest().Ready())
}

func TestSinkFailureDoesNotRollBackStore(t *testing.T) {
	clock := newFakeClock()
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	var delivered []string
	failing := SinkFunc{SinkName: "local_report", Fn: func(ctx context.Context, r Result) error {
		delivered = append(delivered, "local_report:"+r.RunID)
		return errors.New("disk full")
	}}
	archive := SinkFunc{SinkName: "archive", Fn: func(ctx context.Context, r Result) error {
		delivered = append(delivered, "archive:"+r.RunID)
		return nil
	}}

	sched := newTestScheduler(&fakeSource{}, clock, WithSinks(failing, nil, archive), WithMetrics(metrics))
	require.Equal(t, OutcomeRan, sched.Trigger(context.Background()))

	assert.True(t, sched.Latest().Ready())
	assert.Equal(t, []string{"local_report:run-1", "archive:run-1"}, delivered)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.sinkFailures.WithLabelValues("local_report")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.sinkFailures.WithLabelValues("archive")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues(string(OutcomeRan))))
}

func TestConcurrentTriggerIsBusy(t *testing.T) {
	clock := newFakeClock()
	src := &fakeSource{entered: make(chan struct{}), release: make(chan struct{})}
	sched := newTestScheduler(src, clock)
	ctx := context.Background()

	done := make(chan TriggerOutcome, 1)
	go func() { done <- sched.Trigger(ctx) }()

	<-src.entered
	assert.True(t, sched.Status().Running)
	assert.Equal(t, OutcomeBusy, sched.Trigger(ctx))

	close(src.release)
	assert.Equal(t, OutcomeRan, <-done)
	assert.Equal(t, int32(1), src.builds.Load())
	assert.False(t, sched.Status().Running)
}

func TestStartRunsWarmupDespiteCooldown(t *testing.T) {
	clock := newFakeClock()
	src := &fakeSource{}
	sched := NewScheduler(src, &fakeGenerator{}, NewStore(), Config{
		Interval:    time.Hour,
		Cooldown:    time.Hour,
		WarmupDelay: 0,
	}, WithClock(clock.Now))

	require.Equal(t, OutcomeRan, sched.Trigger(context.Background()))

	sched.Start(context.Background())
	sched.Start(context.Background())
	defer sched.Stop()

	require.Eventually(t, func() bool { return src.builds.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestStartWarmupRespectsPause(t *testing.T) {
	src := &fakeSource{}
	sched := newTestScheduler(src, newFakeClock())
	sched.Pause()

	sched.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	sched.Stop()
	sched.Stop()

	assert.Equal(t, int32(0), src.builds.Load())
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{WarmupDelay: -1}.withDefaults()
	assert.Equal(t, DefaultInterval, cfg.Interval)
	assert.Equal(t, DefaultCooldown, cfg.Cooldown)
	assert.Equal(t, DefaultWarmupDelay, cfg.WarmupDelay)
}

func TestUnpauseDoesNotRun(t *testing.T) {
	src := &fakeSource{}
	sched := newTestScheduler(src, newFakeClock())
	sched.Pause()
	sched.Unpause()
	assert.False(t, sched.Status().Paused)
	assert.Zero(t, src.builds.Load())
	assert.False(t, sched.Latest().Ready())
}
