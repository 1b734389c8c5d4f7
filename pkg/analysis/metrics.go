package analysis

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records scheduler activity. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	runs         *prometheus.CounterVec
	duration     prometheus.Histogram
	sinkFailures *prometheus.CounterVec
}

// NewMetrics registers the analysis collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zerodte_analysis_runs_total",
			Help: "Analysis triggers by outcome.",
		}, []string{"outcome"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "zerodte_analysis_run_duration_seconds",
			Help:    "Wall time of executed analysis runs.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		sinkFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zerodte_sink_failures_total",
			Help: "Failed result deliveries by sink.",
		}, []string{"sink"}),
	}
}

var (
	defaultMetricsOnce sync.Once
	defaultMetrics     *Metrics
)

// DefaultMetrics returns collectors registered with the default Prometheus
// registry, which go-zero's dev server exposes on /metrics.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

func (m *Metrics) outcome(o TriggerOutcome) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(string(o)).Inc()
}

func (m *Metrics) runDuration(seconds float64) {
	if m == nil {
		return
	}
	m.duration.Observe(seconds)
}

func (m *Metrics) sinkFailed(name string) {
	if m == nil {
		return
	}
	m.sinkFailures.WithLabelValues(name).Inc()
}
