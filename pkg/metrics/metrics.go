package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Reconciliation metrics
	ReconcileRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relator_reconcile_runs_total",
			Help: "Total number of reconciliation runs by outcome",
		},
		[]string{"outcome"},
	)

	ReconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relator_reconcile_duration_seconds",
			Help:    "Time taken by a full reconciliation run in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ResourcesEnsured = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relator_resources_ensured_total",
			Help: "Total number of resources ensured by kind and action",
		},
		[]string{"kind", "action"},
	)

	// Session metrics
	SessionAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relator_session_attempts_total",
			Help: "Total number of pipeline invocation attempts",
		},
	)

	SessionRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relator_session_runs_total",
			Help: "Total number of session runs by outcome",
		},
		[]string{"outcome"},
	)

	SessionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relator_session_duration_seconds",
			Help:    "Time taken by a session run including retries in seconds",
			Buckets: []float64{1, 10, 30, 60, 300, 600, 1800, 3600},
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(ReconcileRunsTotal)
	prometheus.MustRegister(ReconcileDuration)
	prometheus.MustRegister(ResourcesEnsured)
	prometheus.MustRegister(SessionAttemptsTotal)
	prometheus.MustRegister(SessionRunsTotal)
	prometheus.MustRegister(SessionDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures elapsed time for histogram observations
type Timer struct {
	start time.Time
}

// NewTimer starts a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time on the given histogram
func (t *Timer) ObserveDuration(h prometheus.Histogram) {
	h.Observe(time.Since(t.start).Seconds())
}
