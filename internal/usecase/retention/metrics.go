package retention

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the retention sweep
var (
	// sweepRunsTotal tracks sweep runs by outcome
	sweepRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retention_sweep_runs_total",
			Help: "Total number of retention sweep runs",
		},
		[]string{"status"}, // status: success|empty|failure
	)

	// sweepDeletedTotal tracks deleted reports
	sweepDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retention_sweep_deleted_total",
			Help: "Total number of expired resolved reports deleted",
		},
	)

	// sweepDuration tracks the duration of one sweep
	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "retention_sweep_duration_seconds",
			Help:    "Duration of a retention sweep in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 60},
		},
	)
)

// RecordSweep records the outcome of one sweep.
func RecordSweep(status string, deleted int64, d time.Duration) {
	sweepRunsTotal.WithLabelValues(status).Inc()
	sweepDeletedTotal.Add(float64(deleted))
	sweepDuration.Observe(d.Seconds())
}
