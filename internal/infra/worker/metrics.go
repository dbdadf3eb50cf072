package worker

import (
	"carlet-notify/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics provides Prometheus metrics for the worker process.
// It embeds the standard ConfigMetrics and adds scheduled job metrics.
//
// Embedded metrics (from ConfigMetrics):
//   - worker_config_load_timestamp
//   - worker_config_validation_errors_total{field}
//   - worker_config_fallbacks_total{field,fallback_type}
//   - worker_config_fallback_active
//
// Job metrics:
//   - worker_cron_job_runs_total{job,status}
//   - worker_cron_job_duration_seconds{job}
//   - worker_cron_job_last_success_timestamp{job}
type WorkerMetrics struct {
	*config.ConfigMetrics

	CronJobRunsTotal            *prometheus.CounterVec
	CronJobDurationSeconds      *prometheus.HistogramVec
	CronJobLastSuccessTimestamp *prometheus.GaugeVec
}

// NewWorkerMetrics creates and registers the worker metrics. Call it once
// per process; a second call panics on duplicate registration.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		CronJobRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_cron_job_runs_total",
			Help: "Total number of scheduled job runs by job and status",
		}, []string{"job", "status"}),

		CronJobDurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "worker_cron_job_duration_seconds",
			Help:    "Duration of scheduled job runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 30, 60, 120},
		}, []string{"job"}),

		CronJobLastSuccessTimestamp: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "worker_cron_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful run per job",
		}, []string{"job"}),
	}
}

// RecordJobRun increments the run counter of job for status
// ("started", "success" or "failure").
func (m *WorkerMetrics) RecordJobRun(job, status string) {
	m.CronJobRunsTotal.WithLabelValues(job, status).Inc()
}

// RecordJobDuration observes a run duration in seconds.
func (m *WorkerMetrics) RecordJobDuration(job string, seconds float64) {
	m.CronJobDurationSeconds.WithLabelValues(job).Observe(seconds)
}

// RecordLastSuccess stamps the current time as job's last success.
func (m *WorkerMetrics) RecordLastSuccess(job string) {
	m.CronJobLastSuccessTimestamp.WithLabelValues(job).SetToCurrentTime()
}
