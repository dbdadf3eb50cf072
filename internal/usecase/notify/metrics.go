package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for report fan-out and delivery
var (
	// fanoutEventsTotal tracks handled report-created events by outcome
	fanoutEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_fanout_events_total",
			Help: "Total number of report-created events handled",
		},
		[]string{"result"}, // result: notified|no_match|no_payload|error
	)

	// fanoutMatchesTotal tracks matched users per priority
	fanoutMatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_fanout_matches_total",
			Help: "Total number of users matched to a report",
		},
		[]string{"priority"}, // priority: urgent|nearby
	)

	// dispatchChunksTotal tracks SendEach calls per outcome
	dispatchChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_chunks_total",
			Help: "Total number of push chunks dispatched",
		},
		[]string{"status"}, // status: success|partial|failure
	)

	// dispatchChunkFailuresTotal tracks chunks with at least one failed message
	dispatchChunkFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "push_chunk_failures_total",
			Help: "Total number of push chunks with failed messages or transport errors",
		},
	)

	// dispatchMessagesTotal tracks individual messages per outcome
	dispatchMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_messages_total",
			Help: "Total number of notification messages dispatched",
		},
		[]string{"status"}, // status: sent|failed
	)

	// dispatchDuration tracks the duration of a whole Dispatch call
	dispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notify_dispatch_duration_seconds",
			Help:    "Duration of dispatching all notifications of one report in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)

	// resolutionEventsTotal tracks handled report-updated events by outcome
	resolutionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_resolution_events_total",
			Help: "Total number of report-updated events handled",
		},
		[]string{"result"}, // result: sent|skipped|error
	)
)

// RecordFanOut records the outcome of one report-created event.
func RecordFanOut(result string) {
	fanoutEventsTotal.WithLabelValues(result).Inc()
}

// RecordMatches records matched users split by priority.
func RecordMatches(urgent, nearby int) {
	fanoutMatchesTotal.WithLabelValues("urgent").Add(float64(urgent))
	fanoutMatchesTotal.WithLabelValues("nearby").Add(float64(nearby))
}

// RecordChunk records one SendEach call.
//
// Parameters:
//   - sent: messages accepted by the push service
//   - failed: messages rejected or never attempted
//   - transportErr: whether the call itself returned an error
func RecordChunk(sent, failed int, transportErr bool) {
	status := "success"
	switch {
	case transportErr && sent == 0:
		status = "failure"
	case transportErr || failed > 0:
		status = "partial"
	}
	dispatchChunksTotal.WithLabelValues(status).Inc()
	if transportErr || failed > 0 {
		dispatchChunkFailuresTotal.Inc()
	}
	dispatchMessagesTotal.WithLabelValues("sent").Add(float64(sent))
	dispatchMessagesTotal.WithLabelValues("failed").Add(float64(failed))
}

// RecordDispatchDuration records how long one Dispatch call took.
func RecordDispatchDuration(d time.Duration) {
	dispatchDuration.Observe(d.Seconds())
}

// RecordResolution records the outcome of one report-updated event.
func RecordResolution(result string) {
	resolutionEventsTotal.WithLabelValues(result).Inc()
}
