package notifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// pushRequestsTotal counts push messages by outcome
	pushRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_requests_total",
			Help: "Total number of push messages attempted, by result",
		},
		[]string{"result"}, // success|client_error|server_error|rate_limited|breaker_open|network_error
	)

	// pushRequestDuration tracks the time spent delivering one message, retries included
	pushRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "push_request_duration_seconds",
			Help:    "Push message delivery duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// pushRateLimitWaitSeconds tracks time spent waiting on the client-side limiter
	pushRateLimitWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "push_rate_limit_wait_seconds",
			Help:    "Time spent waiting for the push rate limiter in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5},
		},
	)

	// pushLoggedTotal counts messages handled by LoggingClient
	pushLoggedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "push_logged_total",
			Help: "Total number of push messages logged instead of sent (delivery disabled)",
		},
	)
)
