package listener

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// eventsTotal tracks received notifications by operation and outcome
	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listener_events_total",
			Help: "Total number of report change notifications received",
		},
		[]string{"op", "result"}, // result: handled|error|invalid
	)

	// reconnectsTotal tracks connection attempts after a failure
	reconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "listener_reconnects_total",
			Help: "Total number of listener reconnect attempts",
		},
	)
)
