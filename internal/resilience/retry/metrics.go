package retry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// attemptsTotal counts retry decisions per operation:
// retried|recovered|permanent|exhausted
var attemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "retry_attempts_total",
		Help: "Total number of retry decisions by operation and outcome",
	},
	[]string{"operation", "result"},
)
