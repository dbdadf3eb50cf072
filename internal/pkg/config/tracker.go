package config

import "log/slog"

// Tracker reports the outcome of one configuration load pass: every rejected
// value is logged and, when metrics are set, counted under its field name.
type Tracker struct {
	logger  *slog.Logger
	metrics *ConfigMetrics
	applied bool
}

// NewTracker creates a Tracker. metrics may be nil.
func NewTracker(logger *slog.Logger, metrics *ConfigMetrics) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{logger: logger, metrics: metrics}
}

// Apply records result for field ("sweep_schedule", "push_burst", ...).
func (t *Tracker) Apply(field string, result ConfigLoadResult) {
	if t.metrics != nil {
		t.metrics.SetFallbackActive(field, result.FallbackApplied)
	}
	if !result.FallbackApplied {
		return
	}
	for _, w := range result.Warnings {
		t.fallback(field, w)
	}
}

// Fallback records a fallback decided by the caller, such as two settings
// that are valid alone but conflict.
func (t *Tracker) Fallback(field, warning string) {
	if t.metrics != nil {
		t.metrics.SetFallbackActive(field, true)
	}
	t.fallback(field, warning)
}

func (t *Tracker) fallback(field, warning string) {
	t.applied = true
	if t.metrics != nil {
		t.metrics.RecordValidationError(field)
		t.metrics.RecordFallback(field, "default")
	}
	t.logger.Warn("Configuration fallback applied",
		slog.String("field", field),
		slog.String("warning", warning))
}

// Done stamps the load time and reports whether any fallback was applied.
func (t *Tracker) Done() bool {
	if t.metrics != nil {
		t.metrics.RecordLoadTimestamp()
	}
	return t.applied
}
