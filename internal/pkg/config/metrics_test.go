package config

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

var testMetrics = NewConfigMetrics("config_test")

func TestConfigMetrics_ValidationErrorsAndFallbacks(t *testing.T) {
	before := testutil.ToFloat64(testMetrics.ValidationErrorsTotal.WithLabelValues("timezone"))
	fallbacks := testutil.ToFloat64(testMetrics.FallbacksTotal.WithLabelValues("timezone", "default"))

	testMetrics.RecordValidationError("timezone")
	testMetrics.RecordFallback("timezone", "default")

	assert.Equal(t, before+1, testutil.ToFloat64(testMetrics.ValidationErrorsTotal.WithLabelValues("timezone")))
	assert.Equal(t, fallbacks+1, testutil.ToFloat64(testMetrics.FallbacksTotal.WithLabelValues("timezone", "default")))
}

func TestConfigMetrics_FallbackActivePerField(t *testing.T) {
	testMetrics.SetFallbackActive("push_burst", true)
	testMetrics.SetFallbackActive("push_timeout", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(testMetrics.FallbackActive.WithLabelValues("push_burst")))
	assert.Equal(t, 0.0, testutil.ToFloat64(testMetrics.FallbackActive.WithLabelValues("push_timeout")))

	testMetrics.SetFallbackActive("push_burst", false)
	assert.Equal(t, 0.0, testutil.ToFloat64(testMetrics.FallbackActive.WithLabelValues("push_burst")))
}

func TestConfigMetrics_LoadTimestamp(t *testing.T) {
	testMetrics.RecordLoadTimestamp()
	assert.Greater(t, testutil.ToFloat64(testMetrics.LoadTimestamp), 0.0)
}

func TestConfigMetrics_Names(t *testing.T) {
	testMetrics.SetFallbackActive("names", false)
	assert.Equal(t, 1, testutil.CollectAndCount(testMetrics.LoadTimestamp, "config_test_config_load_timestamp"))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(testMetrics.FallbackActive, "config_test_config_fallback_active"), 1)
}
