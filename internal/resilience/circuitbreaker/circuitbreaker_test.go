package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          50 * time.Millisecond,
		FailureThreshold: 0.5,
		MinRequests:      4,
	}
}

var (
	errGateway = errors.New("gateway unavailable")
	errToken   = errors.New("unregistered token")
)

func fail(err error) func() (string, error) {
	return func() (string, error) { return "", err }
}

func TestPushAPIConfig(t *testing.T) {
	cfg := PushAPIConfig()
	assert.Equal(t, "push-api", cfg.Name)
	assert.Equal(t, uint32(10), cfg.MinRequests)
	assert.InDelta(t, 0.5, cfg.FailureThreshold, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestDo_ReturnsTypedResult(t *testing.T) {
	cb := New(testConfig("cb-typed"), nil)

	id, err := Do(cb, func() (string, error) { return "msg-1", nil })
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.Equal(t, "cb-typed", cb.Name())
}

func TestDo_PassesErrorThrough(t *testing.T) {
	cb := New(testConfig("cb-passthrough"), nil)

	id, err := Do(cb, fail(errGateway))
	assert.ErrorIs(t, err, errGateway)
	assert.Empty(t, id)
	assert.Equal(t, uint32(1), cb.Counts().TotalFailures)
}

func TestDo_TripsAfterThreshold(t *testing.T) {
	cb := New(testConfig("cb-trip"), nil)

	for range 4 {
		_, _ = Do(cb, fail(errGateway))
	}
	require.Equal(t, gobreaker.StateOpen, cb.State())

	called := false
	_, err := Do(cb, func() (string, error) {
		called = true
		return "", nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called, "fn must not run while open")

	assert.Equal(t, float64(2), testutil.ToFloat64(stateGauge.WithLabelValues("cb-trip")))
	assert.Equal(t, float64(1), testutil.ToFloat64(rejectedTotal.WithLabelValues("cb-trip")))
	assert.Equal(t, float64(1), testutil.ToFloat64(transitionsTotal.WithLabelValues("cb-trip", "closed", "open")))
}

func TestDo_BelowMinRequestsStaysClosed(t *testing.T) {
	cb := New(testConfig("cb-min"), nil)

	for range 3 {
		_, _ = Do(cb, fail(errGateway))
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestDo_IgnoredErrorsDoNotTrip(t *testing.T) {
	cfg := testConfig("cb-ignore")
	cfg.IsFailure = func(err error) bool { return !errors.Is(err, errToken) }
	cb := New(cfg, nil)

	for range 10 {
		_, err := Do(cb, fail(errToken))
		assert.ErrorIs(t, err, errToken)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.Equal(t, uint32(0), cb.Counts().TotalFailures)
}

func TestDo_HalfOpenRecovers(t *testing.T) {
	cb := New(testConfig("cb-recover"), nil)

	for range 4 {
		_, _ = Do(cb, fail(errGateway))
	}
	require.Equal(t, gobreaker.StateOpen, cb.State())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, gobreaker.StateHalfOpen, cb.State())

	id, err := Do(cb, func() (string, error) { return "trial", nil })
	require.NoError(t, err)
	assert.Equal(t, "trial", id)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.Equal(t, float64(0), testutil.ToFloat64(stateGauge.WithLabelValues("cb-recover")))
}

func TestDo_HalfOpenFailureReopens(t *testing.T) {
	cb := New(testConfig("cb-reopen"), nil)

	for range 4 {
		_, _ = Do(cb, fail(errGateway))
	}
	time.Sleep(80 * time.Millisecond)

	_, err := Do(cb, fail(errGateway))
	assert.ErrorIs(t, err, errGateway)
	assert.Equal(t, gobreaker.StateOpen, cb.State())
}

func TestStateValue(t *testing.T) {
	assert.Equal(t, float64(0), stateValue(gobreaker.StateClosed))
	assert.Equal(t, float64(1), stateValue(gobreaker.StateHalfOpen))
	assert.Equal(t, float64(2), stateValue(gobreaker.StateOpen))
}
