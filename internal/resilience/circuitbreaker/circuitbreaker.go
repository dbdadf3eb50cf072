// Package circuitbreaker guards calls to the push gateway with
// github.com/sony/gobreaker.
//
// Only failures that say something about the gateway's health count toward
// tripping; a caller decides which those are through Config.IsFailure. A
// rejected device token, for example, is a per-message problem and must not
// open the circuit for every other user.
package circuitbreaker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrOpen is returned by Do while the circuit refuses calls, either because it
// is open or because the half-open probe quota is used up.
var ErrOpen = errors.New("circuit breaker open")

// Config holds the configuration for a circuit breaker.
type Config struct {
	// Name labels logs and the circuit_breaker_* metrics.
	Name string

	// MaxRequests is the number of probe calls allowed while half-open.
	MaxRequests uint32

	// Interval clears the closed-state counters; 0 never clears them.
	Interval time.Duration

	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration

	// FailureThreshold is the failure ratio (0..1] that trips the circuit.
	FailureThreshold float64

	// MinRequests is how many calls a window needs before the ratio is checked.
	MinRequests uint32

	// IsFailure reports whether err counts against the circuit. Nil counts
	// every non-nil error.
	IsFailure func(err error) bool
}

// PushAPIConfig trips at 50% failures over at least 10 sends in a minute and
// probes the gateway again after 30s.
func PushAPIConfig() Config {
	return Config{
		Name:             "push-api",
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.5,
		MinRequests:      10,
	}
}

// CircuitBreaker is a named gobreaker.CircuitBreaker that logs and exports its
// state transitions.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string
}

// New creates a closed circuit breaker. logger may be nil.
func New(cfg Config, logger *slog.Logger) *CircuitBreaker {
	if logger == nil {
		logger = slog.Default()
	}
	isFailure := cfg.IsFailure
	if isFailure == nil {
		isFailure = func(err error) bool { return err != nil }
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
			recordTransition(name, from, to)
		},
	}

	stateGauge.WithLabelValues(cfg.Name).Set(stateValue(gobreaker.StateClosed))
	return &CircuitBreaker{breaker: gobreaker.NewCircuitBreaker(settings), name: cfg.Name}
}

// Do runs fn through cb and returns its typed result. While the circuit
// refuses calls fn is not run and the error wraps ErrOpen.
func Do[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	out, err := cb.breaker.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		rejectedTotal.WithLabelValues(cb.name).Inc()
		var zero T
		return zero, fmt.Errorf("%s: %w", cb.name, ErrOpen)
	}
	// out is the untouched return of fn, so it is always a T.
	v, _ := out.(T)
	return v, err
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.breaker.State()
}

// Name returns the name of the circuit breaker.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Counts returns the request counters of the current generation.
func (cb *CircuitBreaker) Counts() gobreaker.Counts {
	return cb.breaker.Counts()
}
