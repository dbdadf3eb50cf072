package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carlet-notify/internal/resilience/circuitbreaker"
)

// RateLimitError represents a 429 response from the push gateway.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string // Optional custom message
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// RetryDelay lets retry.WithBackoff wait as long as the gateway asked.
func (e *RateLimitError) RetryDelay() time.Duration {
	return e.RetryAfter
}

// ClientError represents a 4xx response, or a message rejected before sending.
// Code carries the gateway's status string (for example "UNREGISTERED") when present.
type ClientError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ClientError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// ServerError represents a 5xx response from the push gateway.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}

// isRetryableError checks if the error is worth retrying: server errors, rate
// limits and network errors are; client errors and context errors are not.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return false
	}

	return true
}

// isGatewayFailure reports whether err says the gateway itself is unhealthy.
// Rejected messages and cancelled sends do not count against the breaker.
func isGatewayFailure(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

// errorKind names err for the push_requests_total result label.
func errorKind(err error) string {
	var (
		rateLimitErr *RateLimitError
		clientErr    *ClientError
		serverErr    *ServerError
	)
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &rateLimitErr):
		return "rate_limited"
	case errors.As(err, &clientErr):
		return "client_error"
	case errors.As(err, &serverErr):
		return "server_error"
	case errors.Is(err, circuitbreaker.ErrOpen):
		return "breaker_open"
	default:
		return "network_error"
	}
}
