// Package retry runs an operation again after transient failures, waiting an
// exponentially growing, jittered delay between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"carlet-notify/internal/observability/logging"
)

// Config holds the configuration for retry logic.
type Config struct {
	// Operation names the retried call in logs and the retry_attempts_total metric.
	Operation string

	// MaxAttempts is the total number of calls, the first one included.
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps every delay, server-requested ones included.
	MaxDelay time.Duration

	// Multiplier grows the delay after each retry.
	Multiplier float64

	// JitterFraction is the fraction of delay to add as random jitter (0.0 to 1.0).
	JitterFraction float64

	// Retryable overrides IsRetryable when set.
	Retryable func(error) bool
}

// PushConfig is used for push gateway requests. Delays are short because the
// event handler waits for every chunk.
func PushConfig() Config {
	return Config{
		Operation:      "push_send",
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// DBConfig is used while connecting to Postgres at startup, when the database
// may still be coming up next to the worker.
func DBConfig() Config {
	return Config{
		Operation:      "db_connect",
		MaxAttempts:    5,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// Delayer is implemented by errors that carry a server-requested wait, such
// as a 429 response with Retry-After.
type Delayer interface {
	RetryDelay() time.Duration
}

// WithBackoff calls fn until it succeeds, returns a non-retryable error, or
// MaxAttempts calls have been made. A non-retryable error is returned as is;
// exhaustion wraps the last error.
func WithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}
	op := cfg.Operation
	if op == "" {
		op = "unnamed"
	}
	logger := logging.WithRequestID(ctx, slog.Default()).With(slog.String("operation", op))

	var lastErr error
	delay := cfg.InitialDelay
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			if attempt > 1 {
				logger.Info("operation succeeded after retry", slog.Int("attempt", attempt))
				attemptsTotal.WithLabelValues(op, "recovered").Inc()
			}
			return nil
		}

		if !retryable(lastErr) {
			attemptsTotal.WithLabelValues(op, "permanent").Inc()
			if attempt > 1 {
				logger.Warn("non-retryable error, aborting",
					slog.Int("attempt", attempt),
					slog.Any("error", lastErr))
			}
			return lastErr
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		wait := delay
		var d Delayer
		if errors.As(lastErr, &d) && d.RetryDelay() > wait {
			wait = d.RetryDelay()
		}
		if cfg.MaxDelay > 0 && wait > cfg.MaxDelay {
			wait = cfg.MaxDelay
		}

		logger.Warn("operation failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", cfg.MaxAttempts),
			slog.Duration("delay", wait),
			slog.Any("error", lastErr))
		attemptsTotal.WithLabelValues(op, "retried").Inc()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
		delay = addJitter(delay, cfg.JitterFraction)
	}

	attemptsTotal.WithLabelValues(op, "exhausted").Inc()
	return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
}

// IsRetryable reports whether err looks transient: network timeouts, refused
// or reset connections, and Postgres connection failures. Context errors never
// are.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 is connection exception; 57P03 is cannot_connect_now,
		// sent while the server is starting up or shutting down.
		return strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "57P03"
	}

	var connectErr *pgconn.ConnectError
	return errors.As(err, &connectErr)
}

func addJitter(duration time.Duration, jitterFraction float64) time.Duration {
	if jitterFraction <= 0 {
		return duration
	}
	if jitterFraction > 1.0 {
		jitterFraction = 1.0
	}
	// #nosec G404 -- backoff jitter does not need cryptographic randomness.
	jitter := time.Duration(rand.Float64() * float64(duration) * jitterFraction)
	return duration + jitter
}
