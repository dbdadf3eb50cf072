package notifier

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// gatewayLimiter paces requests to the push gateway. Every attempt a
// PushClient makes, retries and the parallel sends of one SendEach included,
// takes a token from one shared bucket. When the gateway answers 429 the
// whole client pauses until the requested Retry-After has passed.
type gatewayLimiter struct {
	bucket *rate.Limiter

	mu          sync.Mutex
	pausedUntil time.Time
}

// newGatewayLimiter allows requestsPerSecond with bursts of burst (at least 1).
func newGatewayLimiter(requestsPerSecond float64, burst int) *gatewayLimiter {
	if burst < 1 {
		burst = 1
	}
	return &gatewayLimiter{bucket: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// pause holds back every request for d. Overlapping pauses keep the later end.
func (l *gatewayLimiter) pause(d time.Duration) {
	if d <= 0 {
		return
	}
	until := time.Now().Add(d)
	l.mu.Lock()
	if until.After(l.pausedUntil) {
		l.pausedUntil = until
	}
	l.mu.Unlock()
}

func (l *gatewayLimiter) resumeAt() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pausedUntil
}

// wait blocks until a request may be sent or ctx ends.
func (l *gatewayLimiter) wait(ctx context.Context) error {
	start := time.Now()
	defer func() { pushRateLimitWaitSeconds.Observe(time.Since(start).Seconds()) }()

	if d := time.Until(l.resumeAt()); d > 0 {
		timer := time.NewTimer(d)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return l.bucket.Wait(ctx)
}
