package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"carlet-notify/internal/domain/entity"
	"carlet-notify/internal/observability/logging"
	"carlet-notify/internal/resilience/circuitbreaker"
	"carlet-notify/internal/resilience/retry"

	"github.com/sony/gobreaker"
)

// PushConfig contains configuration for the push gateway client.
type PushConfig struct {
	// Enabled indicates whether messages are really sent (false selects LoggingClient)
	Enabled bool

	// Endpoint is the gateway's message send URL
	Endpoint string

	// APIKey is sent as a bearer token when non-empty
	APIKey string

	// Timeout is the HTTP timeout of a single request
	Timeout time.Duration

	// RateLimit is the sustained request rate in requests per second
	RateLimit float64

	// Burst is the number of requests that may go out at once
	Burst int

	// Parallelism bounds the in-flight requests of one SendEach call
	Parallelism int

	// Retry and Breaker default to retry.PushConfig and circuitbreaker.PushAPIConfig
	Retry   retry.Config
	Breaker circuitbreaker.Config
}

// DefaultPushConfig returns the configuration used when no PUSH_* variables are set.
func DefaultPushConfig() PushConfig {
	return PushConfig{
		Enabled:     false,
		Timeout:     10 * time.Second,
		RateLimit:   50,
		Burst:       100,
		Parallelism: 16,
		Retry:       retry.PushConfig(),
		Breaker:     circuitbreaker.PushAPIConfig(),
	}
}

// PushClient sends messages to an FCM-style HTTP push gateway.
// It is safe for concurrent use.
type PushClient struct {
	config     PushConfig
	httpClient *http.Client
	limiter    *gatewayLimiter
	breaker    *circuitbreaker.CircuitBreaker
}

// NewPushClient creates a PushClient. Zero-valued tuning fields fall back to
// DefaultPushConfig.
func NewPushClient(config PushConfig) *PushClient {
	defaults := DefaultPushConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.RateLimit <= 0 {
		config.RateLimit = defaults.RateLimit
	}
	if config.Burst <= 0 {
		config.Burst = defaults.Burst
	}
	if config.Parallelism <= 0 {
		config.Parallelism = defaults.Parallelism
	}
	if config.Retry.MaxAttempts <= 0 {
		config.Retry = defaults.Retry
	}
	if config.Breaker.Name == "" {
		config.Breaker = defaults.Breaker
	}
	config.Retry.Retryable = isRetryableError
	config.Breaker.IsFailure = isGatewayFailure

	return &PushClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    newGatewayLimiter(config.RateLimit, config.Burst),
		breaker:    circuitbreaker.New(config.Breaker, nil),
	}
}

// pushRequest is the JSON body of one send request.
type pushRequest struct {
	Message pushMessage `json:"message"`
}

type pushMessage struct {
	Token        string            `json:"token"`
	Notification pushNotification  `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
	Android      androidConfig     `json:"android"`
	APNs         apnsConfig        `json:"apns"`
}

type pushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type androidConfig struct {
	Priority string `json:"priority"`
}

type apnsConfig struct {
	Headers map[string]string `json:"headers"`
}

// pushResponse is the body of a successful send.
type pushResponse struct {
	Name string `json:"name"`
}

// pushErrorResponse is the body of a failed send.
type pushErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// buildRequest maps an intent onto the gateway's message format, deriving the
// Android and APNs priority hints from the intent's Priority flag.
func buildRequest(intent *entity.NotificationIntent) pushRequest {
	return pushRequest{
		Message: pushMessage{
			Token: intent.Token,
			Notification: pushNotification{
				Title: intent.Title,
				Body:  intent.Body,
			},
			Data:    intent.Data,
			Android: androidConfig{Priority: intent.AndroidPriority()},
			APNs: apnsConfig{
				Headers: map[string]string{"apns-priority": intent.APNsPriority()},
			},
		},
	}
}

// maxResponseBody bounds how much of a gateway response is read.
const maxResponseBody = 64 << 10

// post sends one message and classifies the response.
//
// Error types:
//   - 429: *RateLimitError (retryable)
//   - 4xx (non-429): *ClientError (non-retryable, e.g. unregistered token)
//   - 5xx: *ServerError (retryable)
//   - Network error: wrapped transport error (retryable)
func (c *PushClient) post(ctx context.Context, intent *entity.NotificationIntent) (string, error) {
	jsonData, err := json.Marshal(buildRequest(intent))
	if err != nil {
		return "", &ClientError{Message: fmt.Sprintf("marshal push message: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", &ClientError{Message: fmt.Sprintf("create http request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var ok pushResponse
		_ = json.Unmarshal(body, &ok)
		return ok.Name, nil
	}

	var errResp pushErrorResponse
	_ = json.Unmarshal(body, &errResp)
	message := errResp.Error.Message
	if message == "" {
		message = string(body)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := extractRetryAfter(resp)
		// Same cap as the retry delay, so one 429 cannot stall a whole fan-out.
		c.limiter.pause(min(retryAfter, c.config.Retry.MaxDelay))
		return "", &RateLimitError{
			Message:    "push gateway rate limit exceeded",
			RetryAfter: retryAfter,
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", &ClientError{
			StatusCode: resp.StatusCode,
			Code:       errResp.Error.Status,
			Message:    fmt.Sprintf("push gateway client error: %s", message),
		}
	case resp.StatusCode >= 500:
		return "", &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("push gateway server error: %s", message),
		}
	}
	return "", fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, message)
}

// extractRetryAfter reads the Retry-After header in seconds (default 5s).
func extractRetryAfter(resp *http.Response) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 5 * time.Second
}

// send delivers one message through the circuit breaker. Each attempt of the
// retried request first waits on the shared limiter.
func (c *PushClient) send(ctx context.Context, intent *entity.NotificationIntent) (string, error) {
	if intent == nil || intent.Token == "" {
		err := &ClientError{Code: "INVALID_ARGUMENT", Message: "missing device token"}
		pushRequestsTotal.WithLabelValues(errorKind(err)).Inc()
		return "", err
	}

	start := time.Now()
	messageID, err := circuitbreaker.Do(c.breaker, func() (string, error) {
		var messageID string
		err := retry.WithBackoff(ctx, c.config.Retry, func() error {
			if err := c.limiter.wait(ctx); err != nil {
				return fmt.Errorf("rate limiter: %w", err)
			}
			var postErr error
			messageID, postErr = c.post(ctx, intent)
			return postErr
		})
		return messageID, err
	})
	pushRequestDuration.Observe(time.Since(start).Seconds())
	pushRequestsTotal.WithLabelValues(errorKind(err)).Inc()
	if err != nil {
		return "", err
	}
	return messageID, nil
}

// Send delivers one message and returns the gateway's message ID.
func (c *PushClient) Send(ctx context.Context, intent *entity.NotificationIntent) (string, error) {
	messageID, err := c.send(ctx, intent)
	if err != nil {
		logging.WithRequestID(ctx, slog.Default()).Warn("push send failed",
			slog.String("kind", errorKind(err)),
			slog.Any("error", err))
		return "", fmt.Errorf("Send: %w", err)
	}
	return messageID, nil
}

// SendEach delivers up to MaxMessagesPerBatch messages with at most
// Parallelism requests in flight. Per-message failures are reported in the
// result; the returned error is only set when the batch is rejected or the
// context ends.
func (c *PushClient) SendEach(ctx context.Context, intents []*entity.NotificationIntent) (*entity.BatchResult, error) {
	if len(intents) > MaxMessagesPerBatch {
		return nil, fmt.Errorf("SendEach: %d messages: %w", len(intents), ErrBatchTooLarge)
	}

	result := &entity.BatchResult{Responses: make([]entity.SendResult, len(intents))}

	var g errgroup.Group
	g.SetLimit(c.config.Parallelism)
	for i, intent := range intents {
		g.Go(func() error {
			messageID, err := c.send(ctx, intent)
			result.Responses[i] = entity.SendResult{MessageID: messageID, Error: err}
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range result.Responses {
		if r.Success() {
			result.SuccessCount++
		} else {
			result.FailureCount++
		}
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("SendEach: %w", err)
	}
	return result, nil
}

// BreakerState returns the circuit breaker state ("closed", "half-open", "open").
func (c *PushClient) BreakerState() string {
	return c.breaker.State().String()
}

// BreakerCounts returns the circuit breaker's counters for the current window.
func (c *PushClient) BreakerCounts() gobreaker.Counts {
	return c.breaker.Counts()
}
