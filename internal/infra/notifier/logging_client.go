package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"carlet-notify/internal/domain/entity"
	"carlet-notify/internal/observability/logging"
)

// LoggingClient is used when push delivery is disabled. It logs every message
// it is given and reports it as delivered, so the rest of the pipeline runs
// unchanged.
type LoggingClient struct {
	logger *slog.Logger
}

// NewLoggingClient creates a LoggingClient writing to logger (slog.Default when nil).
func NewLoggingClient(logger *slog.Logger) *LoggingClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingClient{logger: logger}
}

// Send logs the message and returns a synthetic message ID.
func (l *LoggingClient) Send(ctx context.Context, intent *entity.NotificationIntent) (string, error) {
	if intent == nil {
		return "", fmt.Errorf("Send: %w", &ClientError{Code: "INVALID_ARGUMENT", Message: "nil intent"})
	}
	id := "logged/" + uuid.NewString()
	logging.WithRequestID(ctx, l.logger).Info("push delivery disabled, logging message",
		slog.String("message_id", id),
		slog.String("title", intent.Title),
		slog.Bool("priority", intent.Priority),
		slog.String("report_id", intent.Data[entity.DataKeyReportID]))
	pushLoggedTotal.Inc()
	return id, nil
}

// SendEach logs every message; all of them count as successes.
func (l *LoggingClient) SendEach(ctx context.Context, intents []*entity.NotificationIntent) (*entity.BatchResult, error) {
	if len(intents) > MaxMessagesPerBatch {
		return nil, fmt.Errorf("SendEach: %d messages: %w", len(intents), ErrBatchTooLarge)
	}
	result := &entity.BatchResult{Responses: make([]entity.SendResult, 0, len(intents))}
	for _, intent := range intents {
		id, err := l.Send(ctx, intent)
		result.Responses = append(result.Responses, entity.SendResult{MessageID: id, Error: err})
		if err != nil {
			result.FailureCount++
			continue
		}
		result.SuccessCount++
	}
	return result, nil
}
