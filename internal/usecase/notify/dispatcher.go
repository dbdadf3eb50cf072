package notify

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"carlet-notify/internal/domain/entity"
	"carlet-notify/internal/observability/logging"
	"carlet-notify/internal/observability/tracing"
	"carlet-notify/internal/pkg/batch"
)

// MaxBatchSize is the largest number of messages handed to one SendEach call.
const MaxBatchSize = 500

// Messenger is the push-delivery collaborator.
type Messenger interface {
	// Send delivers a single message and returns its message ID.
	Send(ctx context.Context, intent *entity.NotificationIntent) (string, error)
	// SendEach delivers up to MaxBatchSize messages, reporting each outcome.
	SendEach(ctx context.Context, intents []*entity.NotificationIntent) (*entity.BatchResult, error)
}

// DispatchStats summarizes one Dispatch call.
type DispatchStats struct {
	Chunks int
	Sent   int
	Failed int
}

// Dispatcher delivers notification intents in bounded chunks.
type Dispatcher struct {
	messenger Messenger
	logger    *slog.Logger
}

// NewDispatcher creates a Dispatcher sending through messenger.
func NewDispatcher(messenger Messenger, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{messenger: messenger, logger: logger}
}

// Dispatch sends intents in chunks of at most MaxBatchSize, in order, one chunk
// at a time. A failing chunk is logged and counted; the remaining chunks are
// still sent. Empty input makes no calls.
func (d *Dispatcher) Dispatch(ctx context.Context, intents []*entity.NotificationIntent) DispatchStats {
	var stats DispatchStats
	if len(intents) == 0 {
		return stats
	}

	ctx, span := tracing.StartSpan(ctx, "notify.dispatch", attribute.Int("notify.intents", len(intents)))
	start := time.Now()
	defer func() {
		span.SetAttributes(
			attribute.Int("notify.chunks", stats.Chunks),
			attribute.Int("notify.sent", stats.Sent),
			attribute.Int("notify.failed", stats.Failed),
		)
		span.End()
		RecordDispatchDuration(time.Since(start))
	}()

	logger := logging.WithRequestID(ctx, d.logger)

	for i, chunk := range batch.Chunk(intents, MaxBatchSize) {
		stats.Chunks++

		result, err := d.messenger.SendEach(ctx, chunk)
		sent := 0
		if result != nil {
			sent = result.SuccessCount
		}
		failed := len(chunk) - sent
		stats.Sent += sent
		stats.Failed += failed
		RecordChunk(sent, failed, err != nil)

		switch {
		case err != nil:
			logger.Error("Failed to send notification chunk",
				slog.Int("chunk", i),
				slog.Int("size", len(chunk)),
				slog.Int("sent", sent),
				slog.Int("failed", failed),
				slog.Any("error", err))
		case failed > 0:
			logger.Warn("Some notifications in chunk failed",
				slog.Int("chunk", i),
				slog.Int("size", len(chunk)),
				slog.Int("failed", failed))
		default:
			logger.Debug("Notification chunk sent",
				slog.Int("chunk", i),
				slog.Int("size", len(chunk)))
		}
	}

	return stats
}
