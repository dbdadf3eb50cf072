// Package notifier delivers notification intents to the push gateway.
//
// PushClient speaks the gateway's JSON message API over HTTP. LoggingClient
// is used when push delivery is disabled and only logs what would be sent.
// Both satisfy Notifier, so the use cases never check whether delivery is on.
package notifier

import (
	"context"
	"errors"

	"carlet-notify/internal/domain/entity"
)

// MaxMessagesPerBatch is the most messages SendEach accepts in one call.
const MaxMessagesPerBatch = 500

// ErrBatchTooLarge is returned by SendEach for more than MaxMessagesPerBatch intents.
var ErrBatchTooLarge = errors.New("push batch exceeds maximum size")

// Notifier sends push messages to device tokens.
type Notifier interface {
	// Send delivers one message and returns the gateway's message ID.
	Send(ctx context.Context, intent *entity.NotificationIntent) (string, error)

	// SendEach delivers up to MaxMessagesPerBatch messages and reports the
	// outcome of every message in input order. A non-nil error means the
	// batch as a whole could not be attempted or was cut short.
	SendEach(ctx context.Context, intents []*entity.NotificationIntent) (*entity.BatchResult, error)
}

var (
	_ Notifier = (*PushClient)(nil)
	_ Notifier = (*LoggingClient)(nil)
)
