package notify

import (
	"context"
	"fmt"
	"log/slog"

	"carlet-notify/internal/domain/entity"
	"carlet-notify/internal/observability/logging"
	"carlet-notify/internal/repository"
)

// ResolutionNotifier thanks the reporter once their report gets resolved.
type ResolutionNotifier struct {
	users     repository.UserRepository
	messenger Messenger
	copy      Copy
	logger    *slog.Logger
}

// NewResolutionNotifier creates a ResolutionNotifier.
func NewResolutionNotifier(users repository.UserRepository, messenger Messenger, texts Copy, logger *slog.Logger) *ResolutionNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResolutionNotifier{
		users:     users,
		messenger: messenger,
		copy:      texts.withDefaults(DefaultCopy()),
		logger:    logger,
	}
}

// IsResolutionTransition reports whether an update moved a report from any
// non-resolved status to resolved.
func IsResolutionTransition(before, after *entity.Report) bool {
	return before != nil && after != nil && !before.IsResolved() && after.IsResolved()
}

// HandleReportUpdated sends one message to the reporter when the update is a
// resolution transition. It returns whether a message was sent. Missing
// snapshots, other transitions, an unknown reporter and a reporter without a
// device token are all no-ops.
func (n *ResolutionNotifier) HandleReportUpdated(ctx context.Context, reportID string, before, after *entity.Report) (bool, error) {
	logger := logging.WithRequestID(ctx, n.logger).With(slog.String("report_id", reportID))

	if !IsResolutionTransition(before, after) {
		RecordResolution("skipped")
		return false, nil
	}
	if after.ReporterID == "" {
		logger.Info("Resolved report has no reporter, skipping")
		RecordResolution("skipped")
		return false, nil
	}

	reporter, err := n.users.Get(ctx, after.ReporterID)
	if err != nil {
		RecordResolution("error")
		return false, fmt.Errorf("HandleReportUpdated: %w: %w", ErrUserLookup, err)
	}
	if !reporter.Notifiable() {
		logger.Info("Reporter has no device token, skipping",
			slog.String("reporter_id", after.ReporterID))
		RecordResolution("skipped")
		return false, nil
	}

	intent := &entity.NotificationIntent{
		Token: reporter.DeviceToken,
		Title: n.copy.ResolvedTitle,
		Body:  n.copy.ResolvedBody,
		Data: map[string]string{
			entity.DataKeyReportID: reportID,
			entity.DataKeyStatus:   string(entity.ReportStatusResolved),
		},
	}

	messageID, err := n.messenger.Send(ctx, intent)
	if err != nil {
		RecordResolution("error")
		return false, fmt.Errorf("HandleReportUpdated: send: %w", err)
	}

	logger.Info("Resolution notification sent",
		slog.String("reporter_id", after.ReporterID),
		slog.String("message_id", messageID))
	RecordResolution("sent")
	return true, nil
}
