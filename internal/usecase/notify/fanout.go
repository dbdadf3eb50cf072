package notify

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"carlet-notify/internal/domain/entity"
	"carlet-notify/internal/observability/logging"
	"carlet-notify/internal/observability/tracing"
	"carlet-notify/internal/repository"
)

// FanOutResult summarizes one handled report-created event.
type FanOutResult struct {
	UsersScanned int
	Urgent       int
	Nearby       int
	Dispatch     DispatchStats
}

// Matched is the number of users a notification was built for.
func (r *FanOutResult) Matched() int {
	return r.Urgent + r.Nearby
}

// FanOut notifies every user a new report is relevant to.
type FanOut struct {
	users      repository.UserRepository
	dispatcher *Dispatcher
	copy       Copy
	logger     *slog.Logger
}

// NewFanOut creates a FanOut reading users from users and delivering through
// dispatcher.
func NewFanOut(users repository.UserRepository, dispatcher *Dispatcher, texts Copy, logger *slog.Logger) *FanOut {
	if logger == nil {
		logger = slog.Default()
	}
	return &FanOut{
		users:      users,
		dispatcher: dispatcher,
		copy:       texts.withDefaults(DefaultCopy()),
		logger:     logger,
	}
}

// HandleReportCreated reads all users once, builds a notification for every
// match and dispatches them. A nil report is a no-op. Only a failed user read
// is returned as an error; delivery failures are logged by the dispatcher.
func (f *FanOut) HandleReportCreated(ctx context.Context, reportID string, report *entity.Report) (res *FanOutResult, err error) {
	logger := logging.WithRequestID(ctx, f.logger).With(slog.String("report_id", reportID))
	if report == nil {
		logger.Info("No report data in event, skipping")
		RecordFanOut("no_payload")
		return nil, nil
	}

	ctx, span := tracing.StartSpan(ctx, "notify.fanout", attribute.String("report.id", reportID))
	defer func() { tracing.EndSpan(span, err) }()

	users, err := f.users.List(ctx)
	if err != nil {
		RecordFanOut("error")
		return nil, fmt.Errorf("HandleReportCreated: %w: %w", ErrUserLookup, err)
	}

	intents := f.copy.BuildIntents(reportID, report, users)
	res = &FanOutResult{UsersScanned: len(users)}
	for _, intent := range intents {
		if intent.Priority {
			res.Urgent++
		} else {
			res.Nearby++
		}
	}
	RecordMatches(res.Urgent, res.Nearby)
	span.SetAttributes(attribute.Int("notify.matched", res.Matched()))

	logger.Info(fmt.Sprintf("Sending %d notifications for report %s", len(intents), reportID),
		slog.Int("users_scanned", res.UsersScanned),
		slog.Int("urgent", res.Urgent),
		slog.Int("nearby", res.Nearby))

	if len(intents) == 0 {
		RecordFanOut("no_match")
		return res, nil
	}

	res.Dispatch = f.dispatcher.Dispatch(ctx, intents)
	RecordFanOut("notified")
	return res, nil
}

// BuildIntents builds the notifications for report using the default texts.
// It is pure: the same inputs always give the same intents in user order.
func BuildIntents(reportID string, report *entity.Report, users []*entity.UserProfile) []*entity.NotificationIntent {
	return DefaultCopy().BuildIntents(reportID, report, users)
}

// BuildIntents builds one intent per user that Classify matches, in user order.
func (c Copy) BuildIntents(reportID string, report *entity.Report, users []*entity.UserProfile) []*entity.NotificationIntent {
	if report == nil {
		return nil
	}

	plate := report.NormalizedPlate()
	var lat, lng string
	if report.Location != nil {
		lat = formatCoordinate(report.Location.Lat)
		lng = formatCoordinate(report.Location.Lng)
	}
	body := report.Message
	if body == "" {
		body = c.FallbackBody
	}

	var intents []*entity.NotificationIntent
	for _, user := range users {
		match := Classify(report, user)
		if !match.Matched {
			continue
		}

		title, priority := c.NearbyTitle, "0"
		if match.Priority {
			title, priority = c.UrgentTitle, "1"
		}

		intents = append(intents, &entity.NotificationIntent{
			Token:    user.DeviceToken,
			Priority: match.Priority,
			Title:    title,
			Body:     body,
			Data: map[string]string{
				entity.DataKeyReportID:     reportID,
				entity.DataKeyLat:          lat,
				entity.DataKeyLng:          lng,
				entity.DataKeyLicensePlate: plate,
				entity.DataKeyPhotoURL:     report.PhotoURL,
				entity.DataKeyTimestamp:    report.Timestamp,
				entity.DataKeyPriority:     priority,
			},
		})
	}
	return intents
}

// formatCoordinate renders f the way the mobile clients print numbers:
// shortest round-trip digits, plain notation, exponent form only below 1e-6.
func formatCoordinate(f float64) string {
	if f == 0 {
		return "0"
	}
	if math.Abs(f) < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		s = strings.Replace(s, "e-0", "e-", 1)
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
