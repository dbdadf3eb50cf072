package listener

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"carlet-notify/internal/domain/entity"
)

// Event operations emitted by the report trigger.
const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
)

// ErrInvalidPayload is returned by DecodeEvent for payloads that cannot be
// routed to a handler.
var ErrInvalidPayload = errors.New("invalid event payload")

// ReportEvent is one change notification on the reports table.
// Old is nil for inserts and carries only Status for updates. Partial is set
// when the row was too large to publish and New holds only ID and Status.
type ReportEvent struct {
	Op      string
	ID      string
	Old     *entity.Report
	New     *entity.Report
	Partial bool
}

type eventEnvelope struct {
	Op      string     `json:"op"`
	ID      string     `json:"id"`
	Old     *reportRow `json:"old"`
	New     *reportRow `json:"new"`
	Partial bool       `json:"partial"`
}

// reportRow mirrors row_to_json(reports) or any subset of its columns.
type reportRow struct {
	ID           string     `json:"id"`
	ReporterID   string     `json:"reporter_id"`
	LicensePlate *string    `json:"license_plate"`
	Lat          *float64   `json:"lat"`
	Lng          *float64   `json:"lng"`
	Message      *string    `json:"message"`
	PhotoURL     *string    `json:"photo_url"`
	Status       string     `json:"status"`
	Timestamp    string     `json:"timestamp"`
	ExpireAt     *time.Time `json:"expire_at"`
	Anonymous    bool       `json:"anonymous"`
}

func (r *reportRow) toEntity() *entity.Report {
	if r == nil {
		return nil
	}
	report := &entity.Report{
		ID:           r.ID,
		ReporterID:   r.ReporterID,
		LicensePlate: deref(r.LicensePlate),
		Message:      deref(r.Message),
		PhotoURL:     deref(r.PhotoURL),
		Status:       entity.ReportStatus(r.Status),
		Timestamp:    r.Timestamp,
		ExpireAt:     r.ExpireAt,
		Anonymous:    r.Anonymous,
	}
	if r.Lat != nil && r.Lng != nil {
		report.Location = &entity.Location{Lat: *r.Lat, Lng: *r.Lng}
	}
	return report
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// DecodeEvent parses a notification payload. Missing row snapshots are kept
// as nil so the handlers can treat them as benign no-ops.
func DecodeEvent(payload string) (*ReportEvent, error) {
	var env eventEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, fmt.Errorf("DecodeEvent: %w: %w", ErrInvalidPayload, err)
	}

	op := strings.ToUpper(env.Op)
	switch op {
	case OpInsert, OpUpdate:
	default:
		return nil, fmt.Errorf("DecodeEvent: %w: unsupported op %q", ErrInvalidPayload, env.Op)
	}
	if env.ID == "" {
		return nil, fmt.Errorf("DecodeEvent: %w: missing id", ErrInvalidPayload)
	}

	return &ReportEvent{
		Op:      op,
		ID:      env.ID,
		Old:     env.Old.toEntity(),
		New:     env.New.toEntity(),
		Partial: env.Partial,
	}, nil
}
