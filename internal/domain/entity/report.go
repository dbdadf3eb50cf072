package entity

import "time"

// ReportStatus is the lifecycle state of a report.
type ReportStatus string

const (
	ReportStatusOpen     ReportStatus = "open"
	ReportStatusResolved ReportStatus = "resolved"
)

// Report is a car issue submitted by a user: where the car is, optionally which
// plate it carries, and what the reporter wants the owner to know.
//
// ExpireAt is only set once the report is resolved; the retention sweeper
// deletes resolved reports whose ExpireAt has passed.
type Report struct {
	ID           string       `json:"id"`
	ReporterID   string       `json:"reporterId"`
	LicensePlate string       `json:"licensePlate,omitempty"`
	Location     *Location    `json:"location,omitempty"`
	Message      string       `json:"message,omitempty"`
	PhotoURL     string       `json:"photoUrl,omitempty"`
	Status       ReportStatus `json:"status"`
	Timestamp    string       `json:"timestamp"`
	ExpireAt     *time.Time   `json:"expireAt,omitempty"`
	Anonymous    bool         `json:"anonymous"`
}

// IsResolved reports whether the report has been marked resolved.
// A nil report is never resolved.
func (r *Report) IsResolved() bool {
	return r != nil && r.Status == ReportStatusResolved
}

// NormalizedPlate returns the report's plate in canonical form ("" when absent).
func (r *Report) NormalizedPlate() string {
	if r == nil {
		return ""
	}
	return NormalizePlate(r.LicensePlate)
}

// Validate checks the report invariants:
//   - status is open or resolved
//   - ExpireAt is present only when the report is resolved
//   - the location, when present, holds valid coordinates
func (r *Report) Validate() error {
	switch r.Status {
	case ReportStatusOpen, ReportStatusResolved:
	default:
		return &ValidationError{Field: "status", Message: "status must be open or resolved"}
	}

	if r.ExpireAt != nil && r.Status != ReportStatusResolved {
		return &ValidationError{Field: "expireAt", Message: "expireAt is only allowed on resolved reports"}
	}

	if r.Location != nil {
		if err := r.Location.Validate(); err != nil {
			return err
		}
	}

	return nil
}
