package notify

import (
	"carlet-notify/internal/domain/entity"
	"carlet-notify/internal/domain/geo"
)

// ProximityRadiusMeters is how close a user's last known location must be to
// a report for a nearby alert.
const ProximityRadiusMeters = 2000.0

// MatchResult is the outcome of classifying one user against one report.
// Priority is only meaningful when Matched is true.
type MatchResult struct {
	Matched  bool
	Priority bool
}

// NoMatch is the result for users who are not notified.
var NoMatch = MatchResult{}

// Match returns a positive result with the given priority.
func Match(priority bool) MatchResult {
	return MatchResult{Matched: true, Priority: priority}
}

// Classify decides whether user should hear about report and how urgently.
//
// A user matches when their watched plate equals the report's plate (urgent)
// or when both sides have coordinates no more than ProximityRadiusMeters apart
// (normal). Users without a device token never match.
func Classify(report *entity.Report, user *entity.UserProfile) MatchResult {
	if report == nil || !user.Notifiable() {
		return NoMatch
	}

	if entity.PlatesMatch(user.CarPlate, report.LicensePlate) {
		return Match(true)
	}

	if report.Location != nil {
		if last := user.LastLocation(); last != nil && geo.Within(*report.Location, *last, ProximityRadiusMeters) {
			return Match(false)
		}
	}

	return NoMatch
}
