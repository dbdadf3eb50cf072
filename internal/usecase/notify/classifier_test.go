package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"carlet-notify/internal/domain/entity"
)

func TestClassify(t *testing.T) {
	origin := &entity.Location{Lat: 0, Lng: 0}

	tests := []struct {
		name   string
		report *entity.Report
		user   *entity.UserProfile
		want   MatchResult
	}{
		{
			name:   "plate match without coordinates is urgent",
			report: &entity.Report{LicensePlate: "XYZ1"},
			user:   &entity.UserProfile{DeviceToken: "t", CarPlate: "xyz 1"},
			want:   Match(true),
		},
		{
			name:   "within two kilometers is nearby",
			report: &entity.Report{Location: origin},
			user:   &entity.UserProfile{DeviceToken: "t", LastLat: ptr(0), LastLng: ptr(0.015)},
			want:   Match(false),
		},
		{
			name:   "beyond two kilometers does not match",
			report: &entity.Report{Location: origin},
			user:   &entity.UserProfile{DeviceToken: "t", LastLat: ptr(0), LastLng: ptr(0.02)},
			want:   NoMatch,
		},
		{
			name:   "plate and proximity together stay urgent",
			report: &entity.Report{LicensePlate: "ab 123", Location: origin},
			user:   &entity.UserProfile{DeviceToken: "t", CarPlate: "AB123", LastLat: ptr(0), LastLng: ptr(0)},
			want:   Match(true),
		},
		{
			name:   "user without token never matches",
			report: &entity.Report{LicensePlate: "XYZ1", Location: origin},
			user:   &entity.UserProfile{CarPlate: "XYZ1", LastLat: ptr(0), LastLng: ptr(0)},
			want:   NoMatch,
		},
		{
			name:   "empty plates on both sides do not match",
			report: &entity.Report{},
			user:   &entity.UserProfile{DeviceToken: "t"},
			want:   NoMatch,
		},
		{
			name:   "different plate and no coordinates",
			report: &entity.Report{LicensePlate: "XYZ1"},
			user:   &entity.UserProfile{DeviceToken: "t", CarPlate: "XYZ2"},
			want:   NoMatch,
		},
		{
			name:   "user with half a location is skipped for proximity",
			report: &entity.Report{Location: origin},
			user:   &entity.UserProfile{DeviceToken: "t", LastLat: ptr(0)},
			want:   NoMatch,
		},
		{
			name:   "report without location is skipped for proximity",
			report: &entity.Report{},
			user:   &entity.UserProfile{DeviceToken: "t", LastLat: ptr(0), LastLng: ptr(0)},
			want:   NoMatch,
		},
		{
			name:   "nil report",
			report: nil,
			user:   &entity.UserProfile{DeviceToken: "t"},
			want:   NoMatch,
		},
		{
			name:   "nil user",
			report: &entity.Report{LicensePlate: "XYZ1"},
			user:   nil,
			want:   NoMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.report, tt.user))
		})
	}
}

func TestMatchResult_Constructors(t *testing.T) {
	assert.False(t, NoMatch.Matched)
	assert.Equal(t, MatchResult{Matched: true, Priority: true}, Match(true))
	assert.Equal(t, MatchResult{Matched: true}, Match(false))
}
