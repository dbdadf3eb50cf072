package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carlet-notify/internal/domain/entity"
)

func nearbyUsers(n int) []*entity.UserProfile {
	users := make([]*entity.UserProfile, n)
	for i := range users {
		users[i] = &entity.UserProfile{
			ID:          fmt.Sprintf("u%d", i),
			DeviceToken: fmt.Sprintf("tok-%04d", i),
			LastLat:     ptr(35.6812),
			LastLng:     ptr(139.7671),
		}
	}
	return users
}

func tokyoReport() *entity.Report {
	return &entity.Report{
		ID:           "r1",
		ReporterID:   "reporter",
		LicensePlate: "ab 123",
		Location:     &entity.Location{Lat: 35.6812, Lng: 139.7671},
		Message:      "Your lights are on",
		PhotoURL:     "https://img.example/r1.jpg",
		Status:       entity.ReportStatusOpen,
		Timestamp:    "2026-10-19T08:00:00.000Z",
	}
}

func TestBuildIntents(t *testing.T) {
	report := tokyoReport()
	users := []*entity.UserProfile{
		{ID: "owner", DeviceToken: "tok-owner", CarPlate: "AB 123"},
		{ID: "far", DeviceToken: "tok-far", LastLat: ptr(34.0), LastLng: ptr(135.0)},
		{ID: "silent", CarPlate: "AB123"},
		{ID: "near", DeviceToken: "tok-near", LastLat: ptr(35.6813), LastLng: ptr(139.7672)},
	}

	got := BuildIntents("r1", report, users)

	want := []*entity.NotificationIntent{
		{
			Token:    "tok-owner",
			Priority: true,
			Title:    "Urgent: Your car may need attention",
			Body:     "Your lights are on",
			Data: map[string]string{
				"reportId":     "r1",
				"lat":          "35.6812",
				"lng":          "139.7671",
				"licensePlate": "AB123",
				"photoUrl":     "https://img.example/r1.jpg",
				"timestamp":    "2026-10-19T08:00:00.000Z",
				"priority":     "1",
			},
		},
		{
			Token:    "tok-near",
			Priority: false,
			Title:    "Nearby car alert",
			Body:     "Your lights are on",
			Data: map[string]string{
				"reportId":     "r1",
				"lat":          "35.6812",
				"lng":          "139.7671",
				"licensePlate": "AB123",
				"photoUrl":     "https://img.example/r1.jpg",
				"timestamp":    "2026-10-19T08:00:00.000Z",
				"priority":     "0",
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("BuildIntents mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildIntents_MissingOptionalFields(t *testing.T) {
	report := &entity.Report{LicensePlate: "XYZ1", Status: entity.ReportStatusOpen}
	users := []*entity.UserProfile{{ID: "u", DeviceToken: "tok", CarPlate: "xyz 1"}}

	got := BuildIntents("r2", report, users)

	require.Len(t, got, 1)
	assert.Equal(t, "A car issue was reported nearby.", got[0].Body)
	assert.Equal(t, "", got[0].Data["lat"])
	assert.Equal(t, "", got[0].Data["lng"])
	assert.Equal(t, "", got[0].Data["photoUrl"])
	assert.Equal(t, "", got[0].Data["timestamp"])
	assert.Equal(t, "XYZ1", got[0].Data["licensePlate"])
}

func TestBuildIntents_Idempotent(t *testing.T) {
	report := tokyoReport()
	users := append(nearbyUsers(3), &entity.UserProfile{ID: "owner", DeviceToken: "tok-owner", CarPlate: "AB123"})

	first := BuildIntents("r1", report, users)
	second := BuildIntents("r1", report, users)

	assert.Empty(t, cmp.Diff(first, second))
	assert.Len(t, first, 4)
}

func TestBuildIntents_NilReport(t *testing.T) {
	assert.Nil(t, BuildIntents("r1", nil, nearbyUsers(2)))
}

func TestFormatCoordinate(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{in: 35.1, want: "35.1"},
		{in: 139.6917, want: "139.6917"},
		{in: -33.8688, want: "-33.8688"},
		{in: 10, want: "10"},
		{in: 0, want: "0"},
		{in: 0.000001, want: "0.000001"},
		{in: 0.0000001, want: "1e-7"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatCoordinate(tt.in))
		})
	}
}

func TestFanOut_HandleReportCreated(t *testing.T) {
	t.Run("dispatches 1250 matches as 500, 500, 250", func(t *testing.T) {
		// Arrange
		users := &fakeUsers{users: nearbyUsers(1250)}
		messenger := &fakeMessenger{}
		fanOut := NewFanOut(users, NewDispatcher(messenger, nil), DefaultCopy(), nil)

		// Act
		res, err := fanOut.HandleReportCreated(context.Background(), "r1", tokyoReport())

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []int{500, 500, 250}, messenger.chunkSizes())
		assert.Equal(t, 1250, res.UsersScanned)
		assert.Equal(t, 1250, res.Nearby)
		assert.Equal(t, DispatchStats{Chunks: 3, Sent: 1250}, res.Dispatch)

		var order []string
		for _, chunk := range messenger.chunks {
			for _, intent := range chunk {
				order = append(order, intent.Token)
			}
		}
		assert.Equal(t, "tok-0000", order[0])
		assert.Equal(t, "tok-0500", order[500])
		assert.Equal(t, "tok-1249", order[1249])
	})

	t.Run("no matches makes no calls", func(t *testing.T) {
		users := &fakeUsers{users: []*entity.UserProfile{
			{ID: "far", DeviceToken: "tok", LastLat: ptr(-33.8), LastLng: ptr(151.2)},
		}}
		messenger := &fakeMessenger{}
		fanOut := NewFanOut(users, NewDispatcher(messenger, nil), DefaultCopy(), nil)

		res, err := fanOut.HandleReportCreated(context.Background(), "r1", tokyoReport())

		require.NoError(t, err)
		assert.Equal(t, 0, res.Matched())
		assert.Empty(t, messenger.chunks)
	})

	t.Run("nil report is a no-op", func(t *testing.T) {
		users := &fakeUsers{users: nearbyUsers(3)}
		messenger := &fakeMessenger{}
		fanOut := NewFanOut(users, NewDispatcher(messenger, nil), DefaultCopy(), nil)

		res, err := fanOut.HandleReportCreated(context.Background(), "r1", nil)

		assert.NoError(t, err)
		assert.Nil(t, res)
		assert.Equal(t, 0, users.listHits)
		assert.Empty(t, messenger.chunks)
	})

	t.Run("user read failure propagates", func(t *testing.T) {
		users := &fakeUsers{listErr: errors.New("connection refused")}
		messenger := &fakeMessenger{}
		fanOut := NewFanOut(users, NewDispatcher(messenger, nil), DefaultCopy(), nil)

		_, err := fanOut.HandleReportCreated(context.Background(), "r1", tokyoReport())

		assert.ErrorIs(t, err, ErrUserLookup)
		assert.ErrorContains(t, err, "connection refused")
		assert.Empty(t, messenger.chunks)
	})

	t.Run("same snapshot twice sends the same set", func(t *testing.T) {
		users := &fakeUsers{users: nearbyUsers(4)}
		messenger := &fakeMessenger{}
		fanOut := NewFanOut(users, NewDispatcher(messenger, nil), DefaultCopy(), nil)

		_, err := fanOut.HandleReportCreated(context.Background(), "r1", tokyoReport())
		require.NoError(t, err)
		_, err = fanOut.HandleReportCreated(context.Background(), "r1", tokyoReport())
		require.NoError(t, err)

		require.Len(t, messenger.chunks, 2)
		assert.Empty(t, cmp.Diff(messenger.chunks[0], messenger.chunks[1]))
	})

	t.Run("custom copy is used", func(t *testing.T) {
		users := &fakeUsers{users: []*entity.UserProfile{{ID: "o", DeviceToken: "tok", CarPlate: "AB123"}}}
		messenger := &fakeMessenger{}
		texts := Copy{UrgentTitle: "Check your car"}
		fanOut := NewFanOut(users, NewDispatcher(messenger, nil), texts, nil)

		_, err := fanOut.HandleReportCreated(context.Background(), "r1", tokyoReport())

		require.NoError(t, err)
		require.Len(t, messenger.chunks, 1)
		assert.Equal(t, "Check your car", messenger.chunks[0][0].Title)
	})
}
