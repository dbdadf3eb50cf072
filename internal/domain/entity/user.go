package entity

// UserProfile is the notification-relevant part of a user: where they last were,
// which plate they watch, and the device token pushes are addressed to.
//
// LastLat and LastLng are either both set or both absent.
type UserProfile struct {
	ID          string   `json:"id"`
	DeviceToken string   `json:"deviceToken,omitempty"`
	CarPlate    string   `json:"carPlate,omitempty"`
	LastLat     *float64 `json:"lastLat,omitempty"`
	LastLng     *float64 `json:"lastLng,omitempty"`
}

// Notifiable reports whether the user can receive pushes at all.
func (u *UserProfile) Notifiable() bool {
	return u != nil && u.DeviceToken != ""
}

// LastLocation returns the user's last known location, or nil unless both
// coordinates are present.
func (u *UserProfile) LastLocation() *Location {
	if u == nil || u.LastLat == nil || u.LastLng == nil {
		return nil
	}
	return &Location{Lat: *u.LastLat, Lng: *u.LastLng}
}

// Validate checks that the coordinates are paired and in range.
func (u *UserProfile) Validate() error {
	if (u.LastLat == nil) != (u.LastLng == nil) {
		return &ValidationError{Field: "lastLat", Message: "lastLat and lastLng must be set together"}
	}
	if loc := u.LastLocation(); loc != nil {
		return loc.Validate()
	}
	return nil
}
