package notify

import "errors"

// Sentinel errors for notify use case operations.
var (
	// ErrUserLookup wraps a failed read of the user collection or of a single
	// profile. The event should be retried by whoever delivered it.
	ErrUserLookup = errors.New("user lookup failed")
)
