package claim

import "errors"

// Sentinel errors for claim operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotClaimed indicates the user has no claimed device.
	ErrNotClaimed = errors.New("claim: no claimed device")

	// ErrAlreadyClaimed indicates the device is unknown or claimed by
	// another user.
	ErrAlreadyClaimed = errors.New("claim: device already claimed")
)
