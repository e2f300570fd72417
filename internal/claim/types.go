package claim

import "time"

// Claim is a stored device claim row.
//
// The claim id doubles as the device id; it is what's printed on the
// device packaging. The provisioning id is the wire-level address used
// when talking to the device through the gateway. ClaimedBy is empty
// for a released claim.
type Claim struct {
	ID             string
	ProvisioningID string
	ClaimedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DeviceClaim is the caller-facing view of a user's claim.
type DeviceClaim struct {
	ID             string `json:"id"`
	ProvisioningID string `json:"provisioningId"`
}

// SimulatorPrefix marks claims created for browser-based simulated devices.
const SimulatorPrefix = "simulator-"
