// Package claim manages the binding between users and devices.
//
// A claim is a user's exclusive, revocable hold on one device. Claim rows
// are seeded when devices are provisioned (the claim id is printed on the
// box); claiming sets claimed_by, releasing clears it. Device admins may
// claim ids that were never seeded, which auto-creates the row, and any
// user can claim a generated simulator device.
//
// The subscription resolver and the command endpoints both go through
// GetClaimFor to decide which device a user may see or control.
package claim
