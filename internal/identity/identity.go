package identity

import (
	"context"
	"errors"
	"time"
)

// ErrTokenInvalid indicates a token failed signature, expiry, or claim checks.
var ErrTokenInvalid = errors.New("identity: invalid token")

// Identity is an authenticated principal.
type Identity struct {
	// Principal is the user id the identity was issued for.
	Principal string

	// Roles held by the principal (e.g. "device-admin").
	Roles []string

	// ExpiresAt is when the identity stops being valid. Sessions holding
	// an expired identity are closed by the dispatcher's liveness ticks.
	ExpiresAt time.Time
}

// HasRole reports whether the identity carries the given role.
func (i *Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Expired reports whether the identity has expired at the given instant.
func (i *Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// Provider authenticates bearer tokens into identities.
type Provider interface {
	// Authenticate validates a raw bearer token. The returned identity
	// carries the principal, roles, and expiry extracted from the token.
	Authenticate(ctx context.Context, token string) (*Identity, error)
}
