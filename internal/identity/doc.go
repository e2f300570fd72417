// Package identity authenticates bearer tokens.
//
// The Provider interface decouples the dispatcher's session manager from
// the token format; JWTProvider is the HS256 implementation used in
// production. Identities carry an expiry that sessions re-check on
// liveness ticks, so a token revoked by expiry terminates its websocket
// within one tick.
package identity
