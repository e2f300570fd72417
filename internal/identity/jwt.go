package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CustomClaims extends JWT standard claims with meshconsole-specific fields.
type CustomClaims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
}

// JWTProvider validates HS256-signed bearer tokens.
// Validation is signature-only; no database hit per token.
type JWTProvider struct {
	secret string
}

// NewJWTProvider creates a provider with the given signing secret.
func NewJWTProvider(secret string) *JWTProvider {
	return &JWTProvider{secret: secret}
}

// Authenticate validates and parses a JWT, returning the identity it encodes.
// It checks the signature, expiry, and required fields.
func (p *JWTProvider) Authenticate(ctx context.Context, token string) (*Identity, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	parsed, err := jwt.ParseWithClaims(token, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(p.secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(*CustomClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return &Identity{
		Principal: claims.Subject,
		Roles:     claims.Roles,
		ExpiresAt: expiresAt,
	}, nil
}

// IssueToken creates a signed JWT for a user. Used by the dev login
// endpoint; production deployments sit behind an external issuer sharing
// the same secret.
func IssueToken(userID string, roles []string, secret string, ttlMinutes int) (string, error) {
	if ttlMinutes <= 0 {
		ttlMinutes = 15 //nolint:mnd // default 15-minute token TTL
	}

	now := time.Now()
	claims := CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlMinutes) * time.Minute)),
			ID:        uuid.NewString(),
		},
		Roles: roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}
