package api

import (
	"encoding/json"
	"net/http"

	"github.com/tamsinwray/meshconsole/internal/identity"
)

// Dev login constants.
const (
	// devUsername is the hardcoded dev user. Production deployments sit
	// behind an external identity provider sharing the JWT secret.
	devUsername = "admin"
	devPassword = "admin"

	// roleDeviceAdmin allows claiming devices that have no seeded claim row.
	roleDeviceAdmin = "device-admin"

	// defaultTokenTTL is the fallback access token lifetime in minutes.
	defaultTokenTTL = 15
)

// loginRequest is the request body for POST /api/auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the response body for POST /api/auth/login.
type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// handleLogin authenticates a user and returns a JWT token.
// DEV ONLY: accepts admin/admin with the device-admin role.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.Username != devUsername || req.Password != devPassword {
		writeUnauthorized(w, "invalid credentials")
		return
	}

	ttl := s.secCfg.JWT.AccessTokenTTL
	if ttl == 0 {
		ttl = defaultTokenTTL
	}

	signed, err := identity.IssueToken(req.Username, []string{roleDeviceAdmin}, s.secCfg.JWT.Secret, ttl)
	if err != nil {
		s.logger.Error("failed to issue token", "error", err)
		writeInternalError(w, "failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   ttl * 60, // seconds
	})
}
