package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Health check (no auth required)
	r.Get("/health", s.handleHealth)

	// Dev login (no auth required)
	r.Post("/api/auth/login", s.handleLogin)

	// WebSocket state stream. Connections authenticate in-band by
	// submitting a token over the socket, not via the Authorization header.
	r.Get(s.wsPath(), s.handleWebSocket)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Route("/api/deviceClaims/v1alpha1", func(r chi.Router) {
			r.Get("/", s.handleGetClaim)
			r.Put("/", s.handleClaimDevice)
			r.Put("/simulator", s.handleClaimSimulator)
			r.Delete("/", s.handleReleaseClaim)
		})

		r.Route("/api/commands/v1alpha1", func(r chi.Router) {
			r.Post("/display", s.handleDisplayCommand)
			r.Post("/speaker", s.handleSpeakerCommand)
		})
	})

	return r
}

// wsPath returns the configured WebSocket route, defaulting to /ws.
func (s *Server) wsPath() string {
	if s.wsCfg.Path != "" {
		return s.wsCfg.Path
	}
	return "/ws"
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
