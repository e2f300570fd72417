package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tamsinwray/meshconsole/internal/claim"
)

// handleGetClaim returns the caller's current device claim.
func (s *Server) handleGetClaim(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r.Context())

	dc, err := s.claims.GetClaimFor(r.Context(), ident.Principal)
	if errors.Is(err, claim.ErrNotClaimed) {
		writeNotFound(w, "no claimed device")
		return
	}
	if err != nil {
		s.logger.Error("failed to look up claim", "user", ident.Principal, "error", err)
		writeInternalError(w, "failed to look up claim")
		return
	}

	writeJSON(w, http.StatusOK, dc)
}

// handleClaimDevice binds the device named by the claimId query parameter
// to the caller. Callers with the device-admin role may claim devices
// that have no seeded claim row.
func (s *Server) handleClaimDevice(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r.Context())

	claimID := r.URL.Query().Get("claimId")
	if claimID == "" {
		writeBadRequest(w, "claimId query parameter is required")
		return
	}

	canCreate := ident.HasRole(roleDeviceAdmin)
	dc, err := s.claims.ClaimDevice(r.Context(), claimID, ident.Principal, canCreate)
	if errors.Is(err, claim.ErrAlreadyClaimed) {
		writeConflict(w, "device is not available")
		return
	}
	if err != nil {
		s.logger.Error("failed to claim device", "claim", claimID, "user", ident.Principal, "error", err)
		writeInternalError(w, "failed to claim device")
		return
	}

	s.logger.Info("Device claimed", "device", dc.ID, "user", ident.Principal)
	writeJSON(w, http.StatusOK, dc)
}

// handleClaimSimulator creates and claims a fresh simulated device.
func (s *Server) handleClaimSimulator(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r.Context())

	dc, err := s.claims.ClaimSimulator(r.Context(), ident.Principal)
	if errors.Is(err, claim.ErrAlreadyClaimed) {
		writeConflict(w, "a device is already claimed")
		return
	}
	if err != nil {
		s.logger.Error("failed to claim simulator", "user", ident.Principal, "error", err)
		writeInternalError(w, "failed to claim simulator")
		return
	}

	s.logger.Info("Simulator claimed", "device", dc.ID, "user", ident.Principal)
	writeJSON(w, http.StatusOK, dc)
}

// handleReleaseClaim releases the caller's device claim.
//
// The device's state is reset and broadcast before the claim goes away,
// so attached sessions see it blank out. Simulator claims are deleted
// outright; physical device claims stay seeded for the next user.
// Responds with whether a claim was released.
func (s *Server) handleReleaseClaim(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r.Context())

	dc, err := s.claims.GetClaimFor(r.Context(), ident.Principal)
	if errors.Is(err, claim.ErrNotClaimed) {
		writeJSON(w, http.StatusOK, false)
		return
	}
	if err != nil {
		s.logger.Error("failed to look up claim", "user", ident.Principal, "error", err)
		writeInternalError(w, "failed to release claim")
		return
	}

	s.dispatcher.ReleaseDevice(dc.ID)

	var released bool
	if strings.HasPrefix(dc.ID, claim.SimulatorPrefix) {
		released, err = s.claims.DeleteClaim(r.Context(), dc.ID)
	} else {
		released, err = s.claims.ReleaseClaim(r.Context(), ident.Principal)
	}
	if err != nil {
		s.logger.Error("failed to release claim", "device", dc.ID, "user", ident.Principal, "error", err)
		writeInternalError(w, "failed to release claim")
		return
	}

	s.logger.Info("Device released", "device", dc.ID, "user", ident.Principal, "released", released)
	writeJSON(w, http.StatusOK, released)
}
