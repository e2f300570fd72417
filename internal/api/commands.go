package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tamsinwray/meshconsole/internal/claim"
	"github.com/tamsinwray/meshconsole/internal/command"
)

// displayState is the request body for POST /api/commands/v1alpha1/display.
type displayState struct {
	Brightness int `json:"brightness"`
}

// speakerState is the request body for POST /api/commands/v1alpha1/speaker.
type speakerState struct {
	Enabled bool `json:"enabled"`
}

// handleDisplayCommand sets the display brightness on the caller's device.
func (s *Server) handleDisplayCommand(w http.ResponseWriter, r *http.Request) {
	var state displayState
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	s.sendCommand(w, r, func(payload *command.Payload) {
		payload.SetDisplay(int16(state.Brightness))
	})
}

// handleSpeakerCommand switches the speaker on the caller's device.
func (s *Server) handleSpeakerCommand(w http.ResponseWriter, r *http.Request) {
	var state speakerState
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	s.sendCommand(w, r, func(payload *command.Payload) {
		payload.SetSpeaker(state.Enabled)
	})
}

// sendCommand resolves the caller's claimed device, fills a command
// payload, and publishes it. Callers without a claimed device get a 400.
func (s *Server) sendCommand(w http.ResponseWriter, r *http.Request, fill func(*command.Payload)) {
	if s.commands == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "command channel not available")
		return
	}

	ident := identityFrom(r.Context())

	dc, err := s.claims.GetClaimFor(r.Context(), ident.Principal)
	if errors.Is(err, claim.ErrNotClaimed) {
		writeBadRequest(w, "no claimed device")
		return
	}
	if err != nil {
		s.logger.Error("failed to look up claim", "user", ident.Principal, "error", err)
		writeInternalError(w, "failed to look up claim")
		return
	}

	payload := command.NewPayload(command.ParseAddress(dc.ProvisioningID))
	fill(payload)

	if err := s.commands.Send(dc.ID, payload); err != nil {
		s.logger.Error("failed to send command", "device", dc.ID, "error", err)
		writeInternalError(w, "failed to send command")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
