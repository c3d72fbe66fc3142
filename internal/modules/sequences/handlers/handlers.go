// Package handlers provides HTTP handlers for sequence generation.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/qpulse/internal/modules/gates"
	"github.com/aristath/qpulse/internal/modules/sequences"
	"github.com/aristath/qpulse/internal/modules/settings"
	"github.com/rs/zerolog"
)

// SettingsResolver merges request overrides with the stored configuration.
type SettingsResolver interface {
	Resolve(overrides map[string]interface{}) (settings.Snapshot, error)
}

// Handler handles sequence HTTP requests
type Handler struct {
	service  *sequences.Service
	settings SettingsResolver
	log      zerolog.Logger
}

// NewHandler creates a new sequences handler
func NewHandler(
	service *sequences.Service,
	settingsResolver SettingsResolver,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service:  service,
		settings: settingsResolver,
		log:      log.With().Str("handler", "sequences").Logger(),
	}
}

// BuildRequest carries settings overrides applied on top of the stored configuration
type BuildRequest struct {
	Settings map[string]interface{} `json:"settings"`
}

// HandleListGenerators handles GET /api/sequences
func (h *Handler) HandleListGenerators(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"data": map[string]interface{}{
			"generators":       h.service.Registry().List(),
			"contract_version": sequences.ContractVersion,
			"gates":            gates.Names(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleBuild handles POST /api/sequences/build
// Builds the sequence selected by the "sequence" setting and returns its steps.
func (h *Handler) HandleBuild(w http.ResponseWriter, r *http.Request) {
	var req BuildRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.log.Error().Err(err).Msg("Failed to decode request body")
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	snap, err := h.settings.Resolve(req.Settings)
	if err != nil {
		h.log.Warn().Err(err).Msg("Invalid settings overrides")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	seq, err := h.service.Build(snap)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build sequence")
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	name, _ := snap.String("sequence")
	response := map[string]interface{}{
		"data": map[string]interface{}{
			"sequence":    name,
			"n_qubit":     seq.NQubit(),
			"first_delay": seq.FirstDelay(),
			"steps":       sequences.Summarize(seq),
		},
		"metadata": map[string]interface{}{
			"timestamp":   time.Now().Format(time.RFC3339),
			"config_hash": snap.Hash(),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// statusFor maps configuration errors to 400 and everything else to 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, settings.ErrInvalidValue),
		errors.Is(err, sequences.ErrUnknownGenerator),
		errors.Is(err, sequences.ErrQubitMismatch),
		errors.Is(err, gates.ErrUnknownGate),
		errors.Is(err, gates.ErrInvalidAxis):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
