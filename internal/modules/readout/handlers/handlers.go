// Package handlers provides HTTP handlers for readout demodulation.
package handlers

import (
	"encoding/json"
	"errors"
	"math/cmplx"
	"net/http"
	"time"

	"github.com/aristath/qpulse/internal/modules/readout"
	"github.com/aristath/qpulse/internal/modules/settings"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// SettingsResolver merges request overrides with the stored configuration.
type SettingsResolver interface {
	Resolve(overrides map[string]interface{}) (settings.Snapshot, error)
}

// Handler handles readout HTTP requests
type Handler struct {
	service  *readout.Service
	settings SettingsResolver
	log      zerolog.Logger
}

// NewHandler creates a new readout handler
func NewHandler(service *readout.Service, settingsResolver SettingsResolver, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		settings: settingsResolver,
		log:      log.With().Str("handler", "readout").Logger(),
	}
}

// RegisterRoutes registers the readout routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/readout", func(r chi.Router) {
		r.Post("/demodulate", h.HandleDemodulate)
	})
}

// DemodulateRequest carries a captured trace, an optional reference trace and settings
// overrides.
type DemodulateRequest struct {
	Trace     readout.Trace          `json:"trace"`
	Reference *readout.Trace         `json:"reference,omitempty"`
	Settings  map[string]interface{} `json:"settings"`
}

// QubitResult is the demodulated signal of one qubit, one entry per segment.
type QubitResult struct {
	Qubit     int       `json:"qubit"`
	Real      []float64 `json:"real"`
	Imag      []float64 `json:"imag"`
	Amplitude []float64 `json:"amplitude"`
	Phase     []float64 `json:"phase"`
}

// HandleDemodulate handles POST /api/readout/demodulate
func (h *Handler) HandleDemodulate(w http.ResponseWriter, r *http.Request) {
	var req DemodulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	snap, err := h.settings.Resolve(req.Settings)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	values, err := h.service.Demodulate(req.Trace, req.Reference, snap)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to demodulate traces")
		status := http.StatusInternalServerError
		if errors.Is(err, readout.ErrShapeMismatch) ||
			errors.Is(err, readout.ErrInvalidParameter) ||
			errors.Is(err, settings.ErrInvalidValue) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	results := make([]QubitResult, len(values))
	for q, vs := range values {
		res := QubitResult{
			Qubit:     q + 1,
			Real:      make([]float64, len(vs)),
			Imag:      make([]float64, len(vs)),
			Amplitude: make([]float64, len(vs)),
			Phase:     make([]float64, len(vs)),
		}
		for i, v := range vs {
			res.Real[i] = real(v)
			res.Imag[i] = imag(v)
			res.Amplitude[i] = cmplx.Abs(v)
			res.Phase[i] = cmplx.Phase(v)
		}
		results[q] = res
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": results,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
