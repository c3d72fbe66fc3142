// Package handlers provides HTTP handlers for waveform compilation.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/qpulse/internal/events"
	"github.com/aristath/qpulse/internal/modules/conditioning"
	"github.com/aristath/qpulse/internal/modules/gates"
	"github.com/aristath/qpulse/internal/modules/pulses"
	"github.com/aristath/qpulse/internal/modules/readout"
	"github.com/aristath/qpulse/internal/modules/sequences"
	"github.com/aristath/qpulse/internal/modules/settings"
	"github.com/aristath/qpulse/internal/modules/waveforms"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

const contentTypeMsgpack = "application/msgpack"

// SettingsResolver merges request overrides with the stored configuration.
type SettingsResolver interface {
	Resolve(overrides map[string]interface{}) (settings.Snapshot, error)
}

// Handler handles waveform HTTP requests
type Handler struct {
	service      *waveforms.Service
	settings     SettingsResolver
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewHandler creates a new waveforms handler. eventManager may be nil, in which case
// invalidation only clears the waveform cache.
func NewHandler(
	service *waveforms.Service,
	settingsResolver SettingsResolver,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service:      service,
		settings:     settingsResolver,
		eventManager: eventManager,
		log:          log.With().Str("handler", "waveforms").Logger(),
	}
}

// CompileRequest carries settings overrides applied on top of the stored configuration
type CompileRequest struct {
	Settings map[string]interface{} `json:"settings" msgpack:"settings"`
}

// CompileResponse is the data of a compile response
type CompileResponse struct {
	CompileID    string                  `json:"compile_id" msgpack:"compile_id"`
	ConfigHash   string                  `json:"config_hash" msgpack:"config_hash"`
	Sequence     string                  `json:"sequence" msgpack:"sequence"`
	NQubit       int                     `json:"n_qubit" msgpack:"n_qubit"`
	SampleRate   float64                 `json:"sample_rate" msgpack:"sample_rate"`
	Samples      int                     `json:"samples" msgpack:"samples"`
	Duration     float64                 `json:"duration" msgpack:"duration"`
	Cached       bool                    `json:"cached" msgpack:"cached"`
	Steps        []sequences.StepSummary `json:"steps" msgpack:"steps"`
	ChannelOrder []string                `json:"channel_order" msgpack:"channel_order"`
	Channels     map[string][]float64    `json:"channels,omitempty" msgpack:"channels,omitempty"`
}

// HandleCompile handles POST /api/waveforms/compile
// The body may be JSON or msgpack; the response is msgpack when the client accepts it.
// ?summary=true omits the sample arrays.
func (h *Handler) HandleCompile(w http.ResponseWriter, r *http.Request) {
	var req CompileRequest
	if r.ContentLength != 0 {
		var err error
		if isMsgpack(r.Header.Get("Content-Type")) {
			err = msgpack.NewDecoder(r.Body).Decode(&req)
		} else {
			err = json.NewDecoder(r.Body).Decode(&req)
		}
		if err != nil {
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

	result, err := h.service.Compile(r.Context(), snap)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compile waveforms")
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	data := CompileResponse{
		CompileID:    result.CompileID,
		ConfigHash:   result.ConfigHash,
		Sequence:     result.Sequence,
		NQubit:       result.NQubit,
		SampleRate:   result.Waveforms.SampleRate,
		Samples:      result.Samples,
		Duration:     result.Duration,
		Cached:       result.Cached,
		Steps:        result.Steps,
		ChannelOrder: result.Waveforms.ChannelNames(),
	}
	if r.URL.Query().Get("summary") != "true" {
		data.Channels = result.Waveforms.Channels()
	}

	response := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp":   time.Now().Format(time.RFC3339),
			"compiled_at": result.CompiledAt.Format(time.RFC3339),
		},
	}

	if isMsgpack(r.Header.Get("Accept")) {
		h.writeMsgpack(w, http.StatusOK, response)
		return
	}
	h.writeJSON(w, http.StatusOK, response)
}

// HandleListSequences handles GET /api/waveforms/sequences
func (h *Handler) HandleListSequences(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"data": map[string]interface{}{
			"generators":       h.service.Sequences().Registry().List(),
			"contract_version": sequences.ContractVersion,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleInvalidate handles POST /api/waveforms/invalidate
// Signals a configuration change so every derived cache is rebuilt on next use.
func (h *Handler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	const reason = "invalidated through API"
	if h.eventManager != nil {
		h.eventManager.EmitTyped(events.ConfigurationChanged, "waveforms", &events.ConfigurationChangedData{Reason: reason})
	} else {
		h.service.Invalidate(reason)
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"invalidated": true,
			"cache":       h.service.Stats(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetStats handles GET /api/waveforms/stats
func (h *Handler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"data": h.service.Stats(),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// statusFor maps configuration and shape errors to 400, numerical failures to 422 and
// everything else to 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, conditioning.ErrSingularMatrix),
		errors.Is(err, conditioning.ErrIllConditioned):
		return http.StatusUnprocessableEntity
	case errors.Is(err, settings.ErrInvalidValue),
		errors.Is(err, sequences.ErrUnknownGenerator),
		errors.Is(err, sequences.ErrQubitMismatch),
		errors.Is(err, gates.ErrUnknownGate),
		errors.Is(err, gates.ErrInvalidAxis),
		errors.Is(err, pulses.ErrInvalidPulse),
		errors.Is(err, waveforms.ErrFrequencyOutOfBand),
		errors.Is(err, waveforms.ErrSequenceTooLong),
		errors.Is(err, conditioning.ErrShapeMismatch),
		errors.Is(err, readout.ErrInvalidParameter):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func isMsgpack(header string) bool {
	return strings.Contains(header, contentTypeMsgpack) || strings.Contains(header, "application/x-msgpack")
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeMsgpack writes a msgpack response
func (h *Handler) writeMsgpack(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", contentTypeMsgpack)
	w.WriteHeader(status)

	if err := msgpack.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode msgpack response")
	}
}
