// Package handlers provides HTTP handlers for compiler settings management.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/aristath/qpulse/internal/events"
	"github.com/aristath/qpulse/internal/modules/settings"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for settings endpoints
type Handler struct {
	service      *settings.Service
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewHandler creates a new settings handler
func NewHandler(service *settings.Service, eventManager *events.Manager, log zerolog.Logger) *Handler {
	return &Handler{
		service:      service,
		eventManager: eventManager,
		log:          log.With().Str("handler", "settings").Logger(),
	}
}

// RegisterRoutes registers the settings routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/settings", func(r chi.Router) {
		r.Get("/", h.HandleGetAll)
		r.Get("/schema", h.HandleGetSchema)
		r.Put("/{key}", h.HandleUpdate)
		r.Delete("/{key}", h.HandleReset)
	})
}

// HandleGetAll handles GET /api/settings
// Returns defaults merged with stored overrides.
func (h *Handler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	values, err := h.service.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get all settings")
		http.Error(w, "Failed to get settings", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": values,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// SchemaEntry describes one setting.
type SchemaEntry struct {
	Key         string      `json:"key"`
	Type        string      `json:"type"`
	Default     interface{} `json:"default"`
	Description string      `json:"description,omitempty"`
}

// HandleGetSchema handles GET /api/settings/schema
func (h *Handler) HandleGetSchema(w http.ResponseWriter, r *http.Request) {
	entries := make([]SchemaEntry, 0, len(settings.SettingDefaults))
	for key, def := range settings.SettingDefaults {
		typ := "number"
		if settings.StringSettings[key] {
			typ = "string"
		}
		entries = append(entries, SchemaEntry{
			Key:         key,
			Type:        typ,
			Default:     def,
			Description: settings.SettingDescriptions[key],
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": entries,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleUpdate handles PUT /api/settings/{key}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		http.Error(w, "Key is required", http.StatusBadRequest)
		return
	}

	var update settings.SettingUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.Set(key, update.Value); err != nil {
		h.log.Error().
			Err(err).
			Str("key", key).
			Interface("value", update.Value).
			Msg("Failed to update setting")
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	h.emitChanged(&events.SettingsChangedData{Key: key, Value: update.Value})

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{key: update.Value},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleReset handles DELETE /api/settings/{key}
// Removes the stored override so the default applies again.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		http.Error(w, "Key is required", http.StatusBadRequest)
		return
	}

	if err := h.service.Reset(key); err != nil {
		h.log.Error().Err(err).Str("key", key).Msg("Failed to reset setting")
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	h.emitChanged(&events.SettingsChangedData{Key: key, Reset: true})

	w.WriteHeader(http.StatusNoContent)
}

// emitChanged announces the update and tells derived caches to drop their entries.
func (h *Handler) emitChanged(data *events.SettingsChangedData) {
	if h.eventManager == nil {
		return
	}
	h.eventManager.EmitTyped(events.SettingsChanged, "settings", data)
	h.eventManager.EmitTyped(events.ConfigurationChanged, "settings", &events.ConfigurationChangedData{
		Reason: "setting " + data.Key + " changed",
	})
}

func statusFor(err error) int {
	if errors.Is(err, settings.ErrInvalidValue) {
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
