package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all waveform routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/waveforms", func(r chi.Router) {
		r.Post("/compile", h.HandleCompile)
		r.Get("/sequences", h.HandleListSequences)
		r.Post("/invalidate", h.HandleInvalidate)
		r.Get("/stats", h.HandleGetStats)
	})
}
