package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all sequence routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sequences", func(r chi.Router) {
		r.Get("/", h.HandleListGenerators)
		r.Post("/build", h.HandleBuild)
	})
}
