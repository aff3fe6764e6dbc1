package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all stock item routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/stock-items", func(r chi.Router) {
		r.Get("/", h.HandleSearch)
		r.Get("/{stockCode}", h.HandleGet)
	})
}
