package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all elasticity routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/elasticity", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/segments/{segment}", h.HandleSegment)
		r.Get("/{stockCode}", h.HandleGet)
	})
}
