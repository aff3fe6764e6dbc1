package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers quick simulation and saved scenario routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/simulation", func(r chi.Router) {
		r.Post("/simulate", h.HandleSimulate)
		r.Post("/portfolio", h.HandlePortfolio)
	})

	r.Route("/simulations", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/{id}", h.HandleGet)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
		r.Get("/{id}/metrics", h.HandleMetrics)
		r.Get("/{id}/curve", h.HandleCurve)
	})
}
