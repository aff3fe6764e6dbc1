package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all RFM routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/rfm", func(r chi.Router) {
		r.Get("/", h.HandleSegments)
		r.Get("/summary", h.HandleSummary)
		r.Get("/segments/{segment}", h.HandleSegmentCustomers)
	})
}
