package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers analysis routes on the /portfolios/{id} subrouter
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/analyze", h.HandleAnalyze)
	r.Get("/history", h.HandleHistory)
}
