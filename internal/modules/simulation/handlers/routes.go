package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers simulation routes on the /portfolios/{id} subrouter
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/simulate", h.HandleSimulate)
}
