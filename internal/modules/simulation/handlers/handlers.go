// Package handlers provides HTTP handlers for what-if simulation.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/yieldwatch/internal/domain"
	"github.com/aristath/yieldwatch/internal/modules/simulation"
)

// Handler handles simulation HTTP requests
type Handler struct {
	simulator *simulation.Simulator
	log       zerolog.Logger
}

// NewHandler creates a new simulation handler
func NewHandler(simulator *simulation.Simulator, log zerolog.Logger) *Handler {
	return &Handler{
		simulator: simulator,
		log:       log.With().Str("handler", "simulation").Logger(),
	}
}

// SimulateRequest carries the reallocation plan to evaluate.
type SimulateRequest struct {
	Actions []domain.PlanAction `json:"actions"`
}

// HandleSimulate handles POST /api/portfolios/{id}/simulate
func (h *Handler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "id")

	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.simulator.Simulate(r.Context(), portfolioID, domain.ReallocationPlan{Actions: req.Actions})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPortfolioNotFound):
			http.Error(w, "Portfolio not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrEmptyPortfolio):
			http.Error(w, "Portfolio has no positions", http.StatusUnprocessableEntity)
		default:
			h.log.Error().Err(err).Str("portfolio_id", portfolioID).Msg("Simulation failed")
			http.Error(w, "Simulation failed", http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"simulation":   result,
			"yield_change": simulation.FormatYieldChange(result.Delta.WeightedYield),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"note":      "What-if projection - no reallocation executed",
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
