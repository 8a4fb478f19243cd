// Package handlers provides HTTP handlers for portfolio management.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/yieldwatch/internal/domain"
	"github.com/aristath/yieldwatch/internal/modules/portfolio"
	"github.com/aristath/yieldwatch/internal/modules/simulation"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	repo *portfolio.Repository
	log  zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(repo *portfolio.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "portfolio").Logger(),
	}
}

// PositionPayload is the wire shape of one position on save.
type PositionPayload struct {
	Protocol         string   `json:"protocol"`
	Chain            string   `json:"chain"`
	Symbol           string   `json:"symbol"`
	Value            float64  `json:"value"`
	InitialYield     float64  `json:"initial_yield"`
	CurrentYield     *float64 `json:"current_yield,omitempty"`
	InitialRiskScore *float64 `json:"initial_risk_score,omitempty"`
	EnteredAt        string   `json:"entered_at"`
}

// SaveRequest creates or replaces a portfolio.
type SaveRequest struct {
	RiskTolerance string            `json:"risk_tolerance"`
	Positions     []PositionPayload `json:"positions"`
}

// HandleGet handles GET /api/portfolios/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "id")

	p, err := h.repo.Get(r.Context(), portfolioID)
	if err != nil {
		if errors.Is(err, domain.ErrPortfolioNotFound) {
			http.Error(w, "Portfolio not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("portfolio_id", portfolioID).Msg("Failed to load portfolio")
		http.Error(w, "Failed to load portfolio", http.StatusInternalServerError)
		return
	}

	data := map[string]interface{}{
		"portfolio": p,
	}
	// Metrics are undefined for an empty portfolio; omit rather than fail.
	if metrics, err := simulation.ComputeMetrics(p); err == nil {
		data["metrics"] = metrics
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleSave handles PUT /api/portfolios/{id}
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "id")

	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p, err := buildPortfolio(portfolioID, req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.repo.Save(r.Context(), p); err != nil {
		h.log.Error().Err(err).Str("portfolio_id", portfolioID).Msg("Failed to save portfolio")
		http.Error(w, "Failed to save portfolio", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"portfolio_id": portfolioID,
			"positions":    len(p.Positions),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// buildPortfolio validates the request into a domain portfolio.
func buildPortfolio(id string, req SaveRequest) (*domain.Portfolio, error) {
	tolerance := domain.ToleranceMedium
	if req.RiskTolerance != "" {
		tolerance = domain.RiskTolerance(req.RiskTolerance)
		switch tolerance {
		case domain.ToleranceLow, domain.ToleranceMedium, domain.ToleranceHigh:
		default:
			return nil, errors.New("risk_tolerance must be one of low, medium, high")
		}
	}

	p := &domain.Portfolio{
		ID:            id,
		RiskTolerance: tolerance,
	}

	for _, pos := range req.Positions {
		if pos.Protocol == "" || pos.Chain == "" {
			return nil, errors.New("every position needs a protocol and a chain")
		}
		if pos.Value <= 0 {
			return nil, errors.New("every position needs a positive value")
		}
		if pos.InitialYield <= 0 {
			return nil, errors.New("every position needs a positive initial_yield")
		}
		enteredAt, err := time.Parse(time.RFC3339, pos.EnteredAt)
		if err != nil {
			return nil, errors.New("entered_at must be an RFC3339 timestamp")
		}
		p.Positions = append(p.Positions, domain.Position{
			Protocol:         pos.Protocol,
			Chain:            pos.Chain,
			Symbol:           pos.Symbol,
			Value:            pos.Value,
			InitialYield:     pos.InitialYield,
			CurrentYield:     pos.CurrentYield,
			InitialRiskScore: pos.InitialRiskScore,
			EnteredAt:        enteredAt.UTC(),
		})
	}

	return p, nil
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
