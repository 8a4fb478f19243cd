// Package handlers provides HTTP handlers for portfolio analysis operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/yieldwatch/internal/domain"
	"github.com/aristath/yieldwatch/internal/modules/analysis"
)

// Handler handles analysis HTTP requests
type Handler struct {
	service *analysis.Service
	store   domain.PortfolioStore
	baseCfg domain.EngineConfig
	log     zerolog.Logger
}

// NewHandler creates a new analysis handler
func NewHandler(
	service *analysis.Service,
	store domain.PortfolioStore,
	baseCfg domain.EngineConfig,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service: service,
		store:   store,
		baseCfg: baseCfg,
		log:     log.With().Str("handler", "analysis").Logger(),
	}
}

// AnalyzeRequest carries per-call overrides for one analysis.
type AnalyzeRequest struct {
	RiskTolerance           string   `json:"risk_tolerance,omitempty"`
	YieldChangeThresholdPct *float64 `json:"yield_change_threshold_pct,omitempty"`
	RiskChangeThreshold     *float64 `json:"risk_change_threshold,omitempty"`
	RebalanceIntervalDays   *int     `json:"rebalance_interval_days,omitempty"`
	MinRebalanceAmount      *float64 `json:"min_rebalance_amount,omitempty"`
}

// HandleAnalyze handles POST /api/portfolios/{id}/analyze
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "id")

	var req AnalyzeRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.log.Error().Err(err).Msg("Failed to decode request body")
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	opts, err := h.buildOptions(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.service.Analyze(r.Context(), portfolioID, opts)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPortfolioNotFound):
			http.Error(w, "Portfolio not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrEmptyPortfolio):
			http.Error(w, "Portfolio has no positions", http.StatusUnprocessableEntity)
		default:
			h.log.Error().Err(err).Str("portfolio_id", portfolioID).Msg("Analysis failed")
			http.Error(w, "Analysis failed", http.StatusInternalServerError)
		}
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"analysis": result,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	if result.Impact != nil {
		response["data"].(map[string]interface{})["impact_formatted"] = analysis.FormatImpact(*result.Impact)
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleHistory handles GET /api/portfolios/{id}/history
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "id")

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	records, err := h.store.History(r.Context(), portfolioID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("portfolio_id", portfolioID).Msg("Failed to load history")
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"history": records,
			"count":   len(records),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// buildOptions validates the request and folds overrides onto the base config.
func (h *Handler) buildOptions(req AnalyzeRequest) (analysis.Options, error) {
	var opts analysis.Options

	if req.RiskTolerance != "" {
		tolerance := domain.RiskTolerance(req.RiskTolerance)
		switch tolerance {
		case domain.ToleranceLow, domain.ToleranceMedium, domain.ToleranceHigh:
			opts.RiskTolerance = &tolerance
		default:
			return opts, errors.New("risk_tolerance must be one of low, medium, high")
		}
	}

	if req.YieldChangeThresholdPct != nil || req.RiskChangeThreshold != nil ||
		req.RebalanceIntervalDays != nil || req.MinRebalanceAmount != nil {
		cfg := h.baseCfg
		if req.YieldChangeThresholdPct != nil {
			cfg.YieldChangeThresholdPct = *req.YieldChangeThresholdPct
		}
		if req.RiskChangeThreshold != nil {
			cfg.RiskChangeThreshold = *req.RiskChangeThreshold
		}
		if req.RebalanceIntervalDays != nil {
			cfg.RebalanceIntervalDays = *req.RebalanceIntervalDays
		}
		if req.MinRebalanceAmount != nil {
			cfg.MinRebalanceAmount = *req.MinRebalanceAmount
		}
		opts.Config = &cfg
	}

	return opts, nil
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
