// Package simulation provides the what-if portfolio simulator: it applies a
// hypothetical reallocation plan to a portfolio snapshot and recomputes
// portfolio-level metrics for the current and projected states.
package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/yieldwatch/internal/domain"
)

// Simulator applies reallocation plans and computes portfolio metrics. It is
// independent of trigger evaluation and never mutates the canonical portfolio.
type Simulator struct {
	store domain.PortfolioStore
	log   zerolog.Logger
}

// NewSimulator creates a new simulator
func NewSimulator(store domain.PortfolioStore, log zerolog.Logger) *Simulator {
	return &Simulator{
		store: store,
		log:   log.With().Str("service", "simulation").Logger(),
	}
}

// ComputeMetrics derives portfolio-level metrics from a snapshot.
// The average risk is unweighted by value; that mirrors how entry risk is
// recorded and is intentional, not an omission.
func ComputeMetrics(portfolio *domain.Portfolio) (domain.PortfolioMetrics, error) {
	if len(portfolio.Positions) == 0 {
		return domain.PortfolioMetrics{}, domain.ErrEmptyPortfolio
	}

	total := portfolio.TotalValue()
	if total <= 0 {
		return domain.PortfolioMetrics{}, fmt.Errorf("portfolio %s has non-positive total value", portfolio.ID)
	}

	weightedYield := 0.0
	herfindahl := 0.0
	risks := make([]float64, len(portfolio.Positions))
	for i, pos := range portfolio.Positions {
		w := pos.Value / total
		weightedYield += w * pos.YieldNow()
		herfindahl += w * w
		risks[i] = pos.RiskNow()
	}

	return domain.PortfolioMetrics{
		TotalValue:           total,
		WeightedYield:        weightedYield,
		AverageRisk:          stat.Mean(risks, nil),
		DiversificationScore: (1 - herfindahl) * 10,
	}, nil
}

// ApplyPlan produces a deep copy of the portfolio with each plan action
// applied: the position matching the action's source (protocol, chain) is
// replaced by a new position in the target pool, preserving the original
// value. Actions whose source is absent are skipped, not errors; the count of
// skipped actions is returned so callers can surface partially stale plans.
func ApplyPlan(portfolio *domain.Portfolio, plan domain.ReallocationPlan, now time.Time) (domain.Portfolio, int) {
	projected := portfolio.Clone()
	skipped := 0

	for _, action := range plan.Actions {
		key := domain.PoolKey(action.FromProtocol, action.FromChain)
		found := false
		for i, pos := range projected.Positions {
			if pos.Key() != key {
				continue
			}
			yield := action.ToYield
			risk := action.ToRiskScore
			projected.Positions[i] = domain.Position{
				Protocol:         action.ToProtocol,
				Chain:            action.ToChain,
				Symbol:           action.ToSymbol,
				Value:            pos.Value,
				InitialYield:     yield,
				CurrentYield:     &yield,
				InitialRiskScore: &risk,
				CurrentRiskScore: &risk,
				EnteredAt:        now,
			}
			found = true
			break
		}
		if !found {
			skipped++
		}
	}

	return projected, skipped
}

// Simulate loads the portfolio and evaluates the plan against it, returning
// current and projected metrics, their deltas, and a binary recommendation.
// The recommendation is deliberately coarse: it looks only at weighted yield.
func (s *Simulator) Simulate(ctx context.Context, portfolioID string, plan domain.ReallocationPlan) (*domain.SimulationResult, error) {
	portfolio, err := s.store.Get(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio %s: %w", portfolioID, err)
	}
	return s.Evaluate(portfolio, plan)
}

// Evaluate runs the simulation on an already materialized portfolio.
func (s *Simulator) Evaluate(portfolio *domain.Portfolio, plan domain.ReallocationPlan) (*domain.SimulationResult, error) {
	current, err := ComputeMetrics(portfolio)
	if err != nil {
		return nil, fmt.Errorf("failed to compute current metrics: %w", err)
	}

	projectedPortfolio, skipped := ApplyPlan(portfolio, plan, time.Now().UTC())
	projected, err := ComputeMetrics(&projectedPortfolio)
	if err != nil {
		return nil, fmt.Errorf("failed to compute projected metrics: %w", err)
	}

	recommendation := domain.RecommendReview
	if projected.WeightedYield > current.WeightedYield {
		recommendation = domain.RecommendProceed
	}

	if skipped > 0 {
		s.log.Warn().
			Str("portfolio_id", portfolio.ID).
			Int("skipped_actions", skipped).
			Msg("Plan references positions not in portfolio")
	}

	return &domain.SimulationResult{
		PortfolioID: portfolio.ID,
		Current:     current,
		Projected:   projected,
		Delta: domain.MetricsDelta{
			TotalValue:           projected.TotalValue - current.TotalValue,
			WeightedYield:        projected.WeightedYield - current.WeightedYield,
			AverageRisk:          projected.AverageRisk - current.AverageRisk,
			DiversificationScore: projected.DiversificationScore - current.DiversificationScore,
		},
		SkippedActions: skipped,
		Recommendation: recommendation,
	}, nil
}

// FormatYieldChange renders a weighted-yield delta for display, e.g. "+1.30%".
func FormatYieldChange(delta float64) string {
	return fmt.Sprintf("%+.2f%%", delta)
}
