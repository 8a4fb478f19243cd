package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/yieldwatch/internal/domain"
)

// Service orchestrates one analysis call: it materializes the inputs from the
// collaborators, scores the pools, runs the decision engine and persists the
// result when the verdict is to rebalance. The engine itself is stateless;
// concurrent analyses for different portfolios are safe.
type Service struct {
	store    domain.PortfolioStore
	market   domain.MarketDataProvider
	scorer   domain.RiskScorer
	triggers *TriggerEvaluator
	ranker   *AlternativeRanker
	builder  *SuggestionBuilder
	cfg      domain.EngineConfig
	log      zerolog.Logger
}

// NewService creates a new analysis service
func NewService(
	store domain.PortfolioStore,
	market domain.MarketDataProvider,
	scorer domain.RiskScorer,
	cfg domain.EngineConfig,
	log zerolog.Logger,
) *Service {
	ranker := NewAlternativeRanker(log)
	return &Service{
		store:    store,
		market:   market,
		scorer:   scorer,
		triggers: NewTriggerEvaluator(log),
		ranker:   ranker,
		builder:  NewSuggestionBuilder(ranker, log),
		cfg:      cfg,
		log:      log.With().Str("service", "analysis").Logger(),
	}
}

// Options carries per-call overrides for one analysis.
type Options struct {
	// RiskTolerance overrides the portfolio's stored tolerance for ranking.
	RiskTolerance *domain.RiskTolerance
	// Config replaces the service's engine thresholds for this call only.
	Config *domain.EngineConfig
}

// Analyze evaluates the portfolio against live market pools and returns the
// full analysis. The result is persisted only when a trigger fired.
func (s *Service) Analyze(ctx context.Context, portfolioID string, opts Options) (*domain.AnalysisResult, error) {
	portfolio, err := s.store.Get(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio %s: %w", portfolioID, err)
	}
	if len(portfolio.Positions) == 0 {
		return nil, fmt.Errorf("portfolio %s: %w", portfolioID, domain.ErrEmptyPortfolio)
	}

	pools, err := s.market.ListPools(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market pools: %w", err)
	}
	pools = s.attachRisk(pools)

	result := s.Run(portfolio, pools, opts)

	if result.Evaluation.ShouldRebalance {
		if err := s.store.SaveAnalysis(ctx, result); err != nil {
			// The analysis itself succeeded; surface the persistence failure
			// in the log and return the result anyway.
			s.log.Error().Err(err).Str("portfolio_id", portfolioID).Msg("Failed to persist analysis")
		}
	}

	s.log.Info().
		Str("portfolio_id", portfolioID).
		Bool("should_rebalance", result.Evaluation.ShouldRebalance).
		Str("severity", string(result.Evaluation.Severity)).
		Int("suggestions", len(result.Suggestions)).
		Msg("Analysis complete")

	return result, nil
}

// Run executes the decision engine on fully materialized inputs. It performs
// no I/O and is a pure function of its arguments and the clock.
func (s *Service) Run(portfolio *domain.Portfolio, pools []domain.MarketPool, opts Options) *domain.AnalysisResult {
	cfg := s.cfg
	if opts.Config != nil {
		cfg = *opts.Config
	}

	result := &domain.AnalysisResult{
		ID:          uuid.NewString(),
		PortfolioID: portfolio.ID,
		AnalyzedAt:  time.Now().UTC(),
	}

	result.Evaluation = s.triggers.Evaluate(portfolio, pools, cfg, result.AnalyzedAt)
	if !result.Evaluation.ShouldRebalance {
		return result
	}

	tolerance := EffectiveTolerance(portfolio, opts.RiskTolerance)
	result.Suggestions = s.builder.Build(portfolio, pools, tolerance, cfg)
	impact := EstimateImpact(portfolio, result.Suggestions)
	result.Impact = &impact

	return result
}

// attachRisk scores every pool that does not already carry an assessment.
func (s *Service) attachRisk(pools []domain.MarketPool) []domain.MarketPool {
	for i := range pools {
		if pools[i].Risk == nil {
			pools[i].Risk = s.scorer.Assess(pools[i])
		}
	}
	return pools
}
