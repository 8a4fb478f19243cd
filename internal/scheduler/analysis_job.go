package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/yieldwatch/internal/domain"
	"github.com/aristath/yieldwatch/internal/modules/analysis"
)

// AnalysisSweepJob runs the decision engine across every stored portfolio.
// A failure on one portfolio is logged and does not abort the sweep.
type AnalysisSweepJob struct {
	service *analysis.Service
	store   domain.PortfolioStore
	timeout time.Duration
	log     zerolog.Logger
}

// NewAnalysisSweepJob creates a new analysis sweep job
func NewAnalysisSweepJob(
	service *analysis.Service,
	store domain.PortfolioStore,
	log zerolog.Logger,
) *AnalysisSweepJob {
	return &AnalysisSweepJob{
		service: service,
		store:   store,
		timeout: 5 * time.Minute,
		log:     log.With().Str("job", "analysis_sweep").Logger(),
	}
}

// Name returns the job identifier
func (j *AnalysisSweepJob) Name() string {
	return "analysis_sweep"
}

// Run analyzes every stored portfolio once.
func (j *AnalysisSweepJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	ids, err := j.store.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list portfolios: %w", err)
	}

	failures := 0
	for _, id := range ids {
		result, err := j.service.Analyze(ctx, id, analysis.Options{})
		if err != nil {
			failures++
			j.log.Error().Err(err).Str("portfolio_id", id).Msg("Sweep analysis failed")
			continue
		}
		j.log.Info().
			Str("portfolio_id", id).
			Bool("should_rebalance", result.Evaluation.ShouldRebalance).
			Str("severity", string(result.Evaluation.Severity)).
			Msg("Sweep analysis complete")
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d portfolio analyses failed", failures, len(ids))
	}
	return nil
}
