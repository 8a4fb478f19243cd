// Package risk provides the heuristic pool risk scorer.
package risk

import (
	"github.com/rs/zerolog"

	"github.com/aristath/yieldwatch/internal/domain"
)

// Scorer assigns a risk score in [1, 10] from reserve depth and yield level.
// Deep reserves mean more battle-tested contracts and easier exits; an
// outsized yield usually compensates for something.
type Scorer struct {
	log zerolog.Logger
}

// NewScorer creates a new risk scorer
func NewScorer(log zerolog.Logger) *Scorer {
	return &Scorer{
		log: log.With().Str("component", "risk_scorer").Logger(),
	}
}

// Assess scores a single pool. Pools with a non-positive reserve cannot be
// assessed and return nil, which excludes them from ranking downstream.
func (s *Scorer) Assess(pool domain.MarketPool) *domain.RiskAssessment {
	if pool.ReserveValue <= 0 {
		return nil
	}

	score := reserveScore(pool.ReserveValue) + yieldPenalty(pool.YieldRate)
	if score > 10 {
		score = 10
	}
	if score < 1 {
		score = 1
	}

	return &domain.RiskAssessment{
		Score: score,
		Level: levelFor(score),
	}
}

// reserveScore maps reserve depth (in the reference currency) to a base score.
func reserveScore(reserve float64) float64 {
	switch {
	case reserve >= 1e9:
		return 1.5
	case reserve >= 1e8:
		return 3.0
	case reserve >= 1e7:
		return 4.5
	case reserve >= 1e6:
		return 6.0
	default:
		return 8.0
	}
}

// yieldPenalty raises the score for yields well above what established pools
// pay; double-digit APY on a small pool is rarely free money.
func yieldPenalty(apy float64) float64 {
	switch {
	case apy > 50:
		return 2.0
	case apy > 20:
		return 1.0
	default:
		return 0.0
	}
}

// levelFor maps a numeric score to its qualitative tier.
func levelFor(score float64) domain.RiskLevel {
	switch {
	case score <= 2:
		return domain.RiskLevelVeryLow
	case score <= 4:
		return domain.RiskLevelLow
	case score <= 6:
		return domain.RiskLevelMedium
	case score <= 8:
		return domain.RiskLevelHigh
	default:
		return domain.RiskLevelVeryHigh
	}
}
