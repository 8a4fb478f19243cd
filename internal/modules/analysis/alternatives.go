package analysis

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/yieldwatch/internal/domain"
)

// maxAlternatives caps how many candidate pools the ranker returns.
const maxAlternatives = 5

// AlternativeRanker filters and ranks market pools by risk-adjusted return
// under a risk-tolerance policy.
type AlternativeRanker struct {
	log zerolog.Logger
}

// NewAlternativeRanker creates a new alternative ranker
func NewAlternativeRanker(log zerolog.Logger) *AlternativeRanker {
	return &AlternativeRanker{
		log: log.With().Str("component", "alternatives").Logger(),
	}
}

// allowedLevels returns the qualitative risk levels a tolerance accepts.
// The policy is fixed: low tolerance accepts only low and very-low pools,
// medium accepts low and medium, high applies no filtering.
func allowedLevels(tolerance domain.RiskTolerance) map[domain.RiskLevel]bool {
	switch tolerance {
	case domain.ToleranceLow:
		return map[domain.RiskLevel]bool{
			domain.RiskLevelVeryLow: true,
			domain.RiskLevelLow:     true,
		}
	case domain.ToleranceMedium:
		return map[domain.RiskLevel]bool{
			domain.RiskLevelLow:    true,
			domain.RiskLevelMedium: true,
		}
	default:
		return nil // high tolerance: no filtering
	}
}

// EffectiveTolerance resolves the tolerance to rank under: an explicit
// override wins, then the portfolio's stored tolerance, then medium.
func EffectiveTolerance(portfolio *domain.Portfolio, override *domain.RiskTolerance) domain.RiskTolerance {
	if override != nil {
		return *override
	}
	if portfolio != nil && portfolio.RiskTolerance != "" {
		return portfolio.RiskTolerance
	}
	return domain.ToleranceMedium
}

// Rank returns up to maxAlternatives pools ordered descending by
// yield / riskScore. Pools without a risk assessment are excluded
// unconditionally.
func (r *AlternativeRanker) Rank(
	pools []domain.MarketPool,
	tolerance domain.RiskTolerance,
) []domain.MarketPool {
	allowed := allowedLevels(tolerance)

	var candidates []domain.MarketPool
	for _, pool := range pools {
		if pool.Risk == nil || pool.Risk.Score <= 0 {
			continue
		}
		if allowed != nil && !allowed[pool.Risk.Level] {
			continue
		}
		candidates = append(candidates, pool)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].YieldRate/candidates[i].Risk.Score >
			candidates[j].YieldRate/candidates[j].Risk.Score
	})

	if len(candidates) > maxAlternatives {
		candidates = candidates[:maxAlternatives]
	}

	r.log.Debug().
		Str("tolerance", string(tolerance)).
		Int("candidates", len(candidates)).
		Msg("Ranked alternatives")

	return candidates
}
