package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/yieldwatch/internal/domain"
)

// underperformYieldRatio flags a matched position whose live yield is below
// this fraction of the unweighted market-average yield.
const underperformYieldRatio = 0.7

// concentrationLimit is the largest single-position value share tolerated
// before a diversify suggestion is emitted.
const concentrationLimit = 0.6

// SuggestionBuilder pairs underperforming holdings with ranked alternatives
// and emits diversification suggestions.
type SuggestionBuilder struct {
	ranker *AlternativeRanker
	log    zerolog.Logger
}

// NewSuggestionBuilder creates a new suggestion builder
func NewSuggestionBuilder(ranker *AlternativeRanker, log zerolog.Logger) *SuggestionBuilder {
	return &SuggestionBuilder{
		ranker: ranker,
		log:    log.With().Str("component", "suggestions").Logger(),
	}
}

// underperformer is one matched position whose live yield trails the market.
type underperformer struct {
	position domain.Position
	pool     domain.MarketPool
	gapPct   float64
	reason   string
}

// Build produces the ordered suggestion list for a portfolio: rebalance
// suggestions for underperformers with a risk-compatible alternative, then
// any diversification suggestion, sorted descending by priority (stable).
func (b *SuggestionBuilder) Build(
	portfolio *domain.Portfolio,
	pools []domain.MarketPool,
	tolerance domain.RiskTolerance,
	cfg domain.EngineConfig,
) []domain.Suggestion {
	var suggestions []domain.Suggestion

	underperformers := b.findUnderperformers(portfolio, pools)
	if len(underperformers) > 0 {
		alternatives := b.ranker.Rank(pools, tolerance)
		for _, u := range underperformers {
			if u.position.Value < cfg.MinRebalanceAmount {
				b.log.Debug().
					Str("protocol", u.position.Protocol).
					Float64("value", u.position.Value).
					Float64("min", cfg.MinRebalanceAmount).
					Msg("Skipping rebalance suggestion below minimum amount")
				continue
			}
			if s := b.pairWithAlternative(u, alternatives); s != nil {
				suggestions = append(suggestions, *s)
			}
		}
	}

	if s := b.diversificationSuggestion(portfolio); s != nil {
		suggestions = append(suggestions, *s)
	}

	// Stable: ties keep encounter order.
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Priority.Rank() > suggestions[j].Priority.Rank()
	})

	return suggestions
}

// findUnderperformers flags matched positions whose live yield is below 70%
// of the unweighted average yield across all supplied market pools.
func (b *SuggestionBuilder) findUnderperformers(
	portfolio *domain.Portfolio,
	pools []domain.MarketPool,
) []underperformer {
	if len(pools) == 0 {
		return nil
	}

	yieldSum := 0.0
	for _, pool := range pools {
		yieldSum += pool.YieldRate
	}
	avgYield := yieldSum / float64(len(pools))
	if avgYield <= 0 {
		return nil
	}

	poolsByKey := indexPools(pools)

	var out []underperformer
	for _, pos := range portfolio.Positions {
		pool, ok := poolsByKey[pos.Key()]
		if !ok {
			continue
		}
		if pool.YieldRate >= underperformYieldRatio*avgYield {
			continue
		}
		gapPct := (avgYield - pool.YieldRate) / avgYield * 100
		out = append(out, underperformer{
			position: pos,
			pool:     pool,
			gapPct:   gapPct,
			reason: fmt.Sprintf("%s on %s yields %.2f%%, %.1f%% below the market average of %.2f%%",
				pos.Protocol, pos.Chain, pool.YieldRate, gapPct, avgYield),
		})
	}
	return out
}

// pairWithAlternative selects the first-ranked alternative whose qualitative
// risk level matches the underperformer's current level (medium if unknown).
// Returns nil when no risk-compatible alternative exists.
func (b *SuggestionBuilder) pairWithAlternative(
	u underperformer,
	alternatives []domain.MarketPool,
) *domain.Suggestion {
	level := domain.RiskLevelMedium
	sourceRisk := u.position.InitialRiskScoreOrDefault()
	if u.pool.Risk != nil {
		level = u.pool.Risk.Level
		sourceRisk = u.pool.Risk.Score
	}

	for _, alt := range alternatives {
		if alt.Key() == u.pool.Key() {
			continue
		}
		if alt.Risk == nil || alt.Risk.Level != level {
			continue
		}
		yieldDelta := alt.YieldRate - u.pool.YieldRate
		return &domain.Suggestion{
			ID:       uuid.NewString(),
			Action:   domain.ActionRebalance,
			Priority: rebalancePriority(u.position.Value, yieldDelta),
			Reason:   u.reason,
			Rebalance: &domain.RebalanceDetail{
				FromProtocol:        u.position.Protocol,
				FromChain:           u.position.Chain,
				FromYield:           u.pool.YieldRate,
				FromRiskScore:       sourceRisk,
				Value:               u.position.Value,
				ToProtocol:          alt.Protocol,
				ToChain:             alt.Chain,
				ToSymbol:            alt.Symbol,
				ToYield:             alt.YieldRate,
				ToRiskScore:         alt.Risk.Score,
				ToReserveValue:      alt.ReserveValue,
				YieldDelta:          yieldDelta,
				EstimatedAnnualGain: u.position.Value * yieldDelta / 100,
			},
		}
	}

	b.log.Debug().
		Str("protocol", u.position.Protocol).
		Str("level", string(level)).
		Msg("No risk-compatible alternative for underperformer")
	return nil
}

// rebalancePriority assigns priority from position value and yield delta.
// Monotonic in both: raising either never lowers the priority.
func rebalancePriority(value, yieldDelta float64) domain.Priority {
	switch {
	case value > 5000 && yieldDelta > 2,
		value > 2000 && yieldDelta > 1.5,
		yieldDelta > 3:
		return domain.PriorityHigh
	case value > 1000 && yieldDelta > 1,
		yieldDelta > 1.5:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// diversificationSuggestion checks structural concentration, independent of
// the underperformer pairing: a single position above 60% of portfolio value
// gets a 40/30/30 split recommendation; failing that, a portfolio whose
// positions all share one protocol gets a spread recommendation.
func (b *SuggestionBuilder) diversificationSuggestion(portfolio *domain.Portfolio) *domain.Suggestion {
	total := portfolio.TotalValue()
	if total <= 0 || len(portfolio.Positions) == 0 {
		return nil
	}

	largestShare := 0.0
	largest := ""
	for _, pos := range portfolio.Positions {
		share := pos.Value / total
		if share > largestShare {
			largestShare = share
			largest = pos.Protocol
		}
	}

	if largestShare > concentrationLimit {
		return &domain.Suggestion{
			ID:       uuid.NewString(),
			Action:   domain.ActionDiversify,
			Priority: domain.PriorityMedium,
			Reason: fmt.Sprintf("%s holds %.1f%% of portfolio value; consider splitting the largest holdings 40/30/30",
				largest, largestShare*100),
			Diversify: &domain.DiversifyDetail{
				RecommendedSplit: "40-30-30",
				LargestSharePct:  largestShare * 100,
			},
		}
	}

	if len(portfolio.Positions) > 1 {
		protocol := strings.ToLower(portfolio.Positions[0].Protocol)
		same := true
		for _, pos := range portfolio.Positions[1:] {
			if strings.ToLower(pos.Protocol) != protocol {
				same = false
				break
			}
		}
		if same {
			return &domain.Suggestion{
				ID:       uuid.NewString(),
				Action:   domain.ActionDiversify,
				Priority: domain.PriorityMedium,
				Reason: fmt.Sprintf("all %d positions sit on %s; consider spreading across protocols",
					len(portfolio.Positions), portfolio.Positions[0].Protocol),
				Diversify: &domain.DiversifyDetail{
					RecommendedSplit: "spread across protocols",
				},
			}
		}
	}

	return nil
}
