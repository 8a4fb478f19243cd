package analysis

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/yieldwatch/internal/domain"
)

func newBuilder() *SuggestionBuilder {
	log := zerolog.Nop()
	return NewSuggestionBuilder(NewAlternativeRanker(log), log)
}

func TestBuild_PairsUnderperformerWithCompatibleAlternative(t *testing.T) {
	builder := newBuilder()
	now := time.Now().UTC()

	portfolio := &domain.Portfolio{
		ID: "p1",
		Positions: []domain.Position{
			{Protocol: "Curve", Chain: "Ethereum", Value: 3000, InitialYield: 4.0, EnteredAt: now},
			{Protocol: "Aave", Chain: "Ethereum", Value: 2000, InitialYield: 5.5, EnteredAt: now},
		},
		RiskTolerance: domain.ToleranceMedium,
	}
	// Market average = (2.0 + 6.0 + 7.0) / 3 = 5.0; the Curve pool's 2.0
	// sits below the 3.5 cutoff, Aave's 6.0 does not.
	pools := []domain.MarketPool{
		poolWithRisk("Curve", 2.0, 5.0, domain.RiskLevelMedium),
		poolWithRisk("Aave", 6.0, 4.5, domain.RiskLevelMedium),
		poolWithRisk("Lido", 7.0, 2.5, domain.RiskLevelLow),
	}

	suggestions := builder.Build(portfolio, pools, domain.ToleranceMedium, domain.DefaultEngineConfig())

	var rebalance *domain.Suggestion
	for i := range suggestions {
		if suggestions[i].Action == domain.ActionRebalance {
			rebalance = &suggestions[i]
		}
	}
	require.NotNil(t, rebalance)
	require.NotNil(t, rebalance.Rebalance)

	// Lido ranks first (7.0/2.5 = 2.8) but is low risk; the medium-level
	// Curve position pairs with the medium-level Aave pool instead.
	assert.Equal(t, "Curve", rebalance.Rebalance.FromProtocol)
	assert.Equal(t, "Aave", rebalance.Rebalance.ToProtocol)
	assert.InDelta(t, 4.0, rebalance.Rebalance.YieldDelta, 0.001)
	assert.InDelta(t, 120.0, rebalance.Rebalance.EstimatedAnnualGain, 0.001)
	// value 3000 > 2000 with delta 4.0 > 1.5.
	assert.Equal(t, domain.PriorityHigh, rebalance.Priority)
}

func TestBuild_NoCompatibleAlternativeProducesNoRebalance(t *testing.T) {
	builder := newBuilder()
	now := time.Now().UTC()

	portfolio := &domain.Portfolio{
		ID: "p1",
		Positions: []domain.Position{
			{Protocol: "Curve", Chain: "Ethereum", Value: 3000, InitialYield: 4.0, EnteredAt: now},
			{Protocol: "Aave", Chain: "Ethereum", Value: 4000, InitialYield: 5.5, EnteredAt: now},
		},
	}
	// Only low-level alternatives exist; the underperformer is medium level.
	pools := []domain.MarketPool{
		poolWithRisk("Curve", 2.0, 5.0, domain.RiskLevelMedium),
		poolWithRisk("Lido", 7.0, 2.5, domain.RiskLevelLow),
		poolWithRisk("Maker", 6.0, 2.0, domain.RiskLevelLow),
	}

	suggestions := builder.Build(portfolio, pools, domain.ToleranceMedium, domain.DefaultEngineConfig())

	for _, s := range suggestions {
		assert.NotEqual(t, domain.ActionRebalance, s.Action)
	}
}

func TestBuild_SkipsPositionsBelowMinimumAmount(t *testing.T) {
	builder := newBuilder()
	now := time.Now().UTC()

	portfolio := &domain.Portfolio{
		ID: "p1",
		Positions: []domain.Position{
			{Protocol: "Curve", Chain: "Ethereum", Value: 50, InitialYield: 4.0, EnteredAt: now},
			{Protocol: "Aave", Chain: "Ethereum", Value: 4000, InitialYield: 5.5, EnteredAt: now},
		},
	}
	pools := []domain.MarketPool{
		poolWithRisk("Curve", 2.0, 5.0, domain.RiskLevelMedium),
		poolWithRisk("Aave", 6.0, 4.5, domain.RiskLevelMedium),
		poolWithRisk("Lido", 7.0, 2.5, domain.RiskLevelLow),
	}

	cfg := domain.DefaultEngineConfig()
	suggestions := builder.Build(portfolio, pools, domain.ToleranceMedium, cfg)

	for _, s := range suggestions {
		assert.NotEqual(t, domain.ActionRebalance, s.Action,
			"a $50 position must not produce a rebalance suggestion at a $%.0f minimum", cfg.MinRebalanceAmount)
	}
}

func TestBuild_ConcentrationDiversification(t *testing.T) {
	builder := newBuilder()
	now := time.Now().UTC()

	// 70/30 split: the largest share exceeds the 60% concentration limit.
	portfolio := &domain.Portfolio{
		ID: "p1",
		Positions: []domain.Position{
			{Protocol: "Aave", Chain: "Ethereum", Value: 7000, InitialYield: 4.0, EnteredAt: now},
			{Protocol: "Lido", Chain: "Ethereum", Value: 3000, InitialYield: 4.5, EnteredAt: now},
		},
	}

	suggestions := builder.Build(portfolio, nil, domain.ToleranceMedium, domain.DefaultEngineConfig())

	require.Len(t, suggestions, 1)
	s := suggestions[0]
	assert.Equal(t, domain.ActionDiversify, s.Action)
	assert.Equal(t, domain.PriorityMedium, s.Priority)
	require.NotNil(t, s.Diversify)
	assert.Equal(t, "40-30-30", s.Diversify.RecommendedSplit)
	assert.InDelta(t, 70.0, s.Diversify.LargestSharePct, 0.01)
}

func TestBuild_SingleProtocolDiversification(t *testing.T) {
	builder := newBuilder()
	now := time.Now().UTC()

	// Balanced values, but everything sits on Aave (case-insensitive).
	portfolio := &domain.Portfolio{
		ID: "p1",
		Positions: []domain.Position{
			{Protocol: "Aave", Chain: "Ethereum", Value: 5000, InitialYield: 4.0, EnteredAt: now},
			{Protocol: "aave", Chain: "Polygon", Value: 5000, InitialYield: 5.0, EnteredAt: now},
		},
	}

	suggestions := builder.Build(portfolio, nil, domain.ToleranceMedium, domain.DefaultEngineConfig())

	require.Len(t, suggestions, 1)
	s := suggestions[0]
	assert.Equal(t, domain.ActionDiversify, s.Action)
	require.NotNil(t, s.Diversify)
	assert.Equal(t, "spread across protocols", s.Diversify.RecommendedSplit)
}

func TestBuild_IndependentOfTriggerFiring(t *testing.T) {
	// A position whose yield drifted enough to trigger still produces no
	// rebalance suggestion when it has no matched market pool to pair from.
	builder := newBuilder()
	now := time.Now().UTC()

	portfolio := &domain.Portfolio{
		ID: "p1",
		Positions: []domain.Position{
			{Protocol: "OldProtocol", Chain: "Ethereum", Value: 5000,
				InitialYield: 5.0, CurrentYield: floatPtr(3.2), EnteredAt: now.AddDate(0, 0, -5)},
		},
	}
	pools := []domain.MarketPool{
		poolWithRisk("Lido", 4.5, 2.0, domain.RiskLevelLow),
	}

	suggestions := builder.Build(portfolio, pools, domain.ToleranceMedium, domain.DefaultEngineConfig())

	for _, s := range suggestions {
		assert.NotEqual(t, domain.ActionRebalance, s.Action)
	}
}

func TestBuild_OrdersByPriorityDescending(t *testing.T) {
	builder := newBuilder()
	now := time.Now().UTC()

	// Curve underperforms and pairs high priority; the 75% Curve share also
	// yields a medium diversify suggestion, which must sort after it.
	portfolio := &domain.Portfolio{
		ID: "p1",
		Positions: []domain.Position{
			{Protocol: "Curve", Chain: "Ethereum", Value: 6000, InitialYield: 4.0, EnteredAt: now},
			{Protocol: "Aave", Chain: "Ethereum", Value: 2000, InitialYield: 5.5, EnteredAt: now},
		},
	}
	pools := []domain.MarketPool{
		poolWithRisk("Curve", 2.0, 5.0, domain.RiskLevelMedium),
		poolWithRisk("Aave", 6.0, 4.5, domain.RiskLevelMedium),
		poolWithRisk("Lido", 7.0, 2.5, domain.RiskLevelLow),
	}

	suggestions := builder.Build(portfolio, pools, domain.ToleranceMedium, domain.DefaultEngineConfig())

	require.Len(t, suggestions, 2)
	assert.Equal(t, domain.ActionRebalance, suggestions[0].Action)
	assert.Equal(t, domain.PriorityHigh, suggestions[0].Priority)
	assert.Equal(t, domain.ActionDiversify, suggestions[1].Action)
	assert.Equal(t, domain.PriorityMedium, suggestions[1].Priority)
}

func TestRebalancePriority(t *testing.T) {
	tests := []struct {
		name       string
		value      float64
		yieldDelta float64
		want       domain.Priority
	}{
		{"large position, large delta", 6000, 2.5, domain.PriorityHigh},
		{"mid position, notable delta", 2500, 1.6, domain.PriorityHigh},
		{"small position, huge delta", 500, 3.1, domain.PriorityHigh},
		{"mid position, modest delta", 1500, 1.2, domain.PriorityMedium},
		{"small position, notable delta", 800, 1.6, domain.PriorityMedium},
		{"small position, small delta", 800, 1.0, domain.PriorityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rebalancePriority(tt.value, tt.yieldDelta))
		})
	}
}

func TestRebalancePriority_MonotonicInValueAndDelta(t *testing.T) {
	values := []float64{500, 1500, 2500, 6000}
	deltas := []float64{0.5, 1.2, 1.8, 2.5, 3.5}

	for i, v := range values {
		for j, d := range deltas {
			base := rebalancePriority(v, d)
			if i+1 < len(values) {
				assert.GreaterOrEqual(t,
					rebalancePriority(values[i+1], d).Rank(), base.Rank(),
					"raising value from %v at delta %v lowered priority", v, d)
			}
			if j+1 < len(deltas) {
				assert.GreaterOrEqual(t,
					rebalancePriority(v, deltas[j+1]).Rank(), base.Rank(),
					"raising delta from %v at value %v lowered priority", d, v)
			}
		}
	}
}
