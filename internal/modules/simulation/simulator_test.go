package simulation

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/yieldwatch/internal/domain"
)

type stubStore struct {
	portfolio *domain.Portfolio
}

func (s *stubStore) Get(_ context.Context, id string) (*domain.Portfolio, error) {
	if s.portfolio == nil || s.portfolio.ID != id {
		return nil, domain.ErrPortfolioNotFound
	}
	return s.portfolio, nil
}

func (s *stubStore) ListIDs(_ context.Context) ([]string, error) { return nil, nil }

func (s *stubStore) SaveAnalysis(_ context.Context, _ *domain.AnalysisResult) error { return nil }

func (s *stubStore) History(_ context.Context, _ string, _ int) ([]domain.AnalysisRecord, error) {
	return nil, nil
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestComputeMetrics_EmptyPortfolio(t *testing.T) {
	_, err := ComputeMetrics(&domain.Portfolio{ID: "p1"})
	assert.ErrorIs(t, err, domain.ErrEmptyPortfolio)
}

func TestComputeMetrics_NonPositiveValue(t *testing.T) {
	portfolio := &domain.Portfolio{
		ID:        "p1",
		Positions: []domain.Position{{Protocol: "Aave", Chain: "Ethereum", Value: 0, InitialYield: 4.0}},
	}
	_, err := ComputeMetrics(portfolio)
	assert.Error(t, err)
}

func TestComputeMetrics(t *testing.T) {
	tests := []struct {
		name         string
		positions    []domain.Position
		wantYield    float64
		wantRisk     float64
		wantDiversif float64
	}{
		{
			name: "single position scores zero diversification",
			positions: []domain.Position{
				{Protocol: "Aave", Chain: "Ethereum", Value: 1000, InitialYield: 4.0, InitialRiskScore: floatPtr(3.0)},
			},
			wantYield:    4.0,
			wantRisk:     3.0,
			wantDiversif: 0.0,
		},
		{
			name: "two equal positions",
			positions: []domain.Position{
				{Protocol: "Aave", Chain: "Ethereum", Value: 500, InitialYield: 4.0, InitialRiskScore: floatPtr(2.0)},
				{Protocol: "Lido", Chain: "Ethereum", Value: 500, InitialYield: 6.0, InitialRiskScore: floatPtr(4.0)},
			},
			wantYield:    5.0,
			wantRisk:     3.0,
			wantDiversif: 5.0,
		},
		{
			name: "70/30 concentration",
			positions: []domain.Position{
				{Protocol: "Aave", Chain: "Ethereum", Value: 7000, InitialYield: 4.0, InitialRiskScore: floatPtr(3.0)},
				{Protocol: "Lido", Chain: "Ethereum", Value: 3000, InitialYield: 5.0, InitialRiskScore: floatPtr(2.0)},
			},
			wantYield:    4.3,
			wantRisk:     2.5,
			wantDiversif: 4.2, // (1 - 0.49 - 0.09) * 10
		},
		{
			name: "current yield and risk override entry values",
			positions: []domain.Position{
				{Protocol: "Aave", Chain: "Ethereum", Value: 1000, InitialYield: 4.0,
					CurrentYield: floatPtr(3.0), CurrentRiskScore: floatPtr(6.0)},
			},
			wantYield:    3.0,
			wantRisk:     6.0,
			wantDiversif: 0.0,
		},
		{
			name: "missing risk scores default to the midpoint",
			positions: []domain.Position{
				{Protocol: "Aave", Chain: "Ethereum", Value: 1000, InitialYield: 4.0},
			},
			wantYield:    4.0,
			wantRisk:     5.0,
			wantDiversif: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics, err := ComputeMetrics(&domain.Portfolio{ID: "p1", Positions: tt.positions})

			require.NoError(t, err)
			assert.InDelta(t, tt.wantYield, metrics.WeightedYield, 0.001)
			assert.InDelta(t, tt.wantRisk, metrics.AverageRisk, 0.001)
			assert.InDelta(t, tt.wantDiversif, metrics.DiversificationScore, 0.001)
		})
	}
}

func TestComputeMetrics_DiversificationBounds(t *testing.T) {
	// An even n-way split approaches 10 from below as n grows; the score
	// stays within [0, 10) for any portfolio.
	for _, n := range []int{1, 2, 5, 20} {
		positions := make([]domain.Position, n)
		for i := range positions {
			positions[i] = domain.Position{Protocol: "Aave", Chain: "Ethereum", Value: 100, InitialYield: 4.0}
		}
		metrics, err := ComputeMetrics(&domain.Portfolio{ID: "p1", Positions: positions})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, metrics.DiversificationScore, 0.0)
		assert.Less(t, metrics.DiversificationScore, 10.0)
	}
}

func TestApplyPlan(t *testing.T) {
	now := time.Now().UTC()
	portfolio := &domain.Portfolio{
		ID: "p1",
		Positions: []domain.Position{
			{Protocol: "Curve", Chain: "Ethereum", Value: 5000, InitialYield: 5.0,
				CurrentYield: floatPtr(3.2), EnteredAt: now.AddDate(0, 0, -30)},
			{Protocol: "Aave", Chain: "Ethereum", Value: 3000, InitialYield: 4.0,
				EnteredAt: now.AddDate(0, 0, -30)},
		},
	}
	plan := domain.ReallocationPlan{
		Actions: []domain.PlanAction{
			{
				FromProtocol: "curve", // matching is case-insensitive
				FromChain:    "ethereum",
				ToProtocol:   "Lido",
				ToChain:      "Ethereum",
				ToSymbol:     "stETH",
				ToYield:      4.5,
				ToRiskScore:  2.0,
			},
			{
				FromProtocol: "Ghost",
				FromChain:    "Ethereum",
				ToProtocol:   "Maker",
				ToChain:      "Ethereum",
				ToYield:      6.0,
				ToRiskScore:  2.0,
			},
		},
	}

	projected, skipped := ApplyPlan(portfolio, plan, now)

	assert.Equal(t, 1, skipped)
	require.Len(t, projected.Positions, 2)

	moved := projected.Positions[0]
	assert.Equal(t, "Lido", moved.Protocol)
	assert.Equal(t, "stETH", moved.Symbol)
	assert.Equal(t, 5000.0, moved.Value, "value carries over unchanged")
	assert.Equal(t, 4.5, moved.InitialYield)
	require.NotNil(t, moved.CurrentRiskScore)
	assert.Equal(t, 2.0, *moved.CurrentRiskScore)
	assert.True(t, moved.EnteredAt.Equal(now))

	// Untouched position survives as-is.
	assert.Equal(t, "Aave", projected.Positions[1].Protocol)

	// The source portfolio must not be mutated.
	assert.Equal(t, "Curve", portfolio.Positions[0].Protocol)
	require.NotNil(t, portfolio.Positions[0].CurrentYield)
	assert.Equal(t, 3.2, *portfolio.Positions[0].CurrentYield)
}

func TestApplyPlan_Deterministic(t *testing.T) {
	now := time.Now().UTC()
	portfolio := &domain.Portfolio{
		ID: "p1",
		Positions: []domain.Position{
			{Protocol: "Curve", Chain: "Ethereum", Value: 5000, InitialYield: 5.0, EnteredAt: now},
		},
	}
	plan := domain.ReallocationPlan{
		Actions: []domain.PlanAction{
			{FromProtocol: "Curve", FromChain: "Ethereum", ToProtocol: "Lido", ToChain: "Ethereum", ToYield: 4.5, ToRiskScore: 2.0},
		},
	}

	first, firstSkipped := ApplyPlan(portfolio, plan, now)
	second, secondSkipped := ApplyPlan(portfolio, plan, now)

	assert.Equal(t, firstSkipped, secondSkipped)
	assert.Equal(t, first, second)
}

func TestSimulate_RecommendsProceedOnYieldGain(t *testing.T) {
	now := time.Now().UTC()
	store := &stubStore{portfolio: &domain.Portfolio{
		ID: "p1",
		Positions: []domain.Position{
			{Protocol: "Curve", Chain: "Ethereum", Value: 5000, InitialYield: 5.0,
				CurrentYield: floatPtr(3.2), InitialRiskScore: floatPtr(5.0), EnteredAt: now},
		},
	}}
	sim := NewSimulator(store, zerolog.Nop())

	plan := domain.ReallocationPlan{
		Actions: []domain.PlanAction{
			{FromProtocol: "Curve", FromChain: "Ethereum", ToProtocol: "Lido", ToChain: "Ethereum", ToYield: 4.5, ToRiskScore: 2.0},
		},
	}

	result, err := sim.Simulate(context.Background(), "p1", plan)

	require.NoError(t, err)
	assert.InDelta(t, 3.2, result.Current.WeightedYield, 0.001)
	assert.InDelta(t, 4.5, result.Projected.WeightedYield, 0.001)
	assert.InDelta(t, 1.3, result.Delta.WeightedYield, 0.001)
	assert.InDelta(t, -3.0, result.Delta.AverageRisk, 0.001)
	assert.Zero(t, result.Delta.TotalValue)
	assert.Equal(t, domain.RecommendProceed, result.Recommendation)
	assert.Equal(t, "+1.30%", FormatYieldChange(result.Delta.WeightedYield))
}

func TestSimulate_RecommendsReviewWhenNothingImproves(t *testing.T) {
	now := time.Now().UTC()
	store := &stubStore{portfolio: &domain.Portfolio{
		ID: "p1",
		Positions: []domain.Position{
			{Protocol: "Curve", Chain: "Ethereum", Value: 5000, InitialYield: 5.0, EnteredAt: now},
		},
	}}
	sim := NewSimulator(store, zerolog.Nop())

	// Only action references a position the portfolio does not hold, so the
	// projection equals the current state.
	plan := domain.ReallocationPlan{
		Actions: []domain.PlanAction{
			{FromProtocol: "Ghost", FromChain: "Ethereum", ToProtocol: "Lido", ToChain: "Ethereum", ToYield: 9.0, ToRiskScore: 2.0},
		},
	}

	result, err := sim.Simulate(context.Background(), "p1", plan)

	require.NoError(t, err)
	assert.Equal(t, 1, result.SkippedActions)
	assert.Zero(t, result.Delta.WeightedYield)
	assert.Equal(t, domain.RecommendReview, result.Recommendation)
}

func TestSimulate_UnknownPortfolio(t *testing.T) {
	sim := NewSimulator(&stubStore{}, zerolog.Nop())

	_, err := sim.Simulate(context.Background(), "missing", domain.ReallocationPlan{})

	assert.ErrorIs(t, err, domain.ErrPortfolioNotFound)
}
