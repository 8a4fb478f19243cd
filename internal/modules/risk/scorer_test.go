package risk

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/yieldwatch/internal/domain"
)

func TestAssess(t *testing.T) {
	scorer := NewScorer(zerolog.Nop())

	tests := []struct {
		name      string
		reserve   float64
		apy       float64
		wantScore float64
		wantLevel domain.RiskLevel
	}{
		{"deep reserve, normal yield", 2e9, 4.5, 1.5, domain.RiskLevelVeryLow},
		{"large reserve", 3e8, 5.0, 3.0, domain.RiskLevelLow},
		{"mid reserve", 5e7, 6.0, 4.5, domain.RiskLevelMedium},
		{"small reserve", 2e6, 8.0, 6.0, domain.RiskLevelMedium},
		{"tiny reserve", 5e5, 9.0, 8.0, domain.RiskLevelHigh},
		{"elevated yield adds a point", 3e8, 25.0, 4.0, domain.RiskLevelLow},
		{"extreme yield adds two", 3e8, 60.0, 5.0, domain.RiskLevelMedium},
		{"tiny reserve with extreme yield clamps at ten", 5e5, 80.0, 10.0, domain.RiskLevelVeryHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assessment := scorer.Assess(domain.MarketPool{
				Protocol:     "Pool",
				Chain:        "Ethereum",
				YieldRate:    tt.apy,
				ReserveValue: tt.reserve,
			})

			require.NotNil(t, assessment)
			assert.InDelta(t, tt.wantScore, assessment.Score, 0.001)
			assert.Equal(t, tt.wantLevel, assessment.Level)
		})
	}
}

func TestAssess_UnassessablePool(t *testing.T) {
	scorer := NewScorer(zerolog.Nop())

	assert.Nil(t, scorer.Assess(domain.MarketPool{Protocol: "Pool", Chain: "Ethereum", YieldRate: 5.0}))
	assert.Nil(t, scorer.Assess(domain.MarketPool{Protocol: "Pool", Chain: "Ethereum", ReserveValue: -1}))
}
