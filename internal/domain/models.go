// Package domain provides core domain models and types.
package domain

import (
	"strings"
	"time"
)

// RiskLevel is the qualitative tier of a risk assessment.
type RiskLevel string

const (
	RiskLevelVeryLow  RiskLevel = "very_low"
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelVeryHigh RiskLevel = "very_high"
)

// RiskTolerance is a portfolio's target risk appetite.
type RiskTolerance string

const (
	ToleranceLow    RiskTolerance = "low"
	ToleranceMedium RiskTolerance = "medium"
	ToleranceHigh   RiskTolerance = "high"
)

// Severity is the aggregate urgency of a trigger evaluation.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// TriggerType identifies which rebalancing signal fired.
type TriggerType string

const (
	TriggerAPYChange           TriggerType = "apy_change"
	TriggerRiskChange          TriggerType = "risk_change"
	TriggerTimeInterval        TriggerType = "time_interval"
	TriggerBetterOpportunities TriggerType = "better_opportunities"
)

// SuggestionAction identifies what a suggestion asks the user to do.
type SuggestionAction string

const (
	ActionRebalance SuggestionAction = "rebalance"
	ActionDiversify SuggestionAction = "diversify"
)

// Priority orders suggestions by urgency.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns a sortable weight for the priority (higher = more urgent).
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// DefaultRiskScore is assumed when a position recorded no risk score at entry.
const DefaultRiskScore = 5.0

// RiskAssessment describes a pool's risk as a numeric score and qualitative tier.
type RiskAssessment struct {
	Score float64   `json:"score"`
	Level RiskLevel `json:"level"`
}

// MarketPool is a read-only snapshot of one market pool for the duration of
// a single analysis call. Risk is attached by the risk scorer before the
// engine runs; a nil Risk excludes the pool from ranking.
type MarketPool struct {
	Protocol     string          `json:"protocol"`
	Chain        string          `json:"chain"`
	Symbol       string          `json:"symbol"`
	YieldRate    float64         `json:"yield_rate"`
	ReserveValue float64         `json:"reserve_value"`
	Risk         *RiskAssessment `json:"risk,omitempty"`
}

// Key returns the case-insensitive (protocol, chain) identity of the pool.
func (p MarketPool) Key() string {
	return PoolKey(p.Protocol, p.Chain)
}

// PoolKey normalizes a (protocol, chain) pair into a lookup key.
func PoolKey(protocol, chain string) string {
	return strings.ToLower(protocol) + "|" + strings.ToLower(chain)
}

// Position is one held stake in a specific protocol/chain/asset.
// CurrentYield and CurrentRiskScore are the latest observed values and may
// be absent; InitialRiskScore may be absent for old records. The fallback
// chains (current -> initial, risk -> DefaultRiskScore) are applied in one
// place, YieldNow and RiskNow, never at individual computation sites.
type Position struct {
	Protocol         string    `json:"protocol"`
	Chain            string    `json:"chain"`
	Symbol           string    `json:"symbol"`
	Value            float64   `json:"value"`
	InitialYield     float64   `json:"initial_yield"`
	CurrentYield     *float64  `json:"current_yield,omitempty"`
	InitialRiskScore *float64  `json:"initial_risk_score,omitempty"`
	CurrentRiskScore *float64  `json:"current_risk_score,omitempty"`
	EnteredAt        time.Time `json:"entered_at"`
}

// Key returns the case-insensitive (protocol, chain) identity of the position.
func (p Position) Key() string {
	return PoolKey(p.Protocol, p.Chain)
}

// YieldNow returns the latest observed yield, falling back to the entry yield.
func (p Position) YieldNow() float64 {
	if p.CurrentYield != nil {
		return *p.CurrentYield
	}
	return p.InitialYield
}

// RiskNow returns the latest risk score, falling back to the entry score and
// then to DefaultRiskScore.
func (p Position) RiskNow() float64 {
	if p.CurrentRiskScore != nil {
		return *p.CurrentRiskScore
	}
	return p.InitialRiskScoreOrDefault()
}

// InitialRiskScoreOrDefault returns the entry risk score or DefaultRiskScore.
func (p Position) InitialRiskScoreOrDefault() float64 {
	if p.InitialRiskScore != nil {
		return *p.InitialRiskScore
	}
	return DefaultRiskScore
}

// Portfolio is an ordered set of positions with a risk tolerance target.
// The engine never mutates a portfolio; simulation derives a copy.
type Portfolio struct {
	ID             string        `json:"id"`
	Positions      []Position    `json:"positions"`
	RiskTolerance  RiskTolerance `json:"risk_tolerance"`
	LastRebalanced *time.Time    `json:"last_rebalanced,omitempty"`
}

// TotalValue sums position values.
func (p Portfolio) TotalValue() float64 {
	total := 0.0
	for _, pos := range p.Positions {
		total += pos.Value
	}
	return total
}

// Clone returns a deep, independent copy of the portfolio.
func (p Portfolio) Clone() Portfolio {
	out := p
	out.Positions = make([]Position, len(p.Positions))
	for i, pos := range p.Positions {
		cp := pos
		if pos.CurrentYield != nil {
			v := *pos.CurrentYield
			cp.CurrentYield = &v
		}
		if pos.InitialRiskScore != nil {
			v := *pos.InitialRiskScore
			cp.InitialRiskScore = &v
		}
		if pos.CurrentRiskScore != nil {
			v := *pos.CurrentRiskScore
			cp.CurrentRiskScore = &v
		}
		out.Positions[i] = cp
	}
	if p.LastRebalanced != nil {
		t := *p.LastRebalanced
		out.LastRebalanced = &t
	}
	return out
}

// PortfolioMetrics are derived portfolio-level measures, recomputed on demand.
type PortfolioMetrics struct {
	TotalValue           float64 `json:"total_value"`
	WeightedYield        float64 `json:"weighted_yield"`
	AverageRisk          float64 `json:"average_risk"`
	DiversificationScore float64 `json:"diversification_score"`
}

// Opportunity is one market pool that beats the portfolio's risk-adjusted
// return baseline, recorded by the better-opportunities trigger check.
type Opportunity struct {
	Protocol       string  `json:"protocol"`
	Chain          string  `json:"chain"`
	Symbol         string  `json:"symbol"`
	YieldRate      float64 `json:"yield_rate"`
	RiskScore      float64 `json:"risk_score"`
	ImprovementPct float64 `json:"improvement_pct"`
}

// Trigger is one fired rebalancing signal. Produced fresh on every analysis.
type Trigger struct {
	Type          TriggerType        `json:"type"`
	Severity      Severity           `json:"severity"`
	Reason        string             `json:"reason"`
	Metrics       map[string]float64 `json:"metrics,omitempty"`
	Opportunities []Opportunity      `json:"opportunities,omitempty"`
}

// TriggerEvaluation is the aggregate outcome of all trigger checks.
type TriggerEvaluation struct {
	ShouldRebalance bool      `json:"should_rebalance"`
	Severity        Severity  `json:"severity"`
	Score           int       `json:"score"`
	Triggers        []Trigger `json:"triggers"`
}

// RebalanceDetail carries the source/target pair of a rebalance suggestion.
type RebalanceDetail struct {
	FromProtocol        string  `json:"from_protocol"`
	FromChain           string  `json:"from_chain"`
	FromYield           float64 `json:"from_yield"`
	FromRiskScore       float64 `json:"from_risk_score"`
	Value               float64 `json:"value"`
	ToProtocol          string  `json:"to_protocol"`
	ToChain             string  `json:"to_chain"`
	ToSymbol            string  `json:"to_symbol"`
	ToYield             float64 `json:"to_yield"`
	ToRiskScore         float64 `json:"to_risk_score"`
	ToReserveValue      float64 `json:"to_reserve_value"`
	YieldDelta          float64 `json:"yield_delta"`
	EstimatedAnnualGain float64 `json:"estimated_annual_gain"`
}

// DiversifyDetail carries the structural recommendation of a diversify
// suggestion; it references no specific instrument.
type DiversifyDetail struct {
	RecommendedSplit string  `json:"recommended_split"`
	LargestSharePct  float64 `json:"largest_share_pct,omitempty"`
}

// Suggestion is one actionable recommendation produced by an analysis.
type Suggestion struct {
	ID        string           `json:"id"`
	Action    SuggestionAction `json:"action"`
	Priority  Priority         `json:"priority"`
	Reason    string           `json:"reason"`
	Rebalance *RebalanceDetail `json:"rebalance,omitempty"`
	Diversify *DiversifyDetail `json:"diversify,omitempty"`
}

// ImpactEstimate projects aggregate annual return before and after a
// suggestion set. All fields are raw numbers; formatting happens at the
// HTTP boundary.
type ImpactEstimate struct {
	CurrentAnnualReturn   float64 `json:"current_annual_return"`
	ProjectedAnnualReturn float64 `json:"projected_annual_return"`
	Delta                 float64 `json:"delta"`
	DeltaPct              float64 `json:"delta_pct"`
	TotalValue            float64 `json:"total_value"`
}

// AnalysisResult is the full outcome of one analysis call.
type AnalysisResult struct {
	ID          string            `json:"id"`
	PortfolioID string            `json:"portfolio_id"`
	AnalyzedAt  time.Time         `json:"analyzed_at"`
	Evaluation  TriggerEvaluation `json:"evaluation"`
	Suggestions []Suggestion      `json:"suggestions"`
	Impact      *ImpactEstimate   `json:"impact,omitempty"`
}

// PlanAction moves one position (matched by source protocol/chain) into a
// target pool. Actions whose source is absent from the portfolio are skipped.
type PlanAction struct {
	FromProtocol string  `json:"from_protocol"`
	FromChain    string  `json:"from_chain"`
	ToProtocol   string  `json:"to_protocol"`
	ToChain      string  `json:"to_chain"`
	ToSymbol     string  `json:"to_symbol"`
	ToYield      float64 `json:"to_yield"`
	ToRiskScore  float64 `json:"to_risk_score"`
}

// ReallocationPlan is a hypothetical set of moves evaluated by the simulator.
type ReallocationPlan struct {
	Actions []PlanAction `json:"actions"`
}

// Recommendation is the simulator's binary verdict on a plan.
type Recommendation string

const (
	RecommendProceed Recommendation = "proceed"
	RecommendReview  Recommendation = "review carefully"
)

// MetricsDelta is the projected-minus-current difference per metric.
type MetricsDelta struct {
	TotalValue           float64 `json:"total_value"`
	WeightedYield        float64 `json:"weighted_yield"`
	AverageRisk          float64 `json:"average_risk"`
	DiversificationScore float64 `json:"diversification_score"`
}

// SimulationResult compares a portfolio before and after a reallocation plan.
type SimulationResult struct {
	PortfolioID    string           `json:"portfolio_id"`
	Current        PortfolioMetrics `json:"current"`
	Projected      PortfolioMetrics `json:"projected"`
	Delta          MetricsDelta     `json:"delta"`
	SkippedActions int              `json:"skipped_actions"`
	Recommendation Recommendation   `json:"recommendation"`
}
