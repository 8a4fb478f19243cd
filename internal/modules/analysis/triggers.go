// Package analysis implements the rebalancing decision engine: trigger
// detection, alternative ranking, suggestion generation and impact estimation.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/yieldwatch/internal/domain"
)

// Severity points contributed per check. The aggregate score maps to the
// overall severity label: >= 6 high, >= 3 medium, else low.
const (
	severityScoreHigh   = 6
	severityScoreMedium = 3
)

// assumedBaselineRisk is the denominator used when converting the portfolio's
// average yield into a risk-adjusted-return baseline for the
// better-opportunities check.
const assumedBaselineRisk = 5.0

// opportunityImprovementPct is the minimum risk-adjusted improvement over the
// portfolio baseline for a pool to count as a better opportunity.
const opportunityImprovementPct = 30.0

// maxRecordedOpportunities caps how many opportunities a trigger carries.
const maxRecordedOpportunities = 3

// TriggerEvaluator inspects a portfolio against current market pools and
// produces the set of independently fired triggers plus an aggregate severity.
type TriggerEvaluator struct {
	log zerolog.Logger
}

// NewTriggerEvaluator creates a new trigger evaluator
func NewTriggerEvaluator(log zerolog.Logger) *TriggerEvaluator {
	return &TriggerEvaluator{
		log: log.With().Str("component", "triggers").Logger(),
	}
}

// Evaluate runs the four trigger checks against the portfolio. now is the
// reference timestamp for the time-interval check; passing it in keeps the
// evaluation a pure function of its inputs.
func (e *TriggerEvaluator) Evaluate(
	portfolio *domain.Portfolio,
	pools []domain.MarketPool,
	cfg domain.EngineConfig,
	now time.Time,
) domain.TriggerEvaluation {
	poolsByKey := indexPools(pools)

	var triggers []domain.Trigger
	score := 0

	if t := e.checkYieldChange(portfolio, poolsByKey, cfg); t != nil {
		triggers = append(triggers, *t)
		score += severityPoints(t.Severity)
	}
	if t := e.checkRiskChange(portfolio, poolsByKey, cfg); t != nil {
		triggers = append(triggers, *t)
		score += severityPoints(t.Severity)
	}
	if t := e.checkTimeInterval(portfolio, cfg, now); t != nil {
		triggers = append(triggers, *t)
		score += severityPoints(t.Severity)
	}
	if t := e.checkBetterOpportunities(portfolio, pools, poolsByKey); t != nil {
		triggers = append(triggers, *t)
		score += severityPoints(t.Severity)
	}

	eval := domain.TriggerEvaluation{
		ShouldRebalance: len(triggers) > 0,
		Severity:        mapSeverity(score),
		Score:           score,
		Triggers:        triggers,
	}

	e.log.Debug().
		Bool("should_rebalance", eval.ShouldRebalance).
		Int("score", score).
		Str("severity", string(eval.Severity)).
		Int("triggers", len(triggers)).
		Msg("Trigger evaluation complete")

	return eval
}

// checkYieldChange fires when any position's observed yield has drifted from
// its entry yield by more than the configured percentage. A matched market
// pool supplies the observed yield; unmatched positions fall back to their
// own recorded current yield.
func (e *TriggerEvaluator) checkYieldChange(
	portfolio *domain.Portfolio,
	poolsByKey map[string]domain.MarketPool,
	cfg domain.EngineConfig,
) *domain.Trigger {
	maxChange := 0.0
	worst := ""

	for _, pos := range portfolio.Positions {
		if pos.InitialYield == 0 {
			// Relative change is undefined at a zero entry yield.
			continue
		}
		current := pos.YieldNow()
		if pool, ok := poolsByKey[pos.Key()]; ok {
			current = pool.YieldRate
		}
		changePct := math.Abs(current-pos.InitialYield) / pos.InitialYield * 100
		if changePct > maxChange {
			maxChange = changePct
			worst = pos.Protocol
		}
	}

	if maxChange <= cfg.YieldChangeThresholdPct {
		return nil
	}

	severity := domain.SeverityMedium
	if maxChange > 25 {
		severity = domain.SeverityHigh
	}

	return &domain.Trigger{
		Type:     domain.TriggerAPYChange,
		Severity: severity,
		Reason: fmt.Sprintf("yield on %s moved %.1f%% from entry (threshold %.1f%%)",
			worst, maxChange, cfg.YieldChangeThresholdPct),
		Metrics: map[string]float64{
			"max_change_pct": maxChange,
			"threshold_pct":  cfg.YieldChangeThresholdPct,
		},
	}
}

// checkRiskChange fires when any matched position's current pool risk score
// has drifted from the score recorded at entry by more than the threshold.
func (e *TriggerEvaluator) checkRiskChange(
	portfolio *domain.Portfolio,
	poolsByKey map[string]domain.MarketPool,
	cfg domain.EngineConfig,
) *domain.Trigger {
	maxChange := 0.0
	worst := ""

	for _, pos := range portfolio.Positions {
		pool, ok := poolsByKey[pos.Key()]
		if !ok || pool.Risk == nil {
			continue
		}
		change := math.Abs(pool.Risk.Score - pos.InitialRiskScoreOrDefault())
		if change > maxChange {
			maxChange = change
			worst = pos.Protocol
		}
	}

	if maxChange <= cfg.RiskChangeThreshold {
		return nil
	}

	severity := domain.SeverityMedium
	if maxChange > 2.0 {
		severity = domain.SeverityHigh
	}

	return &domain.Trigger{
		Type:     domain.TriggerRiskChange,
		Severity: severity,
		Reason: fmt.Sprintf("risk score on %s moved %.1f points from entry (threshold %.1f)",
			worst, maxChange, cfg.RiskChangeThreshold),
		Metrics: map[string]float64{
			"max_change": maxChange,
			"threshold":  cfg.RiskChangeThreshold,
		},
	}
}

// checkTimeInterval fires once the configured number of days has elapsed
// since the last rebalance, or since the earliest position entry when the
// portfolio has never been rebalanced.
func (e *TriggerEvaluator) checkTimeInterval(
	portfolio *domain.Portfolio,
	cfg domain.EngineConfig,
	now time.Time,
) *domain.Trigger {
	var reference time.Time
	if portfolio.LastRebalanced != nil {
		reference = *portfolio.LastRebalanced
	} else {
		for _, pos := range portfolio.Positions {
			if reference.IsZero() || pos.EnteredAt.Before(reference) {
				reference = pos.EnteredAt
			}
		}
	}
	if reference.IsZero() {
		return nil
	}

	elapsedDays := now.Sub(reference).Hours() / 24
	if elapsedDays < float64(cfg.RebalanceIntervalDays) {
		return nil
	}

	return &domain.Trigger{
		Type:     domain.TriggerTimeInterval,
		Severity: domain.SeverityLow,
		Reason: fmt.Sprintf("%.0f days since last rebalance (interval %d days)",
			elapsedDays, cfg.RebalanceIntervalDays),
		Metrics: map[string]float64{
			"elapsed_days":  elapsedDays,
			"interval_days": float64(cfg.RebalanceIntervalDays),
		},
	}
}

// checkBetterOpportunities compares every pool the portfolio does not hold
// against the portfolio's risk-adjusted-return baseline. Pools beating the
// baseline by more than opportunityImprovementPct are recorded, capped to the
// top three by improvement.
func (e *TriggerEvaluator) checkBetterOpportunities(
	portfolio *domain.Portfolio,
	pools []domain.MarketPool,
	poolsByKey map[string]domain.MarketPool,
) *domain.Trigger {
	if len(portfolio.Positions) == 0 {
		return nil
	}

	// Value-unweighted average of each position's live yield; unmatched
	// positions contribute their entry yield.
	yieldSum := 0.0
	for _, pos := range portfolio.Positions {
		if pool, ok := poolsByKey[pos.Key()]; ok {
			yieldSum += pool.YieldRate
		} else {
			yieldSum += pos.InitialYield
		}
	}
	avgYield := yieldSum / float64(len(portfolio.Positions))
	baseline := avgYield / assumedBaselineRisk
	if baseline <= 0 {
		return nil
	}

	held := make(map[string]bool, len(portfolio.Positions))
	for _, pos := range portfolio.Positions {
		held[pos.Key()] = true
	}

	var opportunities []domain.Opportunity
	opportunityScore := 0.0

	for _, pool := range pools {
		if held[pool.Key()] || pool.Risk == nil || pool.Risk.Score <= 0 {
			continue
		}
		rar := pool.YieldRate / pool.Risk.Score
		improvementPct := (rar - baseline) / baseline * 100
		if improvementPct <= opportunityImprovementPct {
			continue
		}
		opportunities = append(opportunities, domain.Opportunity{
			Protocol:       pool.Protocol,
			Chain:          pool.Chain,
			Symbol:         pool.Symbol,
			YieldRate:      pool.YieldRate,
			RiskScore:      pool.Risk.Score,
			ImprovementPct: improvementPct,
		})
		opportunityScore += improvementPct / opportunityImprovementPct
	}

	if len(opportunities) == 0 {
		return nil
	}

	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].ImprovementPct > opportunities[j].ImprovementPct
	})
	if len(opportunities) > maxRecordedOpportunities {
		opportunities = opportunities[:maxRecordedOpportunities]
	}

	severity := domain.SeverityMedium
	if opportunityScore > 2 {
		severity = domain.SeverityHigh
	}

	return &domain.Trigger{
		Type:     domain.TriggerBetterOpportunities,
		Severity: severity,
		Reason: fmt.Sprintf("%d pool(s) beat the portfolio's risk-adjusted return by more than %.0f%%",
			len(opportunities), opportunityImprovementPct),
		Metrics: map[string]float64{
			"opportunity_score": opportunityScore,
			"baseline_rar":      baseline,
		},
		Opportunities: opportunities,
	}
}

// severityPoints converts a single trigger's severity into score points.
// The time-interval trigger is always low and contributes a single point;
// medium triggers contribute two points and high triggers three.
func severityPoints(s domain.Severity) int {
	switch s {
	case domain.SeverityHigh:
		return 3
	case domain.SeverityMedium:
		return 2
	default:
		return 1
	}
}

// mapSeverity converts the summed score into the aggregate severity label.
func mapSeverity(score int) domain.Severity {
	switch {
	case score >= severityScoreHigh:
		return domain.SeverityHigh
	case score >= severityScoreMedium:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

// indexPools builds the case-insensitive (protocol, chain) lookup map used to
// match positions to market pools. The first pool wins on duplicate keys.
func indexPools(pools []domain.MarketPool) map[string]domain.MarketPool {
	byKey := make(map[string]domain.MarketPool, len(pools))
	for _, pool := range pools {
		if _, exists := byKey[pool.Key()]; !exists {
			byKey[pool.Key()] = pool
		}
	}
	return byKey
}
