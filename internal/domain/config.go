package domain

// EngineConfig holds the decision-engine thresholds. It is an immutable value
// passed into every engine entry point; callers may override individual
// thresholds per call without affecting any other analysis.
type EngineConfig struct {
	// YieldChangeThresholdPct fires the apy_change trigger when any position's
	// yield has moved by more than this percentage of its entry yield.
	YieldChangeThresholdPct float64

	// RiskChangeThreshold fires the risk_change trigger when any matched
	// position's risk score has moved by more than this absolute amount.
	RiskChangeThreshold float64

	// RebalanceIntervalDays fires the time_interval trigger once this many
	// days have elapsed since the last rebalance (or the earliest entry).
	RebalanceIntervalDays int

	// MinRebalanceAmount suppresses rebalance suggestions for positions worth
	// less than this amount in the reference currency.
	MinRebalanceAmount float64

	// SignificantChangePct is reserved. No check consumes it today; it is kept
	// so stored configurations carrying it keep round-tripping.
	SignificantChangePct float64
}

// DefaultEngineConfig returns the stock thresholds.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		YieldChangeThresholdPct: 15.0,
		RiskChangeThreshold:     1.5,
		RebalanceIntervalDays:   30,
		MinRebalanceAmount:      100.0,
		SignificantChangePct:    10.0,
	}
}
