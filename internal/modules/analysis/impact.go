package analysis

import (
	"fmt"

	"github.com/aristath/yieldwatch/internal/domain"
)

// EstimateImpact projects aggregate annual return before and after applying
// the rebalance suggestions. The current figure uses each position's entry
// yield; each rebalance suggestion then swaps the source's live yield for the
// target's, scaled by the same position value.
func EstimateImpact(portfolio *domain.Portfolio, suggestions []domain.Suggestion) domain.ImpactEstimate {
	current := 0.0
	for _, pos := range portfolio.Positions {
		current += pos.Value * pos.InitialYield / 100
	}

	projected := current
	for _, s := range suggestions {
		if s.Action != domain.ActionRebalance || s.Rebalance == nil {
			continue
		}
		d := s.Rebalance
		projected += d.Value * (d.ToYield - d.FromYield) / 100
	}

	delta := projected - current
	deltaPct := 0.0
	if current != 0 {
		deltaPct = delta / current * 100
	}

	return domain.ImpactEstimate{
		CurrentAnnualReturn:   current,
		ProjectedAnnualReturn: projected,
		Delta:                 delta,
		DeltaPct:              deltaPct,
		TotalValue:            portfolio.TotalValue(),
	}
}

// FormattedImpact is the boundary rendering of an impact estimate.
type FormattedImpact struct {
	CurrentAnnualReturn   string `json:"current_annual_return"`
	ProjectedAnnualReturn string `json:"projected_annual_return"`
	Delta                 string `json:"delta"`
	DeltaPct              string `json:"delta_pct"`
	TotalValue            string `json:"total_value"`
}

// FormatImpact renders the raw estimate as currency/percentage strings.
func FormatImpact(e domain.ImpactEstimate) FormattedImpact {
	return FormattedImpact{
		CurrentAnnualReturn:   formatCurrency(e.CurrentAnnualReturn),
		ProjectedAnnualReturn: formatCurrency(e.ProjectedAnnualReturn),
		Delta:                 formatSignedCurrency(e.Delta),
		DeltaPct:              fmt.Sprintf("%+.2f%%", e.DeltaPct),
		TotalValue:            formatCurrency(e.TotalValue),
	}
}

func formatCurrency(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func formatSignedCurrency(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("+$%.2f", v)
}
