package reconcile

import (
	"fmt"
	"math"
)

// PlatformAllocation is one platform's share of the effective budget.
type PlatformAllocation struct {
	Platform     string  `json:"platform"`
	Percentage   float64 `json:"percentage"`
	MonthlySpend float64 `json:"monthlySpend"`
}

// sumTolerance is the rounding slack allowed on the percentage sum.
const sumTolerance = 0.5

// PropagateSpend recomputes every platform's monthly spend from its
// percentage of the effective budget. Triggered after generation and after
// any user edit to a percentage; it never edits percentages itself.
func PropagateSpend(allocs []PlatformAllocation, effectiveBudget float64) []PlatformAllocation {
	out := make([]PlatformAllocation, len(allocs))
	for i, a := range allocs {
		a.MonthlySpend = math.Round(effectiveBudget*a.Percentage) / 100
		out[i] = a
	}
	return out
}

// ValidateSplit checks that percentages sum to 100 within rounding
// tolerance. Larger drifts are flagged, not silently corrected; an edit
// that breaks the split belongs to the user, not the reconciler.
func ValidateSplit(allocs []PlatformAllocation) error {
	if len(allocs) == 0 {
		return nil
	}
	var sum float64
	for _, a := range allocs {
		if a.Percentage < 0 {
			return fmt.Errorf("platform %s has negative percentage %.2f", a.Platform, a.Percentage)
		}
		sum += a.Percentage
	}
	if math.Abs(sum-100) > sumTolerance {
		return fmt.Errorf("platform percentages sum to %.2f, expected 100 (±%.1f)", sum, sumTolerance)
	}
	return nil
}
