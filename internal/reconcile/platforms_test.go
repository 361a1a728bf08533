package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropagateSpend(t *testing.T) {
	allocs := []PlatformAllocation{
		{Platform: "meta", Percentage: 60, MonthlySpend: 999}, // stale spend gets overwritten
		{Platform: "google", Percentage: 40},
	}
	out := PropagateSpend(allocs, 8000)

	require.Len(t, out, 2)
	assert.InDelta(t, 4800, out[0].MonthlySpend, 1e-9)
	assert.InDelta(t, 3200, out[1].MonthlySpend, 1e-9)
	// Input slice untouched.
	assert.InDelta(t, 999, allocs[0].MonthlySpend, 1e-9)
}

func TestPropagateSpendRoundsToCents(t *testing.T) {
	out := PropagateSpend([]PlatformAllocation{{Platform: "meta", Percentage: 33.333}}, 1000)
	assert.InDelta(t, 333.33, out[0].MonthlySpend, 1e-9)
}

func TestValidateSplit(t *testing.T) {
	ok := []PlatformAllocation{
		{Platform: "meta", Percentage: 60.2},
		{Platform: "google", Percentage: 39.9},
	}
	assert.NoError(t, ValidateSplit(ok)) // 100.1 is inside tolerance

	drifted := []PlatformAllocation{
		{Platform: "meta", Percentage: 70},
		{Platform: "google", Percentage: 40},
	}
	err := ValidateSplit(drifted)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "110.00")

	negative := []PlatformAllocation{{Platform: "meta", Percentage: -5}}
	require.Error(t, ValidateSplit(negative))

	assert.NoError(t, ValidateSplit(nil))
}

func TestRiskBands(t *testing.T) {
	assert.Equal(t, RiskLow, ClassifyRisk(5.9))
	assert.Equal(t, RiskMedium, ClassifyRisk(6))
	assert.Equal(t, RiskMedium, ClassifyRisk(11.9))
	assert.Equal(t, RiskHigh, ClassifyRisk(12))
	assert.Equal(t, RiskHigh, ClassifyRisk(19.9))
	assert.Equal(t, RiskCritical, ClassifyRisk(20))
	assert.Equal(t, RiskCritical, ClassifyRisk(25))
}

func TestScoreRisk(t *testing.T) {
	r := ScoreRisk("churn", 4, 5)
	assert.Equal(t, 20.0, r.Score)
	assert.Equal(t, RiskCritical, r.Classification)
	assert.Equal(t, "churn", r.Name)
}
