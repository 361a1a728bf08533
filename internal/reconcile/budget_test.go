package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecomputeCascade(t *testing.T) {
	in := BudgetInputs{
		MonthlyBudget:       10000,
		CPL:                 50,
		LeadToSQLRate:       20,
		SQLToCustomerRate:   25,
		OfferPrice:          5000,
		RetentionMultiplier: 1,
	}
	d := Recompute(in)

	assert.InDelta(t, 8000, d.EffectiveBudget, 1e-9)
	assert.InDelta(t, 160, d.Leads, 1e-9)
	assert.InDelta(t, 32, d.SQLs, 1e-9)
	assert.InDelta(t, 8, d.Customers, 1e-9)
	assert.InDelta(t, 1250, d.CAC, 1e-9)
	assert.InDelta(t, 5000, d.LTV, 1e-9)
	assert.InDelta(t, 4, d.LTVtoCAC, 1e-9)
}

func TestRecomputeCustomersFloor(t *testing.T) {
	// Tiny budget against a huge CPL yields a fractional customer count;
	// the floor keeps CAC finite.
	in := BudgetInputs{
		MonthlyBudget:       100,
		CPL:                 500,
		LeadToSQLRate:       10,
		SQLToCustomerRate:   10,
		OfferPrice:          1000,
		RetentionMultiplier: 2,
	}
	d := Recompute(in)

	assert.Equal(t, 1.0, d.Customers)
	assert.InDelta(t, 100, d.CAC, 1e-9)
	assert.InDelta(t, 2000, d.LTV, 1e-9)
}

func TestRecomputeZeroCPL(t *testing.T) {
	d := Recompute(BudgetInputs{MonthlyBudget: 10000})
	assert.Zero(t, d.Leads)
	assert.Equal(t, 1.0, d.Customers)
}

func TestRecomputeIdempotent(t *testing.T) {
	in := BudgetInputs{
		MonthlyBudget:       7500,
		CPL:                 35,
		LeadToSQLRate:       18,
		SQLToCustomerRate:   22,
		OfferPrice:          1200,
		RetentionMultiplier: 3,
	}
	first := Recompute(in)
	second := Recompute(in)
	assert.Equal(t, first, second)
}
