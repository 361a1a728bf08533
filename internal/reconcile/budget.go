package reconcile

// BudgetInputs are the hand-editable fields of the budget model. Every
// derived field is a pure function of these; editing a derived field
// independently of them is a correctness bug.
type BudgetInputs struct {
	MonthlyBudget       float64 `json:"monthlyBudget"`
	CPL                 float64 `json:"cpl"`
	LeadToSQLRate       float64 `json:"leadToSqlRate"`     // percent
	SQLToCustomerRate   float64 `json:"sqlToCustomerRate"` // percent
	OfferPrice          float64 `json:"offerPrice"`
	RetentionMultiplier float64 `json:"retentionMultiplier"`
}

// BudgetDerived holds the recomputed cascade.
type BudgetDerived struct {
	EffectiveBudget float64 `json:"effectiveBudget"`
	Leads           float64 `json:"leads"`
	SQLs            float64 `json:"sqls"`
	Customers       float64 `json:"customers"`
	CAC             float64 `json:"cac"`
	LTV             float64 `json:"ltv"`
	LTVtoCAC        float64 `json:"ltvToCac"`
}

// adSpendShare is the fraction of the monthly budget that reaches ad
// platforms after fees and creative production.
const adSpendShare = 0.80

// Recompute derives the full budget cascade from its inputs. Any input
// change must recompute everything; partial updates drift the numbers
// apart. Customers is floored at 1 so CAC never divides by zero; that is a
// deliberate edge-case policy.
func Recompute(in BudgetInputs) BudgetDerived {
	var d BudgetDerived
	d.EffectiveBudget = in.MonthlyBudget * adSpendShare
	if in.CPL > 0 {
		d.Leads = d.EffectiveBudget / in.CPL
	}
	d.SQLs = d.Leads * (in.LeadToSQLRate / 100)
	d.Customers = d.SQLs * (in.SQLToCustomerRate / 100)
	if d.Customers < 1 {
		d.Customers = 1
	}
	d.CAC = in.MonthlyBudget / d.Customers
	d.LTV = in.OfferPrice * in.RetentionMultiplier
	if d.CAC > 0 {
		d.LTVtoCAC = d.LTV / d.CAC
	}
	return d
}
