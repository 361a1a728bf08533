package blueprint

import (
	"encoding/json"
	"fmt"
	"time"

	"stratify/internal/competitor"
	"stratify/internal/hooks"
	"stratify/internal/onboarding"
	"stratify/internal/pipeline"
	"stratify/internal/reconcile"
)

// BudgetInputsFrom lifts the editable budget fields out of onboarding data,
// applying the model's defaults for rates the user never supplied.
func BudgetInputsFrom(d *onboarding.Data) reconcile.BudgetInputs {
	in := reconcile.BudgetInputs{
		MonthlyBudget:       d.Budget,
		CPL:                 d.CPL,
		LeadToSQLRate:       d.LeadToSQLRate,
		SQLToCustomerRate:   d.SQLToCustomerRate,
		OfferPrice:          d.OfferPrice,
		RetentionMultiplier: d.RetentionMultiplier,
	}
	if in.CPL <= 0 {
		in.CPL = 50
	}
	if in.LeadToSQLRate <= 0 {
		in.LeadToSQLRate = 20
	}
	if in.SQLToCustomerRate <= 0 {
		in.SQLToCustomerRate = 25
	}
	if in.RetentionMultiplier <= 0 {
		in.RetentionMultiplier = 1
	}
	return in
}

// AssembleBlueprint folds a pipeline outcome into the blueprint artifact
// and runs the deterministic post-processing: budget cascade, pricing
// relevance filtering, risk scoring. Runs strictly after the scheduler has
// merged every section result, never interleaved with in-flight writes.
func AssembleBlueprint(id string, out pipeline.Outcome, d *onboarding.Data) *Blueprint {
	bp := &Blueprint{
		ID:           id,
		GeneratedAt:  time.Now(),
		Sections:     sectionsFromResults(out.Results),
		TotalCostUSD: out.TotalCostUSD,
		Incomplete:   incompleteMap(out.Incomplete),
	}

	inputs := BudgetInputsFrom(d)
	bp.Budget = BudgetModel{Inputs: inputs, Derived: reconcile.Recompute(inputs)}

	if comp, ok := out.Results[SectionCompetitors]; ok {
		bp.Competitors = competitor.Tiers{
			FullTier:    stringSlice(comp.Data["fullTier"]),
			SummaryTier: stringSlice(comp.Data["summaryTier"]),
		}
	}

	if offer, ok := out.Results[SectionOfferAnalysis]; ok {
		var tiers []competitor.PricingTier
		if err := reencode(offer.Data["pricingTiers"], &tiers); err == nil {
			bp.PricingTiers = competitor.FilterRelevantPricing(tiers, 0)
		}
	}

	for _, sid := range []pipeline.SectionID{SectionOfferAnalysis, SectionCrossAnalysis} {
		res, ok := out.Results[sid]
		if !ok {
			continue
		}
		bp.Risks = append(bp.Risks, scoreRisks(res.Data["risks"])...)
	}

	for _, res := range out.Results {
		bp.Sources = append(bp.Sources, res.Sources...)
	}
	return bp
}

// ApplyBudgetEdit replaces the budget inputs and recomputes every derived
// field. Partial recomputation is a correctness bug; there is no path that
// updates a derived field alone.
func ApplyBudgetEdit(bp *Blueprint, in reconcile.BudgetInputs) {
	bp.Budget = BudgetModel{Inputs: in, Derived: reconcile.Recompute(in)}
}

// AssembleMediaPlan folds the media plan outcome into the artifact and
// reconciles its numbers against the blueprint's budget model.
func AssembleMediaPlan(id string, out pipeline.Outcome, bp *Blueprint, d *onboarding.Data) *MediaPlan {
	mp := &MediaPlan{
		ID:           id,
		GeneratedAt:  time.Now(),
		Sections:     sectionsFromResults(out.Results),
		TotalCostUSD: out.TotalCostUSD,
		Incomplete:   incompleteMap(out.Incomplete),
	}
	if bp != nil {
		mp.Budget = bp.Budget
	} else {
		inputs := BudgetInputsFrom(d)
		mp.Budget = BudgetModel{Inputs: inputs, Derived: reconcile.Recompute(inputs)}
	}

	if split, ok := out.Results[SectionBudgetSplit]; ok {
		var allocs []reconcile.PlatformAllocation
		if err := reencode(split.Data["monthlySpend"], &allocs); err == nil {
			mp.Platforms = reconcile.PropagateSpend(allocs, mp.Budget.Derived.EffectiveBudget)
			if verr := reconcile.ValidateSplit(mp.Platforms); verr != nil {
				// Drift is flagged, never silently corrected.
				mp.SplitWarning = verr.Error()
			}
		}
	}

	if angles, ok := out.Results[SectionAdAngles]; ok {
		var set []hooks.Hook
		if err := reencode(angles.Data["hooks"], &set); err == nil {
			tier := hookTierFor(out)
			mp.Hooks, mp.HookViolations = hooks.RemediateHooks(set, tier)
		}
	}
	return mp
}

// ApplyPlatformEdit propagates a user's percentage edit into per-platform
// spend and re-validates the split against the current budget model.
func ApplyPlatformEdit(mp *MediaPlan, allocs []reconcile.PlatformAllocation) {
	mp.Platforms = reconcile.PropagateSpend(allocs, mp.Budget.Derived.EffectiveBudget)
	mp.SplitWarning = ""
	if err := reconcile.ValidateSplit(mp.Platforms); err != nil {
		mp.SplitWarning = err.Error()
	}
}

// hookTierFor sizes the hook quota tier by how many funnel stages the plan
// generated.
func hookTierFor(out pipeline.Outcome) hooks.Tier {
	res, ok := out.Results[SectionFunnelStages]
	if !ok {
		return hooks.TierStandard
	}
	stages, _ := res.Data["stages"].([]any)
	switch {
	case len(stages) <= 1:
		return hooks.TierLean
	case len(stages) >= 4:
		return hooks.TierBroad
	default:
		return hooks.TierStandard
	}
}

func scoreRisks(v any) []reconcile.RiskScore {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]reconcile.RiskScore, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		prob, _ := m["probability"].(float64)
		impact, _ := m["impact"].(float64)
		if name == "" {
			continue
		}
		out = append(out, reconcile.ScoreRisk(name, prob, impact))
	}
	return out
}

func stringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// reencode round-trips a decoded JSON value into a typed destination.
func reencode(v any, dst any) error {
	if v == nil {
		return fmt.Errorf("nil value")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
