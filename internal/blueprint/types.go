package blueprint

import (
	"time"

	"stratify/internal/competitor"
	"stratify/internal/generate"
	"stratify/internal/hooks"
	"stratify/internal/pipeline"
	"stratify/internal/reconcile"
)

// Blueprint is the strategic artifact assembled from the blueprint graph
// plus deterministic post-processing.
type Blueprint struct {
	ID           string                    `json:"id"`
	GeneratedAt  time.Time                 `json:"generatedAt"`
	Sections     map[string]map[string]any `json:"sections"`
	Budget       BudgetModel               `json:"budget"`
	Competitors  competitor.Tiers          `json:"competitorTiers"`
	PricingTiers []competitor.PricingTier  `json:"pricingTiers,omitempty"`
	Risks        []reconcile.RiskScore     `json:"risks,omitempty"`
	Sources      []generate.Citation       `json:"sources,omitempty"`
	TotalCostUSD float64                   `json:"totalCost"`
	Incomplete   map[string]string         `json:"incomplete,omitempty"`
}

// BudgetModel bundles the editable inputs with their derived cascade. The
// derived half is never stored independently of the inputs; every edit
// recomputes it in full.
type BudgetModel struct {
	Inputs  reconcile.BudgetInputs  `json:"inputs"`
	Derived reconcile.BudgetDerived `json:"derived"`
}

// MediaPlan is the execution artifact derived from a blueprint.
type MediaPlan struct {
	ID             string                         `json:"id"`
	GeneratedAt    time.Time                      `json:"generatedAt"`
	Sections       map[string]map[string]any      `json:"sections"`
	Platforms      []reconcile.PlatformAllocation `json:"platforms"`
	SplitWarning   string                         `json:"splitWarning,omitempty"`
	Hooks          []hooks.Hook                   `json:"hooks"`
	HookViolations []hooks.Violation              `json:"hookViolations,omitempty"`
	Budget         BudgetModel                    `json:"budget"`
	TotalCostUSD   float64                        `json:"totalCost"`
	Incomplete     map[string]string              `json:"incomplete,omitempty"`
}

func sectionsFromResults(results pipeline.Results) map[string]map[string]any {
	out := make(map[string]map[string]any, len(results))
	for id, r := range results {
		out[string(id)] = r.Data
	}
	return out
}

func incompleteMap(in map[pipeline.SectionID]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for id, reason := range in {
		out[string(id)] = reason
	}
	return out
}
