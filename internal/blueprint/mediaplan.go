package blueprint

import (
	"context"
	"fmt"

	"stratify/internal/generate"
	"stratify/internal/hooks"
	"stratify/internal/pipeline"
)

// Section IDs for the media plan graph.
const (
	SectionPlatformMix     pipeline.SectionID = "platformMix"
	SectionFunnelStages    pipeline.SectionID = "funnelStages"
	SectionBudgetSplit     pipeline.SectionID = "budgetSplit"
	SectionAdAngles        pipeline.SectionID = "adAngles"
	SectionMeasurementPlan pipeline.SectionID = "measurementPlan"
)

// MediaPlanGraph declares the media plan pipeline, derived from a completed
// blueprint. platformMix and funnelStages start together; budgetSplit
// follows the mix, adAngles follow the funnel, and measurementPlan closes
// over both.
func (g *Generator) MediaPlanGraph(bp *Blueprint) *pipeline.Graph {
	return pipeline.MustGraph(
		pipeline.SectionSpec{
			ID:                    SectionPlatformMix,
			Label:                 "Platform mix",
			Phase:                 "planning",
			RequiredContextFields: []string{"budget"},
			Run:                   g.runPlatformMix(bp),
		},
		pipeline.SectionSpec{
			ID:    SectionFunnelStages,
			Label: "Funnel stages",
			Phase: "planning",
			Run:   g.runFunnelStages(bp),
		},
		pipeline.SectionSpec{
			ID:                    SectionBudgetSplit,
			Label:                 "Budget split",
			Phase:                 "planning",
			DependsOn:             []pipeline.SectionID{SectionPlatformMix},
			RequiredContextFields: []string{"budget"},
			Run:                   g.runBudgetSplit(bp),
		},
		pipeline.SectionSpec{
			ID:        SectionAdAngles,
			Label:     "Ad angles",
			Phase:     "creative",
			DependsOn: []pipeline.SectionID{SectionFunnelStages},
			Run:       g.runAdAngles(bp),
		},
		pipeline.SectionSpec{
			ID:        SectionMeasurementPlan,
			Label:     "Measurement plan",
			Phase:     "planning",
			DependsOn: []pipeline.SectionID{SectionBudgetSplit, SectionAdAngles},
			Run:       g.runMeasurementPlan(bp),
		},
	)
}

// blueprintDigest is the compact blueprint view passed into media plan
// prompts; full sections would blow the token budget for no gain.
func blueprintDigest(bp *Blueprint) map[string]any {
	if bp == nil {
		return nil
	}
	digest := map[string]any{
		"budget": bp.Budget,
	}
	if cross, ok := bp.Sections[string(SectionCrossAnalysis)]; ok {
		digest["strategy"] = cross
	}
	if icp, ok := bp.Sections[string(SectionICPValidation)]; ok {
		digest["icp"] = icp
	}
	digest["competitorsFullTier"] = bp.Competitors.FullTier
	return digest
}

func (g *Generator) runPlatformMix(bp *Blueprint) pipeline.HandlerFn {
	return func(ctx context.Context, rc pipeline.ContextReader, _ pipeline.Results) (pipeline.SectionResult, error) {
		d := dataOf(rc)
		input := map[string]any{
			"blueprint":        blueprintDigest(bp),
			"monthlyBudget":    d.Budget,
			"salesCycleLength": d.SalesCycleLength,
			"audience":         d.Audience,
		}
		schema := generate.Schema{Name: "platformMix", Required: []string{"platforms"}}
		res, err := g.adapter.Generate(ctx, string(SectionPlatformMix), promptPlatformMix, schema, input, generate.Options{})
		if err != nil {
			return pipeline.SectionResult{}, err
		}
		return toSectionResult(res), nil
	}
}

func (g *Generator) runFunnelStages(bp *Blueprint) pipeline.HandlerFn {
	return func(ctx context.Context, rc pipeline.ContextReader, _ pipeline.Results) (pipeline.SectionResult, error) {
		d := dataOf(rc)
		input := map[string]any{
			"blueprint":        blueprintDigest(bp),
			"salesCycleLength": d.SalesCycleLength,
			"offer":            d.OfferDescription,
		}
		schema := generate.Schema{Name: "funnelStages", Required: []string{"stages"}}
		res, err := g.adapter.Generate(ctx, string(SectionFunnelStages), promptFunnelStages, schema, input, generate.Options{})
		if err != nil {
			return pipeline.SectionResult{}, err
		}
		return toSectionResult(res), nil
	}
}

func (g *Generator) runBudgetSplit(bp *Blueprint) pipeline.HandlerFn {
	return func(ctx context.Context, rc pipeline.ContextReader, deps pipeline.Results) (pipeline.SectionResult, error) {
		d := dataOf(rc)
		input := map[string]any{
			"platformMix":   deps[SectionPlatformMix].Data,
			"monthlyBudget": d.Budget,
		}
		schema := generate.Schema{
			Name:     "budgetSplit",
			Required: []string{"monthlySpend"},
			Check:    checkSpendEntries,
		}
		res, err := g.adapter.Generate(ctx, string(SectionBudgetSplit), promptBudgetSplit, schema, input, generate.Options{})
		if err != nil {
			return pipeline.SectionResult{}, err
		}
		return toSectionResult(res), nil
	}
}

func checkSpendEntries(obj map[string]any) error {
	entries, ok := obj["monthlySpend"].([]any)
	if !ok {
		return fmt.Errorf("monthlySpend must be an array")
	}
	for i, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			return fmt.Errorf("monthlySpend[%d] must be an object", i)
		}
		if _, ok := m["platform"].(string); !ok {
			return fmt.Errorf("monthlySpend[%d] missing platform", i)
		}
		if _, ok := m["percentage"].(float64); !ok {
			return fmt.Errorf("monthlySpend[%d] missing percentage", i)
		}
	}
	return nil
}

func (g *Generator) runAdAngles(bp *Blueprint) pipeline.HandlerFn {
	return func(ctx context.Context, rc pipeline.ContextReader, deps pipeline.Results) (pipeline.SectionResult, error) {
		d := dataOf(rc)
		input := map[string]any{
			"funnelStages": deps[SectionFunnelStages].Data,
			"icp":          d.ICP,
			"uniqueEdge":   d.UniqueEdge,
			"angles":       hooks.Angles,
		}
		schema := generate.Schema{Name: "adAngles", Required: []string{"hooks"}}
		res, err := g.adapter.Generate(ctx, string(SectionAdAngles), promptAdAngles, schema, input, generate.Options{})
		if err != nil {
			return pipeline.SectionResult{}, err
		}
		return toSectionResult(res), nil
	}
}

func (g *Generator) runMeasurementPlan(bp *Blueprint) pipeline.HandlerFn {
	return func(ctx context.Context, rc pipeline.ContextReader, deps pipeline.Results) (pipeline.SectionResult, error) {
		input := map[string]any{
			"budgetSplit": deps[SectionBudgetSplit].Data,
			"adAngles":    deps[SectionAdAngles].Data,
			"budget":      blueprintDigest(bp)["budget"],
		}
		schema := generate.Schema{Name: "measurementPlan", Required: []string{"kpis"}}
		res, err := g.adapter.Generate(ctx, string(SectionMeasurementPlan), promptMeasurementPlan, schema, input, generate.Options{})
		if err != nil {
			return pipeline.SectionResult{}, err
		}
		return toSectionResult(res), nil
	}
}
