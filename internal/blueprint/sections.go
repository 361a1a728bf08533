package blueprint

import (
	"context"
	"fmt"
	"log/slog"

	"stratify/internal/competitor"
	"stratify/internal/generate"
	"stratify/internal/llm"
	"stratify/internal/onboarding"
	"stratify/internal/pipeline"
)

// Section IDs for the blueprint graph.
const (
	SectionIndustryMarket pipeline.SectionID = "industryMarket"
	SectionICPValidation  pipeline.SectionID = "icpValidation"
	SectionOfferAnalysis  pipeline.SectionID = "offerAnalysis"
	SectionCompetitors    pipeline.SectionID = "competitors"
	SectionCrossAnalysis  pipeline.SectionID = "crossAnalysis"
)

// Generator builds section task graphs whose handlers call the generation
// adapter. The scheduler never branches on section identity; everything a
// section is lives in its spec here.
type Generator struct {
	adapter *generate.Adapter
	broker  llm.PermitBroker
	log     *slog.Logger
}

func NewGenerator(adapter *generate.Adapter, broker llm.PermitBroker, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{adapter: adapter, broker: broker, log: logger}
}

// Provider names the generation backend behind this generator.
func (g *Generator) Provider() string { return g.adapter.Provider() }

func dataOf(rc pipeline.ContextReader) *onboarding.Data {
	if d, ok := rc.(*onboarding.Data); ok {
		return d
	}
	return &onboarding.Data{}
}

func toSectionResult(res generate.Result) pipeline.SectionResult {
	return pipeline.SectionResult{
		Data:    res.Data,
		Sources: res.Sources,
		CostUSD: res.CostUSD,
		Usage:   res.Usage,
	}
}

// BlueprintGraph declares the fixed strategic-blueprint pipeline:
// industryMarket fans out into icpValidation, offerAnalysis and
// competitors, and crossAnalysis synthesizes all four.
func (g *Generator) BlueprintGraph() *pipeline.Graph {
	return pipeline.MustGraph(
		pipeline.SectionSpec{
			ID:                    SectionIndustryMarket,
			Label:                 "Industry & market analysis",
			Phase:                 "research",
			RequiredContextFields: []string{"industry", "audience"},
			Run:                   g.runIndustryMarket,
		},
		pipeline.SectionSpec{
			ID:                    SectionICPValidation,
			Label:                 "ICP validation",
			Phase:                 "research",
			DependsOn:             []pipeline.SectionID{SectionIndustryMarket},
			RequiredContextFields: []string{"icp"},
			Run:                   g.runICPValidation,
		},
		pipeline.SectionSpec{
			ID:                    SectionOfferAnalysis,
			Label:                 "Offer analysis",
			Phase:                 "research",
			DependsOn:             []pipeline.SectionID{SectionIndustryMarket},
			RequiredContextFields: []string{"offerDescription"},
			Run:                   g.runOfferAnalysis,
		},
		pipeline.SectionSpec{
			ID:                    SectionCompetitors,
			Label:                 "Competitor research",
			Phase:                 "research",
			DependsOn:             []pipeline.SectionID{SectionIndustryMarket},
			RequiredContextFields: []string{"competitors"},
			Run:                   g.runCompetitors,
		},
		pipeline.SectionSpec{
			ID:        SectionCrossAnalysis,
			Label:     "Cross analysis",
			Phase:     "synthesis",
			DependsOn: []pipeline.SectionID{SectionIndustryMarket, SectionICPValidation, SectionOfferAnalysis, SectionCompetitors},
			Run:       g.runCrossAnalysis,
		},
	)
}

func (g *Generator) runIndustryMarket(ctx context.Context, rc pipeline.ContextReader, _ pipeline.Results) (pipeline.SectionResult, error) {
	d := dataOf(rc)
	input := map[string]any{
		"industry":        d.Industry,
		"audience":        d.Audience,
		"icp":             d.ICP,
		"documentContext": d.DocumentContext,
	}
	schema := generate.Schema{Name: "industryMarket", Required: []string{"marketSummary", "trends"}}
	res, err := g.adapter.Generate(ctx, string(SectionIndustryMarket), promptIndustryMarket, schema, input, generate.Options{})
	if err != nil {
		return pipeline.SectionResult{}, err
	}
	return toSectionResult(res), nil
}

func (g *Generator) runICPValidation(ctx context.Context, rc pipeline.ContextReader, deps pipeline.Results) (pipeline.SectionResult, error) {
	d := dataOf(rc)
	input := map[string]any{
		"icp":            d.ICP,
		"audience":       d.Audience,
		"offer":          d.OfferDescription,
		"industryMarket": deps[SectionIndustryMarket].Data,
	}
	schema := generate.Schema{Name: "icpValidation", Required: []string{"icpSummary", "painPoints"}}
	res, err := g.adapter.Generate(ctx, string(SectionICPValidation), promptICPValidation, schema, input, generate.Options{})
	if err != nil {
		return pipeline.SectionResult{}, err
	}
	return toSectionResult(res), nil
}

func (g *Generator) runOfferAnalysis(ctx context.Context, rc pipeline.ContextReader, deps pipeline.Results) (pipeline.SectionResult, error) {
	d := dataOf(rc)
	input := map[string]any{
		"offer":          d.OfferDescription,
		"offerPrice":     d.OfferPrice,
		"uniqueEdge":     d.UniqueEdge,
		"industryMarket": deps[SectionIndustryMarket].Data,
	}
	schema := generate.Schema{
		Name:     "offerAnalysis",
		Required: []string{"valueProposition", "pricingTiers"},
	}
	res, err := g.adapter.Generate(ctx, string(SectionOfferAnalysis), promptOfferAnalysis, schema, input, generate.Options{})
	if err != nil {
		return pipeline.SectionResult{}, err
	}
	return toSectionResult(res), nil
}

// runCompetitors is the expensive section: one overview call covering every
// parsed competitor, then a detail call per full-tier competitor. The
// detail budget is reserved up-front through the permit broker so the
// section never stalls half-enriched behind the shared rate limiter.
func (g *Generator) runCompetitors(ctx context.Context, rc pipeline.ContextReader, _ pipeline.Results) (pipeline.SectionResult, error) {
	d := dataOf(rc)
	names := competitor.ParseCompetitorNames(d.Competitors)
	if len(names) == 0 {
		return pipeline.SectionResult{}, generate.NewError(generate.CodeInvalidInput, string(SectionCompetitors),
			fmt.Errorf("no competitor names could be parsed"))
	}
	tiers := competitor.RankCompetitorsByEmphasis(names, competitor.EmphasisContext{
		CompetitorFrustrations: d.CompetitorFrustrations,
		UniqueEdge:             d.UniqueEdge,
	}, competitor.DefaultFullTierLimit)

	tierOf := make(map[string]string, len(names))
	for _, n := range tiers.FullTier {
		tierOf[n] = "full"
	}
	for _, n := range tiers.SummaryTier {
		tierOf[n] = "summary"
	}
	listed := make([]map[string]string, 0, len(names))
	for _, n := range names {
		listed = append(listed, map[string]string{"name": n, "tier": tierOf[n]})
	}

	input := map[string]any{
		"competitors":  listed,
		"offer":        d.OfferDescription,
		"frustrations": d.CompetitorFrustrations,
		"uniqueEdge":   d.UniqueEdge,
	}
	schema := generate.Schema{Name: "competitors", Required: []string{"competitors"}}
	res, err := g.adapter.Generate(ctx, string(SectionCompetitors), promptCompetitorOverview, schema, input, generate.Options{})
	if err != nil {
		return pipeline.SectionResult{}, err
	}
	out := toSectionResult(res)
	out.Data["fullTier"] = tiers.FullTier
	out.Data["summaryTier"] = tiers.SummaryTier

	if len(tiers.FullTier) > 0 && g.broker != nil {
		lease, rerr := g.broker.Reserve(ctx, len(tiers.FullTier))
		if rerr != nil {
			return pipeline.SectionResult{}, generate.NewError(generate.CodeRateLimited, string(SectionCompetitors), rerr)
		}
		detailCtx := lease.Context(ctx)
		details := make([]map[string]any, 0, len(tiers.FullTier))
		detailSchema := generate.Schema{Name: "competitorDetail", Required: []string{"name"}}
		for _, name := range tiers.FullTier {
			din := map[string]any{"competitor": name, "offer": d.OfferDescription, "uniqueEdge": d.UniqueEdge}
			dres, derr := g.adapter.Generate(detailCtx, string(SectionCompetitors), promptCompetitorDetail, detailSchema, din, generate.Options{})
			if derr != nil {
				// Enrichment is best-effort: the overview already covers this
				// competitor, so a failed detail call downgrades rather than
				// failing the section.
				g.log.Warn("competitor detail failed", "competitor", name, "err", derr)
				continue
			}
			details = append(details, dres.Data)
			out.CostUSD += dres.CostUSD
			out.Usage.PromptTokens += dres.Usage.PromptTokens
			out.Usage.OutputTokens += dres.Usage.OutputTokens
			out.Sources = append(out.Sources, dres.Sources...)
		}
		if len(details) > 0 {
			out.Data["details"] = details
		}
	}
	return out, nil
}

func (g *Generator) runCrossAnalysis(ctx context.Context, rc pipeline.ContextReader, deps pipeline.Results) (pipeline.SectionResult, error) {
	d := dataOf(rc)
	input := map[string]any{
		"offer":          d.OfferDescription,
		"industryMarket": deps[SectionIndustryMarket].Data,
		"icpValidation":  deps[SectionICPValidation].Data,
		"offerAnalysis":  deps[SectionOfferAnalysis].Data,
		"competitors":    deps[SectionCompetitors].Data,
	}
	schema := generate.Schema{Name: "crossAnalysis", Required: []string{"strategicSummary", "recommendedFocus"}}
	res, err := g.adapter.Generate(ctx, string(SectionCrossAnalysis), promptCrossAnalysis, schema, input, generate.Options{})
	if err != nil {
		return pipeline.SectionResult{}, err
	}
	return toSectionResult(res), nil
}
