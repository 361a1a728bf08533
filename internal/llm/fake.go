package llm

import (
	"context"
	"encoding/json"

	llmclient "stratify/internal/llmclient"
)

// FakeClient returns deterministic, minimal JSON payloads per section for
// offline runs and tests. The section is read from the context tag.
type FakeClient struct {
	tokenCap int
}

func NewFakeClient(cap int) *FakeClient {
	if cap <= 0 {
		cap = 4096
	}
	return &FakeClient{tokenCap: cap}
}

func (f *FakeClient) Name() string             { return "FakeLLM" }
func (f *FakeClient) Close() error             { return nil }
func (f *FakeClient) CountTokens(t string) int { return llmclient.CountTokens(t) }
func (f *FakeClient) TokenCapacity() int       { return f.tokenCap }

func (f *FakeClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, llmclient.Usage, error) {
	section := SectionFrom(ctx)
	var obj any
	switch section {
	case "industryMarket":
		obj = map[string]any{
			"marketSummary": "fake market summary",
			"maturity":      "growth",
			"trends":        []string{"fake trend"},
			"notes":         []string{"fake industryMarket output"},
		}
	case "icpValidation":
		obj = map[string]any{
			"icpSummary":     "fake icp",
			"painPoints":     []string{"fake pain"},
			"buyingTriggers": []string{"fake trigger"},
			"objections":     []string{},
			"fitScore":       0.7,
		}
	case "offerAnalysis":
		obj = map[string]any{
			"valueProposition": "fake value proposition",
			"pricingTiers": []any{
				map[string]any{"name": "Pro", "priceUsd": 99.0, "description": "core plan", "relevanceSignals": []string{"flagship"}},
			},
			"differentiators": []string{"fake edge"},
			"risks":           []any{map[string]any{"name": "churn", "probability": 2.0, "impact": 3.0}},
		}
	case "competitors":
		obj = map[string]any{
			"competitors": []any{
				map[string]any{"name": "Acme", "tier": "full", "positioning": "incumbent", "strengths": []string{"brand"}, "weaknesses": []string{"price"}},
			},
		}
	case "crossAnalysis":
		obj = map[string]any{
			"strategicSummary": "fake cross analysis",
			"opportunities":    []string{"fake opportunity"},
			"risks":            []any{map[string]any{"name": "saturation", "probability": 2.0, "impact": 4.0}},
			"recommendedFocus": "fake focus",
		}
	case "platformMix":
		obj = map[string]any{
			"platforms": []any{
				map[string]any{"name": "meta", "percentage": 60.0, "rationale": "fake"},
				map[string]any{"name": "google", "percentage": 40.0, "rationale": "fake"},
			},
		}
	case "funnelStages":
		obj = map[string]any{
			"stages": []any{
				map[string]any{"name": "tofu", "objective": "awareness", "budgetShare": 50.0},
				map[string]any{"name": "bofu", "objective": "conversion", "budgetShare": 50.0},
			},
		}
	case "budgetSplit":
		obj = map[string]any{
			"monthlySpend": []any{
				map[string]any{"platform": "meta", "percentage": 60.0},
				map[string]any{"platform": "google", "percentage": 40.0},
			},
		}
	case "adAngles":
		obj = map[string]any{
			"hooks": []any{
				map[string]any{"angle": "pain_point", "headline": "fake pain hook", "description": "fake"},
				map[string]any{"angle": "social_proof", "headline": "fake proof hook", "description": "fake"},
			},
		}
	case "measurementPlan":
		obj = map[string]any{
			"kpis": []any{
				map[string]any{"name": "CAC", "target": "below 1250", "cadence": "weekly"},
			},
		}
	default:
		obj = map[string]any{"notes": []string{"fake output for " + section}}
	}
	raw, _ := json.Marshal(obj)
	usage := llmclient.Usage{PromptTokens: llmclient.CountTokens(prompt), OutputTokens: llmclient.CountTokens(string(raw))}
	return raw, usage, nil
}
