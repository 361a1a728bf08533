package competitor

import "strings"

// PricingRelevance classifies how an extracted pricing tier relates to the
// offer being analyzed.
type PricingRelevance string

const (
	PricingCoreProduct      PricingRelevance = "core_product"
	PricingAddOn            PricingRelevance = "add_on"
	PricingDifferentProduct PricingRelevance = "different_product"
	PricingUnclear          PricingRelevance = "unclear"
)

// PricingTier is one extracted price point plus the signal strings the
// extractor attached to it.
type PricingTier struct {
	Name             string           `json:"name"`
	PriceUSD         float64          `json:"priceUsd"`
	Description      string           `json:"description,omitempty"`
	RelevanceSignals []string         `json:"relevanceSignals,omitempty"`
	Relevance        PricingRelevance `json:"relevance,omitempty"`
	RelevanceScore   float64          `json:"relevanceScore"`
}

// Signal vocabularies. Matching is case-insensitive substring containment
// over the tier name, description and attached signals.
var (
	coreSignals      = []string{"flagship", "main", "core", "primary", "standard", "pro", "growth", "most popular"}
	addOnSignals     = []string{"add-on", "addon", "extra", "upgrade", "module", "per seat", "per user", "usage"}
	differentSignals = []string{"legacy", "deprecated", "enterprise only", "unrelated", "separate product", "different product", "hardware"}
)

// ScorePricingRelevance assigns a numeric relevance score and a
// classification. Core signals push the score up, add-on signals keep it
// mid-band, different-product signals push it down; tiers with no signal at
// all stay unclear.
func ScorePricingRelevance(tier PricingTier) PricingTier {
	hay := strings.ToLower(tier.Name + " " + tier.Description + " " + strings.Join(tier.RelevanceSignals, " "))

	score := 0.0
	matched := false
	for _, s := range coreSignals {
		if strings.Contains(hay, s) {
			score += 3
			matched = true
		}
	}
	for _, s := range addOnSignals {
		if strings.Contains(hay, s) {
			score += 1
			matched = true
		}
	}
	for _, s := range differentSignals {
		if strings.Contains(hay, s) {
			score -= 3
			matched = true
		}
	}

	tier.RelevanceScore = score
	switch {
	case !matched:
		tier.Relevance = PricingUnclear
	case score >= 3:
		tier.Relevance = PricingCoreProduct
	case score >= 1:
		tier.Relevance = PricingAddOn
	case score < 0:
		tier.Relevance = PricingDifferentProduct
	default:
		tier.Relevance = PricingUnclear
	}
	return tier
}

// FilterRelevantPricing scores each tier and keeps only those at or above
// minScore. This keeps unrelated SKUs and legacy offers out of the budget
// math.
func FilterRelevantPricing(tiers []PricingTier, minScore float64) []PricingTier {
	out := make([]PricingTier, 0, len(tiers))
	for _, t := range tiers {
		scored := ScorePricingRelevance(t)
		if scored.RelevanceScore >= minScore {
			out = append(out, scored)
		}
	}
	return out
}
