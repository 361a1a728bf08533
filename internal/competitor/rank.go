package competitor

import "strings"

// DefaultFullTierLimit is how many competitors get full-detail research by
// default. Full-tier treatment costs extra generation and enrichment calls,
// so the limit decides where that budget goes.
const DefaultFullTierLimit = 8

// EmphasisContext carries the free-text fields that can boost a competitor
// into the full tier regardless of list position. Substring containment is
// a best-effort signal by design; false positives are acceptable.
type EmphasisContext struct {
	CompetitorFrustrations string
	UniqueEdge             string
}

// Tiers partitions the input names: every name lands in exactly one tier.
type Tiers struct {
	FullTier    []string `json:"fullTier"`
	SummaryTier []string `json:"summaryTier"`
}

// RankCompetitorsByEmphasis splits names into a full-detail tier and a
// summary tier. List position is the primary emphasis signal (earlier =
// higher); a name mentioned in the user's frustrations or unique-edge text
// is boosted into the full tier regardless of position. When everything
// fits under the limit, everything is full tier.
func RankCompetitorsByEmphasis(names []string, ectx EmphasisContext, fullTierLimit int) Tiers {
	if fullTierLimit <= 0 {
		fullTierLimit = DefaultFullTierLimit
	}
	if len(names) <= fullTierLimit {
		return Tiers{FullTier: append([]string(nil), names...), SummaryTier: []string{}}
	}

	boosted := make(map[string]bool, len(names))
	for _, n := range names {
		if mentioned(n, ectx.CompetitorFrustrations) || mentioned(n, ectx.UniqueEdge) {
			boosted[n] = true
		}
	}

	full := make([]string, 0, fullTierLimit)
	summary := make([]string, 0, len(names)-fullTierLimit)

	// Boosted names claim their slots first, in list order.
	for _, n := range names {
		if boosted[n] && len(full) < fullTierLimit {
			full = append(full, n)
		}
	}
	// Remaining slots fill by position.
	for _, n := range names {
		if boosted[n] && contains(full, n) {
			continue
		}
		if len(full) < fullTierLimit {
			full = append(full, n)
		} else {
			summary = append(summary, n)
		}
	}
	return Tiers{FullTier: full, SummaryTier: summary}
}

func mentioned(name, freeText string) bool {
	if name == "" || freeText == "" {
		return false
	}
	// Strip a parenthetical qualifier before matching: users write
	// "bizible keeps beating us", not "Bizible (Marketo)".
	base := name
	if i := strings.Index(base, "("); i > 0 {
		base = strings.TrimSpace(base[:i])
	}
	return strings.Contains(strings.ToLower(freeText), strings.ToLower(base))
}

func contains(list []string, name string) bool {
	for _, n := range list {
		if n == name {
			return true
		}
	}
	return false
}
