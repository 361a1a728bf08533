package hooks

import (
	"sort"
	"strings"
)

// Angle tags the creative approach of an ad variant.
type Angle string

const (
	AnglePainPoint      Angle = "pain_point"
	AngleSocialProof    Angle = "social_proof"
	AngleAuthority      Angle = "authority"
	AngleCuriosity      Angle = "curiosity"
	AngleUrgency        Angle = "urgency"
	AngleTransformation Angle = "transformation"
)

// Angles lists the known creative angles in display order.
var Angles = []Angle{
	AnglePainPoint,
	AngleSocialProof,
	AngleAuthority,
	AngleCuriosity,
	AngleUrgency,
	AngleTransformation,
}

// Hook is one angle-tagged ad variant.
type Hook struct {
	Angle       Angle  `json:"angle"`
	Headline    string `json:"headline"`
	Description string `json:"description,omitempty"`
}

// Quota is the allowed per-angle count band for a distribution tier.
type Quota struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Tier sizes the hook set to the campaign's breadth (how many funnel
// stages / audience segments the plan addresses).
type Tier string

const (
	TierLean     Tier = "lean"     // single-segment test campaign
	TierStandard Tier = "standard" // typical multi-stage plan
	TierBroad    Tier = "broad"    // many segments, wide funnel
)

// GetHookQuotas derives the min/max band per angle for a tier.
func GetHookQuotas(tier Tier) map[Angle]Quota {
	var q Quota
	switch tier {
	case TierLean:
		q = Quota{Min: 0, Max: 2}
	case TierBroad:
		q = Quota{Min: 2, Max: 5}
	default:
		q = Quota{Min: 1, Max: 3}
	}
	quotas := make(map[Angle]Quota, len(Angles))
	for _, a := range Angles {
		quotas[a] = q
	}
	return quotas
}

// ComputeAdDistribution counts hooks per angle. Unknown angles are counted
// under their own tag so validation can flag them.
func ComputeAdDistribution(set []Hook) map[Angle]int {
	dist := make(map[Angle]int)
	for _, h := range set {
		dist[h.Angle]++
	}
	return dist
}

// Violation reports one angle outside its quota band.
type Violation struct {
	Angle  Angle  `json:"angle"`
	Count  int    `json:"count"`
	Min    int    `json:"min"`
	Max    int    `json:"max"`
	Reason string `json:"reason"`
}

// ValidateHookDiversity reports every angle whose count falls outside its
// quota for the tier. It reports; it never drops or edits content.
func ValidateHookDiversity(set []Hook, tier Tier) []Violation {
	quotas := GetHookQuotas(tier)
	dist := ComputeAdDistribution(set)
	var out []Violation
	for _, a := range Angles {
		q := quotas[a]
		n := dist[a]
		switch {
		case n < q.Min:
			out = append(out, Violation{Angle: a, Count: n, Min: q.Min, Max: q.Max, Reason: "below minimum"})
		case n > q.Max:
			out = append(out, Violation{Angle: a, Count: n, Min: q.Min, Max: q.Max, Reason: "above maximum"})
		}
	}
	// Sorted so violation reports are stable across runs.
	var unknown []string
	for a := range dist {
		if _, known := quotas[a]; !known {
			unknown = append(unknown, string(a))
		}
	}
	sort.Strings(unknown)
	for _, a := range unknown {
		out = append(out, Violation{Angle: Angle(a), Count: dist[Angle(a)], Reason: "unknown angle"})
	}
	return out
}

// RemediateHooks best-effort adjusts the set to satisfy quotas: exact
// duplicates are removed, excess above an angle's maximum is trimmed
// (keeping the earliest variants). Anything it cannot fix, such as an angle
// below minimum or an unknown angle, comes back as an unresolved violation.
// Remediation never fabricates creative content.
func RemediateHooks(set []Hook, tier Tier) ([]Hook, []Violation) {
	quotas := GetHookQuotas(tier)

	// Duplicate removal first: a repeated headline adds count, not diversity.
	seen := make(map[string]bool, len(set))
	deduped := make([]Hook, 0, len(set))
	for _, h := range set {
		key := string(h.Angle) + "\x00" + strings.ToLower(strings.TrimSpace(h.Headline))
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, h)
	}

	kept := make([]Hook, 0, len(deduped))
	counts := make(map[Angle]int)
	for _, h := range deduped {
		q, known := quotas[h.Angle]
		if known && counts[h.Angle] >= q.Max {
			continue // trim excess, earliest variants win
		}
		counts[h.Angle]++
		kept = append(kept, h)
	}

	return kept, ValidateHookDiversity(kept, tier)
}
