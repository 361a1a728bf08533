package hooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHookQuotas(t *testing.T) {
	lean := GetHookQuotas(TierLean)
	standard := GetHookQuotas(TierStandard)
	broad := GetHookQuotas(TierBroad)

	require.Len(t, lean, len(Angles))
	assert.Equal(t, Quota{Min: 0, Max: 2}, lean[AnglePainPoint])
	assert.Equal(t, Quota{Min: 1, Max: 3}, standard[AngleCuriosity])
	assert.Equal(t, Quota{Min: 2, Max: 5}, broad[AngleUrgency])

	// Unknown tiers fall back to the standard band.
	assert.Equal(t, standard, GetHookQuotas(Tier("weird")))
}

func TestComputeAdDistribution(t *testing.T) {
	dist := ComputeAdDistribution([]Hook{
		{Angle: AnglePainPoint, Headline: "a"},
		{Angle: AnglePainPoint, Headline: "b"},
		{Angle: AngleUrgency, Headline: "c"},
	})
	assert.Equal(t, 2, dist[AnglePainPoint])
	assert.Equal(t, 1, dist[AngleUrgency])
	assert.Zero(t, dist[AngleAuthority])
}

func TestValidateHookDiversityFlagsBounds(t *testing.T) {
	set := []Hook{
		{Angle: AnglePainPoint, Headline: "1"},
		{Angle: AnglePainPoint, Headline: "2"},
		{Angle: AnglePainPoint, Headline: "3"},
	}
	violations := ValidateHookDiversity(set, TierLean)

	// pain_point above lean max, every other angle is fine at zero.
	require.Len(t, violations, 1)
	assert.Equal(t, AnglePainPoint, violations[0].Angle)
	assert.Equal(t, "above maximum", violations[0].Reason)
	assert.Equal(t, 3, violations[0].Count)
}

func TestValidateHookDiversityBelowMinimum(t *testing.T) {
	violations := ValidateHookDiversity(nil, TierStandard)
	require.Len(t, violations, len(Angles))
	for _, v := range violations {
		assert.Equal(t, "below minimum", v.Reason)
	}
}

func TestValidateHookDiversityUnknownAngle(t *testing.T) {
	set := []Hook{{Angle: Angle("meme"), Headline: "lol"}}
	violations := ValidateHookDiversity(set, TierLean)
	found := false
	for _, v := range violations {
		if v.Angle == Angle("meme") {
			found = true
			assert.Equal(t, "unknown angle", v.Reason)
		}
	}
	assert.True(t, found)
}

func TestValidateHookDiversityUnknownAngleOrderStable(t *testing.T) {
	set := []Hook{
		{Angle: Angle("zeitgeist"), Headline: "a"},
		{Angle: Angle("meme"), Headline: "b"},
		{Angle: Angle("astrology"), Headline: "c"},
	}
	first := ValidateHookDiversity(set, TierLean)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, ValidateHookDiversity(set, TierLean))
	}
	// Unknown angles come after the band checks, alphabetically.
	tail := first[len(first)-3:]
	assert.Equal(t, Angle("astrology"), tail[0].Angle)
	assert.Equal(t, Angle("meme"), tail[1].Angle)
	assert.Equal(t, Angle("zeitgeist"), tail[2].Angle)
}

func TestRemediateHooksDedupes(t *testing.T) {
	set := []Hook{
		{Angle: AnglePainPoint, Headline: "Stop losing leads", Description: "v1"},
		{Angle: AnglePainPoint, Headline: "  stop losing leads ", Description: "v2"},
		{Angle: AngleUrgency, Headline: "Stop losing leads"},
	}
	kept, _ := RemediateHooks(set, TierLean)

	// Same headline under a different angle is not a duplicate.
	require.Len(t, kept, 2)
	assert.Equal(t, "v1", kept[0].Description)
	assert.Equal(t, AngleUrgency, kept[1].Angle)
}

func TestRemediateHooksTrimsExcessKeepingEarliest(t *testing.T) {
	set := []Hook{
		{Angle: AnglePainPoint, Headline: "first"},
		{Angle: AnglePainPoint, Headline: "second"},
		{Angle: AnglePainPoint, Headline: "third"},
		{Angle: AnglePainPoint, Headline: "fourth"},
	}
	kept, violations := RemediateHooks(set, TierLean)

	require.Len(t, kept, 2)
	assert.Equal(t, "first", kept[0].Headline)
	assert.Equal(t, "second", kept[1].Headline)
	assert.Empty(t, violations)
}

func TestRemediateHooksNeverFabricates(t *testing.T) {
	// One angle under minimum: remediation reports it instead of inventing
	// content.
	set := []Hook{{Angle: AnglePainPoint, Headline: "only one"}}
	kept, violations := RemediateHooks(set, TierBroad)

	require.Len(t, kept, 1)
	assert.NotEmpty(t, violations)
	for _, v := range violations {
		assert.Equal(t, "below minimum", v.Reason)
	}
}

func TestRemediateHooksKeepsUnknownAngleUnresolved(t *testing.T) {
	set := []Hook{{Angle: Angle("meme"), Headline: "lol"}}
	kept, violations := RemediateHooks(set, TierLean)
	require.Len(t, kept, 1)
	found := false
	for _, v := range violations {
		if v.Reason == "unknown angle" {
			found = true
		}
	}
	assert.True(t, found)
}
