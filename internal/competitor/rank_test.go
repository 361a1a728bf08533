package competitor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("Vendor%d", i)
	}
	return out
}

func TestRankAllFitUnderLimit(t *testing.T) {
	in := names(5)
	tiers := RankCompetitorsByEmphasis(in, EmphasisContext{}, 8)
	assert.Equal(t, in, tiers.FullTier)
	assert.Empty(t, tiers.SummaryTier)
}

func TestRankPositionalSplit(t *testing.T) {
	tiers := RankCompetitorsByEmphasis(names(12), EmphasisContext{}, 8)
	require.Len(t, tiers.FullTier, 8)
	require.Len(t, tiers.SummaryTier, 4)
	assert.Equal(t, "Vendor0", tiers.FullTier[0])
	assert.Equal(t, "Vendor8", tiers.SummaryTier[0])
}

func TestRankEveryNameLandsExactlyOnce(t *testing.T) {
	in := names(15)
	tiers := RankCompetitorsByEmphasis(in, EmphasisContext{UniqueEdge: "we beat vendor14 on price"}, 8)
	seen := make(map[string]int)
	for _, n := range tiers.FullTier {
		seen[n]++
	}
	for _, n := range tiers.SummaryTier {
		seen[n]++
	}
	require.Len(t, seen, len(in))
	for _, count := range seen {
		assert.Equal(t, 1, count)
	}
}

func TestRankBoostOverridesPosition(t *testing.T) {
	in := names(10)
	ectx := EmphasisContext{CompetitorFrustrations: "everyone keeps losing deals to Vendor9"}
	tiers := RankCompetitorsByEmphasis(in, ectx, 8)

	assert.Contains(t, tiers.FullTier, "Vendor9")
	// The boost displaces the last positional candidate, not an earlier one.
	assert.Contains(t, tiers.SummaryTier, "Vendor8")
}

func TestRankBoostIsCaseInsensitive(t *testing.T) {
	in := names(10)
	tiers := RankCompetitorsByEmphasis(in, EmphasisContext{UniqueEdge: "unlike VENDOR9 we ship fast"}, 8)
	assert.Contains(t, tiers.FullTier, "Vendor9")
}

func TestRankBoostMatchesBaseNameBeforeParenthetical(t *testing.T) {
	in := append(names(9), "Bizible (Marketo)")
	tiers := RankCompetitorsByEmphasis(in, EmphasisContext{CompetitorFrustrations: "bizible keeps beating us"}, 8)
	assert.Contains(t, tiers.FullTier, "Bizible (Marketo)")
}

func TestRankedBoostedKeepListOrder(t *testing.T) {
	in := names(12)
	ectx := EmphasisContext{UniqueEdge: "we outship Vendor9 and Vendor7"}
	tiers := RankCompetitorsByEmphasis(in, ectx, 8)
	// Both boosted names claim slots first, in their original list order.
	require.True(t, len(tiers.FullTier) >= 2)
	assert.Equal(t, "Vendor7", tiers.FullTier[0])
	assert.Equal(t, "Vendor9", tiers.FullTier[1])
}

func TestRankZeroLimitUsesDefault(t *testing.T) {
	tiers := RankCompetitorsByEmphasis(names(12), EmphasisContext{}, 0)
	assert.Len(t, tiers.FullTier, DefaultFullTierLimit)
}
