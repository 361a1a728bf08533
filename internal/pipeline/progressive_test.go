package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitSettled(t *testing.T, p *Progressive) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.Settled() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("progressive run never settled")
}

func progressiveGraph() *Graph {
	return MustGraph(
		SectionSpec{ID: "industry", RequiredContextFields: []string{"industry", "audience"}, Run: okHandler("industry")},
		SectionSpec{ID: "icp", DependsOn: []SectionID{"industry"}, RequiredContextFields: []string{"icp"}, Run: okHandler("icp")},
		SectionSpec{ID: "offer", DependsOn: []SectionID{"industry"}, RequiredContextFields: []string{"offerDescription"}, Run: okHandler("offer")},
	)
}

func TestProgressiveDispatchesAsContextArrives(t *testing.T) {
	p := NewProgressive(progressiveGraph(), fastRetry())
	p.Start(context.Background(), fieldMap{})
	waitSettled(t, p) // nothing can run yet

	p.OnContextUpdate(fieldMap{"industry": "martech", "audience": "B2B SaaS"})
	waitSettled(t, p)

	p.OnContextUpdate(fieldMap{"industry": "martech", "audience": "B2B SaaS", "icp": "RevOps leads"})
	waitSettled(t, p)

	out := p.Finish()
	assert.ElementsMatch(t, []SectionID{"industry", "icp"}, out.CompletedSections)
	require.Contains(t, out.Incomplete, SectionID("offer"))
	assert.Contains(t, out.Incomplete["offer"], "offerDescription")
	assert.False(t, out.Success, "an untriggered section is incomplete, not ignored")
}

func TestProgressiveAllFieldsUpFront(t *testing.T) {
	p := NewProgressive(progressiveGraph(), fastRetry())
	p.Start(context.Background(), fieldMap{
		"industry":         "martech",
		"audience":         "B2B SaaS",
		"icp":              "RevOps leads",
		"offerDescription": "attribution platform",
	})
	waitSettled(t, p)

	out := p.Finish()
	assert.True(t, out.Success)
	assert.Len(t, out.CompletedSections, 3)
}

func TestProgressiveRedundantUpdatesAreIdempotent(t *testing.T) {
	p := NewProgressive(progressiveGraph(), fastRetry())
	ctx := fieldMap{"industry": "martech", "audience": "B2B SaaS"}
	p.Start(context.Background(), ctx)
	for i := 0; i < 5; i++ {
		p.OnContextUpdate(ctx)
	}
	waitSettled(t, p)

	out := p.Finish()
	// industry ran exactly once despite repeated updates.
	assert.ElementsMatch(t, []SectionID{"industry"}, out.CompletedSections)
}

func TestProgressiveStartTwiceIsNoop(t *testing.T) {
	p := NewProgressive(progressiveGraph(), fastRetry())
	p.Start(context.Background(), fieldMap{})
	p.Start(context.Background(), fieldMap{"industry": "x", "audience": "y"})
	waitSettled(t, p)

	out := p.Finish()
	assert.Empty(t, out.CompletedSections, "second Start must not replace the run context")
}

func TestProgressiveFinishBeforeStart(t *testing.T) {
	p := NewProgressive(progressiveGraph())
	out := p.Finish()
	assert.False(t, out.Success)
}
