package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	llmclient "stratify/internal/llmclient"
	"stratify/internal/tester"
)

type mockClient struct {
	name     string
	calls    int
	sections []string
	err      error
}

func (m *mockClient) Name() string {
	if m.name == "" {
		return "Mock:model"
	}
	return m.name
}
func (m *mockClient) Close() error             { return nil }
func (m *mockClient) CountTokens(t string) int { return len(t) / 4 }
func (m *mockClient) TokenCapacity() int       { return 4096 }

func (m *mockClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, llmclient.Usage, error) {
	m.calls++
	m.sections = append(m.sections, SectionFrom(ctx))
	if m.err != nil {
		return nil, llmclient.Usage{}, m.err
	}
	return json.RawMessage(`{"ok":true}`), llmclient.Usage{PromptTokens: 1000, OutputTokens: 500}, nil
}

var _ llmclient.LLMClient = (*mockClient)(nil)

func TestWrapOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next llmclient.LLMClient) llmclient.LLMClient {
			return &taggingClient{next: next, onCall: func() { order = append(order, name) }}
		}
	}
	base := &mockClient{}
	cli := Wrap(base, tag("outer"), tag("inner"))

	_, _, err := cli.GenerateJSON(context.Background(), "p", nil)
	tester.NoErr(t, err)
	tester.Eq(t, len(order), 2)
	tester.Eq(t, order[0], "outer")
	tester.Eq(t, order[1], "inner")
}

type taggingClient struct {
	next   llmclient.LLMClient
	onCall func()
}

func (c *taggingClient) Name() string             { return c.next.Name() }
func (c *taggingClient) Close() error             { return c.next.Close() }
func (c *taggingClient) CountTokens(t string) int { return c.next.CountTokens(t) }
func (c *taggingClient) TokenCapacity() int       { return c.next.TokenCapacity() }
func (c *taggingClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, llmclient.Usage, error) {
	c.onCall()
	return c.next.GenerateJSON(ctx, prompt, input)
}

func TestSectionContextTag(t *testing.T) {
	base := &mockClient{}
	ctx := WithSection(context.Background(), "industryMarket")
	_, _, err := base.GenerateJSON(ctx, "p", nil)
	tester.NoErr(t, err)
	tester.Eq(t, base.sections[0], "industryMarket")
	tester.Eq(t, SectionFrom(context.Background()), "")
}

func TestRateLimitPrefersCredits(t *testing.T) {
	base := &mockClient{}
	// A starved limiter: without credits every call would block.
	cli := Wrap(base, RateLimit(0.001, 1))

	ctx := WithCredits(context.Background(), 2)
	_, _, err := cli.GenerateJSON(ctx, "p", nil)
	tester.NoErr(t, err, "credited call must bypass the starved limiter")
	_, _, err = cli.GenerateJSON(ctx, "p", nil)
	tester.NoErr(t, err)
	tester.Eq(t, base.calls, 2)
}

func TestRateLimitPausesOnThrottleHint(t *testing.T) {
	base := &mockClient{err: &llmclient.RateLimitedError{
		Provider:   "Gemini:gemini-2.5-flash",
		RetryAfter: 150 * time.Millisecond,
		Err:        fmt.Errorf("quota exceeded"),
	}}
	// Fast refill so only the pause can explain a slow second call.
	cli := Wrap(base, RateLimit(1000, 1))

	_, _, err := cli.GenerateJSON(context.Background(), "p", nil)
	tester.Err(t, err, "throttled call surfaces the error")

	base.err = nil
	start := time.Now()
	_, _, err = cli.GenerateJSON(context.Background(), "p", nil)
	tester.NoErr(t, err)
	tester.True(t, time.Since(start) >= 100*time.Millisecond,
		"second call waits out the provider's retry hint")
	tester.Eq(t, base.calls, 2)
}

func TestRateLimitDisabled(t *testing.T) {
	base := &mockClient{}
	cli := Wrap(base, RateLimit(0, 0))
	for i := 0; i < 20; i++ {
		_, _, err := cli.GenerateJSON(context.Background(), "p", nil)
		tester.NoErr(t, err)
	}
	tester.Eq(t, base.calls, 20)
}

func TestUsageLedgerRecordsSuccessOnly(t *testing.T) {
	ledger := NewLedger()
	base := &mockClient{name: "Gemini:gemini-2.5-flash"}
	cli := Wrap(base, WithUsage(ledger))

	ctx := WithSection(context.Background(), "icpValidation")
	_, _, err := cli.GenerateJSON(ctx, "p", nil)
	tester.NoErr(t, err)

	base.err = fmt.Errorf("provider down")
	_, _, err = cli.GenerateJSON(ctx, "p", nil)
	tester.Err(t, err)

	tester.Eq(t, ledger.TotalTokens(), 1500, "failed calls record nothing")
	entries := ledger.BySection()
	tester.Eq(t, len(entries), 1)
	tester.Eq(t, entries[0].Section, "icpValidation")
	tester.True(t, ledger.TotalCost() > 0, "flash pricing is in the catalog")
}

func TestCostForCatalog(t *testing.T) {
	usage := llmclient.Usage{PromptTokens: 1_000_000, OutputTokens: 1_000_000}

	flash := CostFor("Gemini:gemini-2.5-flash", usage)
	tester.True(t, flash > 2.7 && flash < 2.9, "flash: input 0.30 + output 2.50")

	groq := CostFor("Groq:llama-3.3-70b", usage)
	tester.True(t, groq > 1.3 && groq < 1.4, "groq catalog entry matches by prefix")

	tester.Eq(t, CostFor("Unknown:model", usage), 0.0, "unknown model costs zero")
}

func TestFakeClientSectionPayloads(t *testing.T) {
	f := NewFakeClient(0)
	defer f.Close()

	for _, section := range []string{"industryMarket", "icpValidation", "offerAnalysis", "competitors", "crossAnalysis", "platformMix", "funnelStages", "budgetSplit", "adAngles", "measurementPlan"} {
		ctx := WithSection(context.Background(), section)
		raw, usage, err := f.GenerateJSON(ctx, "p", nil)
		tester.NoErr(t, err, section)
		var obj map[string]any
		tester.NoErr(t, json.Unmarshal(raw, &obj), section)
		tester.True(t, len(obj) > 0, section)
		tester.True(t, usage.OutputTokens > 0, section)
	}
}
