package llm

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	llmclient "stratify/internal/llmclient"
)

// Pricing maps a provider/model name prefix to USD per 1M tokens.
type Pricing struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// defaultPricing is a conservative catalog keyed by client-name prefix.
// Unknown models cost zero; the ledger still tracks their tokens.
var defaultPricing = map[string]Pricing{
	"Gemini:gemini-2.5-pro":   {InputPerMTok: 1.25, OutputPerMTok: 10.00},
	"Gemini:gemini-2.5-flash": {InputPerMTok: 0.30, OutputPerMTok: 2.50},
	"Groq:":                   {InputPerMTok: 0.59, OutputPerMTok: 0.79},
}

// CostFor estimates the USD cost of a call against the default catalog.
func CostFor(clientName string, usage llmclient.Usage) float64 {
	var best Pricing
	bestLen := -1
	for prefix, p := range defaultPricing {
		if strings.HasPrefix(clientName, prefix) && len(prefix) > bestLen {
			best, bestLen = p, len(prefix)
		}
	}
	if bestLen < 0 {
		return 0
	}
	return float64(usage.PromptTokens)/1e6*best.InputPerMTok +
		float64(usage.OutputTokens)/1e6*best.OutputPerMTok
}

// UsageEntry is one recorded generation call.
type UsageEntry struct {
	Section  string          `json:"section"`
	Provider string          `json:"provider"`
	Usage    llmclient.Usage `json:"usage"`
	CostUSD  float64         `json:"costUsd"`
}

// Ledger accumulates per-call token usage and estimated cost for a run.
type Ledger struct {
	mu      sync.Mutex
	entries []UsageEntry
}

func NewLedger() *Ledger { return &Ledger{} }

func (l *Ledger) Record(e UsageEntry) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
}

// TotalCost returns the summed estimated cost in USD.
func (l *Ledger) TotalCost() float64 {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var sum float64
	for _, e := range l.entries {
		sum += e.CostUSD
	}
	return sum
}

// TotalTokens returns the summed token count across all calls.
func (l *Ledger) TotalTokens() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var sum int
	for _, e := range l.entries {
		sum += e.Usage.Total()
	}
	return sum
}

// BySection returns cost per section, sorted by section name.
func (l *Ledger) BySection() []UsageEntry {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	agg := make(map[string]UsageEntry)
	for _, e := range l.entries {
		cur := agg[e.Section]
		cur.Section = e.Section
		cur.Provider = e.Provider
		cur.Usage.PromptTokens += e.Usage.PromptTokens
		cur.Usage.OutputTokens += e.Usage.OutputTokens
		cur.CostUSD += e.CostUSD
		agg[e.Section] = cur
	}
	out := make([]UsageEntry, 0, len(agg))
	for _, e := range agg {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Section < out[j].Section })
	return out
}

// WithUsage records every call into the ledger with an estimated cost.
func WithUsage(ledger *Ledger) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &usageTracking{next: next, ledger: ledger}
	}
}

type usageTracking struct {
	next   llmclient.LLMClient
	ledger *Ledger
}

func (u *usageTracking) Name() string             { return u.next.Name() }
func (u *usageTracking) Close() error             { return u.next.Close() }
func (u *usageTracking) CountTokens(t string) int { return u.next.CountTokens(t) }
func (u *usageTracking) TokenCapacity() int       { return u.next.TokenCapacity() }

func (u *usageTracking) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, llmclient.Usage, error) {
	raw, usage, err := u.next.GenerateJSON(ctx, prompt, input)
	if err == nil {
		u.ledger.Record(UsageEntry{
			Section:  SectionFrom(ctx),
			Provider: u.next.Name(),
			Usage:    usage,
			CostUSD:  CostFor(u.next.Name(), usage),
		})
	}
	return raw, usage, err
}
