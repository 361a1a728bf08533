package generate

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"stratify/internal/llm"
	llmclient "stratify/internal/llmclient"
)

// Citation points at a source the model claims to have drawn from.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// Result is the outcome of one structured-generation call.
type Result struct {
	Data    map[string]any  `json:"data"`
	Raw     json.RawMessage `json:"-"`
	Sources []Citation      `json:"sources,omitempty"`
	CostUSD float64         `json:"costUsd"`
	Usage   llmclient.Usage `json:"usage"`
}

// Options tunes a single call. Zero values fall back to adapter defaults.
type Options struct {
	Timeout time.Duration
}

// Adapter performs schema-validated generation calls with a per-call
// timeout. It never retries; retry policy belongs to the scheduler so
// backoff and circuit breaking coordinate across sections sharing a
// provider.
type Adapter struct {
	client         llmclient.LLMClient
	defaultTimeout time.Duration
}

func NewAdapter(client llmclient.LLMClient, defaultTimeout time.Duration) *Adapter {
	if defaultTimeout <= 0 {
		defaultTimeout = 90 * time.Second
	}
	return &Adapter{client: client, defaultTimeout: defaultTimeout}
}

// Provider returns the underlying client name, used as the circuit-breaker key.
func (a *Adapter) Provider() string { return a.client.Name() }

// Generate runs one structured call for the given section. Errors carry a
// taxonomy code: TIMEOUT when the deadline expires, PARSE_ERROR when the
// response is not JSON, VALIDATION_FAILED when it is JSON but fails the
// schema, RATE_LIMITED on provider throttling, API_ERROR otherwise.
func (a *Adapter) Generate(ctx context.Context, sectionID, prompt string, schema Schema, input any, opts Options) (Result, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = a.defaultTimeout
	}
	callCtx, cancel := context.WithTimeout(llm.WithSection(ctx, sectionID), timeout)
	defer cancel()

	raw, usage, err := a.client.GenerateJSON(callCtx, prompt, input)
	if err != nil {
		return Result{}, a.classify(sectionID, callCtx, err)
	}

	obj, verr := schema.Validate(raw)
	if verr != nil {
		var probe any
		if json.Unmarshal(raw, &probe) != nil {
			return Result{}, NewError(CodeParseError, sectionID, verr)
		}
		return Result{}, NewError(CodeValidationFailed, sectionID, verr)
	}

	return Result{
		Data:    obj,
		Raw:     raw,
		Sources: extractSources(obj),
		CostUSD: llm.CostFor(a.client.Name(), usage),
		Usage:   usage,
	}, nil
}

func (a *Adapter) classify(sectionID string, callCtx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		callCtx.Err() != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return NewError(CodeTimeout, sectionID, err)
	case errors.Is(err, context.Canceled):
		return NewError(CodeTimeout, sectionID, err)
	case errors.Is(err, llmclient.ErrInvalidJSON):
		return NewError(CodeParseError, sectionID, err)
	}
	if _, ok := llmclient.AsRateLimited(err); ok {
		return NewError(CodeRateLimited, sectionID, err)
	}
	var perm *llmclient.PermanentError
	if errors.As(err, &perm) {
		return NewError(CodeAPIError, sectionID, llmclient.NewPermanentError(perm.Err))
	}
	return NewError(CodeAPIError, sectionID, err)
}

// extractSources pulls an optional top-level "sources" array out of the
// generated object. Malformed entries are skipped; sources are best-effort.
func extractSources(obj map[string]any) []Citation {
	rawList, ok := obj["sources"].([]any)
	if !ok {
		return nil
	}
	out := make([]Citation, 0, len(rawList))
	for _, item := range rawList {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		c := Citation{}
		if t, ok := m["title"].(string); ok {
			c.Title = t
		}
		if u, ok := m["url"].(string); ok {
			c.URL = u
		}
		if c.Title == "" && c.URL == "" {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
