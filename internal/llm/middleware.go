package llm

import (
	"context"
	"encoding/json"

	llmclient "stratify/internal/llmclient"
)

// Middleware decorates an LLMClient to inject cross-cutting concerns
// (rate limiting, logging, usage tracking, etc.).
type Middleware func(llmclient.LLMClient) llmclient.LLMClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.LLMClient, mws ...Middleware) llmclient.LLMClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// RateLimit limits request rate using the token-bucket limiter.
// If rps <= 0, the limiter is effectively disabled.
func RateLimit(rps float64, burst int) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		rl := newRPSLimiter(rps, burst) // nil when disabled
		return &rateLimited{next: next, rl: rl}
	}
}

type rateLimited struct {
	next llmclient.LLMClient
	rl   *rpsLimiter
}

func (c *rateLimited) Name() string             { return c.next.Name() }
func (c *rateLimited) Close() error             { return c.next.Close() }
func (c *rateLimited) CountTokens(t string) int { return c.next.CountTokens(t) }
func (c *rateLimited) TokenCapacity() int       { return c.next.TokenCapacity() }

func (c *rateLimited) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, llmclient.Usage, error) {
	if c.rl != nil {
		// Prefer reserved credits embedded in the context.
		if !TakeCredit(ctx) {
			if err := c.rl.Acquire(ctx); err != nil {
				return nil, llmclient.Usage{}, err
			}
		}
	}
	raw, usage, err := c.next.GenerateJSON(ctx, prompt, input)
	if err != nil {
		// A throttle hint pauses the shared bucket so sibling sections
		// back off with us.
		if rl, ok := llmclient.AsRateLimited(err); ok && rl.RetryAfter > 0 {
			c.rl.Pause(rl.RetryAfter)
		}
	}
	return raw, usage, err
}

// -------- Section routing context --------

type sectionKey struct{}

// WithSection tags the context with the section currently generating.
func WithSection(ctx context.Context, section string) context.Context {
	return context.WithValue(ctx, sectionKey{}, section)
}

// SectionFrom returns the section tag, or "" when absent.
func SectionFrom(ctx context.Context) string {
	if s, ok := ctx.Value(sectionKey{}).(string); ok {
		return s
	}
	return ""
}
