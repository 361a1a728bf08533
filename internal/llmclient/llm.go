package llmclient

import (
	"context"
	"encoding/json"
)

// LLMClient is the minimal contract for a structured-generation provider.
// Implementations focus on the API call itself; cross-cutting concerns
// (rate limiting, logging, usage tracking) are applied via Middleware.
type LLMClient interface {
	Name() string
	GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, Usage, error)
	CountTokens(text string) int
	TokenCapacity() int
	Close() error
}

// Usage reports token consumption for a single generation call.
type Usage struct {
	PromptTokens int `json:"promptTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Total returns the combined token count.
func (u Usage) Total() int { return u.PromptTokens + u.OutputTokens }
