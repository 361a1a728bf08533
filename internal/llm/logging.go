package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	llmclient "stratify/internal/llmclient"
)

// WithLogging logs request size, duration and errors per section.
// Pass nil to use slog.Default().
func WithLogging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next llmclient.LLMClient
	log  *slog.Logger
}

func (l *logging) Name() string             { return l.next.Name() }
func (l *logging) Close() error             { return l.next.Close() }
func (l *logging) CountTokens(t string) int { return l.next.CountTokens(t) }
func (l *logging) TokenCapacity() int       { return l.next.TokenCapacity() }

func (l *logging) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, llmclient.Usage, error) {
	in, _ := json.Marshal(input)
	start := time.Now()
	raw, usage, err := l.next.GenerateJSON(ctx, prompt, input)
	attrs := []any{
		"section", SectionFrom(ctx),
		"provider", l.next.Name(),
		"requestBytes", len(prompt) + len(in),
		"durationMs", time.Since(start).Milliseconds(),
	}
	if left := CreditsRemaining(ctx); left > 0 {
		attrs = append(attrs, "creditsLeft", left)
	}
	if err != nil {
		l.log.Error("llm request failed", append(attrs, "err", err)...)
		return raw, usage, err
	}
	l.log.Debug("llm request", append(attrs, "promptTokens", usage.PromptTokens, "outputTokens", usage.OutputTokens)...)
	return raw, usage, nil
}
