package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	genai "google.golang.org/genai"

	"stratify/internal/llm"
	llmclient "stratify/internal/llmclient"
)

// scriptClient returns a canned response or error per call.
type scriptClient struct {
	name     string
	raw      json.RawMessage
	err      error
	delay    time.Duration
	sections []string
}

func (c *scriptClient) Name() string {
	if c.name == "" {
		return "Script:model"
	}
	return c.name
}
func (c *scriptClient) Close() error             { return nil }
func (c *scriptClient) CountTokens(t string) int { return len(t) / 4 }
func (c *scriptClient) TokenCapacity() int       { return 8192 }

func (c *scriptClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, llmclient.Usage, error) {
	c.sections = append(c.sections, llm.SectionFrom(ctx))
	if c.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, llmclient.Usage{}, ctx.Err()
		case <-time.After(c.delay):
		}
	}
	if c.err != nil {
		return nil, llmclient.Usage{}, c.err
	}
	return c.raw, llmclient.Usage{PromptTokens: 100, OutputTokens: 50}, nil
}

var _ llmclient.LLMClient = (*scriptClient)(nil)

func TestGenerateSuccess(t *testing.T) {
	cli := &scriptClient{raw: json.RawMessage(`{"summary":"ok","sources":[{"title":"Gartner","url":"https://example.com"}]}`)}
	a := NewAdapter(cli, time.Second)

	res, err := a.Generate(context.Background(), "industryMarket", "prompt", Schema{Required: []string{"summary"}}, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Data["summary"])
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "Gartner", res.Sources[0].Title)
	assert.Equal(t, 100, res.Usage.PromptTokens)

	// The section tag reached the client.
	require.Len(t, cli.sections, 1)
	assert.Equal(t, "industryMarket", cli.sections[0])
}

func TestGenerateTimeout(t *testing.T) {
	cli := &scriptClient{raw: json.RawMessage(`{}`), delay: 200 * time.Millisecond}
	a := NewAdapter(cli, time.Second)

	_, err := a.Generate(context.Background(), "s", "p", Schema{}, nil, Options{Timeout: 20 * time.Millisecond})
	require.Error(t, err)
	assert.Equal(t, CodeTimeout, CodeOf(err))
}

func TestGenerateParseError(t *testing.T) {
	cli := &scriptClient{raw: json.RawMessage(`this is prose, not json`)}
	a := NewAdapter(cli, time.Second)

	_, err := a.Generate(context.Background(), "s", "p", Schema{Required: []string{"x"}}, nil, Options{})
	require.Error(t, err)
	assert.Equal(t, CodeParseError, CodeOf(err))
}

func TestGenerateValidationFailed(t *testing.T) {
	cli := &scriptClient{raw: json.RawMessage(`{"unexpected":true}`)}
	a := NewAdapter(cli, time.Second)

	_, err := a.Generate(context.Background(), "s", "p", Schema{Required: []string{"summary"}}, nil, Options{})
	require.Error(t, err)
	assert.Equal(t, CodeValidationFailed, CodeOf(err))
}

func TestGenerateRateLimited(t *testing.T) {
	cli := &scriptClient{err: &llmclient.RateLimitedError{Provider: "Groq", Err: fmt.Errorf("429")}}
	a := NewAdapter(cli, time.Second)

	_, err := a.Generate(context.Background(), "s", "p", Schema{}, nil, Options{})
	require.Error(t, err)
	assert.Equal(t, CodeRateLimited, CodeOf(err))
}

func TestGenerateGeminiThrottleIsRateLimited(t *testing.T) {
	cli := &scriptClient{err: genai.APIError{
		Code:   http.StatusTooManyRequests,
		Status: "RESOURCE_EXHAUSTED",
		Details: []map[string]any{{
			"@type":      "type.googleapis.com/google.rpc.RetryInfo",
			"retryDelay": "7s",
		}},
	}}
	a := NewAdapter(cli, time.Second)

	_, err := a.Generate(context.Background(), "s", "p", Schema{}, nil, Options{})
	require.Error(t, err)
	assert.Equal(t, CodeRateLimited, CodeOf(err))

	rl, ok := llmclient.AsRateLimited(err)
	require.True(t, ok)
	assert.Equal(t, 7*time.Second, rl.RetryAfter)
}

func TestGenerateAPIErrorKeepsPermanence(t *testing.T) {
	cli := &scriptClient{err: llmclient.NewPermanentError(fmt.Errorf("context too long"))}
	a := NewAdapter(cli, time.Second)

	_, err := a.Generate(context.Background(), "s", "p", Schema{}, nil, Options{})
	require.Error(t, err)
	assert.Equal(t, CodeAPIError, CodeOf(err))

	var perm *llmclient.PermanentError
	assert.True(t, errors.As(err, &perm))
}

func TestCodeRetryable(t *testing.T) {
	assert.True(t, CodeTimeout.Retryable())
	assert.True(t, CodeRateLimited.Retryable())
	assert.True(t, CodeAPIError.Retryable())
	assert.True(t, CodeValidationFailed.Retryable())
	assert.True(t, CodeParseError.Retryable())
	assert.False(t, CodeInvalidInput.Retryable())
	assert.False(t, CodeCircuitOpen.Retryable())
	assert.False(t, CodeInternal.Retryable())
}

func TestCodeHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, CodeInvalidInput.HTTPStatus())
	assert.Equal(t, http.StatusGatewayTimeout, CodeTimeout.HTTPStatus())
	assert.Equal(t, http.StatusTooManyRequests, CodeRateLimited.HTTPStatus())
	assert.Equal(t, http.StatusServiceUnavailable, CodeCircuitOpen.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, CodeParseError.HTTPStatus())
}

func TestCodeOfPlainErrors(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(fmt.Errorf("boom")))
	assert.Equal(t, CodeTimeout, CodeOf(context.DeadlineExceeded))
	assert.Equal(t, CodeParseError, CodeOf(llmclient.ErrInvalidJSON))
}
