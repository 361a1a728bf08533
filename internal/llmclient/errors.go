package llmclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	genai "google.golang.org/genai"
)

var ErrInvalidJSON = errors.New("invalid json from LLM")

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// RateLimitedError signals provider throttling. RetryAfter is zero when the
// provider did not include a hint.
type RateLimitedError struct {
	Provider   string
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: rate limited: %v", e.Provider, e.Err)
}
func (e *RateLimitedError) Unwrap() error { return e.Err }

// AsRateLimited reports provider throttling in any form the clients surface
// it: a typed *RateLimitedError, or a raw genai.APIError carrying HTTP 429.
func AsRateLimited(err error) (*RateLimitedError, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl, true
	}
	var ae genai.APIError
	if errors.As(err, &ae) && ae.Code == http.StatusTooManyRequests {
		return &RateLimitedError{Provider: "Gemini", RetryAfter: retryAfterHint(ae.Details), Err: err}, true
	}
	return nil, false
}

// retryAfterHint extracts the google.rpc.RetryInfo delay when present.
// Details entries look like {"@type": ".../google.rpc.RetryInfo",
// "retryDelay": "7s"}.
func retryAfterHint(details []map[string]any) time.Duration {
	for _, d := range details {
		t, _ := d["@type"].(string)
		if !strings.HasSuffix(t, "RetryInfo") {
			continue
		}
		if s, ok := d["retryDelay"].(string); ok {
			if dur, err := time.ParseDuration(s); err == nil && dur > 0 {
				return dur
			}
		}
	}
	return 0
}
