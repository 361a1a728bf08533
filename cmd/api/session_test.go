package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratify/internal/blueprint"
	"stratify/internal/config"
	"stratify/internal/generate"
	"stratify/internal/llm"
	"stratify/internal/pipeline"
	"stratify/internal/store"
)

func testAPI(t *testing.T) *apiServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	adapter := generate.NewAdapter(llm.NewFakeClient(0), time.Second)
	broker := llm.NewBroker(llm.NewLimiter(1000, 16))
	cfg := &config.Config{
		Retry:   config.Retry{MaxAttempts: 2, BaseDelay: time.Millisecond},
		Breaker: config.Breaker{FailureThreshold: 5, Cooldown: time.Second},
		Pipeline: config.Pipeline{
			SectionTimeout: time.Second,
			OverallTimeout: 5 * time.Second,
			Heartbeat:      time.Second,
		},
	}
	return &apiServer{
		cfg:      cfg,
		gen:      blueprint.NewGenerator(adapter, broker, logger),
		store:    store.New(filepath.Join(t.TempDir(), "artifacts.json")),
		ledger:   llm.NewLedger(),
		runs:     newRunStore(),
		sessions: newSessionStore(),
		breaker: pipeline.NewBreaker(pipeline.BreakerConfig{
			FailureThreshold: 5,
			Cooldown:         time.Second,
		}),
		log: logger,
	}
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestOnboardingSessionProgressiveFlow(t *testing.T) {
	app := testAPI(t)
	srv := httptest.NewServer(app.routes())
	defer srv.Close()

	// The niche and briefing answers arrive first; the offer and competitor
	// sections have to wait for theirs.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/onboarding/session", map[string]any{
		"data": map[string]any{
			"industry":         "marketing attribution",
			"audience":         "B2B SaaS marketing teams",
			"icp":              "RevOps leads at 50-500 employee companies",
			"budget":           10000,
			"offerPrice":       5000,
			"salesCycleLength": "1-3_months",
		},
	})
	var started struct {
		SessionID string `json:"sessionId"`
	}
	decodeBody(t, resp, &started)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, started.SessionID)

	base := srv.URL + "/api/onboarding/session/" + started.SessionID
	resp = doJSON(t, http.MethodPatch, base+"/context", map[string]any{
		"offerDescription": "multi-touch attribution platform",
		"competitors":      "Bizible, HubSpot, Dreamdata and Ruler Analytics",
		"uniqueEdge":       "self-serve setup in under an hour",
	})
	var patched struct {
		Success bool `json:"success"`
	}
	decodeBody(t, resp, &patched)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, patched.Success)

	resp = doJSON(t, http.MethodPost, base+"/finish", nil)
	var env envelope
	decodeBody(t, resp, &env)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, env.Blueprint)
	assert.True(t, env.Success, "incomplete: %v", env.Blueprint.Incomplete)
	assert.Len(t, env.Blueprint.Sections, 5)
	assert.Contains(t, env.Blueprint.Sections, "crossAnalysis")

	// The assembled blueprint was persisted under the session id.
	_, ok := app.store.Get(started.SessionID)
	assert.True(t, ok)

	// Finishing removed the session; a second finish is a 404.
	resp = doJSON(t, http.MethodPost, base+"/finish", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOnboardingSessionFinishReportsWaitingSections(t *testing.T) {
	app := testAPI(t)
	srv := httptest.NewServer(app.routes())
	defer srv.Close()

	// Only the niche answers: offerAnalysis and competitors never get the
	// fields they wait on.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/onboarding/session", map[string]any{
		"data": map[string]any{
			"industry": "marketing attribution",
			"audience": "B2B SaaS marketing teams",
			"icp":      "RevOps leads at 50-500 employee companies",
		},
	})
	var started struct {
		SessionID string `json:"sessionId"`
	}
	decodeBody(t, resp, &started)
	require.NotEmpty(t, started.SessionID)

	base := srv.URL + "/api/onboarding/session/" + started.SessionID
	resp = doJSON(t, http.MethodPost, base+"/finish", nil)
	var env envelope
	decodeBody(t, resp, &env)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, env.Success)
	require.NotNil(t, env.Blueprint)

	// The untriggered sections name the answers they were waiting for.
	require.Contains(t, env.Blueprint.Incomplete, "offerAnalysis")
	assert.Contains(t, env.Blueprint.Incomplete["offerAnalysis"], "offerDescription")
	require.Contains(t, env.Blueprint.Incomplete, "competitors")

	// A context update after finish finds nothing.
	resp = doJSON(t, http.MethodPatch, base+"/context", map[string]any{"competitors": "HubSpot"})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
