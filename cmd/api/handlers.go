package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"stratify/internal/blueprint"
	"stratify/internal/config"
	"stratify/internal/generate"
	"stratify/internal/llm"
	"stratify/internal/onboarding"
	"stratify/internal/pipeline"
	"stratify/internal/reconcile"
	"stratify/internal/store"
)

type apiServer struct {
	cfg      *config.Config
	gen      *blueprint.Generator
	store    *store.Store
	docs     *onboarding.DocStore
	ledger   *llm.Ledger
	runs     *runStore
	sessions *sessionStore
	breaker  *pipeline.Breaker
	log      *slog.Logger
}

type blueprintRequest struct {
	Data      onboarding.Data       `json:"data"`
	Documents []onboarding.Document `json:"documents,omitempty"`
	OwnerID   string                `json:"ownerId,omitempty"`
}

type mediaPlanRequest struct {
	BlueprintID string          `json:"blueprintId"`
	Data        onboarding.Data `json:"data"`
	OwnerID     string          `json:"ownerId,omitempty"`
}

type runMeta struct {
	TotalTimeMs  int64   `json:"totalTime"`
	TotalCostUSD float64 `json:"totalCost"`
}

// envelope is the uniform response shape for synchronous generation.
type envelope struct {
	Success   bool                 `json:"success"`
	Blueprint *blueprint.Blueprint `json:"blueprint,omitempty"`
	MediaPlan *blueprint.MediaPlan `json:"mediaPlan,omitempty"`
	Error     string               `json:"error,omitempty"`
	Code      string               `json:"code,omitempty"`
	Metadata  *runMeta             `json:"metadata,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code generate.Code, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg, Code: string(code)})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"provider":   s.gen.Provider(),
		"costToDate": s.ledger.TotalCost(),
	})
}

// prepare validates the onboarding payload and folds uploaded documents
// into the generation context. Documents are archived best-effort when a
// doc store is configured.
func (s *apiServer) prepare(ctx context.Context, runID string, req *blueprintRequest) error {
	if err := onboarding.Validate(&req.Data); err != nil {
		return generate.NewError(generate.CodeInvalidInput, "", err)
	}
	if len(req.Documents) == 0 {
		return nil
	}
	text, err := onboarding.IngestDocuments(ctx, onboarding.PlainTextExtractor{}, req.Documents)
	if err != nil {
		return generate.NewError(generate.CodeInvalidInput, "", err)
	}
	if text != "" {
		if req.Data.DocumentContext != "" {
			req.Data.DocumentContext += "\n\n"
		}
		req.Data.DocumentContext += text
	}
	if s.docs != nil {
		for _, doc := range req.Documents {
			if err := s.docs.Put(ctx, runID, doc); err != nil {
				s.log.Warn("doc archive failed", "run", runID, "doc", doc.Name, "err", err)
			}
		}
	}
	return nil
}

func (s *apiServer) schedulerOptions(extra ...pipeline.SchedulerOption) []pipeline.SchedulerOption {
	base := []pipeline.SchedulerOption{
		pipeline.WithRetryPolicy(pipeline.RetryPolicy{
			MaxAttempts: s.cfg.Retry.MaxAttempts,
			BaseDelay:   s.cfg.Retry.BaseDelay,
		}),
		pipeline.WithBreaker(s.breaker),
		pipeline.WithLogger(s.log),
	}
	return append(base, extra...)
}

func (s *apiServer) scheduler(g *pipeline.Graph, opts ...pipeline.SchedulerOption) *pipeline.Scheduler {
	return pipeline.NewScheduler(g, s.schedulerOptions(opts...)...)
}

func (s *apiServer) handleBlueprint(w http.ResponseWriter, r *http.Request) {
	var req blueprintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, generate.CodeInvalidInput, "malformed request body")
		return
	}
	id := newRunID("bp")
	if err := s.prepare(r.Context(), id, &req); err != nil {
		writeError(w, generate.CodeOf(err).HTTPStatus(), generate.CodeOf(err), err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Pipeline.OverallTimeout)
	defer cancel()
	out := s.scheduler(s.gen.BlueprintGraph()).Run(ctx, &req.Data)
	if out.Aborted {
		writeError(w, http.StatusGatewayTimeout, generate.CodeTimeout, "pipeline aborted before completion")
		return
	}

	bp := blueprint.AssembleBlueprint(id, out, &req.Data)
	s.persist(id, "blueprint", req.OwnerID, bp)
	writeJSON(w, http.StatusOK, envelope{
		Success:   out.Success,
		Blueprint: bp,
		Metadata:  &runMeta{TotalTimeMs: out.TotalTimeMs, TotalCostUSD: out.TotalCostUSD},
	})
}

func (s *apiServer) handleMediaPlan(w http.ResponseWriter, r *http.Request) {
	var req mediaPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, generate.CodeInvalidInput, "malformed request body")
		return
	}
	bp, ok := s.loadBlueprint(req.BlueprintID)
	if !ok {
		writeError(w, http.StatusNotFound, generate.CodeInvalidInput, "blueprint not found: "+req.BlueprintID)
		return
	}
	if err := onboarding.Validate(&req.Data); err != nil {
		writeError(w, http.StatusBadRequest, generate.CodeInvalidInput, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Pipeline.OverallTimeout)
	defer cancel()
	out := s.scheduler(s.gen.MediaPlanGraph(bp)).Run(ctx, &req.Data)
	if out.Aborted {
		writeError(w, http.StatusGatewayTimeout, generate.CodeTimeout, "pipeline aborted before completion")
		return
	}

	id := newRunID("mp")
	mp := blueprint.AssembleMediaPlan(id, out, bp, &req.Data)
	s.persist(id, "mediaplan", req.OwnerID, mp)
	writeJSON(w, http.StatusOK, envelope{
		Success:   out.Success,
		MediaPlan: mp,
		Metadata:  &runMeta{TotalTimeMs: out.TotalTimeMs, TotalCostUSD: out.TotalCostUSD},
	})
}

func (s *apiServer) handleBudgetEdit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var in reconcile.BudgetInputs
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, generate.CodeInvalidInput, "malformed request body")
		return
	}
	bp, ok := s.loadBlueprint(id)
	if !ok {
		writeError(w, http.StatusNotFound, generate.CodeInvalidInput, "blueprint not found: "+id)
		return
	}
	blueprint.ApplyBudgetEdit(bp, in)
	s.persist(id, "blueprint", recordOwner(s.store, id), bp)
	writeJSON(w, http.StatusOK, envelope{Success: true, Blueprint: bp})
}

func (s *apiServer) handlePlatformEdit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var allocs []reconcile.PlatformAllocation
	if err := json.NewDecoder(r.Body).Decode(&allocs); err != nil {
		writeError(w, http.StatusBadRequest, generate.CodeInvalidInput, "malformed request body")
		return
	}
	mp, ok := s.loadMediaPlan(id)
	if !ok {
		writeError(w, http.StatusNotFound, generate.CodeInvalidInput, "media plan not found: "+id)
		return
	}
	blueprint.ApplyPlatformEdit(mp, allocs)
	s.persist(id, "mediaplan", recordOwner(s.store, id), mp)
	writeJSON(w, http.StatusOK, envelope{Success: true, MediaPlan: mp})
}

func (s *apiServer) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, generate.CodeInvalidInput, "artifact not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *apiServer) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	owner := strings.TrimSpace(r.URL.Query().Get("ownerId"))
	recs, err := s.store.ListByOwner(owner)
	if err != nil {
		writeError(w, http.StatusInternalServerError, generate.CodeInternal, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"artifacts": recs})
}

func (s *apiServer) persist(id, kind, owner string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("artifact marshal failed", "id", id, "err", err)
		return
	}
	now := time.Now().UTC()
	created := now
	if prev, ok := s.store.Get(id); ok {
		created = prev.CreatedAt
	}
	if err := s.store.Put(store.Record{
		ID:        id,
		Kind:      kind,
		OwnerID:   owner,
		Payload:   raw,
		CreatedAt: created,
		UpdatedAt: now,
	}); err != nil {
		s.log.Error("artifact store failed", "id", id, "err", err)
	}
}

func (s *apiServer) loadBlueprint(id string) (*blueprint.Blueprint, bool) {
	rec, ok := s.store.Get(id)
	if !ok || rec.Kind != "blueprint" {
		return nil, false
	}
	var bp blueprint.Blueprint
	if err := json.Unmarshal(rec.Payload, &bp); err != nil {
		s.log.Error("artifact decode failed", "id", id, "err", err)
		return nil, false
	}
	return &bp, true
}

func (s *apiServer) loadMediaPlan(id string) (*blueprint.MediaPlan, bool) {
	rec, ok := s.store.Get(id)
	if !ok || rec.Kind != "mediaplan" {
		return nil, false
	}
	var mp blueprint.MediaPlan
	if err := json.Unmarshal(rec.Payload, &mp); err != nil {
		s.log.Error("artifact decode failed", "id", id, "err", err)
		return nil, false
	}
	return &mp, true
}

func recordOwner(st *store.Store, id string) string {
	if rec, ok := st.Get(id); ok {
		return rec.OwnerID
	}
	return ""
}
