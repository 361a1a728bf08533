package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"stratify/internal/blueprint"
	"stratify/internal/generate"
	"stratify/internal/onboarding"
	"stratify/internal/pipeline"
)

// A session is one conversational onboarding run: the blueprint graph driven
// progressively, sections dispatching as answers arrive. Watchers follow the
// session through the same /api/watch streams as background runs.
type session struct {
	id      string
	ownerID string
	prog    *pipeline.Progressive
	emitter *pipeline.Emitter
	cancel  context.CancelFunc
	relayed chan struct{}

	mu   sync.Mutex
	data onboarding.Data
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*session)}
}

func (s *sessionStore) put(sess *session) {
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
}

func (s *sessionStore) get(id string) (*session, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	return sess, ok
}

// take removes the session so finish runs exactly once; a second finish or a
// late context update sees a 404.
func (s *sessionStore) take(id string) (*session, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	return sess, ok
}

type sessionRequest struct {
	Data    onboarding.Data `json:"data"`
	OwnerID string          `json:"ownerId,omitempty"`
}

// handleSessionStart opens a progressive blueprint run from whatever answers
// the client already has. No field is required up front; sections wait for
// their context instead of failing.
func (s *apiServer) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, generate.CodeInvalidInput, "malformed request body")
		return
	}
	id := newRunID("ob")
	rn := s.runs.create(id)

	emitter := pipeline.NewEmitter(256)
	prog := pipeline.NewProgressive(s.gen.BlueprintGraph(),
		s.schedulerOptions(pipeline.WithEmitter(emitter))...)

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		id:      id,
		ownerID: req.OwnerID,
		prog:    prog,
		emitter: emitter,
		cancel:  cancel,
		relayed: make(chan struct{}),
		data:    req.Data,
	}
	go func() {
		for ev := range emitter.Events() {
			rn.publish(ev)
		}
		close(sess.relayed)
	}()

	snapshot := req.Data
	prog.Start(ctx, &snapshot)
	s.sessions.put(sess)
	s.log.Info("onboarding session started", "session", id)

	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": id,
		"watch":     "/api/watch/" + id,
	})
}

// handleSessionContext overlays new answers onto the session and dispatches
// whatever they unlock. Each update hands the scheduler a fresh snapshot;
// in-flight sections keep reading the one they started with.
func (s *apiServer) handleSessionContext(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, generate.CodeInvalidInput, "session not found: "+r.PathValue("id"))
		return
	}
	var patch onboarding.Data
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, generate.CodeInvalidInput, "malformed request body")
		return
	}
	sess.mu.Lock()
	sess.data = onboarding.Merge(sess.data, patch)
	snapshot := sess.data
	sess.mu.Unlock()
	sess.prog.OnContextUpdate(&snapshot)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"settled": sess.prog.Settled(),
	})
}

// handleSessionFinish seals the session: in-flight sections drain, sections
// still waiting on answers are reported incomplete, and the blueprint is
// assembled from whatever completed.
func (s *apiServer) handleSessionFinish(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.take(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, generate.CodeInvalidInput, "session not found: "+r.PathValue("id"))
		return
	}
	deadline := time.Now().Add(s.cfg.Pipeline.OverallTimeout)
	for !sess.prog.Settled() && time.Now().Before(deadline) {
		time.Sleep(25 * time.Millisecond)
	}
	out := sess.prog.Finish()
	sess.cancel()
	sess.emitter.Close()
	<-sess.relayed

	sess.mu.Lock()
	data := sess.data
	sess.mu.Unlock()
	bp := blueprint.AssembleBlueprint(sess.id, out, &data)
	s.persist(sess.id, "blueprint", sess.ownerID, bp)

	meta := runMeta{TotalTimeMs: out.TotalTimeMs, TotalCostUSD: out.TotalCostUSD}
	if rn, ok := s.runs.get(sess.id); ok {
		rn.publish(pipeline.Event{Type: pipeline.EventDone, Data: map[string]any{
			"success":   out.Success,
			"runId":     sess.id,
			"blueprint": bp,
			"metadata":  meta,
		}})
		rn.finish()
		s.runs.remove(sess.id)
	}
	writeJSON(w, http.StatusOK, envelope{Success: out.Success, Blueprint: bp, Metadata: &meta})
}
