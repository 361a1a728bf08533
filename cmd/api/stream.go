package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"stratify/internal/blueprint"
	"stratify/internal/generate"
	"stratify/internal/onboarding"
	"stratify/internal/pipeline"
)

// sseWriter frames pipeline events as server-sent events. One writer per
// response; the http handler goroutine is the only caller.
type sseWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported by connection")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	f.Flush()
	return &sseWriter{w: w, f: f}, nil
}

func (s *sseWriter) send(ev pipeline.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

// handleBlueprintStream runs the blueprint pipeline and streams its event
// feed over SSE. The terminal event is always done or error; done carries
// the assembled artifact so the client needs no follow-up fetch.
func (s *apiServer) handleBlueprintStream(w http.ResponseWriter, r *http.Request) {
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
	s.streamRun(w, r, id, s.gen.BlueprintGraph(), &req.Data, func(out pipeline.Outcome) (string, any) {
		bp := blueprint.AssembleBlueprint(id, out, &req.Data)
		s.persist(id, "blueprint", req.OwnerID, bp)
		return "blueprint", bp
	})
}

func (s *apiServer) handleMediaPlanStream(w http.ResponseWriter, r *http.Request) {
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
	id := newRunID("mp")
	s.streamRun(w, r, id, s.gen.MediaPlanGraph(bp), &req.Data, func(out pipeline.Outcome) (string, any) {
		mp := blueprint.AssembleMediaPlan(id, out, bp, &req.Data)
		s.persist(id, "mediaplan", req.OwnerID, mp)
		return "mediaPlan", mp
	})
}

// streamRun executes a graph with an attached emitter, relaying every event
// to the SSE response and publishing to the run store for late watchers.
// assemble turns the outcome into the done payload.
func (s *apiServer) streamRun(w http.ResponseWriter, r *http.Request, id string, g *pipeline.Graph, data pipeline.ContextReader, assemble func(pipeline.Outcome) (string, any)) {
	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, generate.CodeInternal, err.Error())
		return
	}
	rn := s.runs.create(id)
	defer s.runs.remove(id)

	emitter := pipeline.NewEmitter(256)
	sched := s.scheduler(g, pipeline.WithEmitter(emitter), pipeline.WithHeartbeat(s.cfg.Pipeline.Heartbeat))

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Pipeline.OverallTimeout)
	defer cancel()

	outCh := make(chan pipeline.Outcome, 1)
	go func() {
		outCh <- sched.Run(ctx, data)
		emitter.Close()
	}()

	for ev := range emitter.Events() {
		rn.publish(ev)
		if err := sse.send(ev); err != nil {
			// Client went away; let the run finish for the store.
			break
		}
	}
	out := <-outCh

	var final pipeline.Event
	if out.Aborted {
		final = pipeline.Event{
			Type:    pipeline.EventError,
			Message: "pipeline aborted before completion",
			Code:    string(generate.CodeTimeout),
		}
	} else {
		key, artifact := assemble(out)
		final = pipeline.Event{
			Type: pipeline.EventDone,
			Data: map[string]any{
				"success":  out.Success,
				"runId":    id,
				key:        artifact,
				"metadata": runMeta{TotalTimeMs: out.TotalTimeMs, TotalCostUSD: out.TotalCostUSD},
			},
		}
	}
	rn.publish(final)
	rn.finish()
	_ = sse.send(final)
}

// handleWatchSSE attaches to an in-flight background run, replaying the
// history before live events so reconnects are lossless.
func (s *apiServer) handleWatchSSE(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("runId")
	rn, ok := s.runs.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, generate.CodeInvalidInput, "run not found: "+id)
		return
	}
	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, generate.CodeInternal, err.Error())
		return
	}
	history, live := rn.subscribe()
	if live != nil {
		defer rn.unsubscribe(live)
	}
	for _, ev := range history {
		if err := sse.send(ev); err != nil {
			return
		}
	}
	if live == nil {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-live:
			if !ok {
				return
			}
			if err := sse.send(ev); err != nil {
				return
			}
		}
	}
}
