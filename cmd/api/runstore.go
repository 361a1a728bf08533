package main

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"stratify/internal/pipeline"
)

// runStore tracks background runs so watchers can attach after the run
// started. Each run keeps its full event history; a late subscriber gets a
// replay before live events, so reconnects never miss section completions.
type runStore struct {
	mu   sync.RWMutex
	runs map[string]*run
}

type run struct {
	mu      sync.Mutex
	history []pipeline.Event
	subs    map[chan pipeline.Event]struct{}
	done    bool
}

func newRunStore() *runStore {
	return &runStore{runs: make(map[string]*run)}
}

func newRunID(prefix string) string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return prefix + "_" + hex.EncodeToString(b[:])
}

func (s *runStore) create(id string) *run {
	r := &run{subs: make(map[chan pipeline.Event]struct{})}
	s.mu.Lock()
	s.runs[id] = r
	s.mu.Unlock()
	return r
}

func (s *runStore) get(id string) (*run, bool) {
	s.mu.RLock()
	r, ok := s.runs[id]
	s.mu.RUnlock()
	return r, ok
}

func (s *runStore) remove(id string) {
	s.mu.Lock()
	delete(s.runs, id)
	s.mu.Unlock()
}

// publish appends to history and fans out to live subscribers. A slow
// subscriber drops events rather than stalling the run; the history replay
// on reconnect recovers them.
func (r *run) publish(ev pipeline.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return
	}
	r.history = append(r.history, ev)
	for ch := range r.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// finish closes every subscriber channel. The history stays readable until
// the run is removed from the store.
func (r *run) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return
	}
	r.done = true
	for ch := range r.subs {
		close(ch)
	}
	r.subs = make(map[chan pipeline.Event]struct{})
}

// subscribe returns the replayed history plus a live channel. The channel
// is nil when the run already finished.
func (r *run) subscribe() ([]pipeline.Event, chan pipeline.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	history := make([]pipeline.Event, len(r.history))
	copy(history, r.history)
	if r.done {
		return history, nil
	}
	ch := make(chan pipeline.Event, 64)
	r.subs[ch] = struct{}{}
	return history, ch
}

func (r *run) unsubscribe(ch chan pipeline.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[ch]; ok {
		delete(r.subs, ch)
	}
}
