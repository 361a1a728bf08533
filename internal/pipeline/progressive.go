package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Progressive runs the same graph rules as Scheduler, but sections are
// triggered opportunistically as their required context fields become
// non-empty: the conversational onboarding flow, where context arrives
// piecemeal instead of all at once.
type Progressive struct {
	sched *Scheduler

	mu          sync.Mutex
	st          *State
	rc          ContextReader
	ctx         context.Context
	inFlight    int
	started     time.Time
	completions chan completion
	finished    chan struct{}
}

func NewProgressive(g *Graph, opts ...SchedulerOption) *Progressive {
	return &Progressive{sched: NewScheduler(g, opts...)}
}

// Events exposes the run's event stream (nil when no emitter configured).
func (p *Progressive) Events() <-chan Event {
	if p.sched.emitter == nil {
		return nil
	}
	return p.sched.emitter.Events()
}

// Start initializes the run and dispatches whatever the initial context
// already allows. The context cancels all in-flight generation.
func (p *Progressive) Start(ctx context.Context, rc ContextReader) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.st != nil {
		return // already started
	}
	p.st = newState(p.sched.graph, rc)
	p.rc = rc
	p.ctx = ctx
	p.started = time.Now()
	p.completions = make(chan completion, p.sched.graph.Len())
	p.finished = make(chan struct{})
	go p.loop()
	p.dispatchLocked()
}

// OnContextUpdate swaps in the latest context snapshot and dispatches every
// section whose dependencies are complete and whose required fields are now
// present. Sections still missing fields simply wait; absence is not an
// error here, unlike the fixed pipeline.
func (p *Progressive) OnContextUpdate(rc ContextReader) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.st == nil {
		return
	}
	p.rc = rc
	p.st.Context = rc
	p.dispatchLocked()
}

func (p *Progressive) dispatchLocked() {
	for _, id := range p.sched.graph.Sections() {
		task := p.st.Tasks[id]
		if task.Status != StatusPending {
			continue
		}
		spec, _ := p.sched.graph.Spec(id)
		if !p.sched.depsComplete(spec, p.st) {
			continue
		}
		if !p.sched.graph.HasContextFields(id, p.rc) {
			continue
		}
		task.Status = StatusRunning
		p.inFlight++
		p.sched.emitter.Emit(Event{Type: EventSectionStart, Section: id, Phase: spec.Phase, Label: spec.Label})
		go p.sched.runSection(p.ctx, spec, p.rc, p.st.Results.clone(), p.completions)
	}
}

func (p *Progressive) loop() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case c := <-p.completions:
			p.mu.Lock()
			p.inFlight--
			p.sched.merge(p.st, c)
			p.dispatchLocked()
			p.mu.Unlock()
		case <-p.finished:
			return
		}
	}
}

// Settled reports whether nothing is running and nothing more can dispatch
// with the current context.
func (p *Progressive) Settled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.st == nil {
		return false
	}
	if p.inFlight > 0 {
		return false
	}
	for _, id := range p.sched.graph.Sections() {
		task := p.st.Tasks[id]
		if task.Status != StatusPending {
			continue
		}
		spec, _ := p.sched.graph.Spec(id)
		if p.sched.depsComplete(spec, p.st) && p.sched.graph.HasContextFields(id, p.rc) {
			return false
		}
	}
	return true
}

// Finish ends the run. Sections never triggered are reported incomplete
// with the fields they were waiting for; they are not silently dropped.
func (p *Progressive) Finish() Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.st == nil {
		return Outcome{Success: false}
	}
	select {
	case <-p.finished:
	default:
		close(p.finished)
	}
	for _, id := range p.sched.graph.Sections() {
		task := p.st.Tasks[id]
		if task.Status == StatusPending {
			spec, _ := p.sched.graph.Spec(id)
			task.Status = StatusUnreachable
			task.FailureReason = fmt.Sprintf("never triggered; waiting on context field(s): %v", spec.RequiredContextFields)
		}
	}
	return p.sched.finish(p.st, p.started)
}
