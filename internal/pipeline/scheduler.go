package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stratify/internal/generate"
	llmclient "stratify/internal/llmclient"
)

// RetryPolicy bounds per-section retries. Backoff is exponential starting
// at BaseDelay. Counts and delays are configuration, not constants.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond}
}

// Scheduler executes a section task graph: sections whose dependencies are
// complete run concurrently, results merge through a single loop, and a
// failed section strands only its transitive dependents; independent
// branches always run to completion.
type Scheduler struct {
	graph     *Graph
	retry     RetryPolicy
	breaker   *Breaker
	emitter   *Emitter
	heartbeat time.Duration
	log       *slog.Logger
}

type SchedulerOption func(*Scheduler)

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) SchedulerOption {
	return func(s *Scheduler) { s.retry = p }
}

// WithBreaker shares a provider circuit breaker across sections.
func WithBreaker(b *Breaker) SchedulerOption {
	return func(s *Scheduler) { s.breaker = b }
}

// WithEmitter attaches the run's event stream.
func WithEmitter(e *Emitter) SchedulerOption {
	return func(s *Scheduler) { s.emitter = e }
}

// WithHeartbeat sets the metadata heartbeat interval.
func WithHeartbeat(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.heartbeat = d }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.log = l }
}

func NewScheduler(g *Graph, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		graph:     g,
		retry:     DefaultRetryPolicy(),
		heartbeat: 3 * time.Second,
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type completion struct {
	id       SectionID
	result   SectionResult
	err      error
	attempts int
	duration time.Duration
}

// Run executes the graph to quiescence: every section complete, failed, or
// unreachable. A canceled context aborts the whole run: in-flight calls
// stop, nothing further dispatches, and the outcome is an aborted failure
// even if some sections had completed.
func (s *Scheduler) Run(ctx context.Context, rc ContextReader) Outcome {
	start := time.Now()
	st := newState(s.graph, rc)
	completions := make(chan completion, s.graph.Len())
	inFlight := 0

	var ticker *time.Ticker
	var tick <-chan time.Time
	if s.heartbeat > 0 {
		ticker = time.NewTicker(s.heartbeat)
		tick = ticker.C
		defer ticker.Stop()
	}

	dispatch := func() {
		for _, id := range s.graph.Sections() {
			task := st.Tasks[id]
			if task.Status != StatusPending {
				continue
			}
			spec, _ := s.graph.Spec(id)
			if !s.depsComplete(spec, st) {
				continue
			}
			if err := s.graph.CheckDispatch(id, rc, st.Results); err != nil {
				// Missing context fields: a caller error, surfaced loudly,
				// never a silent skip.
				s.failTask(st, id, generate.NewError(generate.CodeInvalidInput, string(id), err), 0, 0)
				continue
			}
			task.Status = StatusRunning
			inFlight++
			s.emitter.Emit(Event{Type: EventSectionStart, Section: id, Phase: spec.Phase, Label: spec.Label})
			go s.runSection(ctx, spec, rc, st.Results.clone(), completions)
		}
	}

	dispatch()
	for inFlight > 0 {
		select {
		case <-ctx.Done():
			return s.abort(st, start)
		case c := <-completions:
			inFlight--
			s.merge(st, c)
			dispatch()
		case <-tick:
			s.emitter.Emit(Event{Type: EventMetadata, Metadata: &Metadata{
				ElapsedTime:       time.Since(start).Milliseconds(),
				EstimatedCost:     st.TotalCostUSD,
				CompletedSections: len(st.CompletedSections),
				TotalSections:     s.graph.Len(),
			}})
		}
	}

	return s.finish(st, start)
}

func (s *Scheduler) depsComplete(spec SectionSpec, st *State) bool {
	for _, dep := range spec.DependsOn {
		if st.Tasks[dep].Status != StatusComplete {
			return false
		}
	}
	return true
}

// runSection executes one section with bounded exponential backoff. The
// breaker is consulted before every attempt; provider faults feed it,
// caller errors do not.
func (s *Scheduler) runSection(ctx context.Context, spec SectionSpec, rc ContextReader, deps Results, out chan<- completion) {
	start := time.Now()
	var lastErr error
	attempts := 0
	for attempt := 0; attempt < s.retry.MaxAttempts; attempt++ {
		attempts = attempt + 1
		if s.breaker != nil && !s.breaker.Allow() {
			lastErr = generate.NewError(generate.CodeCircuitOpen, string(spec.ID),
				fmt.Errorf("provider circuit open"))
			break
		}
		res, err := spec.Run(ctx, rc, deps)
		if err == nil {
			if s.breaker != nil {
				s.breaker.RecordSuccess()
			}
			out <- completion{id: spec.ID, result: res, attempts: attempts, duration: time.Since(start)}
			return
		}
		lastErr = err
		code := generate.CodeOf(err)
		if isProviderFault(code) && s.breaker != nil {
			s.breaker.RecordFailure()
		}
		if !code.Retryable() || isPermanent(err) {
			break
		}
		// Exponential backoff, interrupted by cancellation. A throttled
		// provider's retry hint overrides a shorter backoff.
		delay := s.retry.BaseDelay * time.Duration(1<<attempt)
		if rl, ok := llmclient.AsRateLimited(err); ok && rl.RetryAfter > delay {
			delay = rl.RetryAfter
		}
		select {
		case <-ctx.Done():
			out <- completion{id: spec.ID, err: generate.NewError(generate.CodeTimeout, string(spec.ID), ctx.Err()), attempts: attempts, duration: time.Since(start)}
			return
		case <-time.After(delay):
		}
	}
	out <- completion{id: spec.ID, err: lastErr, attempts: attempts, duration: time.Since(start)}
}

func isProviderFault(code generate.Code) bool {
	switch code {
	case generate.CodeTimeout, generate.CodeRateLimited, generate.CodeAPIError:
		return true
	default:
		return false
	}
}

func isPermanent(err error) bool {
	var p *llmclient.PermanentError
	return errors.As(err, &p)
}

// merge folds a completion into state and emits the transition events.
// Runs only on the scheduler loop goroutine: single writer per key.
func (s *Scheduler) merge(st *State, c completion) {
	task := st.Tasks[c.id]
	task.Retries = c.attempts - 1
	task.DurationMs = c.duration.Milliseconds()
	if c.err != nil {
		s.failTask(st, c.id, c.err, c.attempts, c.duration)
		return
	}
	task.Status = StatusComplete
	st.Results[c.id] = c.result
	st.CompletedSections = append(st.CompletedSections, c.id)
	st.TotalCostUSD += c.result.CostUSD
	spec, _ := s.graph.Spec(c.id)
	s.emitter.Emit(Event{Type: EventSectionComplete, Section: c.id, Phase: spec.Phase, Label: spec.Label, Data: c.result.Data})
	pct := len(st.CompletedSections) * 100 / s.graph.Len()
	s.emitter.Emit(Event{Type: EventProgress, Percentage: pct, Message: fmt.Sprintf("%s complete", spec.Label)})
	s.log.Info("section complete", "section", c.id, "durationMs", task.DurationMs, "retries", task.Retries)
}

// failTask marks a section failed and strands its transitive dependents.
// Sections in independent branches are untouched.
func (s *Scheduler) failTask(st *State, id SectionID, err error, attempts int, d time.Duration) {
	task := st.Tasks[id]
	task.Status = StatusFailed
	task.FailureReason = err.Error()
	task.FailureCode = string(generate.CodeOf(err))
	if attempts > 0 {
		task.Retries = attempts - 1
	}
	task.DurationMs = d.Milliseconds()
	st.Errors = append(st.Errors, err)
	spec, _ := s.graph.Spec(id)
	s.emitter.Emit(Event{Type: EventError, Section: id, Label: spec.Label, Message: err.Error(), Code: task.FailureCode})
	s.log.Warn("section failed", "section", id, "code", task.FailureCode, "err", err)
	for _, dep := range s.graph.TransitiveDependents(id) {
		t := st.Tasks[dep]
		if t.Status == StatusPending {
			t.Status = StatusUnreachable
			t.FailureReason = fmt.Sprintf("dependency %s failed", id)
		}
	}
}

func (s *Scheduler) finish(st *State, start time.Time) Outcome {
	out := Outcome{
		Results:           st.Results,
		CompletedSections: st.CompletedSections,
		TotalCostUSD:      st.TotalCostUSD,
		TotalTimeMs:       time.Since(start).Milliseconds(),
		Errors:            st.Errors,
	}
	out.Success = true
	for _, id := range s.graph.Sections() {
		task := st.Tasks[id]
		if task.Status == StatusComplete {
			continue
		}
		spec, _ := s.graph.Spec(id)
		if !spec.Optional {
			out.Success = false
		}
		if out.Incomplete == nil {
			out.Incomplete = make(map[SectionID]string)
		}
		out.Incomplete[id] = task.FailureReason
	}
	return out
}

// abort produces the whole-pipeline cancellation outcome: never a partial
// success, even when sections had completed. Completed data is kept for
// diagnostics.
func (s *Scheduler) abort(st *State, start time.Time) Outcome {
	err := generate.NewError(generate.CodeTimeout, "", fmt.Errorf("pipeline aborted"))
	st.Errors = append(st.Errors, err)
	incomplete := make(map[SectionID]string)
	for _, id := range s.graph.Sections() {
		if st.Tasks[id].Status != StatusComplete {
			incomplete[id] = "pipeline aborted"
		}
	}
	return Outcome{
		Success:           false,
		Aborted:           true,
		Results:           st.Results,
		CompletedSections: st.CompletedSections,
		Incomplete:        incomplete,
		TotalCostUSD:      st.TotalCostUSD,
		TotalTimeMs:       time.Since(start).Milliseconds(),
		Errors:            st.Errors,
	}
}
