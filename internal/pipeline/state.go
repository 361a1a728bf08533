package pipeline

import (
	"stratify/internal/generate"
	llmclient "stratify/internal/llmclient"
)

// Status is the per-section task state machine.
type Status string

const (
	StatusPending     Status = "pending"
	StatusRunning     Status = "running"
	StatusComplete    Status = "complete"
	StatusFailed      Status = "failed"
	StatusUnreachable Status = "unreachable"
)

// SectionResult is produced exactly once per section and read-only
// afterward.
type SectionResult struct {
	Data    map[string]any      `json:"data"`
	Sources []generate.Citation `json:"sources,omitempty"`
	CostUSD float64             `json:"costUsd"`
	Usage   llmclient.Usage     `json:"usage"`
}

// Results maps completed sections to their results.
type Results map[SectionID]SectionResult

// clone returns a shallow copy so handlers never observe in-flight writes.
func (r Results) clone() Results {
	out := make(Results, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Task tracks one section through the run. Mutated only by the scheduler
// loop; immutable once complete or failed.
type Task struct {
	ID            SectionID `json:"id"`
	Status        Status    `json:"status"`
	Retries       int       `json:"retries"`
	DurationMs    int64     `json:"durationMs"`
	FailureReason string    `json:"failureReason,omitempty"`
	FailureCode   string    `json:"failureCode,omitempty"`
}

// State is owned by exactly one pipeline run and never shared across
// concurrent runs. Each section task writes only to its own key in Results,
// via the scheduler's single merge loop.
type State struct {
	Context           ContextReader
	Results           Results
	Tasks             map[SectionID]*Task
	CompletedSections []SectionID
	TotalCostUSD      float64
	Errors            []error
}

func newState(g *Graph, rc ContextReader) *State {
	st := &State{
		Context: rc,
		Results: make(Results, g.Len()),
		Tasks:   make(map[SectionID]*Task, g.Len()),
	}
	for _, id := range g.Sections() {
		st.Tasks[id] = &Task{ID: id, Status: StatusPending}
	}
	return st
}

// Outcome is the final result of a run.
type Outcome struct {
	Success           bool                 `json:"success"`
	Aborted           bool                 `json:"aborted"`
	Results           Results              `json:"results"`
	CompletedSections []SectionID          `json:"completedSections"`
	Incomplete        map[SectionID]string `json:"incomplete,omitempty"` // section -> failureReason
	TotalCostUSD      float64              `json:"totalCost"`
	TotalTimeMs       int64                `json:"totalTime"`
	Errors            []error              `json:"-"`
}
