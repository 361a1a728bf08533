package pipeline

import (
	"context"
	"fmt"
	"strings"
)

// SectionID names one unit of generated output.
type SectionID string

// ContextReader exposes the onboarding context to dispatch validation.
// Field returns "" for absent or empty fields.
type ContextReader interface {
	Field(name string) string
}

// HandlerFn produces one section's result. Handlers receive a snapshot of
// the dependency results that are already complete; they never see
// in-flight writes.
type HandlerFn func(ctx context.Context, rc ContextReader, deps Results) (SectionResult, error)

// SectionSpec declares what a section needs, not how the scheduler calls it.
type SectionSpec struct {
	ID                    SectionID
	Label                 string
	Phase                 string
	DependsOn             []SectionID
	RequiredContextFields []string
	Optional              bool // overall success tolerates this section not completing
	Run                   HandlerFn
}

// Graph is a static task graph: the full set of section specs for one
// pipeline shape. Built once at startup; the scheduler never branches on
// section identity beyond map lookups into it.
type Graph struct {
	order []SectionID
	specs map[SectionID]SectionSpec
}

// NewGraph validates the section set (unique IDs, known dependencies, no
// cycles) and returns the graph. Declaration order is kept only for
// deterministic iteration; it does not influence scheduling.
func NewGraph(specs ...SectionSpec) (*Graph, error) {
	g := &Graph{specs: make(map[SectionID]SectionSpec, len(specs))}
	for _, s := range specs {
		if s.ID == "" {
			return nil, fmt.Errorf("pipeline: section with empty id")
		}
		if _, dup := g.specs[s.ID]; dup {
			return nil, fmt.Errorf("pipeline: duplicate section %s", s.ID)
		}
		if s.Run == nil {
			return nil, fmt.Errorf("pipeline: section %s has no handler", s.ID)
		}
		g.specs[s.ID] = s
		g.order = append(g.order, s.ID)
	}
	for id, s := range g.specs {
		for _, dep := range s.DependsOn {
			if _, ok := g.specs[dep]; !ok {
				return nil, fmt.Errorf("pipeline: section %s depends on unknown section %s", id, dep)
			}
		}
	}
	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}
	return g, nil
}

// MustGraph panics on an invalid graph; used for the fixed graphs declared
// at startup.
func MustGraph(specs ...SectionSpec) *Graph {
	g, err := NewGraph(specs...)
	if err != nil {
		panic(err)
	}
	return g
}

func (g *Graph) checkAcyclic() error {
	const (
		unseen = 0
		active = 1
		done   = 2
	)
	state := make(map[SectionID]int, len(g.specs))
	var visit func(id SectionID) error
	visit = func(id SectionID) error {
		switch state[id] {
		case active:
			return fmt.Errorf("pipeline: dependency cycle through section %s", id)
		case done:
			return nil
		}
		state[id] = active
		for _, dep := range g.specs[id].DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}
	for id := range g.specs {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of sections.
func (g *Graph) Len() int { return len(g.specs) }

// Sections returns spec IDs in declaration order.
func (g *Graph) Sections() []SectionID {
	out := make([]SectionID, len(g.order))
	copy(out, g.order)
	return out
}

// Spec looks up a section spec.
func (g *Graph) Spec(id SectionID) (SectionSpec, bool) {
	s, ok := g.specs[id]
	return s, ok
}

// CheckDispatch verifies a section may start: every dependency complete in
// results and every required context field non-empty. A violation is a
// descriptive error naming what is missing; sections are never silently
// skipped.
func (g *Graph) CheckDispatch(id SectionID, rc ContextReader, results Results) error {
	spec, ok := g.specs[id]
	if !ok {
		return fmt.Errorf("pipeline: unknown section %s", id)
	}
	for _, dep := range spec.DependsOn {
		if _, done := results[dep]; !done {
			return fmt.Errorf("pipeline: section %s requires %s to be complete", id, dep)
		}
	}
	var missing []string
	for _, f := range spec.RequiredContextFields {
		if rc == nil || strings.TrimSpace(rc.Field(f)) == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("pipeline: section %s missing required context field(s): %s", id, strings.Join(missing, ", "))
	}
	return nil
}

// HasContextFields reports whether the section's required context fields
// are all present; the progressive scheduler uses this as its dispatch
// trigger without treating absence as an error.
func (g *Graph) HasContextFields(id SectionID, rc ContextReader) bool {
	spec, ok := g.specs[id]
	if !ok {
		return false
	}
	for _, f := range spec.RequiredContextFields {
		if rc == nil || strings.TrimSpace(rc.Field(f)) == "" {
			return false
		}
	}
	return true
}

// TransitiveDependents returns every section that depends on id directly or
// transitively. Used to mark unreachable sections after a failure.
func (g *Graph) TransitiveDependents(id SectionID) []SectionID {
	dependents := make(map[SectionID][]SectionID)
	for sid, s := range g.specs {
		for _, dep := range s.DependsOn {
			dependents[dep] = append(dependents[dep], sid)
		}
	}
	seen := make(map[SectionID]bool)
	var out []SectionID
	queue := []SectionID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range dependents[cur] {
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
				queue = append(queue, d)
			}
		}
	}
	return out
}
