// Package graph holds the immutable task-transition graph. A Model is
// validated once at construction and read-only afterwards, which makes
// concurrent reads from the control loop safe without locking.
package graph

import (
	"fmt"

	"github.com/kinetral/sequitur/pkg/domain"
)

// Model is the validated, immutable manipulation graph.
type Model struct {
	states  map[string]*domain.State
	order   []string // document order, for deterministic introspection
	entries []string // states with no incoming transitions
}

// New validates the given states and builds a Model. Validation
// failures are collected and returned together as a
// *domain.GraphValidationError; a graph that fails here must never
// reach the supervisor.
func New(states []domain.State) (*Model, error) {
	m := &Model{
		states: make(map[string]*domain.State, len(states)),
		order:  make([]string, 0, len(states)),
	}

	var problems []domain.EdgeError

	for i := range states {
		s := &states[i]
		if s.ID == "" {
			problems = append(problems, domain.EdgeError{
				From: fmt.Sprintf("state[%d]", i), Reason: "missing state id",
			})
			continue
		}
		if _, dup := m.states[s.ID]; dup {
			problems = append(problems, domain.EdgeError{
				From: s.ID, Reason: "duplicate state id",
			})
			continue
		}
		m.states[s.ID] = s
		m.order = append(m.order, s.ID)
	}

	hasIncoming := make(map[string]bool, len(states))

	for _, id := range m.order {
		s := m.states[id]
		siblings := make(map[string]int, len(s.Transitions))
		for ti := range s.Transitions {
			t := &s.Transitions[ti]
			// Normalize: the source is implicit in the owning state,
			// and parallel edges to the same target are numbered so
			// each keeps its own guard history and retry counter.
			t.From = s.ID
			t.Ordinal = siblings[t.To]
			siblings[t.To]++
			if t.To == "" {
				problems = append(problems, domain.EdgeError{
					From: s.ID, Reason: "transition missing target",
				})
				continue
			}
			if _, ok := m.states[t.To]; !ok {
				problems = append(problems, domain.EdgeError{
					From: s.ID, To: t.To, Reason: "target state does not exist",
				})
				continue
			}
			hasIncoming[t.To] = true
			problems = append(problems, validateGuard(t)...)
		}
		if len(s.Transitions) == 0 && !s.Terminal {
			problems = append(problems, domain.EdgeError{
				From: s.ID, Reason: "no outgoing transitions but not marked terminal",
			})
		}
		if s.Terminal && len(s.Transitions) > 0 {
			problems = append(problems, domain.EdgeError{
				From: s.ID, Reason: "terminal state declares outgoing transitions",
			})
		}
		if s.Law == nil {
			problems = append(problems, domain.EdgeError{
				From: s.ID, Reason: "state has no control law",
			})
		}
	}

	for _, id := range m.order {
		if !hasIncoming[id] {
			m.entries = append(m.entries, id)
		}
	}
	if len(m.order) > 0 && len(m.entries) == 0 {
		problems = append(problems, domain.EdgeError{
			Reason: "graph has no entry state (every state has incoming transitions)",
		})
	}
	if len(m.order) == 0 {
		problems = append(problems, domain.EdgeError{Reason: "graph is empty"})
	}

	if len(problems) > 0 {
		return nil, &domain.GraphValidationError{Edges: problems}
	}
	return m, nil
}

// validateGuard rejects malformed guard specs at load time so the tick
// loop never sees one.
func validateGuard(t *domain.Transition) []domain.EdgeError {
	var problems []domain.EdgeError
	g := &t.Guard
	if g.Op == "" {
		g.Op = domain.OpAlways
	}
	if !domain.KnownGuardOp(g.Op) {
		problems = append(problems, domain.EdgeError{
			From: t.From, To: t.To,
			Reason: fmt.Sprintf("unknown guard op %q", g.Op),
		})
	}
	if g.Op != domain.OpAlways && g.Signal == "" {
		problems = append(problems, domain.EdgeError{
			From: t.From, To: t.To, Reason: "guard missing signal",
		})
	}
	if g.Window < 0 {
		problems = append(problems, domain.EdgeError{
			From: t.From, To: t.To,
			Reason: fmt.Sprintf("negative guard window %d", g.Window),
		})
	}
	if g.Window == 0 {
		g.Window = 1
	}
	return problems
}

// Resolve returns the state for id.
func (m *Model) Resolve(id string) (*domain.State, error) {
	s, ok := m.states[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownState, id)
	}
	return s, nil
}

// Outgoing returns the transitions leaving id in declared order. The
// returned slice is owned by the model and must not be mutated.
func (m *Model) Outgoing(id string) ([]domain.Transition, error) {
	s, err := m.Resolve(id)
	if err != nil {
		return nil, err
	}
	return s.Transitions, nil
}

// Entries returns the IDs of states with no incoming transitions.
func (m *Model) Entries() []string {
	return m.entries
}

// States returns all states in document order, for introspection and
// visualization.
func (m *Model) States() []domain.State {
	out := make([]domain.State, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.states[id])
	}
	return out
}

// Terminals returns the IDs of explicitly marked sink states.
func (m *Model) Terminals() []string {
	var out []string
	for _, id := range m.order {
		if m.states[id].Terminal {
			out = append(out, id)
		}
	}
	return out
}

// Len returns the number of states.
func (m *Model) Len() int {
	return len(m.order)
}
