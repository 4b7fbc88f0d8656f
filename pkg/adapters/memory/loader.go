package memory

import "github.com/kinetral/sequitur/pkg/domain"

// Loader serves a graph that already lives in memory, typically the
// output of a planner or a parsed document.
type Loader struct {
	states []domain.State
	safe   string
}

// NewLoader wraps states as a graph source. safeStateID may be empty
// when the graph has no designated safety posture.
func NewLoader(states []domain.State, safeStateID string) *Loader {
	return &Loader{states: states, safe: safeStateID}
}

// LoadStates returns the wrapped states in their original order.
func (l *Loader) LoadStates() ([]domain.State, error) {
	return l.states, nil
}

// SafeStateID returns the configured safety state.
func (l *Loader) SafeStateID() string { return l.safe }
