package ports

import "github.com/kinetral/sequitur/pkg/domain"

// GraphLoader defines how the supervisor obtains its task graph. The
// planner supplies the finished graph once, before the supervisor
// starts; there are no incremental edits at runtime.
type GraphLoader interface {
	// LoadStates returns every state of the graph, transitions
	// included, in document order.
	LoadStates() ([]domain.State, error)

	// SafeStateID names the state whose law is bound when an abort is
	// requested, before the supervisor enters the faulted phase. Empty
	// means abort faults without a safety rebind.
	SafeStateID() string
}
