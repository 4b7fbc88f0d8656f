package runtime

import (
	"github.com/kinetral/sequitur/pkg/domain"
	"github.com/kinetral/sequitur/pkg/ports"
)

// ActionRegistry maps commit action names to their implementations.
// Actions are registered before the supervisor starts; referencing an
// unregistered action is a load-time validation error, never a
// runtime surprise.
type ActionRegistry struct {
	actions map[string]ports.CommitAction
}

// NewActionRegistry creates an empty registry.
func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{actions: make(map[string]ports.CommitAction)}
}

// Register adds a named action, replacing any previous registration.
func (r *ActionRegistry) Register(name string, action ports.CommitAction) {
	r.actions[name] = action
}

// Resolve returns the action for name, or nil.
func (r *ActionRegistry) Resolve(name string) ports.CommitAction {
	return r.actions[name]
}

// Validate checks that every commit action referenced by the graph is
// registered, reporting offenders as graph validation problems.
func (r *ActionRegistry) Validate(states []domain.State) error {
	var problems []domain.EdgeError
	for _, s := range states {
		for _, t := range s.Transitions {
			if t.CommitAction == "" {
				continue
			}
			if _, ok := r.actions[t.CommitAction]; !ok {
				problems = append(problems, domain.EdgeError{
					From: s.ID, To: t.To,
					Reason: "unregistered commit action " + t.CommitAction,
				})
			}
		}
	}
	if len(problems) > 0 {
		return &domain.GraphValidationError{Edges: problems}
	}
	return nil
}
