package ports

import (
	"context"

	"github.com/kinetral/sequitur/pkg/domain"
)

// BindingHandle is the opaque token a backend returns for an installed
// control law. The supervisor never inspects it beyond passing it back
// to Unbind and handing it to the real-time loop.
type BindingHandle interface {
	// Spec returns the control law this handle executes.
	Spec() *domain.ControlLawSpec
}

// ControllerBackend is the surface of the external whole-body solver.
//
// Bind must be atomic with respect to the solver's own tick: either the
// law is fully installed before the next solver tick consumes it, or
// Bind fails and the previously installed law keeps running untouched.
// A rejected spec (conflicting DOF claims, infeasible priority stack)
// is reported as *domain.BindingError. The backend never retries.
type ControllerBackend interface {
	Bind(ctx context.Context, spec *domain.ControlLawSpec) (BindingHandle, error)
	Unbind(ctx context.Context, handle BindingHandle) error
}

// CommitAction is a named side effect run atomically with a control law
// swap, e.g. resetting an estimator filter. Actions must be bounded in
// time; a failed action does not roll back the swap but is surfaced to
// the recovery policy.
type CommitAction func(ctx context.Context) error
