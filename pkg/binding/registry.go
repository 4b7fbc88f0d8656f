// Package binding tracks the live association between control law
// specs and solver resources. The registry serializes all bind/unbind
// traffic toward the backend and remembers which law is authoritative,
// which is what the end-of-tick consistency assertion checks against.
package binding

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/kinetral/sequitur/pkg/domain"
	"github.com/kinetral/sequitur/pkg/ports"
)

// Registry mediates between the supervisor and the solver backend.
// Only the tick driver calls Bind/Swap/Release, so the mutex is
// uncontended in operation; it exists for the diagnostics reader.
type Registry struct {
	backend ports.ControllerBackend
	logger  *slog.Logger

	mu     sync.Mutex
	active ports.BindingHandle
}

// NewRegistry creates a registry over the given backend.
func NewRegistry(backend ports.ControllerBackend, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{backend: backend, logger: logger}
}

// Active returns the currently authoritative binding, or nil before
// the first bind.
func (r *Registry) Active() ports.BindingHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// ActiveLaw returns the name of the bound law, or "".
func (r *Registry) ActiveLaw() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return ""
	}
	return r.active.Spec().Name
}

// Bind installs the first law of a session. Fails if a binding is
// already active; sessions start from a clean solver.
func (r *Registry) Bind(ctx context.Context, spec *domain.ControlLawSpec) (ports.BindingHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return nil, fmt.Errorf("binding already active (%s)", r.active.Spec().Name)
	}

	h, err := r.backend.Bind(ctx, spec)
	if err != nil {
		return nil, err
	}
	r.active = h
	r.logger.Debug("control law bound", "law", spec.Name)
	return h, nil
}

// Swap replaces the active law with spec, binding the new law before
// unbinding the old one so no tick ever runs without an installed
// law. On bind failure the old binding remains authoritative and the
// error is returned untouched for the recovery policy to classify; the
// registry never retries.
func (r *Registry) Swap(ctx context.Context, spec *domain.ControlLawSpec) (ports.BindingHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.active

	h, err := r.backend.Bind(ctx, spec)
	if err != nil {
		return nil, err
	}
	r.active = h

	if old != nil {
		if uerr := r.backend.Unbind(ctx, old); uerr != nil {
			// The new law is installed and authoritative; a failed
			// release of the old resources is logged, not escalated.
			r.logger.Warn("failed to release previous binding",
				"law", old.Spec().Name, "err", uerr)
		}
	}

	r.logger.Debug("control law swapped",
		"law", spec.Name, "old", lawName(old))
	return h, nil
}

// Release unbinds the active law, if any. Used on reset.
func (r *Registry) Release(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil {
		return nil
	}
	err := r.backend.Unbind(ctx, r.active)
	r.active = nil
	return err
}

func lawName(h ports.BindingHandle) string {
	if h == nil {
		return ""
	}
	return h.Spec().Name
}
