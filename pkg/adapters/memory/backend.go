// Package memory provides in-process adapters: a simulated whole-body
// solver backend and a graph loader over already-parsed states. Both
// are used by trace replay and by tests.
package memory

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/kinetral/sequitur/pkg/domain"
	"github.com/kinetral/sequitur/pkg/ports"
)

// Solver simulates a whole-body solver. It validates control law
// stacks the way a real solver frontend would (DOF claim conflicts,
// empty stacks) and tracks the currently installed law.
type Solver struct {
	mu      sync.Mutex
	bound   *handle
	reject  map[string]int
	latency time.Duration
	logger  *slog.Logger

	binds   int
	unbinds int
}

type handle struct {
	spec *domain.ControlLawSpec
}

func (h *handle) Spec() *domain.ControlLawSpec { return h.spec }

type Option func(*Solver)

// WithLatency makes every Bind take d, simulating solver setup time.
func WithLatency(d time.Duration) Option {
	return func(s *Solver) { s.latency = d }
}

// WithLogger sets the logger for bind/unbind activity.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Solver) { s.logger = logger }
}

// NewSolver creates a simulated solver.
func NewSolver(opts ...Option) *Solver {
	s := &Solver{
		reject: make(map[string]int),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.ControllerBackend = (*Solver)(nil)

// RejectNext makes the next n Bind calls for the named law fail with a
// *domain.BindingError. Used to exercise retry and escalation paths.
func (s *Solver) RejectNext(law string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject[law] = n
}

// Bind validates and installs a control law. Validation runs before
// the simulated setup latency; the timeout branch reads the spec.
func (s *Solver) Bind(ctx context.Context, spec *domain.ControlLawSpec) (ports.BindingHandle, error) {
	if err := validateStack(spec); err != nil {
		return nil, err
	}

	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-ctx.Done():
			return nil, &domain.BindingError{Law: spec.Name, Reason: ctx.Err().Error()}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n := s.reject[spec.Name]; n > 0 {
		s.reject[spec.Name] = n - 1
		s.logger.Warn("solver rejected law", "law", spec.Name, "remaining", n-1)
		return nil, &domain.BindingError{Law: spec.Name, Reason: "solver rejected stack"}
	}

	h := &handle{spec: spec}
	s.bound = h
	s.binds++
	s.logger.Debug("law installed", "law", spec.Name, "tasks", len(spec.Tasks))
	return h, nil
}

// Unbind removes an installed law. Unbinding a handle that is not the
// active one is accepted; swaps unbind the outgoing law after the
// incoming one is already installed.
func (s *Solver) Unbind(_ context.Context, h ports.BindingHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.unbinds++
	if hh, ok := h.(*handle); ok && s.bound == hh {
		s.bound = nil
	}
	if h != nil {
		s.logger.Debug("law removed", "law", h.Spec().Name)
	}
	return nil
}

// Bound returns the currently installed law, or nil.
func (s *Solver) Bound() *domain.ControlLawSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bound == nil {
		return nil
	}
	return s.bound.spec
}

// Counts reports total bind and unbind calls.
func (s *Solver) Counts() (binds, unbinds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.binds, s.unbinds
}

// validateStack rejects specs a real solver could not execute: an
// empty task stack, a feature regulated twice, or a joint claimed
// twice by the same task. Shared joints across priority levels are
// fine; the solver resolves those in the null space.
func validateStack(spec *domain.ControlLawSpec) error {
	if spec == nil {
		return &domain.BindingError{Law: "", Reason: "nil control law spec"}
	}
	if len(spec.Tasks) == 0 {
		return &domain.BindingError{Law: spec.Name, Reason: "empty task stack"}
	}
	features := make(map[string]bool, len(spec.Tasks))
	for _, task := range spec.Tasks {
		if features[task.Feature] {
			return &domain.BindingError{
				Law:    spec.Name,
				Reason: "feature regulated twice: " + task.Feature,
			}
		}
		features[task.Feature] = true

		joints := make(map[string]bool, len(task.Joints))
		for _, j := range task.Joints {
			if joints[j] {
				return &domain.BindingError{
					Law:    spec.Name,
					Reason: "joint claimed twice by " + task.Feature + ": " + j,
				}
			}
			joints[j] = true
		}
	}
	return nil
}
