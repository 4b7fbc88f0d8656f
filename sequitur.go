package sequitur

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kinetral/sequitur/internal/config"
	"github.com/kinetral/sequitur/internal/graph"
	"github.com/kinetral/sequitur/internal/presentation/graphviz"
	"github.com/kinetral/sequitur/internal/runtime"
	"github.com/kinetral/sequitur/pkg/domain"
	"github.com/kinetral/sequitur/pkg/ports"
)

// Version of the library.
const Version = "0.1.0"

// Supervisor is the high-level entry point. It wraps the internal
// runtime and provides a simplified API for hosts embedding the
// sequencer: load a graph, attach a solver backend, then drive Tick
// from the real-time loop.
type Supervisor struct {
	runtime *runtime.Supervisor
	graph   *graph.Model
	loader  ports.GraphLoader
	backend ports.ControllerBackend
	actions *runtime.ActionRegistry
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	clock   func() time.Time

	sessionID  string
	safeState  string
	entryState string
	retryLimit int

	Name string
}

// Option defines a functional option for configuring the Supervisor.
type Option func(*Supervisor)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Supervisor) {
		s.hooks = hooks
	}
}

// WithLoader injects a custom GraphLoader, bypassing the default YAML
// document loading.
func WithLoader(l ports.GraphLoader) Option {
	return func(s *Supervisor) {
		s.loader = l
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// WithCommitAction registers a named commit action. Every action the
// graph references must be registered before New returns.
func WithCommitAction(name string, action ports.CommitAction) Option {
	return func(s *Supervisor) {
		s.actions.Register(name, action)
	}
}

// WithSessionID fixes the session identifier (default: random UUID).
func WithSessionID(id string) Option {
	return func(s *Supervisor) {
		s.sessionID = id
	}
}

// WithSafeState overrides the document's safe state.
func WithSafeState(id string) Option {
	return func(s *Supervisor) {
		s.safeState = id
	}
}

// WithEntryState configures the entry override passed to Start when
// the host calls Run. Graphs with a single entry do not need it.
func WithEntryState(id string) Option {
	return func(s *Supervisor) {
		s.entryState = id
	}
}

// WithRetryLimit bounds consecutive bind attempts per edge (default 3).
func WithRetryLimit(n int) Option {
	return func(s *Supervisor) {
		s.retryLimit = n
	}
}

// WithClock sets the time source, used by tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Supervisor) {
		s.clock = clock
	}
}

// New initializes a Supervisor from a graph document and a solver
// backend. By default docPath names a YAML graph document; if the
// WithLoader option is provided, docPath can be empty and the file is
// skipped.
func New(docPath string, backend ports.ControllerBackend, opts ...Option) (*Supervisor, error) {
	if backend == nil {
		return nil, fmt.Errorf("controller backend is required")
	}

	sup := &Supervisor{
		backend:    backend,
		actions:    runtime.NewActionRegistry(),
		retryLimit: 3,
	}

	// Apply options first to check if a loader is provided.
	for _, opt := range opts {
		opt(sup)
	}

	if sup.loader == nil {
		if docPath == "" {
			return nil, fmt.Errorf("docPath is required when no custom loader is provided")
		}
		doc, err := config.Load(docPath)
		if err != nil {
			return nil, err
		}
		sup.Name = doc.Name
		if sup.Name == "" {
			sup.Name = filepath.Base(docPath)
		}
		sup.loader = docLoader{doc: doc}
	} else if docPath != "" {
		sup.Name = filepath.Base(docPath)
	}

	states, err := sup.loader.LoadStates()
	if err != nil {
		return nil, err
	}
	model, err := graph.New(states)
	if err != nil {
		return nil, err
	}
	sup.graph = model

	if sup.safeState == "" {
		sup.safeState = sup.loader.SafeStateID()
	}
	if sup.sessionID == "" {
		sup.sessionID = uuid.NewString()
	}
	if sup.logger == nil {
		sup.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if sup.Name != "" {
		sup.logger = sup.logger.With("graph", sup.Name)
	}

	sup.runtime, err = runtime.NewSupervisor(runtime.Config{
		Graph:       model,
		Backend:     backend,
		Actions:     sup.actions,
		Logger:      sup.logger,
		Hooks:       sup.hooks,
		Clock:       sup.clock,
		SessionID:   sup.sessionID,
		SafeStateID: sup.safeState,
		RetryLimit:  sup.retryLimit,
	})
	if err != nil {
		return nil, err
	}
	return sup, nil
}

// docLoader adapts a parsed YAML document to the GraphLoader port.
type docLoader struct {
	doc *config.Document
}

func (l docLoader) LoadStates() ([]domain.State, error) { return l.doc.States() }
func (l docLoader) SafeStateID() string                 { return l.doc.SafeState }

// Start requests entry into the graph at the next tick boundary. An
// empty entryOverride uses the graph's single entry state; the
// designated safe state is never a default entry candidate.
func (s *Supervisor) Start(entryOverride string) error {
	if entryOverride == "" {
		entryOverride = s.entryState
	}
	return s.runtime.Start(entryOverride)
}

// Abort requests an immediate switch to the safe law followed by a
// fault, bypassing guard evaluation.
func (s *Supervisor) Abort() {
	s.runtime.Abort()
}

// Reset returns a faulted supervisor to Uninitialized.
func (s *Supervisor) Reset() error {
	return s.runtime.Reset()
}

// Tick runs one decision cycle against the given snapshot and returns
// the binding the real-time loop must execute.
func (s *Supervisor) Tick(ctx context.Context, snap *domain.Snapshot) (ports.BindingHandle, error) {
	return s.runtime.Tick(ctx, snap)
}

// TickNext runs one decision cycle against the freshest mailbox
// snapshot, reusing the previous one when none arrived in time.
func (s *Supervisor) TickNext(ctx context.Context) (ports.BindingHandle, error) {
	return s.runtime.TickNext(ctx)
}

// Mailbox returns the snapshot handoff slot for the estimation layer.
func (s *Supervisor) Mailbox() *runtime.Mailbox {
	return s.runtime.Mailbox()
}

// Phase returns the current supervisor phase.
func (s *Supervisor) Phase() domain.Phase {
	return s.runtime.Phase()
}

// CurrentStateID returns the current graph state, or "".
func (s *Supervisor) CurrentStateID() string {
	return s.runtime.CurrentStateID()
}

// Diagnostics returns a value snapshot for external readers.
func (s *Supervisor) Diagnostics() domain.Diagnostics {
	return s.runtime.Diagnostics()
}

// SessionID returns the identifier diagnostics are journaled under.
func (s *Supervisor) SessionID() string {
	return s.sessionID
}

// States returns the validated graph states in document order.
func (s *Supervisor) States() []domain.State {
	return s.graph.States()
}

// Entries returns the graph's entry state IDs.
func (s *Supervisor) Entries() []string {
	return s.graph.Entries()
}

// Mermaid renders the task graph as a Mermaid flowchart, highlighting
// the current state when the supervisor is running.
func (s *Supervisor) Mermaid() string {
	var overlay *graphviz.Overlay
	if id := s.runtime.CurrentStateID(); id != "" {
		overlay = &graphviz.Overlay{CurrentState: id}
	}
	return graphviz.GenerateMermaid(s.graph.States(), s.graph.Entries(), overlay)
}

// Run drives the supervisor from its mailbox at the given period until
// ctx is cancelled, a terminal state is reached, or the supervisor
// faults. It is a convenience for hosts without their own real-time
// loop; ticks that find an empty mailbox before the first snapshot are
// skipped.
func (s *Supervisor) Run(ctx context.Context, period time.Duration) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if _, err := s.runtime.TickNext(ctx); err != nil {
			if errors.Is(err, runtime.ErrNoSnapshot) || errors.Is(err, domain.ErrNotRunning) {
				continue
			}
			if errors.Is(err, runtime.ErrFaulted) {
				return err
			}
			// Transient, e.g. an entry bind still being retried.
			s.logger.Warn("tick error", "err", err)
			continue
		}

		if s.runtime.Phase() == domain.PhaseFaulted {
			diag := s.runtime.Diagnostics()
			return fmt.Errorf("%w: %s", runtime.ErrFaulted, diag.LastError)
		}
		if id := s.runtime.CurrentStateID(); id != "" {
			if st, err := s.graph.Resolve(id); err == nil && st.Terminal {
				return nil
			}
		}
	}
}
