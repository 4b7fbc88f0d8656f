// Package runtime contains the supervisor state machine: the per-tick
// decision cycle that layers graph states under the Uninitialized /
// Running / Faulted phases, commits transitions against the binding
// registry and re-asserts the law consistency invariant each tick.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/kinetral/sequitur/internal/evaluator"
	"github.com/kinetral/sequitur/internal/graph"
	"github.com/kinetral/sequitur/internal/recovery"
	"github.com/kinetral/sequitur/pkg/binding"
	"github.com/kinetral/sequitur/pkg/domain"
	"github.com/kinetral/sequitur/pkg/ports"
)

// ErrNoSnapshot is returned by TickNext before the first snapshot has
// ever arrived; there is nothing to evaluate yet.
var ErrNoSnapshot = errors.New("no snapshot received yet")

// ErrFaulted is wrapped into Tick errors once the supervisor faults.
var ErrFaulted = errors.New("supervisor faulted")

// Supervisor drives the task graph. All mutation happens on the tick
// driver goroutine; the control surface (Start/Abort/Reset) only posts
// requests that the next tick samples at its boundary, and diagnostics
// readers get value snapshots.
type Supervisor struct {
	graph    *graph.Model
	eval     *evaluator.Evaluator
	registry *binding.Registry
	recovery *recovery.Manager
	actions  *ActionRegistry
	mailbox  *Mailbox
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	clock    func() time.Time

	sessionID   string
	safeStateID string

	// Control surface requests, sampled and cleared at tick start.
	ctrlMu       sync.Mutex
	pendingStart string
	pendingAbort bool
	pendingReset bool

	// Runtime record. Written only by the tick driver; the mutex
	// exists so Diagnostics can take a consistent copy.
	mu              sync.Mutex
	phase           domain.Phase
	current         *domain.State
	tickCount       uint64
	transitionCount uint64
	lastTransition  time.Time
	timingAnomalies uint64
	faultReason     string

	lastSnap *domain.Snapshot
}

// Config collects the collaborators of a Supervisor.
type Config struct {
	Graph       *graph.Model
	Backend     ports.ControllerBackend
	Actions     *ActionRegistry
	Logger      *slog.Logger
	Hooks       domain.LifecycleHooks
	Clock       func() time.Time
	SessionID   string
	SafeStateID string
	RetryLimit  int
}

// NewSupervisor wires a supervisor from its collaborators. The graph
// must already be validated; commit actions referenced by the graph
// must be registered in cfg.Actions.
func NewSupervisor(cfg Config) (*Supervisor, error) {
	if cfg.Graph == nil {
		return nil, errors.New("graph is required")
	}
	if cfg.Backend == nil {
		return nil, errors.New("controller backend is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Actions == nil {
		cfg.Actions = NewActionRegistry()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if err := cfg.Actions.Validate(cfg.Graph.States()); err != nil {
		return nil, err
	}
	if cfg.SafeStateID != "" {
		if _, err := cfg.Graph.Resolve(cfg.SafeStateID); err != nil {
			return nil, fmt.Errorf("safe state: %w", err)
		}
	}

	return &Supervisor{
		graph:       cfg.Graph,
		eval:        evaluator.New(cfg.Graph.States()),
		registry:    binding.NewRegistry(cfg.Backend, cfg.Logger),
		recovery:    recovery.NewManager(cfg.RetryLimit, cfg.Logger),
		actions:     cfg.Actions,
		mailbox:     NewMailbox(),
		logger:      cfg.Logger,
		hooks:       cfg.Hooks,
		clock:       cfg.Clock,
		sessionID:   cfg.SessionID,
		safeStateID: cfg.SafeStateID,
		phase:       domain.PhaseUninitialized,
	}, nil
}

// Mailbox returns the snapshot handoff slot for the estimation layer.
func (s *Supervisor) Mailbox() *Mailbox {
	return s.mailbox
}

// Start requests entry into the graph. With an empty override the
// graph must have exactly one entry state; the designated safe state
// is a posture to abort into, not a starting behavior, so it never
// counts. The bind itself happens at the next tick boundary.
func (s *Supervisor) Start(entryOverride string) error {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()

	if s.Phase() != domain.PhaseUninitialized {
		return domain.ErrAlreadyStarted
	}

	entry := entryOverride
	if entry == "" {
		var entries []string
		for _, id := range s.graph.Entries() {
			if id != s.safeStateID {
				entries = append(entries, id)
			}
		}
		if len(entries) != 1 {
			return fmt.Errorf("graph has %d entry states, explicit override required", len(entries))
		}
		entry = entries[0]
	}
	if _, err := s.graph.Resolve(entry); err != nil {
		return err
	}

	s.pendingStart = entry
	return nil
}

// Abort requests an immediate switch to the safe state followed by a
// fault, bypassing guard evaluation. Takes effect at the next tick.
func (s *Supervisor) Abort() {
	s.ctrlMu.Lock()
	s.pendingAbort = true
	s.ctrlMu.Unlock()
}

// Reset requests a return from Faulted to Uninitialized at the next
// tick boundary. It is the only exit from the faulted phase.
func (s *Supervisor) Reset() error {
	if s.Phase() != domain.PhaseFaulted {
		return fmt.Errorf("reset is only valid from the faulted phase (current: %s)", s.Phase())
	}
	s.ctrlMu.Lock()
	s.pendingReset = true
	s.ctrlMu.Unlock()
	return nil
}

// Phase returns the current supervisor phase.
func (s *Supervisor) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// CurrentStateID returns the current graph state, or "".
func (s *Supervisor) CurrentStateID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.ID
}

// Diagnostics returns a consistent value snapshot for external
// readers, polled at a rate independent of the control tick.
func (s *Supervisor) Diagnostics() domain.Diagnostics {
	s.mu.Lock()
	diag := domain.Diagnostics{
		SessionID:       s.sessionID,
		Phase:           s.phase,
		TickCount:       s.tickCount,
		TransitionCount: s.transitionCount,
		LastTransition:  s.lastTransition,
		TimingAnomalies: s.timingAnomalies,
		BoundLaw:        s.registry.ActiveLaw(),
	}
	if s.current != nil {
		diag.CurrentState = s.current.ID
	}
	faultReason := s.faultReason
	s.mu.Unlock()

	s.recovery.Report(&diag)
	if diag.LastError == "" && faultReason != "" {
		diag.LastError = faultReason
	}
	return diag
}

// TickNext runs one tick using the mailbox: it reads non-blockingly,
// reuses the previous snapshot when no fresh one arrived (a timing
// anomaly, not an error) and skips only if no snapshot ever arrived.
func (s *Supervisor) TickNext(ctx context.Context) (ports.BindingHandle, error) {
	snap, fresh := s.mailbox.Take()
	if fresh {
		s.lastSnap = snap
	} else {
		if s.lastSnap == nil {
			return nil, ErrNoSnapshot
		}
		snap = s.lastSnap
		s.mu.Lock()
		s.timingAnomalies++
		s.mu.Unlock()
		s.logger.Warn("no fresh snapshot, reusing previous", "seq", snap.Seq)
	}
	return s.Tick(ctx, snap)
}

// Tick runs one decision cycle and returns the binding the real-time
// loop must execute. Bounded time, no blocking I/O: control requests
// are sampled first, then guards of the current state are evaluated in
// declared order, the first satisfied one commits, and the consistency
// invariant is re-asserted before returning.
func (s *Supervisor) Tick(ctx context.Context, snap *domain.Snapshot) (ports.BindingHandle, error) {
	start, abort, reset := s.takeControlRequests()

	s.mu.Lock()
	s.tickCount++
	phase := s.phase
	s.mu.Unlock()

	if abort && phase == domain.PhaseRunning {
		return s.handleAbort(ctx)
	}
	if reset && phase == domain.PhaseFaulted {
		return nil, s.handleReset(ctx)
	}
	if start != "" && phase == domain.PhaseUninitialized {
		if err := s.enterGraph(ctx, start); err != nil {
			return nil, err
		}
		return s.registry.Active(), nil
	}

	if phase != domain.PhaseRunning {
		return nil, fmt.Errorf("%w (phase: %s)", domain.ErrNotRunning, phase)
	}

	if err := s.decide(ctx, snap); err != nil {
		return nil, err
	}

	// Defensive invariant: the current state's law and the bound law
	// must never diverge, even after a failed or aborted transition.
	if err := s.assertConsistency(ctx); err != nil {
		return nil, err
	}
	return s.registry.Active(), nil
}

// decide is the guard evaluation and commit half of the tick.
func (s *Supervisor) decide(ctx context.Context, snap *domain.Snapshot) error {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()

	if current.Terminal {
		// Sink state: nothing to evaluate, the law keeps running.
		return nil
	}

	s.eval.Push(current.Transitions, snap)

	for _, t := range current.Transitions {
		satisfied, err := s.eval.Evaluate(t, snap)
		if err != nil {
			// Degraded to "not satisfied" for this tick; counted.
			s.recovery.OnGuardError(t.Key(), err)
			continue
		}
		if !satisfied {
			continue
		}
		// First satisfied guard in declared order wins.
		return s.commit(ctx, current, t)
	}
	return nil
}

// commit swaps in the target state's law: bind new before unbind old,
// run the commit action, then update the runtime record. On bind
// failure the transition aborts, the old binding stays authoritative
// and guards are re-checked fresh on a later tick.
func (s *Supervisor) commit(ctx context.Context, from *domain.State, t domain.Transition) error {
	target, err := s.graph.Resolve(t.To)
	if err != nil {
		return err
	}

	oldLaw := s.registry.ActiveLaw()
	if _, err := s.registry.Swap(ctx, target.Law); err != nil {
		s.emitBindingSwap(ctx, target.Law.Name, oldLaw, true)
		if s.recovery.OnBindError(t.Key(), err) == recovery.Escalate {
			s.fault(ctx, domain.FailureBinding, err.Error())
			return fmt.Errorf("%w: %w", ErrFaulted, err)
		}
		return nil // stay in the current state, retry on a later tick
	}
	s.emitBindingSwap(ctx, target.Law.Name, oldLaw, false)

	if t.CommitAction != "" {
		if action := s.actions.Resolve(t.CommitAction); action != nil {
			if aerr := action(ctx); aerr != nil {
				// The swap stands; commit actions are estimator-side
				// resets and persistent trouble resurfaces as guard
				// errors in the new state.
				s.logger.Warn("commit action failed",
					"action", t.CommitAction, "edge", t.Key(), "err", aerr)
			}
		}
	}

	now := s.clock()
	s.emitStateLeave(ctx, from.ID)
	s.mu.Lock()
	s.current = target
	s.transitionCount++
	s.lastTransition = now
	tick := s.tickCount
	s.mu.Unlock()

	s.recovery.OnTransitionCommitted(t.Key())
	s.eval.ResetState(target.Transitions)

	s.logger.Info("transition committed",
		"from", from.ID, "to", target.ID, "law", target.Law.Name, "tick", tick)
	s.emitTransitionFired(ctx, t, tick)
	s.emitStateEnter(ctx, target.ID)
	return nil
}

// enterGraph performs the Uninitialized -> entry state transition.
func (s *Supervisor) enterGraph(ctx context.Context, entryID string) error {
	entry, err := s.graph.Resolve(entryID)
	if err != nil {
		return err
	}

	if _, err := s.registry.Bind(ctx, entry.Law); err != nil {
		if s.recovery.OnBindError("start->"+entryID, err) == recovery.Escalate {
			s.fault(ctx, domain.FailureBinding, err.Error())
			return fmt.Errorf("%w: %w", ErrFaulted, err)
		}
		// Re-arm the start request so the next tick retries the entry
		// bind against a possibly recovered solver.
		s.ctrlMu.Lock()
		s.pendingStart = entryID
		s.ctrlMu.Unlock()
		return err
	}

	now := s.clock()
	s.mu.Lock()
	s.phase = domain.PhaseRunning
	s.current = entry
	s.lastTransition = now
	s.mu.Unlock()

	s.eval.ResetState(entry.Transitions)
	s.logger.Info("supervisor started", "entry", entryID, "law", entry.Law.Name)
	s.emitStateEnter(ctx, entryID)
	return nil
}

// handleAbort binds the designated safe law (bypassing guards) and
// enters the faulted phase.
func (s *Supervisor) handleAbort(ctx context.Context) (ports.BindingHandle, error) {
	if s.safeStateID != "" {
		safe, err := s.graph.Resolve(s.safeStateID)
		if err == nil {
			oldLaw := s.registry.ActiveLaw()
			if _, berr := s.registry.Swap(ctx, safe.Law); berr != nil {
				s.logger.Error("failed to bind safe law on abort", "err", berr)
				s.emitBindingSwap(ctx, safe.Law.Name, oldLaw, true)
			} else {
				s.emitBindingSwap(ctx, safe.Law.Name, oldLaw, false)
				s.mu.Lock()
				s.current = safe
				s.mu.Unlock()
			}
		}
	}
	s.fault(ctx, domain.FailureNone, "aborted by external request")
	return s.registry.Active(), nil
}

// handleReset releases solver resources and returns the supervisor to
// Uninitialized. Counters, retry budgets and guard windows are
// discarded with it.
func (s *Supervisor) handleReset(ctx context.Context) error {
	if err := s.registry.Release(ctx); err != nil {
		s.logger.Warn("failed to release binding on reset", "err", err)
	}
	s.recovery.Reset()
	s.eval = evaluator.New(s.graph.States())
	s.lastSnap = nil

	s.mu.Lock()
	s.phase = domain.PhaseUninitialized
	s.current = nil
	s.transitionCount = 0
	s.lastTransition = time.Time{}
	s.faultReason = ""
	s.mu.Unlock()

	s.logger.Info("supervisor reset")
	return nil
}

// assertConsistency re-checks the global invariant at the end of the
// tick: the bound law equals the current state's law.
func (s *Supervisor) assertConsistency(ctx context.Context) error {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()
	if current == nil {
		return nil
	}

	active := s.registry.Active()
	if active != nil && current.Law.Equal(active.Spec()) {
		return nil
	}

	violation := &domain.ConsistencyViolation{
		State:    current.ID,
		StateLaw: current.Law.Name,
		BoundLaw: lawName(active),
	}
	s.recovery.OnConsistencyViolation(violation)
	s.fault(ctx, domain.FailureInconsistency, violation.Error())
	return fmt.Errorf("%w: %w", ErrFaulted, violation)
}

func (s *Supervisor) fault(ctx context.Context, class domain.FailureClass, reason string) {
	s.mu.Lock()
	s.phase = domain.PhaseFaulted
	s.faultReason = reason
	s.mu.Unlock()

	s.logger.Error("supervisor faulted", "class", class, "reason", reason)
	s.emitFault(ctx, class, reason)
}

func (s *Supervisor) takeControlRequests() (start string, abort, reset bool) {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	start, abort, reset = s.pendingStart, s.pendingAbort, s.pendingReset
	s.pendingStart, s.pendingAbort, s.pendingReset = "", false, false
	return start, abort, reset
}

func lawName(h ports.BindingHandle) string {
	if h == nil {
		return ""
	}
	return h.Spec().Name
}
