// Package recovery implements the failure policy of the tick loop:
// which errors degrade, which retry, and which fault the supervisor.
package recovery

import (
	"io"
	"log/slog"
	"sync"

	"github.com/kinetral/sequitur/pkg/domain"
)

// Decision tells the tick loop what to do with a classified failure.
type Decision int

const (
	// Degrade: treat as a non-event for this tick (guard counts as
	// unsatisfied) and keep running.
	Degrade Decision = iota
	// Retry: stay in the current state; the transition may be
	// re-attempted on a later tick with fresh guard evaluation.
	Retry
	// Escalate: the retry budget is exhausted or the error is fatal;
	// the supervisor must fault.
	Escalate
)

// Manager counts failures, applies the per-transition retry bound and
// records the last error for diagnostics. It is mutated only by the
// tick driver; the mutex protects the diagnostics reader.
type Manager struct {
	retryLimit int
	logger     *slog.Logger

	mu            sync.Mutex
	attempts      map[string]int // bind attempts per transition key
	guardFailures uint64
	bindFailures  uint64
	lastErr       error
	lastClass     domain.FailureClass
}

// NewManager creates a manager with the given bind retry limit.
// A limit below 1 is normalized to 1 (a single attempt, no retry).
func NewManager(retryLimit int, logger *slog.Logger) *Manager {
	if retryLimit < 1 {
		retryLimit = 1
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		retryLimit: retryLimit,
		logger:     logger,
		attempts:   make(map[string]int),
	}
}

// OnGuardError records a guard evaluation failure. Always degrades:
// the guard is unsatisfied for this tick and nothing else changes.
func (m *Manager) OnGuardError(edge string, err error) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.guardFailures++
	m.lastErr = err
	m.lastClass = domain.FailureGuardEval
	m.logger.Debug("guard evaluation degraded", "edge", edge, "err", err)
	return Degrade
}

// OnBindError records a failed bind attempt for the transition and
// decides between retrying on a later tick and escalating.
func (m *Manager) OnBindError(edge string, err error) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bindFailures++
	m.attempts[edge]++
	m.lastErr = err
	m.lastClass = domain.FailureBinding

	if m.attempts[edge] >= m.retryLimit {
		m.logger.Error("bind retry budget exhausted",
			"edge", edge, "attempts", m.attempts[edge], "err", err)
		return Escalate
	}
	m.logger.Warn("bind failed, transition aborted",
		"edge", edge, "attempt", m.attempts[edge], "limit", m.retryLimit, "err", err)
	return Retry
}

// OnConsistencyViolation records the invariant breach. Always fatal.
func (m *Manager) OnConsistencyViolation(err error) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastErr = err
	m.lastClass = domain.FailureInconsistency
	m.logger.Error("consistency invariant violated", "err", err)
	return Escalate
}

// OnTransitionCommitted clears the retry counter of the edge that
// succeeded. Other edges keep their counts for the session.
func (m *Manager) OnTransitionCommitted(edge string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attempts, edge)
}

// Reset restores the manager to its initial state. Called on
// supervisor reset only.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = make(map[string]int)
	m.guardFailures = 0
	m.bindFailures = 0
	m.lastErr = nil
	m.lastClass = domain.FailureNone
}

// Report fills the failure fields of a diagnostics snapshot.
func (m *Manager) Report(diag *domain.Diagnostics) {
	m.mu.Lock()
	defer m.mu.Unlock()
	diag.GuardFailures = m.guardFailures
	diag.BindFailures = m.bindFailures
	diag.LastErrorClass = m.lastClass
	if m.lastErr != nil {
		diag.LastError = m.lastErr.Error()
	}
}
