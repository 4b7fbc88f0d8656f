package domain

import "time"

// Phase is the supervisor-level mode, layered above the graph states.
type Phase string

const (
	// PhaseUninitialized is the state before Start and after Reset.
	PhaseUninitialized Phase = "uninitialized"
	// PhaseRunning mirrors the graph: exactly one graph state is
	// current and its law is bound.
	PhaseRunning Phase = "running"
	// PhaseFaulted is terminal except for an explicit Reset. The
	// real-time loop falls back to its externally supplied safe law.
	PhaseFaulted Phase = "faulted"
)

// Diagnostics is the pull-based snapshot offered to telemetry and UI
// readers. It is a value copy: readers never touch live supervisor
// state.
type Diagnostics struct {
	SessionID string `json:"session_id"`

	Phase        Phase  `json:"phase"`
	CurrentState string `json:"current_state"`
	BoundLaw     string `json:"bound_law"`

	TickCount       uint64    `json:"tick_count"`
	TransitionCount uint64    `json:"transition_count"`
	LastTransition  time.Time `json:"last_transition,omitzero"`

	// Failure counters, keyed by class.
	GuardFailures   uint64 `json:"guard_failures"`
	BindFailures    uint64 `json:"bind_failures"`
	TimingAnomalies uint64 `json:"timing_anomalies"`

	LastError      string       `json:"last_error,omitempty"`
	LastErrorClass FailureClass `json:"last_error_class,omitempty"`
}
