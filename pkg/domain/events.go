package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStateEnter      EventType = "state_enter"
	EventStateLeave      EventType = "state_leave"
	EventTransitionFired EventType = "transition_fired"
	EventBindingSwap     EventType = "binding_swap"
	EventFault           EventType = "fault"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// StateEvent represents entry into or exit from a graph state.
type StateEvent struct {
	EventBase
	StateID string `json:"state_id"`
	Tick    uint64 `json:"tick"`
}

// TransitionEvent represents a fired transition, including the tick it
// committed on.
type TransitionEvent struct {
	EventBase
	From string `json:"from"`
	To   string `json:"to"`
	Tick uint64 `json:"tick"`
}

// BindingEvent represents a control law swap against the solver.
type BindingEvent struct {
	EventBase
	Law     string `json:"law"`
	OldLaw  string `json:"old_law,omitempty"`
	IsError bool   `json:"is_error,omitempty"`
}

// FaultEvent represents entry into the faulted phase.
type FaultEvent struct {
	EventBase
	Class  FailureClass `json:"class"`
	Reason string       `json:"reason"`
}

// LifecycleHooks defines callbacks for supervisor observability.
// Hooks run inside the tick and must be cheap and non-blocking.
type LifecycleHooks struct {
	OnStateEnter      func(context.Context, *StateEvent)
	OnStateLeave      func(context.Context, *StateEvent)
	OnTransitionFired func(context.Context, *TransitionEvent)
	OnBindingSwap     func(context.Context, *BindingEvent)
	OnFault           func(context.Context, *FaultEvent)
}
