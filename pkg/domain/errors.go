package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotRunning is returned by Tick when the supervisor has not been
// started or has faulted.
var ErrNotRunning = errors.New("supervisor is not running")

// ErrAlreadyStarted is returned by Start on a running supervisor.
var ErrAlreadyStarted = errors.New("supervisor already started")

// ErrUnknownState is returned when a state ID cannot be resolved in
// the graph.
var ErrUnknownState = errors.New("unknown state")

// FailureClass labels an error for the recovery policy and the
// diagnostics surface.
type FailureClass string

const (
	FailureNone          FailureClass = ""
	FailureGraphInvalid  FailureClass = "graph_validation"
	FailureGuardEval     FailureClass = "guard_evaluation"
	FailureBinding       FailureClass = "binding"
	FailureInconsistency FailureClass = "consistency_violation"
)

// EdgeError describes one malformed edge found during graph validation.
type EdgeError struct {
	From   string
	To     string
	Reason string
}

func (e EdgeError) String() string {
	return fmt.Sprintf("%s -> %s: %s", e.From, e.To, e.Reason)
}

// GraphValidationError is fatal and load-time only: a graph that fails
// validation never reaches the supervisor.
type GraphValidationError struct {
	Edges []EdgeError
}

func (e *GraphValidationError) Error() string {
	reasons := make([]string, len(e.Edges))
	for i, edge := range e.Edges {
		reasons[i] = edge.String()
	}
	return fmt.Sprintf("graph validation failed (%d problems):\n- %s",
		len(e.Edges), strings.Join(reasons, "\n- "))
}

// GuardEvaluationError reports a guard predicate that itself errored,
// typically a stale or missing estimator signal. Recoverable: the
// guard counts as unsatisfied for the tick.
type GuardEvaluationError struct {
	Edge   string
	Signal string
	Cause  string
}

func (e *GuardEvaluationError) Error() string {
	return fmt.Sprintf("guard on %s: signal %q: %s", e.Edge, e.Signal, e.Cause)
}

// BindingError reports a control law the solver rejected (conflicting
// DOF claims, infeasible priority stack). Recoverable with bounded
// retry, then escalates to a fault.
type BindingError struct {
	Law    string
	Reason string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("solver rejected law %q: %s", e.Law, e.Reason)
}

// ConsistencyViolation is the defensive assertion of the tick loop:
// the current state's law and the actually bound law diverged. Always
// fatal; it must never occur in correct operation.
type ConsistencyViolation struct {
	State    string
	StateLaw string
	BoundLaw string
}

func (e *ConsistencyViolation) Error() string {
	return fmt.Sprintf("state %q expects law %q but %q is bound",
		e.State, e.StateLaw, e.BoundLaw)
}

// Classify maps an error to its failure class. Unknown errors are
// treated as consistency-threatening and classified fatal by callers.
func Classify(err error) FailureClass {
	if err == nil {
		return FailureNone
	}
	var gv *GraphValidationError
	var ge *GuardEvaluationError
	var be *BindingError
	var cv *ConsistencyViolation
	switch {
	case errors.As(err, &gv):
		return FailureGraphInvalid
	case errors.As(err, &ge):
		return FailureGuardEval
	case errors.As(err, &be):
		return FailureBinding
	case errors.As(err, &cv):
		return FailureInconsistency
	}
	return FailureNone
}
