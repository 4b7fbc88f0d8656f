package domain

import "strconv"

// GuardOp is the comparison operator of a guard predicate.
type GuardOp string

const (
	OpAlways GuardOp = "always" // unconditional, fires on any snapshot
	OpGT     GuardOp = "gt"
	OpGE     GuardOp = "ge"
	OpLT     GuardOp = "lt"
	OpLE     GuardOp = "le"
	OpEQ     GuardOp = "eq" // equality within Tolerance
	OpNE     GuardOp = "ne"
)

// KnownGuardOp reports whether op is part of the guard vocabulary.
func KnownGuardOp(op GuardOp) bool {
	switch op {
	case OpAlways, OpGT, OpGE, OpLT, OpLE, OpEQ, OpNE:
		return true
	}
	return false
}

// GuardSpec is the explicit, tagged configuration of a transition
// guard. Guards with persistence requirements ("contact force above
// threshold for N consecutive ticks") carry Window > 1; the evaluator
// owns the ring buffer that backs them, not the spec.
//
// Guards are deliberately not closures: keeping them as data makes
// them unit-testable in isolation and lets graph validation reject
// malformed guards at load time.
type GuardSpec struct {
	// Signal is the snapshot key the predicate reads, e.g.
	// "contact_force". Empty only for the "always" op.
	Signal string `json:"signal,omitempty" yaml:"signal,omitempty"`

	Op        GuardOp `json:"op" yaml:"op"`
	Threshold float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`

	// Tolerance applies to eq/ne comparisons.
	Tolerance float64 `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`

	// Window is the number of consecutive satisfied ticks required
	// before the guard fires. Zero is normalized to 1 at load time.
	Window int `json:"window,omitempty" yaml:"window,omitempty"`
}

// Transition defines one admissible edge of the task graph.
type Transition struct {
	From string `json:"from,omitempty" yaml:"from,omitempty"`
	To   string `json:"to" yaml:"to"`

	Guard GuardSpec `json:"guard" yaml:"guard"`

	// CommitAction names a side effect registered with the supervisor
	// that runs atomically with the control law swap (e.g.
	// "reset_estimator"). Empty means no action.
	CommitAction string `json:"commit_action,omitempty" yaml:"commit_action,omitempty"`

	// Ordinal distinguishes parallel edges between the same state
	// pair. Assigned at graph load; zero for the first (or only) edge.
	Ordinal int `json:"-" yaml:"-"`
}

// Key returns a stable identifier for the edge, used for guard
// history, retry counters and logging. Parallel edges between the
// same states get distinct keys via their ordinal.
func (t Transition) Key() string {
	if t.Ordinal > 0 {
		return t.From + "->" + t.To + "#" + strconv.Itoa(t.Ordinal)
	}
	return t.From + "->" + t.To
}
