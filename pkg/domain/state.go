package domain

// State represents one discrete manipulation mode in the task graph,
// e.g. "approach", "pregrasp/left", "transit".
type State struct {
	ID string `json:"id" yaml:"id"`

	// Law describes the whole-body control law executed while this
	// state is current. Shared by reference with the binding registry;
	// never mutated after graph construction.
	Law *ControlLawSpec `json:"law" yaml:"law"`

	// Estimators lists the sensor/estimator handles this state's law
	// and guards depend on (e.g. "wrist_ft", "object_pose").
	Estimators []string `json:"estimators,omitempty" yaml:"estimators,omitempty"`

	// Transitions defines the admissible exits from this state, in
	// declared order. Declared order is the tie-break when several
	// guards are satisfied on the same tick.
	Transitions []Transition `json:"transitions,omitempty" yaml:"transitions,omitempty"`

	// Terminal marks an intentional sink state. A state without
	// outgoing transitions that is not marked terminal fails graph
	// validation; sinks are declared, never inferred.
	Terminal bool `json:"terminal,omitempty" yaml:"terminal,omitempty"`

	// Metadata allows for extensible key-value pairs (planner hints,
	// display names).
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// TaskSpec is a single task inside a control law stack: a feature the
// solver regulates, the joints it may use, and its gain schedule.
type TaskSpec struct {
	// Feature names the regulated quantity, e.g. "gripper_pose",
	// "com_balance", "posture".
	Feature string `json:"feature" yaml:"feature"`

	// Joints lists the DOF subset this task claims. Two tasks of the
	// same law may not claim the same joint at the same priority.
	Joints []string `json:"joints,omitempty" yaml:"joints,omitempty"`

	// Gain parameterizes the adaptive gain applied to the task error.
	Gain GainSpec `json:"gain,omitempty" yaml:"gain,omitempty"`

	// Measured selects the measured (perception) signal source for the
	// task reference instead of the planned one.
	Measured bool `json:"measured,omitempty" yaml:"measured,omitempty"`
}

// GainSpec mirrors the adaptive gain parameterization of the solver:
// the gain decays from High at zero error to Low at LargeError.
type GainSpec struct {
	Low        float64 `json:"low,omitempty" yaml:"low,omitempty"`
	High       float64 `json:"high,omitempty" yaml:"high,omitempty"`
	LargeError float64 `json:"large_error,omitempty" yaml:"large_error,omitempty"`
}

// ControlLawSpec describes the continuous controller stack activated
// for a state: a priority-ordered list of tasks plus auxiliary
// constraint tasks appended below the stack.
type ControlLawSpec struct {
	Name string `json:"name" yaml:"name"`

	// Tasks in priority order, highest first. The solver resolves
	// lower-priority tasks in the null space of higher ones.
	Tasks []TaskSpec `json:"tasks" yaml:"tasks"`

	// Constraints are auxiliary tasks (joint limits, collision
	// avoidance) always appended below Tasks.
	Constraints []TaskSpec `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

// Equal reports whether two specs denote the same control law. Specs
// are shared by reference, so pointer identity is the fast path; the
// name comparison covers specs rebuilt from a persisted document.
func (s *ControlLawSpec) Equal(other *ControlLawSpec) bool {
	if s == other {
		return true
	}
	if s == nil || other == nil {
		return false
	}
	return s.Name == other.Name
}
