// Package domain holds the core types shared across the supervisor:
// manipulation states, guarded transitions, control law specifications,
// sensor snapshots and the error taxonomy.
//
// Everything here is plain data. The graph side (State, Transition,
// GuardSpec, ControlLawSpec) is immutable once a graph is constructed;
// the runtime side (Diagnostics) is a value snapshot safe to hand out
// to concurrent readers.
package domain
