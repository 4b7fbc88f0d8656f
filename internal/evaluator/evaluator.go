// Package evaluator decides, per tick, whether a transition's guard is
// satisfied. It owns the per-guard rolling windows; guard specs stay
// pure data and snapshots are never retained beyond the tick.
package evaluator

import (
	"math"

	"github.com/kinetral/sequitur/pkg/domain"
)

// Evaluator evaluates transition guards against the latest snapshot
// plus each guard's bounded history. All rings are sized at
// construction, from the graph, so evaluation is allocation-free and
// bounded in time.
type Evaluator struct {
	rings map[string]*ring // keyed by transition key
}

// New builds an evaluator for every transition in the given states.
// Rings exist only for guards that need them (window > 1 keeps a
// window-sized ring; window 1 guards still get a one-slot ring so the
// evaluation path is uniform).
func New(states []domain.State) *Evaluator {
	e := &Evaluator{rings: make(map[string]*ring)}
	for _, s := range states {
		for _, t := range s.Transitions {
			if t.Guard.Op == domain.OpAlways {
				continue
			}
			e.rings[t.Key()] = newRing(t.Guard.Window)
		}
	}
	return e
}

// Push records the snapshot into the history of every guard leaving
// the current state. Called once per tick, before Evaluate. Guards of
// other states are untouched; their windows are reset on state entry
// instead.
func (e *Evaluator) Push(transitions []domain.Transition, snap *domain.Snapshot) {
	for _, t := range transitions {
		if t.Guard.Op == domain.OpAlways {
			continue
		}
		r, ok := e.rings[t.Key()]
		if !ok {
			continue
		}
		v, present := snap.Lookup(t.Guard.Signal)
		r.push(sample{value: v, ok: present})
	}
}

// Evaluate reports whether the transition's guard is satisfied given
// the pushed history. A missing signal on the newest tick surfaces as
// a *domain.GuardEvaluationError; callers treat it as unsatisfied.
func (e *Evaluator) Evaluate(t domain.Transition, snap *domain.Snapshot) (bool, error) {
	g := t.Guard
	if g.Op == domain.OpAlways {
		return true, nil
	}

	if _, present := snap.Lookup(g.Signal); !present {
		return false, &domain.GuardEvaluationError{
			Edge: t.Key(), Signal: g.Signal, Cause: "signal missing from snapshot",
		}
	}

	r, ok := e.rings[t.Key()]
	if !ok {
		// Guard was not registered at load time; treat as unsatisfied.
		return false, &domain.GuardEvaluationError{
			Edge: t.Key(), Signal: g.Signal, Cause: "guard has no history ring",
		}
	}

	return r.window(func(s sample) bool {
		return s.ok && compare(g, s.value)
	}), nil
}

// ResetState clears the windows of every guard leaving the given
// state. Called when the state is entered so persistence counts start
// from zero, and after a failed bind is retried in a later tick the
// guard is still re-checked fresh against live history.
func (e *Evaluator) ResetState(transitions []domain.Transition) {
	for _, t := range transitions {
		if r, ok := e.rings[t.Key()]; ok {
			r.reset()
		}
	}
}

func compare(g domain.GuardSpec, v float64) bool {
	switch g.Op {
	case domain.OpGT:
		return v > g.Threshold
	case domain.OpGE:
		return v >= g.Threshold
	case domain.OpLT:
		return v < g.Threshold
	case domain.OpLE:
		return v <= g.Threshold
	case domain.OpEQ:
		return math.Abs(v-g.Threshold) <= g.Tolerance
	case domain.OpNE:
		return math.Abs(v-g.Threshold) > g.Tolerance
	}
	return false
}
