package evaluator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinetral/sequitur/internal/evaluator"
	"github.com/kinetral/sequitur/internal/testutils"
	"github.com/kinetral/sequitur/pkg/domain"
)

func edge(guard domain.GuardSpec) domain.Transition {
	return domain.Transition{From: "approach", To: "grasp", Guard: guard}
}

// pushEval runs one tick: history push followed by evaluation.
func pushEval(e *evaluator.Evaluator, t domain.Transition, seq uint64, signals map[string]float64) (bool, error) {
	snap := testutils.Snap(seq, signals)
	e.Push([]domain.Transition{t}, snap)
	return e.Evaluate(t, snap)
}

func newEval(t domain.Transition) *evaluator.Evaluator {
	return evaluator.New([]domain.State{{ID: t.From, Transitions: []domain.Transition{t}}})
}

func TestEvaluate_Always(t *testing.T) {
	tr := edge(domain.GuardSpec{Op: domain.OpAlways, Window: 1})
	e := newEval(tr)

	ok, err := pushEval(e, tr, 1, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluate_SimpleThreshold(t *testing.T) {
	tr := edge(domain.GuardSpec{Signal: "contact_force", Op: domain.OpGT, Threshold: 5, Window: 1})
	e := newEval(tr)

	ok, err := pushEval(e, tr, 1, map[string]float64{"contact_force": 4.9})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = pushEval(e, tr, 2, map[string]float64{"contact_force": 5.1})
	require.NoError(t, err)
	assert.True(t, ok)
}

// A guard of "contact force > 5N for 3 ticks" fed
// [1N,1N,6N,6N,6N] must satisfy exactly on the 5th tick.
func TestEvaluate_PersistenceWindow(t *testing.T) {
	tr := edge(domain.GuardSpec{Signal: "contact_force", Op: domain.OpGT, Threshold: 5, Window: 3})
	e := newEval(tr)

	trace := []float64{1, 1, 6, 6, 6}
	var fired []int
	for i, f := range trace {
		ok, err := pushEval(e, tr, uint64(i+1), map[string]float64{"contact_force": f})
		require.NoError(t, err)
		if ok {
			fired = append(fired, i+1)
		}
	}
	assert.Equal(t, []int{5}, fired, "guard must fire exactly on tick 5")
}

// A false tick in the middle of a streak restarts the window: N-1
// true, one false, then the guard needs N fresh consecutive true ticks.
func TestEvaluate_WindowInterruption(t *testing.T) {
	tr := edge(domain.GuardSpec{Signal: "contact_force", Op: domain.OpGT, Threshold: 5, Window: 3})
	e := newEval(tr)

	trace := []float64{6, 6, 1, 6, 6, 6}
	var fired []int
	for i, f := range trace {
		ok, err := pushEval(e, tr, uint64(i+1), map[string]float64{"contact_force": f})
		require.NoError(t, err)
		if ok {
			fired = append(fired, i+1)
		}
	}
	assert.Equal(t, []int{6}, fired)
}

func TestEvaluate_MissingSignal(t *testing.T) {
	tr := edge(domain.GuardSpec{Signal: "contact_force", Op: domain.OpGT, Threshold: 5, Window: 1})
	e := newEval(tr)

	ok, err := pushEval(e, tr, 1, map[string]float64{"other": 1})
	assert.False(t, ok)

	var ge *domain.GuardEvaluationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "contact_force", ge.Signal)

	// A missing tick poisons the window even once the signal returns.
	trWindowed := edge(domain.GuardSpec{Signal: "f", Op: domain.OpGT, Threshold: 0, Window: 2})
	e2 := newEval(trWindowed)

	_, err = pushEval(e2, trWindowed, 1, map[string]float64{"f": 1})
	require.NoError(t, err)
	_, err = pushEval(e2, trWindowed, 2, nil) // signal dropout
	require.Error(t, err)
	ok, err = pushEval(e2, trWindowed, 3, map[string]float64{"f": 1})
	require.NoError(t, err)
	assert.False(t, ok, "dropout tick must count against the window")
	ok, err = pushEval(e2, trWindowed, 4, map[string]float64{"f": 1})
	require.NoError(t, err)
	assert.True(t, ok)
}

// Parallel edges between the same states keep separate windows; a
// sibling's unsatisfied samples must not leak into a satisfied guard.
func TestEvaluate_ParallelEdgesIndependentWindows(t *testing.T) {
	slow := domain.Transition{From: "approach", To: "grasp",
		Guard: domain.GuardSpec{Signal: "timeout", Op: domain.OpGE, Threshold: 1, Window: 2}}
	fast := domain.Transition{From: "approach", To: "grasp", Ordinal: 1,
		Guard: domain.GuardSpec{Signal: "contact_force", Op: domain.OpGT, Threshold: 5, Window: 2}}
	e := evaluator.New([]domain.State{{ID: "approach", Transitions: []domain.Transition{slow, fast}}})

	outgoing := []domain.Transition{slow, fast}
	for seq := uint64(1); seq <= 2; seq++ {
		snap := testutils.Snap(seq, map[string]float64{"timeout": 0, "contact_force": 10})
		e.Push(outgoing, snap)

		ok, err := e.Evaluate(slow, snap)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = e.Evaluate(fast, snap)
		require.NoError(t, err)
		assert.Equal(t, seq == 2, ok, "window of 2 fills on the second tick")
	}
}

func TestEvaluate_EqualityWithTolerance(t *testing.T) {
	tr := edge(domain.GuardSpec{Signal: "grip_width", Op: domain.OpEQ, Threshold: 0.04, Tolerance: 0.002, Window: 1})
	e := newEval(tr)

	ok, err := pushEval(e, tr, 1, map[string]float64{"grip_width": 0.041})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = pushEval(e, tr, 2, map[string]float64{"grip_width": 0.05})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResetState_ClearsWindows(t *testing.T) {
	tr := edge(domain.GuardSpec{Signal: "f", Op: domain.OpGT, Threshold: 0, Window: 2})
	e := newEval(tr)

	_, err := pushEval(e, tr, 1, map[string]float64{"f": 1})
	require.NoError(t, err)

	e.ResetState([]domain.Transition{tr})

	// One more satisfied tick is not enough after a reset.
	ok, err := pushEval(e, tr, 2, map[string]float64{"f": 1})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = pushEval(e, tr, 3, map[string]float64{"f": 1})
	require.NoError(t, err)
	assert.True(t, ok)
}

// Determinism: identical snapshot sequences yield identical outcomes.
func TestEvaluate_Deterministic(t *testing.T) {
	run := func() []bool {
		tr := edge(domain.GuardSpec{Signal: "f", Op: domain.OpGE, Threshold: 2, Window: 2})
		e := newEval(tr)
		var outs []bool
		for i, v := range []float64{1, 2, 3, 1, 2, 2, 2} {
			ok, _ := pushEval(e, tr, uint64(i+1), map[string]float64{"f": v})
			outs = append(outs, ok)
		}
		return outs
	}
	assert.Equal(t, run(), run())
}
