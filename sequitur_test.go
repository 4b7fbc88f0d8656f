package sequitur_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinetral/sequitur"
	"github.com/kinetral/sequitur/pkg/adapters/memory"
	"github.com/kinetral/sequitur/pkg/domain"
)

const pickPlaceDoc = `
version: 1
name: pick_place_demo
safe_state: retract
states:
  - id: approach
    law:
      name: approach_law
      tasks:
        - feature: gripper_pose
          joints: [arm_0, arm_1]
    transitions:
      - to: grasp
        guard:
          signal: contact_force
          op: gt
          threshold: 5
          window: 2
  - id: grasp
    law:
      name: grasp_law
      tasks:
        - feature: grip
    transitions:
      - to: place
        guard:
          signal: grip_closed
          op: ge
          threshold: 1
        commit_action: reset_estimator
  - id: place
    law:
      name: place_law
      tasks:
        - feature: gripper_pose
    terminal: true
  - id: retract
    law:
      name: retract_law
      tasks:
        - feature: posture
    terminal: true
`

func writeDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pick_place.yaml")
	require.NoError(t, os.WriteFile(path, []byte(pickPlaceDoc), 0o644))
	return path
}

func snap(seq uint64, signals map[string]float64) *domain.Snapshot {
	return &domain.Snapshot{Seq: seq, Stamp: time.Now(), Signals: signals}
}

func TestNew_LoadsDocument(t *testing.T) {
	sup, err := sequitur.New(writeDoc(t), memory.NewSolver(),
		sequitur.WithCommitAction("reset_estimator", func(context.Context) error { return nil }),
	)
	require.NoError(t, err)

	assert.Equal(t, "pick_place_demo", sup.Name)
	assert.Equal(t, domain.PhaseUninitialized, sup.Phase())
	assert.Len(t, sup.States(), 4)
	assert.NotEmpty(t, sup.SessionID())
}

func TestNew_RejectsUnregisteredCommitAction(t *testing.T) {
	_, err := sequitur.New(writeDoc(t), memory.NewSolver())

	var gve *domain.GraphValidationError
	require.ErrorAs(t, err, &gve)
}

func TestNew_RequiresBackend(t *testing.T) {
	_, err := sequitur.New(writeDoc(t), nil)
	require.Error(t, err)
}

func TestSupervisor_FullSequence(t *testing.T) {
	solver := memory.NewSolver()
	actionRuns := 0
	sup, err := sequitur.New(writeDoc(t), solver,
		sequitur.WithCommitAction("reset_estimator", func(context.Context) error {
			actionRuns++
			return nil
		}),
		sequitur.WithSessionID("sess-test"),
	)
	require.NoError(t, err)

	// approach and retract are both roots here, but retract is the
	// designated safety posture and never a default entry candidate.
	require.NoError(t, sup.Start(""))

	ctx := context.Background()
	quiet := map[string]float64{"contact_force": 0, "grip_closed": 0}
	contact := map[string]float64{"contact_force": 8, "grip_closed": 0}
	closed := map[string]float64{"contact_force": 8, "grip_closed": 1}

	_, err = sup.Tick(ctx, snap(1, quiet))
	require.NoError(t, err)
	assert.Equal(t, "approach", sup.CurrentStateID())
	assert.Equal(t, domain.PhaseRunning, sup.Phase())

	// Window is 2: one contact tick is not enough.
	_, err = sup.Tick(ctx, snap(2, contact))
	require.NoError(t, err)
	assert.Equal(t, "approach", sup.CurrentStateID())

	_, err = sup.Tick(ctx, snap(3, contact))
	require.NoError(t, err)
	assert.Equal(t, "grasp", sup.CurrentStateID())

	h, err := sup.Tick(ctx, snap(4, closed))
	require.NoError(t, err)
	assert.Equal(t, "place", sup.CurrentStateID())
	assert.Equal(t, "place_law", h.Spec().Name)
	assert.Equal(t, 1, actionRuns)

	diag := sup.Diagnostics()
	assert.Equal(t, "sess-test", diag.SessionID)
	assert.Equal(t, uint64(2), diag.TransitionCount)
	assert.Equal(t, "place_law", diag.BoundLaw)
}

func TestSupervisor_AbortBindsSafeLaw(t *testing.T) {
	solver := memory.NewSolver()
	sup, err := sequitur.New(writeDoc(t), solver,
		sequitur.WithCommitAction("reset_estimator", func(context.Context) error { return nil }),
	)
	require.NoError(t, err)
	require.NoError(t, sup.Start("approach"))

	ctx := context.Background()
	_, err = sup.Tick(ctx, snap(1, map[string]float64{"contact_force": 0}))
	require.NoError(t, err)

	sup.Abort()
	_, err = sup.Tick(ctx, snap(2, map[string]float64{"contact_force": 0}))
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseFaulted, sup.Phase())
	require.NotNil(t, solver.Bound())
	assert.Equal(t, "retract_law", solver.Bound().Name)
}

func TestSupervisor_WithLoaderBypassesFile(t *testing.T) {
	states := []domain.State{
		{
			ID:       "hold",
			Law:      &domain.ControlLawSpec{Name: "hold_law", Tasks: []domain.TaskSpec{{Feature: "posture"}}},
			Terminal: true,
		},
	}
	sup, err := sequitur.New("", memory.NewSolver(),
		sequitur.WithLoader(memory.NewLoader(states, "")))
	require.NoError(t, err)

	require.NoError(t, sup.Start(""))
	_, err = sup.Tick(context.Background(), snap(1, nil))
	require.NoError(t, err)
	assert.Equal(t, "hold", sup.CurrentStateID())
}

func TestSupervisor_Mermaid(t *testing.T) {
	sup, err := sequitur.New(writeDoc(t), memory.NewSolver(),
		sequitur.WithCommitAction("reset_estimator", func(context.Context) error { return nil }),
	)
	require.NoError(t, err)

	out := sup.Mermaid()
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "contact_force > 5 for 2 ticks")
}

func TestSupervisor_RunReachesTerminal(t *testing.T) {
	sup, err := sequitur.New(writeDoc(t), memory.NewSolver(),
		sequitur.WithCommitAction("reset_estimator", func(context.Context) error { return nil }),
		sequitur.WithEntryState("approach"),
	)
	require.NoError(t, err)
	require.NoError(t, sup.Start(""))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Estimation publisher: contact immediately, grip closed as well,
	// so the sequence runs through to the terminal place state.
	done := make(chan struct{})
	go func() {
		defer close(done)
		seq := uint64(0)
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Millisecond):
				seq++
				sup.Mailbox().Put(snap(seq, map[string]float64{
					"contact_force": 8,
					"grip_closed":   1,
				}))
			}
		}
	}()

	err = sup.Run(ctx, 2*time.Millisecond)
	cancel()
	<-done

	require.NoError(t, err)
	assert.Equal(t, "place", sup.CurrentStateID())
}
