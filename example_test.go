package sequitur_test

import (
	"context"
	"fmt"
	"log"

	"github.com/kinetral/sequitur"
	"github.com/kinetral/sequitur/pkg/adapters/memory"
	"github.com/kinetral/sequitur/pkg/domain"
)

// ExampleNew_memory demonstrates driving a supervisor from an in-memory
// graph definition. This is useful for tests and for hosts whose
// planner hands over states directly instead of a YAML document.
func ExampleNew_memory() {
	// 1. Define the graph: reach for an object, grasp it on sustained
	// contact, hold it. Guards are data, not code.
	reachLaw := &domain.ControlLawSpec{
		Name:  "reach_law",
		Tasks: []domain.TaskSpec{{Feature: "gripper_pose", Joints: []string{"arm_0", "arm_1"}}},
	}
	holdLaw := &domain.ControlLawSpec{
		Name:  "hold_law",
		Tasks: []domain.TaskSpec{{Feature: "grip", Joints: []string{"gripper_0"}}},
	}
	loader := memory.NewLoader([]domain.State{
		{
			ID:  "reach",
			Law: reachLaw,
			Transitions: []domain.Transition{{
				To:    "hold",
				Guard: domain.GuardSpec{Signal: "contact_force", Op: domain.OpGT, Threshold: 5, Window: 2},
			}},
		},
		{ID: "hold", Law: holdLaw, Terminal: true},
	}, "")

	// 2. Initialize with the custom loader and the simulated solver.
	// Note: the path is empty because we are providing a loader.
	sup, err := sequitur.New("", memory.NewSolver(), sequitur.WithLoader(loader))
	if err != nil {
		log.Fatal(err)
	}

	// 3. Request entry; the bind happens at the first tick boundary.
	if err := sup.Start(""); err != nil {
		log.Fatal(err)
	}

	// 4. Tick with estimation snapshots. Sustained contact for two
	// consecutive ticks fires the guard.
	ctx := context.Background()
	for seq := uint64(1); seq <= 3; seq++ {
		snap := &domain.Snapshot{Seq: seq, Signals: map[string]float64{"contact_force": 8}}
		if _, err := sup.Tick(ctx, snap); err != nil {
			log.Fatal(err)
		}
	}

	fmt.Println(sup.CurrentStateID())
	fmt.Println(sup.Diagnostics().BoundLaw)
	// Output:
	// hold
	// hold_law
}
