/*
Package sequitur is a runtime supervisor for robot manipulation
sequences: it executes a precomputed task-transition graph by switching
whole-body control laws on an external solver, one decision per control
tick.

It separates the task graph (what the planner decided) from the
continuous control (what the solver executes) and from the estimation
layer (what the sensors say). The supervisor owns only the discrete
part: each tick it evaluates the guards of the current state against
the freshest estimation snapshot, commits at most one transition, and
swaps the solver's control law bind-before-unbind so the robot is never
left without an active controller.

# Concept

A graph state names a control law (a priority-ordered stack of tasks).
A transition carries a guard: a predicate over one estimation signal
that must hold for a persistence window of consecutive ticks before it
fires. The supervisor layers three phases over the graph, Uninitialized,
Running and Faulted, and exposes a small control surface (Start, Abort,
Reset) whose requests take effect at tick boundaries only.

# Usage

Load a YAML graph document, attach a solver backend, and drive the
tick from the host's real-time loop:

	package main

	import (
		"context"
		"log"
		"time"

		"github.com/kinetral/sequitur"
		"github.com/kinetral/sequitur/pkg/adapters/memory"
	)

	func main() {
		sup, err := sequitur.New("pick_place.yaml", memory.NewSolver())
		if err != nil {
			log.Fatal(err)
		}
		if err := sup.Start(""); err != nil {
			log.Fatal(err)
		}

		// The estimation layer publishes snapshots into the mailbox;
		// Run ticks the supervisor until the task finishes or faults.
		if err := sup.Run(context.Background(), 10*time.Millisecond); err != nil {
			log.Fatal(err)
		}
	}

Hosts with their own loop call Tick (or TickNext) directly and hand the
returned binding to the solver interface.
*/
package sequitur
