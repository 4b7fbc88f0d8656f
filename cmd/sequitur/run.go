package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kinetral/sequitur"
	"github.com/kinetral/sequitur/internal/config"
	"github.com/kinetral/sequitur/internal/logging"
	"github.com/kinetral/sequitur/internal/runtime"
	"github.com/kinetral/sequitur/pkg/domain"
	"github.com/kinetral/sequitur/pkg/ports"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay a snapshot trace against the graph",
	Long: `Feeds a recorded estimation trace through the supervisor with the
simulated solver backend. The same trace always yields the same
transition sequence, which makes replays usable as regression checks.
The final diagnostics are printed as JSON on stdout.`,
	Run: func(cmd *cobra.Command, args []string) {
		graphPath, _ := cmd.Flags().GetString("graph")
		tracePath, _ := cmd.Flags().GetString("trace")
		entry, _ := cmd.Flags().GetString("entry")
		level, _ := cmd.Flags().GetString("log-level")

		if err := runReplay(graphPath, tracePath, entry, level); err != nil {
			fmt.Printf("Replay failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("trace", "t", "", "Path to the snapshot trace (required)")
	runCmd.Flags().StringP("entry", "e", "", "Entry state override")
	runCmd.MarkFlagRequired("trace")
}

func runReplay(graphPath, tracePath, entry, level string) error {
	trace, err := config.LoadTrace(tracePath)
	if err != nil {
		return err
	}

	logger := logging.New(logging.ParseLevel(level))
	opts := []sequitur.Option{
		sequitur.WithLogger(logger),
		sequitur.WithLifecycleHooks(domain.LifecycleHooks{
			OnTransitionFired: func(_ context.Context, e *domain.TransitionEvent) {
				fmt.Printf("tick %d: %s -> %s\n", e.Tick, e.From, e.To)
			},
			OnFault: func(_ context.Context, e *domain.FaultEvent) {
				fmt.Printf("fault (%s): %s\n", e.Class, e.Reason)
			},
		}),
	}
	if trace.Session != "" {
		opts = append(opts, sequitur.WithSessionID(trace.Session))
	}

	sup, err := newInspectionSupervisor(graphPath, opts...)
	if err != nil {
		return err
	}
	if err := sup.Start(entry); err != nil {
		return err
	}

	ctx := context.Background()
	for _, snap := range trace.Snapshots() {
		if _, err := sup.Tick(ctx, snap); err != nil {
			if errors.Is(err, runtime.ErrFaulted) || errors.Is(err, domain.ErrNotRunning) {
				break
			}
			return err
		}
	}

	return json.NewEncoder(os.Stdout).Encode(sup.Diagnostics())
}

// documentActions extracts the commit action names a document
// references so replays can stub them.
func documentActions(path string) ([]string, error) {
	doc, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	states, err := doc.States()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var names []string
	for _, s := range states {
		for _, t := range s.Transitions {
			if t.CommitAction != "" && !seen[t.CommitAction] {
				seen[t.CommitAction] = true
				names = append(names, t.CommitAction)
			}
		}
	}
	return names, nil
}

func noopAction(name string) ports.CommitAction {
	return func(context.Context) error {
		slog.Debug("commit action stubbed", "action", name)
		return nil
	}
}
