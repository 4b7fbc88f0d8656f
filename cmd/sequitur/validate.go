package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kinetral/sequitur/internal/config"
	"github.com/kinetral/sequitur/internal/graph"
	"github.com/kinetral/sequitur/pkg/domain"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a graph document for consistency",
	Long: `Parses the graph document and runs full structural validation:
dangling edges, undeclared sinks, missing laws, malformed guards.
Every problem is reported, not just the first one.`,
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("graph")
		if len(args) > 0 {
			path = args[0]
		}

		if err := runValidate(path); err != nil {
			var gve *domain.GraphValidationError
			if errors.As(err, &gve) {
				fmt.Println("Graph is invalid:")
				for _, e := range gve.Edges {
					fmt.Printf("  - %s\n", e)
				}
			} else {
				fmt.Printf("Validation failed: %v\n", err)
			}
			os.Exit(1)
		}
		fmt.Println("Graph is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(path string) error {
	doc, err := config.Load(path)
	if err != nil {
		return err
	}
	states, err := doc.States()
	if err != nil {
		return err
	}
	if _, err := graph.New(states); err != nil {
		return err
	}
	if doc.SafeState != "" {
		found := false
		for _, s := range states {
			if s.ID == doc.SafeState {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("safe_state %q is not a state of the graph", doc.SafeState)
		}
	}
	return nil
}
