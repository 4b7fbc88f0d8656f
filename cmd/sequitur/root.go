package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sequitur",
	Short: "Sequitur supervises robot manipulation sequences",
	Long: `Sequitur executes a precomputed task-transition graph by switching
whole-body control laws on a solver backend, one decision per control tick.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("graph", "g", "graph.yaml", "Path to the task graph document")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}
