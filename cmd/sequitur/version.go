package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kinetral/sequitur"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of sequitur",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sequitur version %s\n", sequitur.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
