package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kinetral/sequitur"
	"github.com/kinetral/sequitur/pkg/adapters/memory"
	"github.com/kinetral/sequitur/pkg/domain"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the task graph visualization",
	Long: `Loads the graph document and outputs a Mermaid diagram (graph TD)
representing the task sequence. With --describe, renders a human
readable summary of states, laws and guards instead.`,
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("graph")
		if len(args) > 0 {
			path = args[0]
		}
		describe, _ := cmd.Flags().GetBool("describe")

		sup, err := newInspectionSupervisor(path)
		if err != nil {
			fmt.Printf("Error loading graph: %v\n", err)
			os.Exit(1)
		}

		if describe {
			printDescription(sup)
			return
		}
		fmt.Print(sup.Mermaid())
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Bool("describe", false, "Render a readable summary instead of Mermaid")
}

// newInspectionSupervisor loads a graph for offline inspection: the
// simulated solver backend and no-op commit actions keep validation
// honest without touching a robot.
func newInspectionSupervisor(path string, opts ...sequitur.Option) (*sequitur.Supervisor, error) {
	actions, err := documentActions(path)
	if err != nil {
		return nil, err
	}
	for _, name := range actions {
		opts = append(opts, sequitur.WithCommitAction(name, noopAction(name)))
	}
	return sequitur.New(path, memory.NewSolver(), opts...)
}

func printDescription(sup *sequitur.Supervisor) {
	var md strings.Builder
	title := sup.Name
	if title == "" {
		title = "task graph"
	}
	fmt.Fprintf(&md, "# %s\n\n", title)
	fmt.Fprintf(&md, "Entry states: **%s**\n\n", strings.Join(sup.Entries(), ", "))

	for _, s := range sup.States() {
		fmt.Fprintf(&md, "## %s\n\n", s.ID)
		if s.Law != nil {
			fmt.Fprintf(&md, "Law `%s` with %d task(s)", s.Law.Name, len(s.Law.Tasks))
			if len(s.Law.Constraints) > 0 {
				fmt.Fprintf(&md, " and %d constraint(s)", len(s.Law.Constraints))
			}
			md.WriteString("\n\n")
		}
		if s.Terminal {
			md.WriteString("Terminal state.\n\n")
			continue
		}
		for _, t := range s.Transitions {
			fmt.Fprintf(&md, "- to **%s** when %s\n", t.To, describeGuard(t.Guard))
		}
		md.WriteString("\n")
	}

	out := md.String()
	// Pretty-print only on a real terminal; raw markdown pipes cleanly.
	if term.IsTerminal(int(os.Stdout.Fd())) && termenv.ColorProfile() != termenv.Ascii {
		if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle()); err == nil {
			if rendered, err := r.Render(out); err == nil {
				out = rendered
			}
		}
	}
	fmt.Print(out)
}

func describeGuard(g domain.GuardSpec) string {
	if g.Op == domain.OpAlways || g.Op == "" {
		return "always"
	}
	desc := fmt.Sprintf("`%s %s %g`", g.Signal, g.Op, g.Threshold)
	if g.Window > 1 {
		desc = fmt.Sprintf("%s for %d consecutive ticks", desc, g.Window)
	}
	return desc
}
