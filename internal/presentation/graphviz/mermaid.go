// Package graphviz renders task graphs for inspection tools.
package graphviz

import (
	"fmt"
	"strings"

	"github.com/kinetral/sequitur/pkg/domain"
)

// Overlay contains dynamic state data to visualize on the graph.
type Overlay struct {
	VisitedStates []string
	CurrentState  string
}

// GenerateMermaid produces a Mermaid flowchart from the graph's states.
// Semantic styling:
// - Entry states: ((Circle))
// - Terminal states: [[Subroutine]]
// - Default: [Rectangle]
// Guard summaries label the edges; overlay styles mark visited/current.
func GenerateMermaid(states []domain.State, entries []string, overlay *Overlay) string {
	entrySet := make(map[string]bool, len(entries))
	for _, id := range entries {
		entrySet[id] = true
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, s := range states {
		safeID := sanitizeMermaidID(s.ID)

		opener, closer := "[", "]"
		switch {
		case entrySet[s.ID]:
			opener, closer = "((", "))"
		case s.Terminal:
			opener, closer = "[[", "]]"
		}

		label := s.ID
		if s.Law != nil {
			label = fmt.Sprintf("%s <br/> %s", s.ID, s.Law.Name)
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		for _, t := range s.Transitions {
			safeTo := sanitizeMermaidID(t.To)
			arrow := "-->"
			if cond := guardLabel(t.Guard); cond != "" {
				arrow = fmt.Sprintf("-- \"%s\" -->", cond)
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, safeTo))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedStates {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}
		if overlay.CurrentState != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentState)))
		}
	}

	return sb.String()
}

// guardLabel renders a guard as a short edge annotation.
func guardLabel(g domain.GuardSpec) string {
	if g.Op == domain.OpAlways || g.Op == "" {
		return ""
	}
	label := fmt.Sprintf("%s %s %g", g.Signal, opSymbol(g.Op), g.Threshold)
	if g.Window > 1 {
		label = fmt.Sprintf("%s for %d ticks", label, g.Window)
	}
	return label
}

func opSymbol(op domain.GuardOp) string {
	switch op {
	case domain.OpGT:
		return ">"
	case domain.OpGE:
		return ">="
	case domain.OpLT:
		return "<"
	case domain.OpLE:
		return "<="
	case domain.OpEQ:
		return "=="
	case domain.OpNE:
		return "!="
	}
	return string(op)
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
