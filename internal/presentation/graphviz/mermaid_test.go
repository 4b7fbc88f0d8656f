package graphviz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinetral/sequitur/internal/graph"
	"github.com/kinetral/sequitur/internal/presentation/graphviz"
	"github.com/kinetral/sequitur/internal/testutils"
)

func TestGenerateMermaid(t *testing.T) {
	m, err := graph.New(testutils.PickPlaceStates())
	require.NoError(t, err)

	out := graphviz.GenerateMermaid(m.States(), m.Entries(), nil)

	assert.Contains(t, out, "graph TD")
	// Entry state as circle, terminal as subroutine.
	assert.Contains(t, out, `approach(("approach <br/> approach_law"))`)
	assert.Contains(t, out, `place[["place <br/> place_law"]]`)
	// Guard summary on the edge, including the persistence window.
	assert.Contains(t, out, `approach -- "contact_force > 5 for 3 ticks" --> grasp`)
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	m, err := graph.New(testutils.PickPlaceStates())
	require.NoError(t, err)

	out := graphviz.GenerateMermaid(m.States(), m.Entries(), &graphviz.Overlay{
		VisitedStates: []string{"approach", "grasp", "approach"},
		CurrentState:  "grasp",
	})

	assert.Contains(t, out, "class approach visited;")
	assert.Contains(t, out, "class grasp current;")
	// Duplicates collapse to one style line per state.
	assert.Equal(t, 2, countOccurrences(out, "visited;"))
}

func countOccurrences(s, sub string) int {
	n := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			n++
		}
	}
	return n
}
