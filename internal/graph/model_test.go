package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinetral/sequitur/internal/graph"
	"github.com/kinetral/sequitur/internal/testutils"
	"github.com/kinetral/sequitur/pkg/domain"
)

func TestNew_ValidPickPlace(t *testing.T) {
	m, err := graph.New(testutils.PickPlaceStates())
	require.NoError(t, err)

	assert.Equal(t, 4, m.Len())
	assert.Equal(t, []string{"approach"}, m.Entries())
	assert.Equal(t, []string{"place"}, m.Terminals())

	s, err := m.Resolve("grasp")
	require.NoError(t, err)
	assert.Equal(t, "grasp_law", s.Law.Name)

	out, err := m.Outgoing("approach")
	require.NoError(t, err)
	require.Len(t, out, 1)
	// Source is normalized onto the edge during construction.
	assert.Equal(t, "approach", out[0].From)
	assert.Equal(t, "approach->grasp", out[0].Key())
}

func TestNew_ParallelEdgesGetDistinctKeys(t *testing.T) {
	states := []domain.State{
		{ID: "approach", Law: testutils.Law("approach_law"), Transitions: []domain.Transition{
			{To: "grasp", Guard: domain.GuardSpec{Signal: "timeout", Op: domain.OpGE, Threshold: 1, Window: 2}},
			{To: "grasp", Guard: domain.GuardSpec{Signal: "contact_force", Op: domain.OpGT, Threshold: 5, Window: 2}},
		}},
		{ID: "grasp", Law: testutils.Law("grasp_law"), Terminal: true},
	}
	m, err := graph.New(states)
	require.NoError(t, err)

	out, err := m.Outgoing("approach")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "approach->grasp", out[0].Key())
	assert.Equal(t, "approach->grasp#1", out[1].Key())
}

func TestNew_DanglingTarget(t *testing.T) {
	states := []domain.State{
		{
			ID:  "approach",
			Law: testutils.Law("approach_law"),
			Transitions: []domain.Transition{
				{To: "nowhere", Guard: domain.GuardSpec{Op: domain.OpAlways}},
			},
		},
	}

	_, err := graph.New(states)
	require.Error(t, err)

	var gv *domain.GraphValidationError
	require.ErrorAs(t, err, &gv)
	require.Len(t, gv.Edges, 1)
	assert.Equal(t, "approach", gv.Edges[0].From)
	assert.Equal(t, "nowhere", gv.Edges[0].To)
}

func TestNew_DuplicateIDs(t *testing.T) {
	states := []domain.State{
		{ID: "a", Law: testutils.Law("l1"), Terminal: true},
		{ID: "a", Law: testutils.Law("l2"), Terminal: true},
	}

	_, err := graph.New(states)
	var gv *domain.GraphValidationError
	require.ErrorAs(t, err, &gv)
	assert.Contains(t, gv.Error(), "duplicate state id")
}

func TestNew_NoEntryState(t *testing.T) {
	// Two states forming a cycle: every state has an incoming edge.
	states := []domain.State{
		{ID: "a", Law: testutils.Law("l1"), Transitions: []domain.Transition{
			{To: "b", Guard: domain.GuardSpec{Op: domain.OpAlways}},
		}},
		{ID: "b", Law: testutils.Law("l2"), Transitions: []domain.Transition{
			{To: "a", Guard: domain.GuardSpec{Op: domain.OpAlways}},
		}},
	}

	_, err := graph.New(states)
	var gv *domain.GraphValidationError
	require.ErrorAs(t, err, &gv)
	assert.Contains(t, gv.Error(), "no entry state")
}

func TestNew_UnmarkedSink(t *testing.T) {
	states := []domain.State{
		{ID: "a", Law: testutils.Law("l1"), Transitions: []domain.Transition{
			{To: "b", Guard: domain.GuardSpec{Op: domain.OpAlways}},
		}},
		// b has no transitions and is not marked terminal.
		{ID: "b", Law: testutils.Law("l2")},
	}

	_, err := graph.New(states)
	var gv *domain.GraphValidationError
	require.ErrorAs(t, err, &gv)
	assert.Contains(t, gv.Error(), "not marked terminal")
}

func TestNew_GuardValidation(t *testing.T) {
	t.Run("unknown op", func(t *testing.T) {
		states := []domain.State{
			{ID: "a", Law: testutils.Law("l1"), Transitions: []domain.Transition{
				{To: "b", Guard: domain.GuardSpec{Signal: "f", Op: "between"}},
			}},
			{ID: "b", Law: testutils.Law("l2"), Terminal: true},
		}
		_, err := graph.New(states)
		var gv *domain.GraphValidationError
		require.ErrorAs(t, err, &gv)
		assert.Contains(t, gv.Error(), `unknown guard op "between"`)
	})

	t.Run("missing signal", func(t *testing.T) {
		states := []domain.State{
			{ID: "a", Law: testutils.Law("l1"), Transitions: []domain.Transition{
				{To: "b", Guard: domain.GuardSpec{Op: domain.OpGT, Threshold: 1}},
			}},
			{ID: "b", Law: testutils.Law("l2"), Terminal: true},
		}
		_, err := graph.New(states)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "guard missing signal")
	})

	t.Run("window normalization", func(t *testing.T) {
		states := []domain.State{
			{ID: "a", Law: testutils.Law("l1"), Transitions: []domain.Transition{
				{To: "b", Guard: domain.GuardSpec{Signal: "f", Op: domain.OpGT}},
			}},
			{ID: "b", Law: testutils.Law("l2"), Terminal: true},
		}
		m, err := graph.New(states)
		require.NoError(t, err)
		out, err := m.Outgoing("a")
		require.NoError(t, err)
		assert.Equal(t, 1, out[0].Guard.Window)
	})

	t.Run("empty op defaults to always", func(t *testing.T) {
		states := []domain.State{
			{ID: "a", Law: testutils.Law("l1"), Transitions: []domain.Transition{
				{To: "b"},
			}},
			{ID: "b", Law: testutils.Law("l2"), Terminal: true},
		}
		m, err := graph.New(states)
		require.NoError(t, err)
		out, _ := m.Outgoing("a")
		assert.Equal(t, domain.OpAlways, out[0].Guard.Op)
	})
}

func TestNew_EmptyGraph(t *testing.T) {
	_, err := graph.New(nil)
	var gv *domain.GraphValidationError
	require.ErrorAs(t, err, &gv)
}

func TestResolve_Unknown(t *testing.T) {
	m, err := graph.New(testutils.PickPlaceStates())
	require.NoError(t, err)

	_, err = m.Resolve("warp")
	assert.ErrorIs(t, err, domain.ErrUnknownState)
}
