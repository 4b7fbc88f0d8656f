package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinetral/sequitur/pkg/adapters/redis"
	"github.com/kinetral/sequitur/pkg/domain"
)

func newJournal(t *testing.T, opts ...redis.Option) *redis.Journal {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err, "failed to start miniredis")
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	return redis.NewFromClient(client, opts...)
}

func diag(session string, tick uint64, state string) domain.Diagnostics {
	return domain.Diagnostics{
		SessionID:    session,
		Phase:        domain.PhaseRunning,
		CurrentState: state,
		BoundLaw:     state + "_law",
		TickCount:    tick,
	}
}

func TestJournal_AppendAndLatest(t *testing.T) {
	j := newJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, diag("sess-1", 1, "approach")))
	require.NoError(t, j.Append(ctx, diag("sess-1", 2, "grasp")))

	got, err := j.Latest(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.TickCount)
	assert.Equal(t, "grasp", got.CurrentState)
	assert.Equal(t, "grasp_law", got.BoundLaw)
}

func TestJournal_LatestUnknownSession(t *testing.T) {
	j := newJournal(t)

	_, err := j.Latest(context.Background(), "missing")
	assert.ErrorIs(t, err, redis.ErrNoDiagnostics)
}

func TestJournal_HistoryNewestFirst(t *testing.T) {
	j := newJournal(t)
	ctx := context.Background()

	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, j.Append(ctx, diag("sess-1", i, "approach")))
	}

	hist, err := j.History(ctx, "sess-1", 3)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, uint64(5), hist[0].TickCount)
	assert.Equal(t, uint64(4), hist[1].TickCount)
	assert.Equal(t, uint64(3), hist[2].TickCount)
}

func TestJournal_HistoryCap(t *testing.T) {
	j := newJournal(t, redis.WithHistoryCap(2))
	ctx := context.Background()

	for i := uint64(1); i <= 4; i++ {
		require.NoError(t, j.Append(ctx, diag("sess-1", i, "approach")))
	}

	hist, err := j.History(ctx, "sess-1", 0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, uint64(4), hist[0].TickCount)
}

func TestJournal_SessionsAreIsolated(t *testing.T) {
	j := newJournal(t, redis.WithPrefix("robot:diag:"))
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, diag("sess-a", 7, "transit")))
	require.NoError(t, j.Append(ctx, diag("sess-b", 9, "place")))

	a, err := j.Latest(ctx, "sess-a")
	require.NoError(t, err)
	b, err := j.Latest(ctx, "sess-b")
	require.NoError(t, err)

	assert.Equal(t, "transit", a.CurrentState)
	assert.Equal(t, "place", b.CurrentState)

	_, err = j.History(ctx, "sess-c", 10)
	assert.ErrorIs(t, err, redis.ErrNoDiagnostics)
}
