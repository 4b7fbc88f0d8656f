package ports

import (
	"context"

	"github.com/kinetral/sequitur/pkg/domain"
)

// DiagnosticsJournal persists supervisor diagnostics snapshots for
// off-board inspection. Journals are written outside the tick (by a
// poller goroutine), never from the real-time path.
type DiagnosticsJournal interface {
	// Append records a snapshot for the session.
	Append(ctx context.Context, diag domain.Diagnostics) error

	// Latest returns the most recent snapshot for a session.
	Latest(ctx context.Context, sessionID string) (domain.Diagnostics, error)

	// History returns up to limit most recent snapshots, newest first.
	History(ctx context.Context, sessionID string, limit int) ([]domain.Diagnostics, error)
}
