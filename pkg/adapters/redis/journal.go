// Package redis persists diagnostics snapshots in Redis so that
// off-board tools can inspect a running supervisor without touching
// the tick path.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/kinetral/sequitur/pkg/domain"
	"github.com/kinetral/sequitur/pkg/ports"
)

// ErrNoDiagnostics is returned when a session has no recorded
// snapshots.
var ErrNoDiagnostics = errors.New("no diagnostics recorded for session")

// Journal implements ports.DiagnosticsJournal on Redis. Snapshots are
// kept per session: the latest under a plain key, the history in a
// capped list, newest first.
type Journal struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	cap    int64
}

type Option func(*Journal)

// WithTTL sets the expiration for a session's diagnostics keys.
func WithTTL(ttl time.Duration) Option {
	return func(j *Journal) {
		j.ttl = ttl
	}
}

// WithPrefix sets the key prefix for diagnostics.
func WithPrefix(prefix string) Option {
	return func(j *Journal) {
		j.prefix = prefix
	}
}

// WithHistoryCap bounds how many snapshots a session keeps.
func WithHistoryCap(n int64) Option {
	return func(j *Journal) {
		if n > 0 {
			j.cap = n
		}
	}
}

// New creates a journal with its own client.
func New(address, password string, db int, opts ...Option) *Journal {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a journal from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Journal {
	j := &Journal{
		client: client,
		prefix: "sequitur:diag:",
		ttl:    0, // No expiration by default
		cap:    256,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

var _ ports.DiagnosticsJournal = (*Journal)(nil)

func (j *Journal) latestKey(sessionID string) string {
	return j.prefix + sessionID + ":latest"
}

func (j *Journal) logKey(sessionID string) string {
	return j.prefix + sessionID + ":log"
}

// Append records a snapshot for the session.
func (j *Journal) Append(ctx context.Context, diag domain.Diagnostics) error {
	data, err := json.Marshal(diag)
	if err != nil {
		return fmt.Errorf("failed to marshal diagnostics: %w", err)
	}

	pipe := j.client.Pipeline()
	pipe.Set(ctx, j.latestKey(diag.SessionID), data, j.ttl)
	pipe.LPush(ctx, j.logKey(diag.SessionID), data)
	pipe.LTrim(ctx, j.logKey(diag.SessionID), 0, j.cap-1)
	if j.ttl > 0 {
		pipe.Expire(ctx, j.logKey(diag.SessionID), j.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append to redis: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot for a session.
func (j *Journal) Latest(ctx context.Context, sessionID string) (domain.Diagnostics, error) {
	val, err := j.client.Get(ctx, j.latestKey(sessionID)).Result()
	if err != nil {
		if err == backend.Nil {
			return domain.Diagnostics{}, ErrNoDiagnostics
		}
		return domain.Diagnostics{}, fmt.Errorf("failed to get from redis: %w", err)
	}

	var diag domain.Diagnostics
	if err := json.Unmarshal([]byte(val), &diag); err != nil {
		return domain.Diagnostics{}, fmt.Errorf("failed to unmarshal diagnostics: %w", err)
	}
	return diag, nil
}

// History returns up to limit most recent snapshots, newest first.
func (j *Journal) History(ctx context.Context, sessionID string, limit int) ([]domain.Diagnostics, error) {
	if limit <= 0 {
		limit = int(j.cap)
	}

	vals, err := j.client.LRange(ctx, j.logKey(sessionID), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	if len(vals) == 0 {
		return nil, ErrNoDiagnostics
	}

	out := make([]domain.Diagnostics, 0, len(vals))
	for _, v := range vals {
		var diag domain.Diagnostics
		if err := json.Unmarshal([]byte(v), &diag); err != nil {
			return nil, fmt.Errorf("failed to unmarshal diagnostics: %w", err)
		}
		out = append(out, diag)
	}
	return out, nil
}

// Close closes the redis client.
func (j *Journal) Close() error {
	return j.client.Close()
}
