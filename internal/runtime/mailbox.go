package runtime

import (
	"sync/atomic"

	"github.com/kinetral/sequitur/pkg/domain"
)

// Mailbox is the single-producer/single-consumer snapshot handoff
// between the estimation layer and the tick driver. It holds exactly
// one snapshot: a new Put replaces an unconsumed one, so the tick
// always sees the freshest data and never blocks.
type Mailbox struct {
	slot atomic.Pointer[domain.Snapshot]
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Put publishes a snapshot, replacing any unconsumed one.
func (m *Mailbox) Put(snap *domain.Snapshot) {
	m.slot.Store(snap)
}

// Take removes and returns the pending snapshot. The second return is
// false when no fresh snapshot arrived since the last Take; the caller
// reuses the previous snapshot and logs a timing anomaly.
func (m *Mailbox) Take() (*domain.Snapshot, bool) {
	snap := m.slot.Swap(nil)
	return snap, snap != nil
}
