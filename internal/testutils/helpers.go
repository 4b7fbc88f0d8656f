// Package testutils provides graph builders and a scriptable solver
// backend shared by the supervisor test suites.
package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/kinetral/sequitur/pkg/domain"
	"github.com/kinetral/sequitur/pkg/ports"
)

// Law builds a single-task control law spec with the given name.
func Law(name string, joints ...string) *domain.ControlLawSpec {
	if len(joints) == 0 {
		joints = []string{"arm"}
	}
	return &domain.ControlLawSpec{
		Name: name,
		Tasks: []domain.TaskSpec{
			{Feature: name + "_pose", Joints: joints, Gain: domain.GainSpec{Low: 0.1, High: 0.9, LargeError: 0.3}},
		},
	}
}

// PickPlaceStates returns the canonical approach/grasp/transit/place
// fixture used across the suites. The approach->grasp edge carries the
// contact-force persistence guard.
func PickPlaceStates() []domain.State {
	return []domain.State{
		{
			ID:         "approach",
			Law:        Law("approach_law"),
			Estimators: []string{"contact_force"},
			Transitions: []domain.Transition{
				{To: "grasp", Guard: domain.GuardSpec{
					Signal: "contact_force", Op: domain.OpGT, Threshold: 5, Window: 3,
				}},
			},
		},
		{
			ID:  "grasp",
			Law: Law("grasp_law"),
			Transitions: []domain.Transition{
				{To: "transit", Guard: domain.GuardSpec{
					Signal: "grip_closed", Op: domain.OpGE, Threshold: 1,
				}, CommitAction: "reset_estimator"},
			},
		},
		{
			ID:  "transit",
			Law: Law("transit_law"),
			Transitions: []domain.Transition{
				{To: "place", Guard: domain.GuardSpec{
					Signal: "at_goal", Op: domain.OpGE, Threshold: 1,
				}},
			},
		},
		{
			ID:       "place",
			Law:      Law("place_law"),
			Terminal: true,
		},
	}
}

// Snap builds a snapshot with the given sequence number and signals.
func Snap(seq uint64, signals map[string]float64) *domain.Snapshot {
	return &domain.Snapshot{Seq: seq, Stamp: time.Unix(0, int64(seq)*int64(time.Millisecond)), Signals: signals}
}

// FakeHandle is the binding handle returned by FakeBackend.
type FakeHandle struct {
	law *domain.ControlLawSpec
}

// Spec returns the bound control law.
func (h *FakeHandle) Spec() *domain.ControlLawSpec { return h.law }

// FakeBackend is a scriptable ports.ControllerBackend. It records the
// bind/unbind call sequence and can be told to reject specific laws.
type FakeBackend struct {
	mu sync.Mutex

	// RejectLaw causes Bind to fail with a BindingError while the law
	// name matches.
	RejectLaw string
	// RejectCount limits how many times RejectLaw is rejected; zero
	// means always.
	RejectCount int

	rejected int
	bound    *FakeHandle
	Calls    []string
}

// NewFakeBackend returns an empty backend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{}
}

// Bind installs the law unless it is scripted for rejection.
func (b *FakeBackend) Bind(ctx context.Context, spec *domain.ControlLawSpec) (ports.BindingHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if spec.Name == b.RejectLaw && (b.RejectCount == 0 || b.rejected < b.RejectCount) {
		b.rejected++
		b.Calls = append(b.Calls, "bind-fail:"+spec.Name)
		return nil, &domain.BindingError{Law: spec.Name, Reason: "scripted rejection"}
	}

	h := &FakeHandle{law: spec}
	b.bound = h
	b.Calls = append(b.Calls, "bind:"+spec.Name)
	return h, nil
}

// Unbind releases the handle.
func (b *FakeBackend) Unbind(ctx context.Context, handle ports.BindingHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Calls = append(b.Calls, "unbind:"+handle.Spec().Name)
	if b.bound == handle {
		b.bound = nil
	}
	return nil
}

// BoundLaw returns the name of the currently installed law, or "".
func (b *FakeBackend) BoundLaw() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bound == nil {
		return ""
	}
	return b.bound.law.Name
}

// CallLog returns a copy of the recorded call sequence.
func (b *FakeBackend) CallLog() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.Calls))
	copy(out, b.Calls)
	return out
}
