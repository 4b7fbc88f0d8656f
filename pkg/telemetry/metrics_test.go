package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinetral/sequitur/pkg/domain"
	"github.com/kinetral/sequitur/pkg/telemetry"
)

func TestHooks_FeedCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics(reg)
	hooks := m.Hooks()

	ctx := context.Background()
	hooks.OnStateEnter(ctx, &domain.StateEvent{StateID: "approach"})
	hooks.OnStateEnter(ctx, &domain.StateEvent{StateID: "approach"})
	hooks.OnTransitionFired(ctx, &domain.TransitionEvent{From: "approach", To: "grasp"})
	hooks.OnBindingSwap(ctx, &domain.BindingEvent{Law: "grasp_law", IsError: true})
	hooks.OnFault(ctx, &domain.FaultEvent{Class: domain.FailureBinding})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StateEnters.WithLabelValues("approach")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("approach", "grasp")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BindSwaps.WithLabelValues("grasp_law", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Faults.WithLabelValues("binding")))
}

func TestSetPhase_ExclusiveGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics(reg)

	m.SetPhase(domain.PhaseRunning)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PhaseGauge.WithLabelValues("running")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.PhaseGauge.WithLabelValues("faulted")))

	m.SetPhase(domain.PhaseFaulted)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.PhaseGauge.WithLabelValues("running")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PhaseGauge.WithLabelValues("faulted")))
}

func TestMerge_CallsBothHookSets(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{
		OnStateEnter: func(context.Context, *domain.StateEvent) { calls = append(calls, "a") },
	}
	b := domain.LifecycleHooks{
		OnStateEnter: func(context.Context, *domain.StateEvent) { calls = append(calls, "b") },
		OnFault:      func(context.Context, *domain.FaultEvent) { calls = append(calls, "b-fault") },
	}

	merged := telemetry.Merge(a, b)
	merged.OnStateEnter(context.Background(), &domain.StateEvent{})
	merged.OnFault(context.Background(), &domain.FaultEvent{})

	require.Equal(t, []string{"a", "b", "b-fault"}, calls)
}

func TestObserveTick(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics(reg)
	m.ObserveTick(42 * time.Microsecond)

	count := testutil.CollectAndCount(m.TickDuration)
	assert.Equal(t, 1, count)
}
