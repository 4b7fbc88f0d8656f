// Package telemetry exposes supervisor activity as Prometheus metrics.
// It attaches through lifecycle hooks, keeping the tick path free of
// metric plumbing when telemetry is not wanted.
package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kinetral/sequitur/pkg/domain"
)

// Metrics holds the supervisor's Prometheus collectors.
type Metrics struct {
	TickDuration prometheus.Histogram
	Transitions  *prometheus.CounterVec
	BindSwaps    *prometheus.CounterVec
	Faults       *prometheus.CounterVec
	StateEnters  *prometheus.CounterVec
	PhaseGauge   *prometheus.GaugeVec
}

// NewMetrics creates and registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sequitur",
			Name:      "tick_duration_seconds",
			Help:      "Duration of the supervisor decision cycle.",
			Buckets:   prometheus.ExponentialBuckets(5e-6, 2, 12),
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sequitur",
			Name:      "transitions_total",
			Help:      "Committed transitions by edge.",
		}, []string{"from", "to"}),
		BindSwaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sequitur",
			Name:      "binding_swaps_total",
			Help:      "Control law swaps against the solver by outcome.",
		}, []string{"law", "outcome"}),
		Faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sequitur",
			Name:      "faults_total",
			Help:      "Supervisor faults by failure class.",
		}, []string{"class"}),
		StateEnters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sequitur",
			Name:      "state_entries_total",
			Help:      "Graph state entries.",
		}, []string{"state"}),
		PhaseGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sequitur",
			Name:      "phase",
			Help:      "Current supervisor phase (1 for active phase, 0 otherwise).",
		}, []string{"phase"}),
	}
	reg.MustRegister(m.TickDuration, m.Transitions, m.BindSwaps,
		m.Faults, m.StateEnters, m.PhaseGauge)
	return m
}

// Hooks returns lifecycle hooks feeding these metrics.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateEnter: func(_ context.Context, e *domain.StateEvent) {
			m.StateEnters.WithLabelValues(e.StateID).Inc()
		},
		OnTransitionFired: func(_ context.Context, e *domain.TransitionEvent) {
			m.Transitions.WithLabelValues(e.From, e.To).Inc()
		},
		OnBindingSwap: func(_ context.Context, e *domain.BindingEvent) {
			outcome := "ok"
			if e.IsError {
				outcome = "rejected"
			}
			m.BindSwaps.WithLabelValues(e.Law, outcome).Inc()
		},
		OnFault: func(_ context.Context, e *domain.FaultEvent) {
			m.Faults.WithLabelValues(string(e.Class)).Inc()
		},
	}
}

// ObserveTick records one tick duration.
func (m *Metrics) ObserveTick(d time.Duration) {
	m.TickDuration.Observe(d.Seconds())
}

// SetPhase updates the phase gauge.
func (m *Metrics) SetPhase(p domain.Phase) {
	for _, phase := range []domain.Phase{
		domain.PhaseUninitialized, domain.PhaseRunning, domain.PhaseFaulted,
	} {
		v := 0.0
		if phase == p {
			v = 1
		}
		m.PhaseGauge.WithLabelValues(string(phase)).Set(v)
	}
}

// Merge combines hook sets so metrics can coexist with user hooks.
func Merge(a, b domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateEnter:      mergeState(a.OnStateEnter, b.OnStateEnter),
		OnStateLeave:      mergeState(a.OnStateLeave, b.OnStateLeave),
		OnTransitionFired: mergeTransition(a.OnTransitionFired, b.OnTransitionFired),
		OnBindingSwap:     mergeBinding(a.OnBindingSwap, b.OnBindingSwap),
		OnFault:           mergeFault(a.OnFault, b.OnFault),
	}
}

func mergeState(fns ...func(context.Context, *domain.StateEvent)) func(context.Context, *domain.StateEvent) {
	return func(ctx context.Context, e *domain.StateEvent) {
		for _, fn := range fns {
			if fn != nil {
				fn(ctx, e)
			}
		}
	}
}

func mergeTransition(fns ...func(context.Context, *domain.TransitionEvent)) func(context.Context, *domain.TransitionEvent) {
	return func(ctx context.Context, e *domain.TransitionEvent) {
		for _, fn := range fns {
			if fn != nil {
				fn(ctx, e)
			}
		}
	}
}

func mergeBinding(fns ...func(context.Context, *domain.BindingEvent)) func(context.Context, *domain.BindingEvent) {
	return func(ctx context.Context, e *domain.BindingEvent) {
		for _, fn := range fns {
			if fn != nil {
				fn(ctx, e)
			}
		}
	}
}

func mergeFault(fns ...func(context.Context, *domain.FaultEvent)) func(context.Context, *domain.FaultEvent) {
	return func(ctx context.Context, e *domain.FaultEvent) {
		for _, fn := range fns {
			if fn != nil {
				fn(ctx, e)
			}
		}
	}
}
