package runtime

import (
	"context"

	"github.com/kinetral/sequitur/pkg/domain"
)

// Hook emitters. Hooks run inside the tick, so each is a direct call
// guarded by a nil check; hook implementations must stay cheap.

func (s *Supervisor) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp: s.clock(),
		Type:      t,
		SessionID: s.sessionID,
	}
}

func (s *Supervisor) emitStateEnter(ctx context.Context, stateID string) {
	if s.hooks.OnStateEnter == nil {
		return
	}
	s.hooks.OnStateEnter(ctx, &domain.StateEvent{
		EventBase: s.base(domain.EventStateEnter),
		StateID:   stateID,
		Tick:      s.tickCountSnapshot(),
	})
}

func (s *Supervisor) emitStateLeave(ctx context.Context, stateID string) {
	if s.hooks.OnStateLeave == nil {
		return
	}
	s.hooks.OnStateLeave(ctx, &domain.StateEvent{
		EventBase: s.base(domain.EventStateLeave),
		StateID:   stateID,
		Tick:      s.tickCountSnapshot(),
	})
}

func (s *Supervisor) emitTransitionFired(ctx context.Context, t domain.Transition, tick uint64) {
	if s.hooks.OnTransitionFired == nil {
		return
	}
	s.hooks.OnTransitionFired(ctx, &domain.TransitionEvent{
		EventBase: s.base(domain.EventTransitionFired),
		From:      t.From,
		To:        t.To,
		Tick:      tick,
	})
}

func (s *Supervisor) emitBindingSwap(ctx context.Context, law, oldLaw string, isError bool) {
	if s.hooks.OnBindingSwap == nil {
		return
	}
	s.hooks.OnBindingSwap(ctx, &domain.BindingEvent{
		EventBase: s.base(domain.EventBindingSwap),
		Law:       law,
		OldLaw:    oldLaw,
		IsError:   isError,
	})
}

func (s *Supervisor) emitFault(ctx context.Context, class domain.FailureClass, reason string) {
	if s.hooks.OnFault == nil {
		return
	}
	s.hooks.OnFault(ctx, &domain.FaultEvent{
		EventBase: s.base(domain.EventFault),
		Class:     class,
		Reason:    reason,
	})
}

func (s *Supervisor) tickCountSnapshot() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickCount
}
