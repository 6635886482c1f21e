package ecs

import (
	"reflect"

	"github.com/rotisserie/eris"
)

// Signal is a custom, user typed event sent to an entity.
type Signal[E any] struct {
	Entity EntityId
	Event  E
}

// SubscribeSignal registers handler for signals of type E. ForEntity narrows
// delivery to one entity; other options are ignored.
func SubscribeSignal[E any](s *Store, handler func(Signal[E]), opts ...SubscribeOption) (Subscription, error) {
	if handler == nil {
		return Subscription{}, s.rejectSubscription(eris.Wrap(ErrInvalidSubscription, "nil handler"))
	}
	l := &listener{
		component: -1,
		signal:    reflect.TypeFor[E](),
		deliver: func(id EntityId, payload any) {
			ev, _ := payload.(E)
			handler(Signal[E]{Entity: id, Event: ev})
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	if err := s.validateListener(l); err != nil {
		return Subscription{}, s.rejectSubscription(err)
	}
	return s.events.add(l), nil
}

// EmitSignal delivers ev to the subscribers of E synchronously, in
// registration order.
func EmitSignal[E any](s *Store, id EntityId, ev E) error {
	if _, err := s.lookup(id); err != nil {
		return err
	}
	list := s.events.signals[reflect.TypeFor[E]()]
	if len(list) == 0 {
		return nil
	}
	s.locks++
	defer func() { s.locks-- }()
	var payload any = ev
	for _, l := range list {
		if l.removed || (l.entity != InvalidEntity && l.entity != id) {
			continue
		}
		l.deliver(id, payload)
	}
	return nil
}
