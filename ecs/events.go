package ecs

import (
	"math/bits"
	"reflect"

	"github.com/rotisserie/eris"
)

// EventKind identifies a structural or value change. Kinds are bit flags so a
// subscription can listen to several at once.
type EventKind uint16

const (
	EntityCreated EventKind = 1 << iota
	EntityDeleted
	ComponentAdded
	ComponentUpdated
	ComponentRemoved
	TagsAdded
	TagsRemoved
	RelationAdded
	RelationRemoved

	eventKindCount = iota
)

const (
	ComponentChanged = ComponentAdded | ComponentUpdated | ComponentRemoved
	TagsChanged      = TagsAdded | TagsRemoved
	RelationChanged  = RelationAdded | RelationRemoved
	AllEvents        = EventKind(1<<eventKindCount - 1)
)

func (k EventKind) String() string {
	switch k {
	case EntityCreated:
		return "EntityCreated"
	case EntityDeleted:
		return "EntityDeleted"
	case ComponentAdded:
		return "ComponentAdded"
	case ComponentUpdated:
		return "ComponentUpdated"
	case ComponentRemoved:
		return "ComponentRemoved"
	case TagsAdded:
		return "TagsAdded"
	case TagsRemoved:
		return "TagsRemoved"
	case RelationAdded:
		return "RelationAdded"
	case RelationRemoved:
		return "RelationRemoved"
	}
	return "EventKind(combined)"
}

// Event describes one change. Component is set for component and relation
// events, Tags for tag events, Target for relation events.
type Event struct {
	Kind      EventKind
	Entity    EntityId
	Component ComponentID
	Tags      Mask
	Target    EntityId
}

// Subscription is the token returned by Subscribe and SubscribeSignal.
type Subscription struct {
	id uint64
}

type listener struct {
	id        uint64
	kinds     EventKind
	entity    EntityId
	component int16
	tags      Mask
	handler   func(Event)
	signal    reflect.Type
	deliver   func(EntityId, any)
	removed   bool
}

func (l *listener) matches(ev Event) bool {
	if l.entity != InvalidEntity && l.entity != ev.Entity {
		return false
	}
	if l.component >= 0 && (ev.Kind&(ComponentChanged|RelationChanged) == 0 || ComponentID(l.component) != ev.Component) {
		return false
	}
	if !l.tags.IsEmpty() && !ev.Tags.HasAny(l.tags) {
		return false
	}
	return true
}

// SubscribeOption narrows a subscription.
type SubscribeOption func(*listener)

// ForEntity only delivers events about id.
func ForEntity(id EntityId) SubscribeOption {
	return func(l *listener) {
		l.entity = id
		if id == InvalidEntity {
			l.entity = ^EntityId(0)
		}
	}
}

// ForComponent only delivers component or relation events about component id.
func ForComponent(id ComponentID) SubscribeOption {
	return func(l *listener) {
		l.component = int16(id)
	}
}

// ForTag only delivers tag events touching tag id.
func ForTag(id TagID) SubscribeOption {
	return func(l *listener) {
		l.tags = l.tags.With(uint8(id))
	}
}

// eventBus keeps one copy-on-write listener list per event kind so a handler
// may unsubscribe while a dispatch is running.
type eventBus struct {
	nextId  uint64
	active  EventKind
	byKind  [eventKindCount][]*listener
	signals map[reflect.Type][]*listener
	byId    map[uint64]*listener
}

func newEventBus() *eventBus {
	return &eventBus{
		signals: make(map[reflect.Type][]*listener),
		byId:    make(map[uint64]*listener),
	}
}

func (b *eventBus) add(l *listener) Subscription {
	b.nextId++
	l.id = b.nextId
	b.byId[l.id] = l
	if l.signal != nil {
		b.signals[l.signal] = appendListener(b.signals[l.signal], l)
		return Subscription{id: l.id}
	}
	for k := l.kinds; k != 0; k &= k - 1 {
		i := bits.TrailingZeros16(uint16(k))
		b.byKind[i] = appendListener(b.byKind[i], l)
	}
	b.active |= l.kinds
	return Subscription{id: l.id}
}

func (b *eventBus) remove(sub Subscription) bool {
	l, ok := b.byId[sub.id]
	if !ok {
		return false
	}
	delete(b.byId, sub.id)
	l.removed = true
	if l.signal != nil {
		b.signals[l.signal] = withoutListener(b.signals[l.signal], l)
		return true
	}
	for k := l.kinds; k != 0; k &= k - 1 {
		i := bits.TrailingZeros16(uint16(k))
		b.byKind[i] = withoutListener(b.byKind[i], l)
		if len(b.byKind[i]) == 0 {
			b.active &^= EventKind(1) << i
		}
	}
	return true
}

func appendListener(list []*listener, l *listener) []*listener {
	out := make([]*listener, len(list), len(list)+1)
	copy(out, list)
	return append(out, l)
}

func withoutListener(list []*listener, l *listener) []*listener {
	out := make([]*listener, 0, len(list))
	for _, x := range list {
		if x != l {
			out = append(out, x)
		}
	}
	return out
}

// Subscribe registers handler for every kind in kinds. Handlers run
// synchronously on the mutating call, in registration order, with the store
// locked against structural changes.
func (s *Store) Subscribe(kinds EventKind, handler func(Event), opts ...SubscribeOption) (Subscription, error) {
	if handler == nil {
		return Subscription{}, s.rejectSubscription(eris.Wrap(ErrInvalidSubscription, "nil handler"))
	}
	if kinds == 0 || kinds&^AllEvents != 0 {
		return Subscription{}, s.rejectSubscription(eris.Wrapf(ErrInvalidSubscription, "event kinds %#x", uint16(kinds)))
	}
	l := &listener{kinds: kinds, component: -1, handler: handler}
	for _, opt := range opts {
		opt(l)
	}
	if err := s.validateListener(l); err != nil {
		return Subscription{}, s.rejectSubscription(err)
	}
	return s.events.add(l), nil
}

// Unsubscribe removes a subscription. It returns false if sub is not active.
func (s *Store) Unsubscribe(sub Subscription) bool {
	return s.events.remove(sub)
}

// OnComponentChanged subscribes handler to additions, updates and removals of T.
func OnComponentChanged[T any](s *Store, handler func(Event), opts ...SubscribeOption) (Subscription, error) {
	ct, err := s.registry.attachable(reflect.TypeFor[T]())
	if err != nil {
		return Subscription{}, s.rejectSubscription(err)
	}
	return s.Subscribe(ComponentChanged, handler, append(opts, ForComponent(ct.id))...)
}

func (s *Store) validateListener(l *listener) error {
	if l.entity != InvalidEntity && !s.IsAlive(l.entity) {
		return eris.Wrapf(ErrInvalidSubscription, "entity %d is not alive", l.entity)
	}
	if l.component >= 0 && int(l.component) >= len(s.registry.components) {
		return eris.Wrapf(ErrComponentNotRegistered, "component id %d", l.component)
	}
	for bit := range l.tags.Bits() {
		if int(bit) >= len(s.registry.tags) {
			return eris.Wrapf(ErrTagNotRegistered, "tag id %d", bit)
		}
	}
	return nil
}

func (s *Store) rejectSubscription(err error) error {
	s.logger.Warn().Err(err).Msg("subscription rejected")
	return err
}

// emit delivers ev to the matching listeners of its kind.
func (s *Store) emit(ev Event) {
	if s.events.active&ev.Kind == 0 {
		return
	}
	list := s.events.byKind[bits.TrailingZeros16(uint16(ev.Kind))]
	s.locks++
	defer func() { s.locks-- }()
	for _, l := range list {
		if !l.removed && l.matches(ev) {
			l.handler(ev)
		}
	}
}
