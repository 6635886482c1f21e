package ecs

import (
	"cmp"
	"reflect"

	"github.com/rotisserie/eris"
)

// ComponentID is the dense id a registry assigns to a component type.
// It is the bit position of the type in a Signature's component mask.
type ComponentID uint8

// TagID is the dense id a registry assigns to a tag type.
type TagID uint8

type componentKind uint8

const (
	kindValue componentKind = iota
	kindEqualityIndexed
	kindRangeIndexed
	kindRelation
)

func (k componentKind) String() string {
	switch k {
	case kindValue:
		return "value"
	case kindEqualityIndexed:
		return "equality"
	case kindRangeIndexed:
		return "range"
	case kindRelation:
		return "relation"
	}
	return "unknown"
}

// IndexedComponent is implemented by components whose value is tracked by a
// secondary index. IndexedValue returns the key the entity is filed under.
type IndexedComponent[V any] interface {
	IndexedValue() V
}

type componentType struct {
	id           ComponentID
	typ          reflect.Type
	name         string
	kind         componentKind
	newColumn    func(capacity int) column
	newIndex     func(s *Store) valueIndex
	newRelations func(s *Store) relationStore
}

// ComponentRegistry manages component and tag registration for a store.
// Each Store has its own ComponentRegistry, allowing multiple independent stores
// to coexist. Registration is expected to happen once at startup; the
// registration functions panic on contract violations.
type ComponentRegistry struct {
	components []*componentType
	byType     map[reflect.Type]*componentType
	tags       []reflect.Type
	tagsByType map[reflect.Type]TagID
}

// NewComponentRegistry creates a new component registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		byType:     make(map[reflect.Type]*componentType),
		tagsByType: make(map[reflect.Type]TagID),
	}
}

// RegisterComponent registers a plain value component type.
// This must be called for each component type before it can be used.
func RegisterComponent[T any](r *ComponentRegistry) ComponentID {
	return r.register(reflect.TypeFor[T](), kindValue, columnFactory[T]()).id
}

// RegisterIndexedComponent registers a component whose IndexedValue is kept in
// a hash keyed equality index.
func RegisterIndexedComponent[T IndexedComponent[V], V comparable](r *ComponentRegistry) ComponentID {
	ct := r.register(reflect.TypeFor[T](), kindEqualityIndexed, columnFactory[T]())
	ct.newIndex = func(s *Store) valueIndex {
		return newComponentIndex[T, V](ct, newHashBuckets[V](s.pool))
	}
	return ct.id
}

// RegisterRangeIndexedComponent registers a component whose IndexedValue is kept
// in an ordered index, which additionally answers range queries.
func RegisterRangeIndexedComponent[T IndexedComponent[V], V cmp.Ordered](r *ComponentRegistry) ComponentID {
	ct := r.register(reflect.TypeFor[T](), kindRangeIndexed, columnFactory[T]())
	ct.newIndex = func(s *Store) valueIndex {
		return newComponentIndex[T, V](ct, newRangeBuckets[V](s.opts.indexDegree, s.pool))
	}
	return ct.id
}

// RegisterRelation registers a relation type. Relations link a source entity to
// any number of targets and are not part of the entity's signature.
func RegisterRelation[T any](r *ComponentRegistry) ComponentID {
	ct := r.register(reflect.TypeFor[T](), kindRelation, nil)
	ct.newRelations = func(s *Store) relationStore {
		return newRelations[T](s, ct)
	}
	return ct.id
}

// RegisterTag registers a tag type. Tags carry no value; only their presence on
// an entity is recorded.
func RegisterTag[T any](r *ComponentRegistry) TagID {
	t := reflect.TypeFor[T]()
	if id, ok := r.tagsByType[t]; ok {
		return id
	}
	if _, ok := r.byType[t]; ok {
		panic(eris.Wrapf(ErrComponentAlreadyRegistered, "%s is registered as a component", t))
	}
	if len(r.tags) >= MaxTagTypes {
		panic(eris.Wrapf(ErrInvalidOperation, "cannot register %s: tag limit of %d reached", t, MaxTagTypes))
	}
	id := TagID(len(r.tags))
	r.tags = append(r.tags, t)
	r.tagsByType[t] = id
	return id
}

func (r *ComponentRegistry) register(t reflect.Type, kind componentKind, newColumn func(int) column) *componentType {
	// Components can be structs or primitives (int, string, etc.)
	// But not pointers, maps, channels, or functions (those aren't value types)
	switch t.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		panic(eris.Wrapf(ErrInvalidOperation, "cannot register %s: components cannot be pointers, maps, channels, or functions", t))
	}

	if ct, ok := r.byType[t]; ok {
		if ct.kind != kind {
			panic(eris.Wrapf(ErrComponentAlreadyRegistered, "%s is registered as %s, not %s", t, ct.kind, kind))
		}
		return ct
	}
	if _, ok := r.tagsByType[t]; ok {
		panic(eris.Wrapf(ErrComponentAlreadyRegistered, "%s is registered as a tag", t))
	}
	if len(r.components) >= MaxComponentTypes {
		panic(eris.Wrapf(ErrInvalidOperation, "cannot register %s: component limit of %d reached", t, MaxComponentTypes))
	}

	ct := &componentType{
		id:        ComponentID(len(r.components)),
		typ:       t,
		name:      t.Name(),
		kind:      kind,
		newColumn: newColumn,
	}
	if ct.name == "" {
		ct.name = t.String()
	}
	r.components = append(r.components, ct)
	r.byType[t] = ct
	return ct
}

// ComponentIdFor returns the id registered for T.
func ComponentIdFor[T any](r *ComponentRegistry) (ComponentID, error) {
	ct, err := r.lookup(reflect.TypeFor[T]())
	if err != nil {
		return 0, err
	}
	return ct.id, nil
}

// TagIdFor returns the id registered for tag type T.
func TagIdFor[T any](r *ComponentRegistry) (TagID, error) {
	return r.TagId(reflect.TypeFor[T]())
}

// ComponentId returns the id registered for the component type t.
func (r *ComponentRegistry) ComponentId(t reflect.Type) (ComponentID, error) {
	ct, err := r.lookup(t)
	if err != nil {
		return 0, err
	}
	return ct.id, nil
}

// TagId returns the id registered for the tag type t.
func (r *ComponentRegistry) TagId(t reflect.Type) (TagID, error) {
	id, ok := r.tagsByType[t]
	if !ok {
		return 0, eris.Wrapf(ErrTagNotRegistered, "tag %s", t)
	}
	return id, nil
}

// ComponentType returns the Go type registered under id.
func (r *ComponentRegistry) ComponentType(id ComponentID) (reflect.Type, bool) {
	if int(id) >= len(r.components) {
		return nil, false
	}
	return r.components[id].typ, true
}

// TagType returns the Go type registered under id.
func (r *ComponentRegistry) TagType(id TagID) (reflect.Type, bool) {
	if int(id) >= len(r.tags) {
		return nil, false
	}
	return r.tags[id], true
}

// ComponentCount is the number of registered component and relation types.
func (r *ComponentRegistry) ComponentCount() int {
	return len(r.components)
}

// TagCount is the number of registered tag types.
func (r *ComponentRegistry) TagCount() int {
	return len(r.tags)
}

func (r *ComponentRegistry) lookup(t reflect.Type) (*componentType, error) {
	ct, ok := r.byType[t]
	if !ok {
		return nil, eris.Wrapf(ErrComponentNotRegistered, "component %s", t)
	}
	return ct, nil
}

// attachable resolves t to a component type that may live in an archetype column.
func (r *ComponentRegistry) attachable(t reflect.Type) (*componentType, error) {
	ct, err := r.lookup(t)
	if err != nil {
		return nil, err
	}
	if ct.kind == kindRelation {
		return nil, eris.Wrapf(ErrRelationAsComponent, "component %s", t)
	}
	return ct, nil
}

func (r *ComponentRegistry) relation(t reflect.Type) (*componentType, error) {
	ct, err := r.lookup(t)
	if err != nil {
		return nil, err
	}
	if ct.kind != kindRelation {
		return nil, eris.Wrapf(ErrNotRelation, "component %s", t)
	}
	return ct, nil
}

// validate checks that every bit of sig names a registered attachable component or tag.
func (r *ComponentRegistry) validate(sig Signature) error {
	for bit := range sig.Components.Bits() {
		if int(bit) >= len(r.components) {
			return eris.Wrapf(ErrComponentNotRegistered, "component id %d", bit)
		}
		if ct := r.components[bit]; ct.kind == kindRelation {
			return eris.Wrapf(ErrRelationAsComponent, "component %s", ct.typ)
		}
	}
	for bit := range sig.Tags.Bits() {
		if int(bit) >= len(r.tags) {
			return eris.Wrapf(ErrTagNotRegistered, "tag id %d", bit)
		}
	}
	return nil
}

func columnFactory[T any]() func(int) column {
	return func(capacity int) column {
		return newTypedColumn[T](capacity)
	}
}
