package ecs

import (
	"iter"
	"reflect"
	"unsafe"

	"github.com/rotisserie/eris"
)

// View represents access to entities with a specific combination of components.
// The type T should be a struct with embedded pointer fields for each component type.
// Named fields can be marked as optional using the `ecs:"optional"` struct tag.
// A field of type EntityId receives the id of the entity.
type View[T any] struct {
	store       *Store
	types       []reflect.Type
	ids         []ComponentID
	optional    []bool
	fieldOffset []uintptr
	idOffset    uintptr
	hasId       bool
	all         *Query[T]
}

// NewView creates a new view for the given struct type.
// Embedded fields are always required. It panics if a field is not a pointer
// to a registered component type.
func NewView[T any](store *Store) *View[T] {
	structType := reflect.TypeFor[T]()
	if structType.Kind() != reflect.Struct {
		panic("View type parameter must be a struct")
	}

	v := &View[T]{
		store:       store,
		types:       make([]reflect.Type, 0, structType.NumField()),
		ids:         make([]ComponentID, 0, structType.NumField()),
		optional:    make([]bool, 0, structType.NumField()),
		fieldOffset: make([]uintptr, 0, structType.NumField()),
	}

	entityIdType := reflect.TypeFor[EntityId]()
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if field.Type == entityIdType {
			v.idOffset = field.Offset
			v.hasId = true
			continue
		}
		if field.Type.Kind() != reflect.Ptr {
			panic("View struct fields must be pointer types")
		}

		componentType := field.Type.Elem()
		ct, err := store.registry.attachable(componentType)
		if err != nil {
			panic(eris.Wrapf(err, "view field %s", field.Name))
		}

		// Embedded fields (field.Anonymous) are always required
		isOptional := false
		if !field.Anonymous {
			if tag := field.Tag.Get("ecs"); tag != "" {
				if tag != "optional" {
					panic("invalid ecs tag value: \"" + tag + "\" (only \"optional\" is supported)")
				}
				isOptional = true
			}
		}

		v.types = append(v.types, componentType)
		v.ids = append(v.ids, ct.id)
		v.optional = append(v.optional, isOptional)
		v.fieldOffset = append(v.fieldOffset, field.Offset)
	}
	return v
}

// required is the signature of the view's non-optional components.
func (v *View[T]) required() Signature {
	var sig Signature
	for i, id := range v.ids {
		if !v.optional[i] {
			sig = sig.WithComponent(id)
		}
	}
	return sig
}

// columnsFor resolves the view's fields to the columns of a. Missing optional
// fields resolve to nil. ok is false if a required component is missing.
func (v *View[T]) columnsFor(a *Archetype) (cols []column, ok bool) {
	cols = make([]column, len(v.ids))
	for i, id := range v.ids {
		cols[i] = a.column(id)
		if cols[i] == nil && !v.optional[i] {
			return nil, false
		}
	}
	return cols, true
}

func (v *View[T]) populate(structPtr unsafe.Pointer, id EntityId, cols []column, row int) {
	if v.hasId {
		*(*EntityId)(unsafe.Pointer(uintptr(structPtr) + v.idOffset)) = id
	}
	for i, c := range cols {
		fieldPtr := unsafe.Pointer(uintptr(structPtr) + v.fieldOffset[i])
		if c == nil {
			*(*unsafe.Pointer)(fieldPtr) = nil
			continue
		}
		*(*unsafe.Pointer)(fieldPtr) = c.ptr(row)
	}
}

// Fill populates the provided struct pointer with component data for the given entity.
// Returns false if the entity is dead or missing any required components.
// Optional components are set to nil if not present.
func (v *View[T]) Fill(id EntityId, ptr *T) bool {
	loc, ok := v.store.entities.lookup(id)
	if !ok {
		return false
	}
	a := v.store.archetypes[loc.archetype]
	structPtr := unsafe.Pointer(ptr)
	if v.hasId {
		*(*EntityId)(unsafe.Pointer(uintptr(structPtr) + v.idOffset)) = id
	}
	for i, cid := range v.ids {
		fieldPtr := unsafe.Pointer(uintptr(structPtr) + v.fieldOffset[i])
		c := a.column(cid)
		if c == nil {
			if !v.optional[i] {
				return false
			}
			*(*unsafe.Pointer)(fieldPtr) = nil
			continue
		}
		*(*unsafe.Pointer)(fieldPtr) = c.ptr(int(loc.row))
	}
	return true
}

// Get returns a populated view struct for the given entity, or nil if the entity
// doesn't have all the required components.
func (v *View[T]) Get(id EntityId) *T {
	var result T
	if !v.Fill(id, &result) {
		return nil
	}
	return &result
}

// Each calls fn for every id in ids that has the view's required components
// and returns how many matched.
func (v *View[T]) Each(ids []EntityId, fn func(EntityId, T)) int {
	var result T
	n := 0
	for _, id := range ids {
		if v.Fill(id, &result) {
			fn(id, result)
			n++
		}
	}
	return n
}

// Iter returns an iterator over all entities that have all the required components for this view.
func (v *View[T]) Iter() iter.Seq2[EntityId, T] {
	if v.all == nil {
		v.all = newQueryFromView(v)
	}
	return v.all.Iter()
}

// Values returns an iterator over just the view structs (without entity IDs).
func (v *View[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, value := range v.Iter() {
			if !yield(value) {
				return
			}
		}
	}
}

// Spawn creates a new entity with components extracted from the view struct.
// Nil optional fields are skipped.
func (v *View[T]) Spawn(data T) (EntityId, error) {
	structPtr := unsafe.Pointer(&data)

	components := make([]any, 0, len(v.types))
	for i, componentType := range v.types {
		fieldPtr := unsafe.Pointer(uintptr(structPtr) + v.fieldOffset[i])
		componentPtr := *(*unsafe.Pointer)(fieldPtr)
		if componentPtr == nil {
			if !v.optional[i] {
				return InvalidEntity, eris.Wrapf(ErrInvalidComponentValue, "required component %s is nil", componentType)
			}
			continue
		}
		components = append(components, reflect.NewAt(componentType, componentPtr).Interface())
	}
	return v.store.Spawn(components...)
}
