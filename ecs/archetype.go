package ecs

import (
	"iter"
	"reflect"

	"github.com/rotisserie/eris"
)

// ArchetypeId is the dense index of an archetype within its store.
// The empty archetype always has id 0.
type ArchetypeId uint32

// Archetype stores every entity sharing one Signature as struct-of-arrays:
// one column per component type plus a row to entity id column.
// Rows are contiguous; deleting a row moves the last row into its place.
type Archetype struct {
	id           ArchetypeId
	store        *Store
	signature    Signature
	types        []reflect.Type
	componentIds []ComponentID
	columns      []column
	slots        [MaxComponentTypes]int16
	entities     []EntityId
}

func newArchetype(store *Store, id ArchetypeId, sig Signature) *Archetype {
	a := &Archetype{
		id:        id,
		store:     store,
		signature: sig,
		entities:  make([]EntityId, 0, store.opts.capacity),
	}
	for i := range a.slots {
		a.slots[i] = -1
	}

	// Columns are ordered by component id.
	for bit := range sig.Components.Bits() {
		ct := store.registry.components[bit]
		a.slots[bit] = int16(len(a.columns))
		a.columns = append(a.columns, ct.newColumn(store.opts.capacity))
		a.types = append(a.types, ct.typ)
		a.componentIds = append(a.componentIds, ct.id)
	}
	return a
}

// ID returns the archetype's identifier.
func (a *Archetype) ID() ArchetypeId {
	return a.id
}

// Signature returns the exact component and tag set of the archetype.
func (a *Archetype) Signature() Signature {
	return a.signature
}

// Len returns the number of entities stored in this archetype.
func (a *Archetype) Len() int {
	return len(a.entities)
}

// Entities returns the row to entity id column. The slice is owned by the
// archetype and must not be modified; it is only valid until the next
// structural change.
func (a *Archetype) Entities() []EntityId {
	return a.entities
}

// Types returns the component types for this archetype, ordered by component id.
func (a *Archetype) Types() []reflect.Type {
	return a.types
}

// HasComponent checks if this archetype has the given component type.
func (a *Archetype) HasComponent(compType reflect.Type) bool {
	ct, ok := a.store.registry.byType[compType]
	return ok && a.slots[ct.id] >= 0
}

// Row returns the row id occupies in this archetype.
func (a *Archetype) Row(id EntityId) (int, error) {
	loc, ok := a.store.entities.lookup(id)
	if !ok || ArchetypeId(loc.archetype) != a.id {
		return -1, eris.Wrapf(ErrEntityNotFound, "entity %d in archetype %d", id, a.id)
	}
	return int(loc.row), nil
}

// Iter returns an iterator over the entities of this archetype in row order.
// The store is locked while the iterator runs.
func (a *Archetype) Iter() iter.Seq[EntityId] {
	return func(yield func(EntityId) bool) {
		s := a.store
		s.locks++
		defer func() { s.locks-- }()
		version := s.version
		for row := 0; row < len(a.entities); row++ {
			if !yield(a.entities[row]) {
				return
			}
			s.checkVersion(version)
		}
	}
}

func (a *Archetype) column(id ComponentID) column {
	if slot := a.slots[id]; slot >= 0 {
		return a.columns[slot]
	}
	return nil
}

func (a *Archetype) checkRow(row int) error {
	if row < 0 || row >= len(a.entities) {
		return eris.Wrapf(ErrRowOutOfBounds, "row %d in archetype %d with %d rows", row, a.id, len(a.entities))
	}
	return nil
}

// alloc appends id as a new row. The caller fills every column.
func (a *Archetype) alloc(id EntityId) int {
	a.entities = append(a.entities, id)
	return len(a.entities) - 1
}

// removeRow swap-removes row from every column. If another entity was moved
// into row it is returned so the caller can patch its location.
func (a *Archetype) removeRow(row int) (EntityId, bool) {
	last := len(a.entities) - 1
	for _, c := range a.columns {
		c.swapRemove(row)
	}
	moved := a.entities[last]
	a.entities[row] = moved
	a.entities = a.entities[:last]
	return moved, row != last
}

// ComponentAt returns a pointer to the T stored at row.
func ComponentAt[T any](a *Archetype, row int) (*T, error) {
	if err := a.checkRow(row); err != nil {
		return nil, err
	}
	col, err := typedColumnOf[T](a)
	if err != nil {
		return nil, err
	}
	return &col.data[row], nil
}

// SetComponentAt overwrites the T stored at row. Indexes and subscribers are
// updated exactly as by SetComponent.
func SetComponentAt[T any](a *Archetype, row int, value T) error {
	if err := a.checkRow(row); err != nil {
		return err
	}
	ct, err := a.store.registry.attachable(reflect.TypeFor[T]())
	if err != nil {
		return err
	}
	slot := a.slots[ct.id]
	if slot < 0 {
		return eris.Wrapf(ErrComponentNotFound, "component %s in archetype %d", ct.name, a.id)
	}
	return assignValue(a.store, a.entities[row], a, int(slot), row, ct, value)
}

// Column returns the T column of the archetype for bulk access. Writes through
// the slice bypass value indexes; use SetComponentAt for indexed components.
func Column[T any](a *Archetype) ([]T, error) {
	col, err := typedColumnOf[T](a)
	if err != nil {
		return nil, err
	}
	return col.data, nil
}

func typedColumnOf[T any](a *Archetype) (*typedColumn[T], error) {
	ct, err := a.store.registry.attachable(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	c := a.column(ct.id)
	if c == nil {
		return nil, eris.Wrapf(ErrComponentNotFound, "component %s in archetype %d", ct.name, a.id)
	}
	return c.(*typedColumn[T]), nil
}
