package ecs

import (
	"iter"
	"reflect"

	"github.com/rotisserie/eris"
)

// valueIndex is the type-erased view of a component's value index used by
// the structural change pipeline.
type valueIndex interface {
	// insert files id under the key of the value at col[row].
	insert(id EntityId, col column, row int)
	// remove drops id from the key of the value at col[row].
	remove(id EntityId, col column, row int)
	// hold remembers the key of col[row] ahead of an in-place overwrite.
	hold(col column, row int)
	// refile moves id from the held key to the key now at col[row].
	refile(id EntityId, col column, row int)
	valueCount() int
	entityCount() int
	kind() componentKind
	component() *componentType
}

// bucketMap maps index keys to the ids filed under them. Empty buckets are pruned.
type bucketMap[V any] interface {
	add(key V, id EntityId) bool
	remove(key V, id EntityId) bool
	get(key V) *idSet
	len() int
	keys() iter.Seq[V]
}

// componentIndex maintains value to entity id buckets for component T.
type componentIndex[T IndexedComponent[V], V comparable] struct {
	ct       *componentType
	buckets  bucketMap[V]
	entities int
	held     V
}

func newComponentIndex[T IndexedComponent[V], V comparable](ct *componentType, buckets bucketMap[V]) *componentIndex[T, V] {
	return &componentIndex[T, V]{ct: ct, buckets: buckets}
}

func (ix *componentIndex[T, V]) insert(id EntityId, col column, row int) {
	if ix.buckets.add(col.(*typedColumn[T]).data[row].IndexedValue(), id) {
		ix.entities++
	}
}

func (ix *componentIndex[T, V]) remove(id EntityId, col column, row int) {
	if ix.buckets.remove(col.(*typedColumn[T]).data[row].IndexedValue(), id) {
		ix.entities--
	}
}

func (ix *componentIndex[T, V]) hold(col column, row int) {
	ix.held = col.(*typedColumn[T]).data[row].IndexedValue()
}

func (ix *componentIndex[T, V]) refile(id EntityId, col column, row int) {
	old := ix.held
	var zero V
	ix.held = zero
	key := col.(*typedColumn[T]).data[row].IndexedValue()
	if old == key {
		return
	}
	ix.buckets.remove(old, id)
	ix.buckets.add(key, id)
}

func (ix *componentIndex[T, V]) valueCount() int           { return ix.buckets.len() }
func (ix *componentIndex[T, V]) entityCount() int          { return ix.entities }
func (ix *componentIndex[T, V]) kind() componentKind       { return ix.ct.kind }
func (ix *componentIndex[T, V]) component() *componentType { return ix.ct }

// indexOf returns the typed index of C, creating it if C is indexed but has not
// been written yet.
func indexOf[C IndexedComponent[V], V comparable](s *Store) (*componentIndex[C, V], error) {
	ct, err := s.registry.attachable(reflect.TypeFor[C]())
	if err != nil {
		return nil, err
	}
	vi := s.indexFor(ct)
	if vi == nil {
		return nil, eris.Wrapf(ErrNotIndexed, "component %s", ct.name)
	}
	ix, ok := vi.(*componentIndex[C, V])
	if !ok {
		return nil, eris.Wrapf(ErrNotIndexed, "component %s is not indexed by %s", ct.name, reflect.TypeFor[V]())
	}
	return ix, nil
}

// Entities is a read-only view of the ids filed under one index key, in the
// order they were filed. It is only valid until the next mutation of the index.
type Entities struct {
	set *idSet
}

// Count returns the number of entities in the view.
func (e Entities) Count() int {
	if e.set == nil {
		return 0
	}
	return e.set.len()
}

// At returns the i-th entity.
func (e Entities) At(i int) EntityId {
	return e.set.ids[i]
}

// Ids returns the ids in filing order. The slice must not be modified.
func (e Entities) Ids() []EntityId {
	if e.set == nil {
		return nil
	}
	return e.set.ids
}

// Contains reports whether id is in the view.
func (e Entities) Contains(id EntityId) bool {
	return e.set != nil && e.set.contains(id)
}

// All iterates the ids in filing order.
func (e Entities) All() iter.Seq[EntityId] {
	return func(yield func(EntityId) bool) {
		if e.set == nil {
			return
		}
		for _, id := range e.set.ids {
			if !yield(id) {
				return
			}
		}
	}
}

// GetEntitiesWithValue returns the entities whose C is filed under value.
// The lookup does not allocate.
func GetEntitiesWithValue[C IndexedComponent[V], V comparable](s *Store, value V) (Entities, error) {
	ix, err := indexOf[C, V](s)
	if err != nil {
		return Entities{}, err
	}
	return Entities{set: ix.buckets.get(value)}, nil
}

// IndexValues is a live view of the distinct keys of a value index.
type IndexValues[V comparable] struct {
	buckets bucketMap[V]
}

// Count returns the number of distinct keys currently held by at least one entity.
func (v *IndexValues[V]) Count() int {
	return v.buckets.len()
}

// All iterates the keys. Range indexes yield them in ascending order, equality
// indexes in no particular order.
func (v *IndexValues[V]) All() iter.Seq[V] {
	return v.buckets.keys()
}

// Contains reports whether some entity is filed under key.
func (v *IndexValues[V]) Contains(key V) bool {
	return v.buckets.get(key) != nil
}

// IndexedValues returns the live key set of the index of C.
func IndexedValues[C IndexedComponent[V], V comparable](s *Store) (*IndexValues[V], error) {
	ix, err := indexOf[C, V](s)
	if err != nil {
		return nil, err
	}
	return &IndexValues[V]{buckets: ix.buckets}, nil
}
