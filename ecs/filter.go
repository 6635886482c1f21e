package ecs

import (
	"cmp"
	"iter"
	"reflect"

	"github.com/rotisserie/eris"
)

// queryFilter is an index predicate attached to a query. The first filter of a
// query supplies the candidate ids; the rest are checked per candidate.
type queryFilter interface {
	component() ComponentID
	candidates(s *Store) iter.Seq[EntityId]
	accepts(a *Archetype, row int) bool
}

type valueFilter[C IndexedComponent[V], V comparable] struct {
	cid   ComponentID
	value V
}

func (f *valueFilter[C, V]) component() ComponentID { return f.cid }

func (f *valueFilter[C, V]) candidates(s *Store) iter.Seq[EntityId] {
	return func(yield func(EntityId) bool) {
		vi := s.indexes[f.cid]
		if vi == nil {
			return
		}
		set := vi.(*componentIndex[C, V]).buckets.get(f.value)
		if set == nil {
			return
		}
		for _, id := range set.ids {
			if !yield(id) {
				return
			}
		}
	}
}

func (f *valueFilter[C, V]) accepts(a *Archetype, row int) bool {
	c := a.column(f.cid)
	return c != nil && c.(*typedColumn[C]).data[row].IndexedValue() == f.value
}

type rangeFilter[C IndexedComponent[V], V cmp.Ordered] struct {
	cid    ComponentID
	lo, hi V
}

func (f *rangeFilter[C, V]) component() ComponentID { return f.cid }

func (f *rangeFilter[C, V]) candidates(s *Store) iter.Seq[EntityId] {
	return func(yield func(EntityId) bool) {
		vi := s.indexes[f.cid]
		if vi == nil {
			return
		}
		rb := vi.(*componentIndex[C, V]).buckets.(*rangeBuckets[V])
		for id := range rb.ids(f.lo, f.hi) {
			if !yield(id) {
				return
			}
		}
	}
}

func (f *rangeFilter[C, V]) accepts(a *Archetype, row int) bool {
	c := a.column(f.cid)
	if c == nil {
		return false
	}
	v := c.(*typedColumn[C]).data[row].IndexedValue()
	return !cmp.Less(v, f.lo) && !cmp.Less(f.hi, v)
}

// HasValue restricts q to entities whose C is filed under value. C becomes a
// required component of q.
func HasValue[C IndexedComponent[V], V comparable, T any](q *Query[T], value V) *Query[T] {
	if _, err := indexOf[C, V](q.store); err != nil {
		panic(eris.Wrap(err, "HasValue"))
	}
	cid := q.store.registry.byType[reflect.TypeFor[C]()].id
	return q.addFilter(&valueFilter[C, V]{cid: cid, value: value})
}

// ValueInRange restricts q to entities whose C key lies in [lo, hi]. Matches
// are produced in key order. C must be range indexed.
func ValueInRange[C IndexedComponent[V], V cmp.Ordered, T any](q *Query[T], lo, hi V) *Query[T] {
	if _, err := rangeIndexOf[C, V](q.store); err != nil {
		panic(eris.Wrap(err, "ValueInRange"))
	}
	cid := q.store.registry.byType[reflect.TypeFor[C]()].id
	return q.addFilter(&rangeFilter[C, V]{cid: cid, lo: lo, hi: hi})
}

// Without excludes entities holding component C from q.
func Without[C any, T any](q *Query[T]) *Query[T] {
	ct, err := q.store.registry.attachable(reflect.TypeFor[C]())
	if err != nil {
		panic(eris.Wrap(err, "Without"))
	}
	return q.Exclude(Signature{}.WithComponent(ct.id))
}

// WithTag restricts q to entities carrying tag G.
func WithTag[G any, T any](q *Query[T]) *Query[T] {
	tag, err := TagIdFor[G](q.store.registry)
	if err != nil {
		panic(eris.Wrap(err, "WithTag"))
	}
	return q.Require(Signature{}.WithTag(tag))
}

// WithoutTag excludes entities carrying tag G from q.
func WithoutTag[G any, T any](q *Query[T]) *Query[T] {
	tag, err := TagIdFor[G](q.store.registry)
	if err != nil {
		panic(eris.Wrap(err, "WithoutTag"))
	}
	return q.Exclude(Signature{}.WithTag(tag))
}
