package ecs

import (
	"iter"
	"slices"
	"unsafe"
)

type matchKey struct {
	required Signature
	excluded Signature
}

// archetypeMatch is the store wide cache of archetypes matching one
// (required, excluded) pair. The store appends new archetypes to it as they
// are created, so it never needs rebuilding.
type archetypeMatch struct {
	required   Signature
	excluded   Signature
	archetypes []*Archetype
}

func (s *Store) matchFor(required, excluded Signature) *archetypeMatch {
	key := matchKey{required: required, excluded: excluded}
	if m, ok := s.matches[key]; ok {
		return m
	}
	m := &archetypeMatch{required: required, excluded: excluded}
	for _, a := range s.archetypes {
		if a.signature.Matches(required, excluded) {
			m.archetypes = append(m.archetypes, a)
		}
	}
	s.matches[key] = m
	return m
}

// Query iterates the entities matching a view struct T, an optional excluded
// signature and optional index predicates. Matching archetypes and their
// columns are cached and refreshed incrementally when archetypes are added.
//
// A zero Query is initialized by the Scheduler through Init.
type Query[T any] struct {
	view     *View[T]
	store    *Store
	required Signature
	excluded Signature
	filters  []queryFilter

	match    *archetypeMatch
	seen     int
	cols     [][]column
	position []int32
}

// NewQuery creates a new Query over store.
func NewQuery[T any](store *Store) *Query[T] {
	return newQueryFromView(NewView[T](store))
}

// NewQueryFor creates an untyped query matching every entity whose signature
// has all of required and none of excluded.
func NewQueryFor(store *Store, required, excluded Signature) *Query[struct{}] {
	q := NewQuery[struct{}](store)
	q.required = required
	q.excluded = excluded
	return q
}

func newQueryFromView[T any](view *View[T]) *Query[T] {
	return &Query[T]{
		view:     view,
		store:    view.store,
		required: view.required(),
	}
}

// Init initializes or re-initializes the Query with a store.
// Called by the Scheduler during system registration.
func (q *Query[T]) Init(store *Store) {
	*q = *NewQuery[T](store)
}

// Require adds sig to the components and tags every match must have.
func (q *Query[T]) Require(sig Signature) *Query[T] {
	q.required = q.required.Union(sig)
	q.reset()
	return q
}

// Exclude adds sig to the components and tags no match may have.
func (q *Query[T]) Exclude(sig Signature) *Query[T] {
	q.excluded = q.excluded.Union(sig)
	q.reset()
	return q
}

// Required returns the signature every match has.
func (q *Query[T]) Required() Signature { return q.required }

// Excluded returns the signature no match has any part of.
func (q *Query[T]) Excluded() Signature { return q.excluded }

func (q *Query[T]) addFilter(f queryFilter) *Query[T] {
	q.filters = append(q.filters, f)
	return q.Require(Signature{}.WithComponent(f.component()))
}

func (q *Query[T]) reset() {
	q.match = nil
	q.seen = 0
	q.cols = q.cols[:0]
	q.position = q.position[:0]
}

func (q *Query[T]) refresh() {
	if q.match == nil {
		q.match = q.store.matchFor(q.required, q.excluded)
	}
	for ; q.seen < len(q.match.archetypes); q.seen++ {
		a := q.match.archetypes[q.seen]
		cols, _ := q.view.columnsFor(a)
		q.cols = append(q.cols, cols)
		for int(a.id) >= len(q.position) {
			q.position = append(q.position, -1)
		}
		q.position[a.id] = int32(q.seen)
	}
}

// scan visits every match as (id, archetype position, row) with the store
// locked. With index predicates the candidates come from the first
// predicate's index in key order; otherwise archetypes are walked row by row.
func (q *Query[T]) scan(visit func(id EntityId, pos int32, row int) bool) {
	q.refresh()
	s := q.store
	s.locks++
	defer func() { s.locks-- }()
	version := s.version

	if len(q.filters) > 0 {
		rest := q.filters[1:]
	candidates:
		for id := range q.filters[0].candidates(s) {
			loc := s.entities.locations[id]
			if int(loc.archetype) >= len(q.position) {
				continue
			}
			pos := q.position[loc.archetype]
			if pos < 0 {
				continue
			}
			row := int(loc.row)
			for _, f := range rest {
				if !f.accepts(q.match.archetypes[pos], row) {
					continue candidates
				}
			}
			if !visit(id, pos, row) {
				return
			}
			s.checkVersion(version)
		}
		return
	}

	for pos, a := range q.match.archetypes {
		for row := 0; row < len(a.entities); row++ {
			if !visit(a.entities[row], int32(pos), row) {
				return
			}
			s.checkVersion(version)
		}
	}
}

// Iter returns an iterator over entity IDs and component data. The store is
// locked against structural changes while it runs; component values may be
// written through the yielded pointers.
func (q *Query[T]) Iter() iter.Seq2[EntityId, T] {
	return func(yield func(EntityId, T) bool) {
		var result T
		resultPtr := unsafe.Pointer(&result)
		q.scan(func(id EntityId, pos int32, row int) bool {
			q.view.populate(resultPtr, id, q.cols[pos], row)
			return yield(id, result)
		})
	}
}

// Values returns an iterator over component data only.
func (q *Query[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, item := range q.Iter() {
			if !yield(item) {
				return
			}
		}
	}
}

// Ids returns an iterator over the matching entity ids.
func (q *Query[T]) Ids() iter.Seq[EntityId] {
	return func(yield func(EntityId) bool) {
		q.scan(func(id EntityId, _ int32, _ int) bool {
			return yield(id)
		})
	}
}

// ToIds collects the matching entity ids.
func (q *Query[T]) ToIds() []EntityId {
	return slices.Collect(q.Ids())
}

// ForEach calls fn for every match.
func (q *Query[T]) ForEach(fn func(EntityId, T)) {
	for id, item := range q.Iter() {
		fn(id, item)
	}
}

// Count returns the number of matches. Without index predicates it only sums
// archetype lengths.
func (q *Query[T]) Count() int {
	if len(q.filters) == 0 {
		q.refresh()
		n := 0
		for _, a := range q.match.archetypes {
			n += a.Len()
		}
		return n
	}
	n := 0
	q.scan(func(EntityId, int32, int) bool {
		n++
		return true
	})
	return n
}

// Archetypes returns the matching archetypes. The slice must not be modified.
func (q *Query[T]) Archetypes() []*Archetype {
	q.refresh()
	return q.match.archetypes
}
