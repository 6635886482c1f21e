package ecs

import (
	"iter"
	"reflect"
	"slices"

	"github.com/kamstrup/intmap"
	"github.com/rotisserie/eris"
)

// relationStore is the type-erased view of one relation type's links.
type relationStore interface {
	// removeEntity drops every link where id is source or target.
	removeEntity(id EntityId)
	linkCount() int
	sourceCount() int
	component() *componentType
}

// relationList holds the outgoing links of one source in insertion order.
type relationList[T any] struct {
	targets []EntityId
	values  []T
}

func (l *relationList[T]) find(target EntityId) int {
	return slices.Index(l.targets, target)
}

func (l *relationList[T]) removeAt(i int) {
	l.targets = slices.Delete(l.targets, i, i+1)
	l.values = slices.Delete(l.values, i, i+1)
}

// relations stores the links of relation type T: forward from source to
// targets with values, reverse from target to sources.
type relations[T any] struct {
	store   *Store
	ct      *componentType
	forward *intmap.Map[EntityId, *relationList[T]]
	reverse *intmap.Map[EntityId, *idSet]
	links   int
}

func newRelations[T any](s *Store, ct *componentType) *relations[T] {
	return &relations[T]{
		store:   s,
		ct:      ct,
		forward: intmap.New[EntityId, *relationList[T]](s.opts.capacity),
		reverse: intmap.New[EntityId, *idSet](s.opts.capacity),
	}
}

func (r *relations[T]) linkCount() int            { return r.links }
func (r *relations[T]) sourceCount() int          { return r.forward.Len() }
func (r *relations[T]) component() *componentType { return r.ct }

// upsert links source to target with value. It returns true if the link is new.
func (r *relations[T]) upsert(source, target EntityId, value T) bool {
	list, ok := r.forward.Get(source)
	if !ok {
		list = &relationList[T]{}
		r.forward.Put(source, list)
	}
	if i := list.find(target); i >= 0 {
		list.values[i] = value
		return false
	}
	list.targets = append(list.targets, target)
	list.values = append(list.values, value)

	sources, ok := r.reverse.Get(target)
	if !ok {
		sources = r.store.pool.get()
		r.reverse.Put(target, sources)
	}
	sources.add(source)
	r.links++
	return true
}

func (r *relations[T]) unlink(source, target EntityId) bool {
	list, ok := r.forward.Get(source)
	if !ok {
		return false
	}
	i := list.find(target)
	if i < 0 {
		return false
	}
	list.removeAt(i)
	if len(list.targets) == 0 {
		r.forward.Del(source)
	}
	r.dropReverse(target, source)
	r.links--
	return true
}

func (r *relations[T]) dropReverse(target, source EntityId) {
	sources, ok := r.reverse.Get(target)
	if !ok {
		return
	}
	sources.remove(source)
	if sources.len() == 0 {
		r.reverse.Del(target)
		r.store.pool.put(sources)
	}
}

func (r *relations[T]) removeEntity(id EntityId) {
	if list, ok := r.forward.Get(id); ok {
		r.forward.Del(id)
		for _, target := range list.targets {
			r.dropReverse(target, id)
			r.links--
			r.store.emit(Event{Kind: RelationRemoved, Entity: id, Component: r.ct.id, Target: target})
		}
	}

	if sources, ok := r.reverse.Get(id); ok {
		r.reverse.Del(id)
		for _, source := range sources.ids {
			list, ok := r.forward.Get(source)
			if !ok {
				continue
			}
			if i := list.find(id); i >= 0 {
				list.removeAt(i)
				r.links--
			}
			if len(list.targets) == 0 {
				r.forward.Del(source)
			}
			r.store.emit(Event{Kind: RelationRemoved, Entity: source, Component: r.ct.id, Target: id})
		}
		r.store.pool.put(sources)
	}
}

func relationsOf[T any](s *Store) (*relations[T], error) {
	ct, err := s.registry.relation(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return s.relationsFor(ct).(*relations[T]), nil
}

// AddRelation links source to target with value, or overwrites the value of
// an existing link. RelationAdded fires only for new links.
func AddRelation[T any](s *Store, source, target EntityId, value T) error {
	r, err := relationsOf[T](s)
	if err != nil {
		return err
	}
	if _, err := s.lookup(source); err != nil {
		return err
	}
	if _, err := s.lookup(target); err != nil {
		return err
	}
	if err := s.checkUnlocked(); err != nil {
		return err
	}
	if r.upsert(source, target, value) {
		s.emit(Event{Kind: RelationAdded, Entity: source, Component: r.ct.id, Target: target})
	}
	return nil
}

// RemoveRelation unlinks source from target. It returns false, nil if there was no link.
func RemoveRelation[T any](s *Store, source, target EntityId) (bool, error) {
	r, err := relationsOf[T](s)
	if err != nil {
		return false, err
	}
	if _, err := s.lookup(source); err != nil {
		return false, err
	}
	if err := s.checkUnlocked(); err != nil {
		return false, err
	}
	if !r.unlink(source, target) {
		return false, nil
	}
	s.emit(Event{Kind: RelationRemoved, Entity: source, Component: r.ct.id, Target: target})
	return true, nil
}

// GetRelations yields the targets of source with a pointer to each link value,
// in the order the links were added. Values may be modified in place.
func GetRelations[T any](s *Store, source EntityId) iter.Seq2[EntityId, *T] {
	return func(yield func(EntityId, *T) bool) {
		r, err := relationsOf[T](s)
		if err != nil {
			return
		}
		list, ok := r.forward.Get(source)
		if !ok {
			return
		}
		s.locks++
		defer func() { s.locks-- }()
		for i := range list.targets {
			if !yield(list.targets[i], &list.values[i]) {
				return
			}
		}
	}
}

// Relation returns the value of the link from source to target.
func Relation[T any](s *Store, source, target EntityId) (*T, error) {
	r, err := relationsOf[T](s)
	if err != nil {
		return nil, err
	}
	if list, ok := r.forward.Get(source); ok {
		if i := list.find(target); i >= 0 {
			return &list.values[i], nil
		}
	}
	return nil, eris.Wrapf(ErrRelationNotFound, "%s from %d to %d", r.ct.name, source, target)
}

// RelationCount returns the number of outgoing links of source.
func RelationCount[T any](s *Store, source EntityId) int {
	r, err := relationsOf[T](s)
	if err != nil {
		return 0
	}
	if list, ok := r.forward.Get(source); ok {
		return len(list.targets)
	}
	return 0
}

// IncomingRelations returns the sources linking to target, in link order.
func IncomingRelations[T any](s *Store, target EntityId) []EntityId {
	r, err := relationsOf[T](s)
	if err != nil {
		return nil
	}
	sources, ok := r.reverse.Get(target)
	if !ok {
		return nil
	}
	return slices.Clone(sources.ids)
}
