package ecs

import (
	"iter"
	"slices"

	"github.com/kamstrup/intmap"
)

// idSetIndexThreshold is the size above which an idSet keeps a membership map
// so that add and contains stay O(1).
const idSetIndexThreshold = 32

// idSet is an insertion ordered set of entity ids.
type idSet struct {
	ids     []EntityId
	members *intmap.Map[EntityId, struct{}]
}

func (s *idSet) len() int { return len(s.ids) }

func (s *idSet) contains(id EntityId) bool {
	if s.members != nil && len(s.ids) > idSetIndexThreshold {
		return s.members.Has(id)
	}
	return slices.Contains(s.ids, id)
}

// add appends id. It returns false if id is already present.
func (s *idSet) add(id EntityId) bool {
	if s.contains(id) {
		return false
	}
	s.ids = append(s.ids, id)
	switch {
	case len(s.ids) == idSetIndexThreshold+1:
		if s.members == nil {
			s.members = intmap.New[EntityId, struct{}](2 * idSetIndexThreshold)
		}
		s.members.Clear()
		for _, x := range s.ids {
			s.members.Put(x, struct{}{})
		}
	case len(s.ids) > idSetIndexThreshold+1:
		s.members.Put(id, struct{}{})
	}
	return true
}

// remove deletes id, keeping the order of the remaining ids. It returns false
// if id was not present.
func (s *idSet) remove(id EntityId) bool {
	if len(s.ids) > idSetIndexThreshold && !s.members.Has(id) {
		return false
	}
	i := slices.Index(s.ids, id)
	if i < 0 {
		return false
	}
	if len(s.ids) > idSetIndexThreshold {
		s.members.Del(id)
	}
	s.ids = slices.Delete(s.ids, i, i+1)
	return true
}

func (s *idSet) all() iter.Seq[EntityId] {
	return func(yield func(EntityId) bool) {
		for _, id := range s.ids {
			if !yield(id) {
				return
			}
		}
	}
}

func (s *idSet) reset() {
	s.ids = s.ids[:0]
	if s.members != nil {
		s.members.Clear()
	}
}

// idSetPool recycles emptied sets so that steady state re-insertion into an
// index reuses their backing arrays.
type idSetPool struct {
	free []*idSet
}

func (p *idSetPool) get() *idSet {
	if n := len(p.free); n > 0 {
		s := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		return s
	}
	return &idSet{}
}

func (p *idSetPool) put(s *idSet) {
	s.reset()
	p.free = append(p.free, s)
}
