package ecs

import (
	"cmp"
	"iter"
	"reflect"

	"github.com/google/btree"
	"github.com/rotisserie/eris"
)

type rangeEntry[V cmp.Ordered] struct {
	key V
	set *idSet
}

// rangeBuckets is the ordered index: a B-tree of buckets sorted by key.
// Tree nodes come from a free list and buckets from the store's pool, so a
// key set that is emptied and refilled does not allocate again.
type rangeBuckets[V cmp.Ordered] struct {
	tree *btree.BTreeG[rangeEntry[V]]
	pool *idSetPool
}

func lessRangeEntry[V cmp.Ordered](a, b rangeEntry[V]) bool {
	return cmp.Less(a.key, b.key)
}

func newRangeBuckets[V cmp.Ordered](degree int, pool *idSetPool) *rangeBuckets[V] {
	freelist := btree.NewFreeListG[rangeEntry[V]](btree.DefaultFreeListSize)
	return &rangeBuckets[V]{
		tree: btree.NewWithFreeListG(degree, lessRangeEntry[V], freelist),
		pool: pool,
	}
}

func (b *rangeBuckets[V]) add(key V, id EntityId) bool {
	entry, ok := b.tree.Get(rangeEntry[V]{key: key})
	if !ok {
		entry = rangeEntry[V]{key: key, set: b.pool.get()}
		b.tree.ReplaceOrInsert(entry)
	}
	return entry.set.add(id)
}

func (b *rangeBuckets[V]) remove(key V, id EntityId) bool {
	entry, ok := b.tree.Get(rangeEntry[V]{key: key})
	if !ok || !entry.set.remove(id) {
		return false
	}
	if entry.set.len() == 0 {
		b.tree.Delete(entry)
		b.pool.put(entry.set)
	}
	return true
}

func (b *rangeBuckets[V]) get(key V) *idSet {
	entry, ok := b.tree.Get(rangeEntry[V]{key: key})
	if !ok {
		return nil
	}
	return entry.set
}

func (b *rangeBuckets[V]) len() int {
	return b.tree.Len()
}

func (b *rangeBuckets[V]) keys() iter.Seq[V] {
	return func(yield func(V) bool) {
		b.tree.Ascend(func(e rangeEntry[V]) bool {
			return yield(e.key)
		})
	}
}

// scan visits the buckets with lo <= key <= hi in ascending key order.
func (b *rangeBuckets[V]) scan(lo, hi V, fn func(key V, set *idSet) bool) {
	if cmp.Less(hi, lo) {
		return
	}
	b.tree.AscendGreaterOrEqual(rangeEntry[V]{key: lo}, func(e rangeEntry[V]) bool {
		if cmp.Less(hi, e.key) {
			return false
		}
		return fn(e.key, e.set)
	})
}

// ids yields the entities filed under keys in [lo, hi]: by key, then in filing order.
func (b *rangeBuckets[V]) ids(lo, hi V) iter.Seq[EntityId] {
	return func(yield func(EntityId) bool) {
		b.scan(lo, hi, func(_ V, set *idSet) bool {
			for _, id := range set.ids {
				if !yield(id) {
					return false
				}
			}
			return true
		})
	}
}

func rangeIndexOf[C IndexedComponent[V], V cmp.Ordered](s *Store) (*rangeBuckets[V], error) {
	ix, err := indexOf[C, V](s)
	if err != nil {
		return nil, err
	}
	rb, ok := ix.buckets.(*rangeBuckets[V])
	if !ok {
		return nil, eris.Wrapf(ErrNotIndexed, "component %s has no range index", reflect.TypeFor[C]())
	}
	return rb, nil
}

// EntitiesInRange yields the entities whose C key lies in [lo, hi], ordered by
// key and then by filing order. The store is locked while the sequence runs.
func EntitiesInRange[C IndexedComponent[V], V cmp.Ordered](s *Store, lo, hi V) (iter.Seq[EntityId], error) {
	rb, err := rangeIndexOf[C, V](s)
	if err != nil {
		return nil, err
	}
	return func(yield func(EntityId) bool) {
		s.locks++
		defer func() { s.locks-- }()
		for id := range rb.ids(lo, hi) {
			if !yield(id) {
				return
			}
		}
	}, nil
}
