package ecs

import "iter"

// hashBuckets is the equality index: a hash map from key to bucket.
type hashBuckets[V comparable] struct {
	m    map[V]*idSet
	pool *idSetPool
}

func newHashBuckets[V comparable](pool *idSetPool) *hashBuckets[V] {
	return &hashBuckets[V]{m: make(map[V]*idSet), pool: pool}
}

func (b *hashBuckets[V]) add(key V, id EntityId) bool {
	set, ok := b.m[key]
	if !ok {
		set = b.pool.get()
		b.m[key] = set
	}
	return set.add(id)
}

func (b *hashBuckets[V]) remove(key V, id EntityId) bool {
	set, ok := b.m[key]
	if !ok || !set.remove(id) {
		return false
	}
	if set.len() == 0 {
		delete(b.m, key)
		b.pool.put(set)
	}
	return true
}

func (b *hashBuckets[V]) get(key V) *idSet {
	return b.m[key]
}

func (b *hashBuckets[V]) len() int {
	return len(b.m)
}

func (b *hashBuckets[V]) keys() iter.Seq[V] {
	return func(yield func(V) bool) {
		for k := range b.m {
			if !yield(k) {
				return
			}
		}
	}
}
