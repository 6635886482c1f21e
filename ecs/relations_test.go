package ecs_test

import (
	"testing"

	"github.com/plus3/entitystore/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type followLink struct {
	target   ecs.EntityId
	distance float32
}

func followsOf(store *ecs.Store, source ecs.EntityId) []followLink {
	var links []followLink
	for target, f := range ecs.GetRelations[Follows](store, source) {
		links = append(links, followLink{target: target, distance: f.Distance})
	}
	return links
}

func TestRelations(t *testing.T) {
	store := newTestStore()

	leader, _ := store.Spawn(Position{})
	scout, _ := store.Spawn(Position{})
	follower, _ := store.Spawn(Position{})

	require.NoError(t, ecs.AddRelation(store, follower, leader, Follows{Distance: 2}))
	require.NoError(t, ecs.AddRelation(store, follower, scout, Follows{Distance: 5}))

	assert.Equal(t, []followLink{{leader, 2}, {scout, 5}}, followsOf(store, follower))
	assert.Equal(t, 2, ecs.RelationCount[Follows](store, follower))
	assert.Equal(t, 0, ecs.RelationCount[Follows](store, leader))
	assert.Equal(t, []ecs.EntityId{follower}, ecs.IncomingRelations[Follows](store, leader))

	f, err := ecs.Relation[Follows](store, follower, scout)
	require.NoError(t, err)
	assert.Equal(t, float32(5), f.Distance)

	_, err = ecs.Relation[Follows](store, leader, scout)
	assert.ErrorIs(t, err, ecs.ErrRelationNotFound)

	// Relations are not part of the signature.
	sig, _ := store.SignatureOf(follower)
	assert.Equal(t, sigOf(store, Position{}), sig)
}

func TestRelationUpsert(t *testing.T) {
	store := newTestStore()

	a, _ := store.Spawn(Position{})
	b, _ := store.Spawn(Position{})

	require.NoError(t, ecs.AddRelation(store, a, b, Follows{Distance: 1}))
	require.NoError(t, ecs.AddRelation(store, a, b, Follows{Distance: 9}))

	assert.Equal(t, []followLink{{b, 9}}, followsOf(store, a))
	stats := store.CollectStats()
	require.Len(t, stats.Relations, 1)
	assert.Equal(t, 1, stats.Relations[0].LinkCount)
	assert.Equal(t, 1, stats.Relations[0].SourceCount)
}

func TestRelationValuesAreMutable(t *testing.T) {
	store := newTestStore()

	a, _ := store.Spawn(Position{})
	b, _ := store.Spawn(Position{})
	require.NoError(t, ecs.AddRelation(store, a, b, Follows{Distance: 1}))

	for _, f := range ecs.GetRelations[Follows](store, a) {
		f.Distance = 3
	}

	f, err := ecs.Relation[Follows](store, a, b)
	require.NoError(t, err)
	assert.Equal(t, float32(3), f.Distance)
}

func TestRemoveRelation(t *testing.T) {
	store := newTestStore()

	a, _ := store.Spawn(Position{})
	b, _ := store.Spawn(Position{})
	c, _ := store.Spawn(Position{})
	require.NoError(t, ecs.AddRelation(store, a, b, Follows{}))
	require.NoError(t, ecs.AddRelation(store, a, c, Follows{}))

	removed, err := ecs.RemoveRelation[Follows](store, a, b)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = ecs.RemoveRelation[Follows](store, a, b)
	require.NoError(t, err)
	assert.False(t, removed)

	assert.Equal(t, []followLink{{c, 0}}, followsOf(store, a))
	assert.Empty(t, ecs.IncomingRelations[Follows](store, b))
}

func TestDeleteEntityCascadesRelations(t *testing.T) {
	store := newTestStore()

	a, _ := store.Spawn(Position{})
	b, _ := store.Spawn(Position{})
	c, _ := store.Spawn(Position{})
	require.NoError(t, ecs.AddRelation(store, a, b, Follows{Distance: 1}))
	require.NoError(t, ecs.AddRelation(store, a, c, Follows{Distance: 2}))
	require.NoError(t, ecs.AddRelation(store, c, b, Follows{Distance: 3}))

	require.NoError(t, store.DeleteEntity(b))

	assert.Equal(t, []followLink{{c, 2}}, followsOf(store, a))
	assert.Empty(t, followsOf(store, c))
	assert.Equal(t, []ecs.EntityId{a}, ecs.IncomingRelations[Follows](store, c))

	require.NoError(t, store.DeleteEntity(a))
	assert.Empty(t, ecs.IncomingRelations[Follows](store, c))
	assert.Equal(t, 0, store.CollectStats().Relations[0].LinkCount)

	// A recycled id starts without relations.
	d, _ := store.Spawn(Position{})
	assert.Equal(t, a, d)
	assert.Empty(t, followsOf(store, d))
}

func TestRelationErrors(t *testing.T) {
	store := newTestStore()

	a, _ := store.Spawn(Position{})

	err := ecs.AddRelation(store, a, ecs.EntityId(99), Follows{})
	assert.ErrorIs(t, err, ecs.ErrEntityNotFound)

	err = ecs.AddRelation(store, a, a, Position{})
	assert.ErrorIs(t, err, ecs.ErrNotRelation)

	_, err = ecs.RemoveRelation[Follows](store, ecs.EntityId(99), a)
	assert.ErrorIs(t, err, ecs.ErrEntityNotFound)

	err = ecs.AddComponent(store, a, Follows{})
	assert.ErrorIs(t, err, ecs.ErrRelationAsComponent)
}

func TestRelationChangesRejectedWhileIterating(t *testing.T) {
	store := newTestStore()

	a, _ := store.Spawn(Position{})
	b, _ := store.Spawn(Position{})
	require.NoError(t, ecs.AddRelation(store, a, b, Follows{}))

	for target := range ecs.GetRelations[Follows](store, a) {
		_, err := ecs.RemoveRelation[Follows](store, a, target)
		assert.ErrorIs(t, err, ecs.ErrStoreLocked)
	}
	assert.Equal(t, 1, ecs.RelationCount[Follows](store, a))
}
