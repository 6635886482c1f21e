package ecs_test

import (
	"reflect"
	"slices"
	"testing"

	"github.com/plus3/entitystore/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskSetOperations(t *testing.T) {
	var m ecs.Mask
	assert.True(t, m.IsEmpty())

	m = m.With(0).With(63).With(64).With(255)
	assert.True(t, m.Has(0))
	assert.True(t, m.Has(63))
	assert.True(t, m.Has(64))
	assert.True(t, m.Has(255))
	assert.False(t, m.Has(1))
	assert.Equal(t, 4, m.Len())

	m = m.Without(63)
	assert.False(t, m.Has(63))
	assert.Equal(t, 3, m.Len())

	sub := ecs.Mask{}.With(0).With(255)
	assert.True(t, m.HasAll(sub))
	assert.True(t, m.HasAny(sub))
	assert.False(t, m.HasNone(sub))

	other := ecs.Mask{}.With(7)
	assert.False(t, m.HasAll(other))
	assert.True(t, m.HasNone(other))

	assert.Equal(t, 4, m.Union(other).Len())
	assert.Equal(t, ecs.Mask{}.With(64), m.Difference(sub))
}

func TestMaskBitsAscending(t *testing.T) {
	m := ecs.Mask{}.With(200).With(3).With(64).With(65)
	assert.Equal(t, []uint8{3, 64, 65, 200}, slices.Collect(m.Bits()))

	bit, ok := m.Next(66)
	assert.True(t, ok)
	assert.Equal(t, uint8(200), bit)

	_, ok = m.Next(201)
	assert.False(t, ok)

	assert.Empty(t, slices.Collect(ecs.Mask{}.Bits()))
}

func TestMaskIsValueType(t *testing.T) {
	a := ecs.Mask{}.With(1)
	b := a.With(2)
	assert.False(t, a.Has(2))
	assert.True(t, b.Has(2))
}

func TestSignatureMatches(t *testing.T) {
	store := newTestStore()

	posVel := sigOf(store, Position{}, Velocity{})
	posVelEnemy := sigOf(store, Position{}, Velocity{}, Enemy{})

	assert.True(t, posVel.Matches(sigOf(store, Position{}), ecs.Signature{}))
	assert.False(t, posVel.Matches(sigOf(store, Name{}), ecs.Signature{}))
	assert.True(t, posVelEnemy.Matches(sigOf(store, Position{}), sigOf(store, Frozen{})))
	assert.False(t, posVelEnemy.Matches(sigOf(store, Position{}), sigOf(store, Enemy{})))

	assert.True(t, posVelEnemy.HasAll(posVel))
	assert.False(t, posVel.HasAll(posVelEnemy))
	assert.Equal(t, sigOf(store, Enemy{}), posVelEnemy.Difference(posVel))
	assert.Equal(t, posVelEnemy, posVel.Union(sigOf(store, Enemy{})))
}

func TestSignatureDescribe(t *testing.T) {
	store := newTestStore()

	sig := sigOf(store, Velocity{}, Position{}, Enemy{})
	assert.Equal(t, "Signature: [Position, Velocity | #Enemy]", sig.Describe(store.Registry()))
	assert.Equal(t, "Signature: []", ecs.Signature{}.Describe(store.Registry()))
}

func TestSignatureOfRejectsRelations(t *testing.T) {
	store := newTestStore()

	_, err := store.Registry().SignatureOf(reflect.TypeFor[Follows]())
	assert.ErrorIs(t, err, ecs.ErrRelationAsComponent)

	sig, err := store.Registry().SignatureOf(reflect.TypeFor[*Position]())
	require.NoError(t, err)
	assert.Equal(t, sigOf(store, Position{}), sig)
}

func TestSignatureOfAcceptsValuesPointersAndTypes(t *testing.T) {
	store := newTestStore()
	want := sigOf(store, Position{}, Velocity{}, Enemy{})

	sig, err := store.Registry().SignatureOf(&Position{}, reflect.TypeFor[Velocity](), Enemy{})
	require.NoError(t, err)
	assert.Equal(t, want, sig)

	sig, err = store.Registry().SignatureOf((*Velocity)(nil), reflect.TypeFor[*Enemy](), Position{X: 3})
	require.NoError(t, err)
	assert.Equal(t, want, sig)

	_, err = store.Registry().SignatureOf(Position{}, nil)
	assert.ErrorIs(t, err, ecs.ErrInvalidComponentValue)

	assert.Panics(t, func() { store.Registry().MustSignatureOf(Position{}, struct{ Stray int }{}) })
}
