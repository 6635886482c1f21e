package ecs_test

import (
	"github.com/plus3/entitystore/ecs"
)

// Common test component types
type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Name struct {
	Value string
}

type Health struct {
	Current int
	Max     int
}

type PlayerController struct{}

type AI struct {
	State int
}

// Custom primitive types for testing non-struct components
type Score int32
type Label string
type Temperature float64

// Level is range indexed by its value.
type Level int

func (l Level) IndexedValue() int { return int(l) }

// Faction is equality indexed by its name.
type Faction struct {
	Name string
}

func (f Faction) IndexedValue() string { return f.Name }

// Tags
type Enemy struct{}
type Frozen struct{}

// Relations
type Follows struct {
	Distance float32
}

type Inventory struct {
	Items []string
}

func newTestRegistry() *ecs.ComponentRegistry {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Name](registry)
	ecs.RegisterComponent[Health](registry)
	ecs.RegisterComponent[PlayerController](registry)
	ecs.RegisterComponent[AI](registry)
	ecs.RegisterComponent[Score](registry)
	ecs.RegisterComponent[Label](registry)
	ecs.RegisterComponent[Temperature](registry)
	ecs.RegisterComponent[Inventory](registry)
	ecs.RegisterRangeIndexedComponent[Level, int](registry)
	ecs.RegisterIndexedComponent[Faction, string](registry)
	ecs.RegisterTag[Enemy](registry)
	ecs.RegisterTag[Frozen](registry)
	ecs.RegisterRelation[Follows](registry)
	return registry
}

func newTestStore(opts ...ecs.Option) *ecs.Store {
	return ecs.NewStore(newTestRegistry(), opts...)
}

func sigOf(s *ecs.Store, values ...any) ecs.Signature {
	return s.Registry().MustSignatureOf(values...)
}
