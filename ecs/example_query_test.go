package ecs_test

import (
	"fmt"

	"github.com/plus3/entitystore/ecs"
)

// ExampleQuery narrows a query with an equality index predicate and an
// excluded component. Candidates come from the index, so only entities on the
// red team are visited.
func ExampleQuery() {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Name](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterIndexedComponent[Team, string](registry)
	store := ecs.NewStore(registry)

	store.Spawn(Name{Value: "archer"}, Team{Name: "red"})
	store.Spawn(Name{Value: "scout"}, Team{Name: "red"}, Velocity{DX: 3})
	store.Spawn(Name{Value: "knight"}, Team{Name: "blue"})
	store.Spawn(Name{Value: "mage"}, Team{Name: "red"})

	// Stationary members of the red team.
	query := ecs.HasValue[Team, string](
		ecs.Without[Velocity](ecs.NewQuery[struct{ *Name }](store)), "red")
	for item := range query.Values() {
		fmt.Println(item.Name.Value)
	}
	fmt.Println("count:", query.Count())

	// Output:
	// archer
	// mage
	// count: 2
}

// ExampleWithTag filters on tags. Tags live in the signature, so adding or
// clearing one moves the entity between archetypes and the cached query
// picks that up on its next run.
func ExampleWithTag() {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Name](registry)
	ecs.RegisterTag[Enemy](registry)
	ecs.RegisterTag[Frozen](registry)
	store := ecs.NewStore(registry)

	store.Spawn(Name{Value: "villager"})
	store.Spawn(Name{Value: "goblin"}, Enemy{})
	golem, _ := store.Spawn(Name{Value: "ice golem"}, Enemy{}, Frozen{})
	store.Spawn(Name{Value: "bandit"}, Enemy{})

	active := ecs.WithoutTag[Frozen](ecs.WithTag[Enemy](ecs.NewQuery[struct{ *Name }](store)))
	for item := range active.Values() {
		fmt.Println("active:", item.Name.Value)
	}

	_, _ = ecs.RemoveTag[Frozen](store, golem)
	fmt.Println("after thaw:", active.Count())

	// Output:
	// active: goblin
	// active: bandit
	// after thaw: 3
}
