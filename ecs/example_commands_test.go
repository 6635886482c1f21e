package ecs_test

import (
	"fmt"
	"reflect"

	"github.com/plus3/entitystore/ecs"
)

// CasualtySystem removes fallen units and moves badly wounded ones to the
// reserve team.
type CasualtySystem struct {
	Units ecs.Query[struct{ *Health }]
}

func (s *CasualtySystem) Execute(frame *ecs.UpdateFrame) {
	for id, unit := range s.Units.Iter() {
		switch {
		case unit.Health.Current <= 0:
			frame.Commands.Delete(id)
		case unit.Health.Current*2 < unit.Health.Max:
			frame.Commands.AddComponent(id, Team{Name: "reserve"})
			frame.Commands.AddTag(id, reflect.TypeFor[Frozen]())
		}
	}
}

// ExampleCommands defers deletions, indexed writes and tag changes recorded
// while a query holds the store. The scheduler replays them in order once the
// frame's systems have run.
func ExampleCommands() {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Name](registry)
	ecs.RegisterComponent[Health](registry)
	ecs.RegisterIndexedComponent[Team, string](registry)
	ecs.RegisterTag[Frozen](registry)
	store := ecs.NewStore(registry)

	store.Spawn(Name{Value: "pike"}, Health{Current: 0, Max: 10}, Team{Name: "red"})
	store.Spawn(Name{Value: "bow"}, Health{Current: 3, Max: 10}, Team{Name: "red"})
	store.Spawn(Name{Value: "sword"}, Health{Current: 9, Max: 10}, Team{Name: "red"})

	scheduler := ecs.NewScheduler(store)
	scheduler.Register(&CasualtySystem{})
	if err := scheduler.Once(1); err != nil {
		fmt.Println(err)
	}

	for _, team := range []string{"red", "reserve"} {
		members, _ := ecs.GetEntitiesWithValue[Team, string](store, team)
		for _, id := range members.Ids() {
			name, _ := ecs.GetComponent[Name](store, id)
			fmt.Printf("%s: %s frozen=%t\n", team, name.Value, ecs.HasTag[Frozen](store, id))
		}
	}
	fmt.Println("alive:", store.Count())

	// Output:
	// red: sword frozen=false
	// reserve: bow frozen=true
	// alive: 2
}

// ExampleCommands_Defer queues arbitrary store calls behind an iteration,
// here linking every squad member to its captain.
func ExampleCommands_Defer() {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Name](registry)
	ecs.RegisterIndexedComponent[Team, string](registry)
	ecs.RegisterRelation[ChildOf](registry)
	store := ecs.NewStore(registry)

	captain, _ := store.Spawn(Name{Value: "captain"})
	store.Spawn(Name{Value: "recruit a"}, Team{Name: "squad"})
	store.Spawn(Name{Value: "loner"}, Team{Name: "none"})
	store.Spawn(Name{Value: "recruit b"}, Team{Name: "squad"})

	cmds := ecs.NewCommands()
	squad := ecs.HasValue[Team, string](ecs.NewQuery[struct{ *Name }](store), "squad")
	for id := range squad.Ids() {
		cmds.Defer(func() { _ = ecs.AddRelation(store, id, captain, ChildOf{}) })
	}
	fmt.Println("queued:", cmds.Len())
	if err := cmds.Flush(store); err != nil {
		fmt.Println(err)
	}

	for _, id := range ecs.IncomingRelations[ChildOf](store, captain) {
		name, _ := ecs.GetComponent[Name](store, id)
		fmt.Println(name.Value, "reports to captain")
	}

	// Output:
	// queued: 2
	// recruit a reports to captain
	// recruit b reports to captain
}
