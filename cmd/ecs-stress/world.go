package main

import (
	"math/rand"
	"reflect"

	"github.com/plus3/entitystore/ecs"
)

type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Health struct {
	Current, Max int
}

// Rank is range indexed so systems can pick out bands of entities.
type Rank int

func (r Rank) IndexedValue() int { return int(r) }

// Faction is equality indexed.
type Faction struct {
	Name string
}

func (f Faction) IndexedValue() string { return f.Name }

// Hunts links a hunter to its prey.
type Hunts struct {
	Weight float32
}

type Dormant struct{}

var factions = []string{"north", "south", "east", "west"}

func newRegistry() *ecs.ComponentRegistry {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Health](registry)
	ecs.RegisterRangeIndexedComponent[Rank, int](registry)
	ecs.RegisterIndexedComponent[Faction, string](registry)
	ecs.RegisterRelation[Hunts](registry)
	ecs.RegisterTag[Dormant](registry)
	return registry
}

// spawner builds randomized entities.
type spawner struct {
	rng          *rand.Rand
	indexedRatio float64
	relations    int
}

func (sp *spawner) components() []any {
	components := []any{
		Position{X: sp.rng.Float32() * 1000, Y: sp.rng.Float32() * 1000},
		Health{Current: 50 + sp.rng.Intn(50), Max: 100},
	}
	if sp.rng.Intn(4) != 0 {
		components = append(components, Velocity{DX: sp.rng.Float32()*2 - 1, DY: sp.rng.Float32()*2 - 1})
	}
	if sp.rng.Float64() < sp.indexedRatio {
		components = append(components,
			Rank(sp.rng.Intn(10)),
			Faction{Name: factions[sp.rng.Intn(len(factions))]},
		)
	}
	if sp.rng.Intn(10) == 0 {
		components = append(components, Dormant{})
	}
	return components
}

// link adds up to sp.relations Hunts links from hunter to random live entities.
func (sp *spawner) link(store *ecs.Store, hunter ecs.EntityId, pool []ecs.EntityId) {
	if len(pool) == 0 {
		return
	}
	for i := 0; i < sp.relations; i++ {
		prey := pool[sp.rng.Intn(len(pool))]
		if prey == hunter || !store.IsAlive(prey) {
			continue
		}
		_ = ecs.AddRelation(store, hunter, prey, Hunts{Weight: sp.rng.Float32()})
	}
}

func (sp *spawner) populate(store *ecs.Store, n int) ([]ecs.EntityId, error) {
	ids := make([]ecs.EntityId, 0, n)
	for i := 0; i < n; i++ {
		id, err := store.Spawn(sp.components()...)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	for _, id := range ids {
		sp.link(store, id, ids)
	}
	return ids, nil
}

type MovementSystem struct {
	Entities ecs.Query[struct {
		*Position
		*Velocity
	}]
}

func (s *MovementSystem) Execute(frame *ecs.UpdateFrame) {
	dt := float32(frame.DeltaTime)
	for item := range s.Entities.Values() {
		item.Position.X += item.Velocity.DX * dt
		item.Position.Y += item.Velocity.DY * dt
	}
}

// DecaySystem drains health and queues deletion for entities that reach zero.
type DecaySystem struct {
	Entities ecs.Query[struct {
		Id ecs.EntityId
		*Health
	}]
}

func (s *DecaySystem) Execute(frame *ecs.UpdateFrame) {
	for _, item := range s.Entities.Iter() {
		item.Health.Current--
		if item.Health.Current <= 0 {
			frame.Commands.Delete(item.Id)
		}
	}
}

// PromotionSystem raises the rank of the lowest band through the index.
type PromotionSystem struct {
	rng *rand.Rand
}

func (s *PromotionSystem) Execute(frame *ecs.UpdateFrame) {
	low, err := ecs.EntitiesInRange[Rank, int](frame.Store, 0, 2)
	if err != nil {
		return
	}
	for id := range low {
		if s.rng.Intn(8) != 0 {
			continue
		}
		rank, err := ecs.GetComponent[Rank](frame.Store, id)
		if err != nil {
			continue
		}
		frame.Commands.AddComponent(id, *rank+1)
	}
}

// WakeSystem moves dormant entities of one faction back into play. Sleepers
// is narrowed to the Dormant tag after registration.
type WakeSystem struct {
	Sleepers ecs.Query[struct{ *Position }]
	rng      *rand.Rand
}

func (s *WakeSystem) Execute(frame *ecs.UpdateFrame) {
	faction := factions[s.rng.Intn(len(factions))]
	members, err := ecs.GetEntitiesWithValue[Faction, string](frame.Store, faction)
	if err != nil {
		return
	}
	dormant := reflect.TypeFor[Dormant]()
	for id := range s.Sleepers.Ids() {
		if members.Contains(id) {
			frame.Commands.RemoveTag(id, dormant)
		}
	}
}

// HuntSystem follows Hunts links from stationary entities and chips health
// off the prey.
type HuntSystem struct {
	Hunters ecs.Query[struct{ Id ecs.EntityId }]
}

func (s *HuntSystem) Execute(frame *ecs.UpdateFrame) {
	for id := range s.Hunters.Ids() {
		for prey := range ecs.GetRelations[Hunts](frame.Store, id) {
			if h, err := ecs.GetComponent[Health](frame.Store, prey); err == nil && h.Current > 1 {
				h.Current--
			}
		}
	}
}

// RespawnSystem keeps the population near its starting size.
type RespawnSystem struct {
	Target  int
	spawner *spawner
	pool    []ecs.EntityId
}

// Execute queues the refill last so it sees this frame's deletions.
func (s *RespawnSystem) Execute(frame *ecs.UpdateFrame) {
	store := frame.Store
	frame.Commands.Defer(func() {
		missing := s.Target - store.Count()
		for i := 0; i < missing; i++ {
			id, err := store.Spawn(s.spawner.components()...)
			if err != nil {
				return
			}
			if len(s.pool) < s.Target {
				s.pool = append(s.pool, id)
			} else {
				s.pool[s.spawner.rng.Intn(len(s.pool))] = id
			}
			s.spawner.link(store, id, s.pool)
		}
	})
}
