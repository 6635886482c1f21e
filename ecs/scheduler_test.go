package ecs_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/plus3/entitystore/ecs"
	"github.com/stretchr/testify/assert"
)

type MovementSystem struct {
	Entities ecs.Query[struct {
		*Position
		*Velocity
	}]
	ExecuteCount int
}

func (s *MovementSystem) Execute(frame *ecs.UpdateFrame) {
	s.ExecuteCount++
	for _, item := range s.Entities.Iter() {
		item.Position.X += item.Velocity.DX * float32(frame.DeltaTime)
		item.Position.Y += item.Velocity.DY * float32(frame.DeltaTime)
	}
}

type HealthSystem struct {
	Entities ecs.Query[struct {
		*Health
	}]
	ExecuteCount int
	TotalHealth  float64
}

func (s *HealthSystem) Execute(frame *ecs.UpdateFrame) {
	s.ExecuteCount++
	s.TotalHealth = 0
	for _, item := range s.Entities.Iter() {
		s.TotalHealth += float64(item.Health.Current)
	}
}

func TestScheduler(t *testing.T) {
	registry := newTestRegistry()

	t.Run("system execution order and query initialization", func(t *testing.T) {
		store := ecs.NewStore(registry)
		scheduler := ecs.NewScheduler(store)

		movement := &MovementSystem{}
		health := &HealthSystem{}

		scheduler.Register(movement)
		scheduler.Register(health)

		store.Spawn(Position{X: 0, Y: 0}, Velocity{DX: 1, DY: 2})
		store.Spawn(Health{Current: 100, Max: 100})

		mustOnce(t, scheduler)

		if movement.ExecuteCount != 1 {
			t.Errorf("expected MovementSystem to execute once, got %d", movement.ExecuteCount)
		}

		if health.ExecuteCount != 1 {
			t.Errorf("expected HealthSystem to execute once, got %d", health.ExecuteCount)
		}

		mustOnce(t, scheduler)

		if movement.ExecuteCount != 2 {
			t.Errorf("expected MovementSystem to execute twice, got %d", movement.ExecuteCount)
		}

		if health.ExecuteCount != 2 {
			t.Errorf("expected HealthSystem to execute twice, got %d", health.ExecuteCount)
		}
	})

	t.Run("custom state persistence", func(t *testing.T) {
		store := ecs.NewStore(registry)
		scheduler := ecs.NewScheduler(store)

		store.Spawn(Health{Current: 50, Max: 100})
		store.Spawn(Health{Current: 75, Max: 100})

		health := &HealthSystem{}
		scheduler.Register(health)

		mustOnce(t, scheduler)

		if health.TotalHealth != 125.0 {
			t.Errorf("expected TotalHealth=125.0, got %f", health.TotalHealth)
		}

		store.Spawn(Health{Current: 25, Max: 100})

		mustOnce(t, scheduler)

		if health.TotalHealth != 150.0 {
			t.Errorf("expected TotalHealth=150.0, got %f", health.TotalHealth)
		}
	})

	t.Run("context cancellation in run", func(t *testing.T) {
		store := ecs.NewStore(registry)
		scheduler := ecs.NewScheduler(store)

		movement := &MovementSystem{}
		scheduler.Register(movement)

		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan bool)
		go func() {
			scheduler.Run(ctx, 1*time.Millisecond)
			done <- true
		}()

		time.Sleep(10 * time.Millisecond)
		cancel()

		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
			t.Fatal("scheduler did not stop after context cancellation")
		}

		if movement.ExecuteCount == 0 {
			t.Error("expected system to execute at least once")
		}
	})

	t.Run("delta time calculation", func(t *testing.T) {
		store := ecs.NewStore(registry)
		scheduler := ecs.NewScheduler(store)

		store.Spawn(Position{X: 0, Y: 0}, Velocity{DX: 10, DY: 20})

		movement := &MovementSystem{}
		scheduler.Register(movement)

		if err := scheduler.Once(0.5); err != nil {
			t.Fatal(err)
		}

		found := false
		for _, item := range movement.Entities.Iter() {
			if item.Position.X == 5.0 && item.Position.Y == 10.0 {
				found = true
			}
		}

		if !found {
			t.Error("expected position to be updated with delta time")
		}
	})

	t.Run("commands integration", func(t *testing.T) {
		store := ecs.NewStore(registry)
		scheduler := ecs.NewScheduler(store)

		spawnSystem := &testSpawnSystem{}
		scheduler.Register(spawnSystem)

		mustOnce(t, scheduler)

		if !spawnSystem.executed {
			t.Error("expected spawn system to execute")
		}

		movement := &MovementSystem{}
		scheduler.Register(movement)
		mustOnce(t, scheduler)

		count := 0
		for range movement.Entities.Iter() {
			count++
		}

		if count == 0 {
			t.Error("expected spawned entity to be visible after command flush")
		}
	})
}

type ConfigSingleton struct {
	Gravity float32
}

type GravitySystem struct {
	Bodies ecs.Query[struct {
		*Velocity
	}]
	Config ecs.Singleton[ConfigSingleton]
}

func (s *GravitySystem) Execute(frame *ecs.UpdateFrame) {
	g := s.Config.Get().Gravity
	for _, item := range s.Bodies.Iter() {
		item.Velocity.DY += g * float32(frame.DeltaTime)
	}
}

type FreezeSystem struct {
	Bodies ecs.Query[struct {
		Id ecs.EntityId
		*Velocity
	}]
}

func (s *FreezeSystem) Execute(frame *ecs.UpdateFrame) {
	for item := range s.Bodies.Values() {
		if item.Velocity.DY < -5 {
			frame.Commands.AddTag(item.Id, reflect.TypeOf(Frozen{}))
		}
	}
}

func TestSchedulerSingletonsAndTags(t *testing.T) {
	store := newTestStore()
	ecs.NewSingleton(store, ConfigSingleton{Gravity: -10})

	falling, _ := store.Spawn(Velocity{})
	scheduler := ecs.NewScheduler(store)
	scheduler.Register(&GravitySystem{})
	scheduler.Register(&FreezeSystem{})

	mustOnce(t, scheduler)
	vel, _ := ecs.GetComponent[Velocity](store, falling)
	assert.Equal(t, float32(-10), vel.DY)
	assert.True(t, ecs.HasTag[Frozen](store, falling))
}

type failingSystem struct {
	fired bool
}

func (s *failingSystem) Execute(frame *ecs.UpdateFrame) {
	if !s.fired {
		s.fired = true
		frame.Commands.Delete(ecs.EntityId(12345))
	}
}

func TestSchedulerOnceReturnsFlushError(t *testing.T) {
	store := newTestStore()
	scheduler := ecs.NewScheduler(store)
	scheduler.Register(&failingSystem{})

	err := scheduler.Once(1.0)
	assert.ErrorIs(t, err, ecs.ErrEntityNotFound)

	// The buffer is cleared even when playback fails.
	assert.Equal(t, 0, scheduler.Commands().Len())
	assert.NoError(t, scheduler.Once(1.0))
	assert.Equal(t, 0, scheduler.Commands().Len())
}
