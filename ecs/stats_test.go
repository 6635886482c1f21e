package ecs

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStoreStats(t *testing.T) {
	registry := NewComponentRegistry()
	RegisterComponent[int](registry)
	RegisterComponent[string](registry)
	RegisterComponent[float64](registry)

	store := NewStore(registry)

	stats := store.CollectStats()
	if stats.ArchetypeCount != 1 {
		t.Errorf("expected only the empty archetype, got %d", stats.ArchetypeCount)
	}
	if stats.TotalEntityCount != 0 {
		t.Errorf("expected 0 entities, got %d", stats.TotalEntityCount)
	}
	if stats.SingletonCount != 0 {
		t.Errorf("expected 0 singletons, got %d", stats.SingletonCount)
	}

	store.Spawn(42, "hello")
	store.Spawn(100, "world")
	store.Spawn(200.0, "test")

	NewSingleton[float64](store, 3.14)
	NewSingleton[string](store, "singleton")

	stats = store.CollectStats()

	if stats.ArchetypeCount != 3 {
		t.Errorf("expected 3 archetypes, got %d", stats.ArchetypeCount)
	}

	if stats.TotalEntityCount != 3 {
		t.Errorf("expected 3 entities, got %d", stats.TotalEntityCount)
	}

	if stats.SingletonCount != 2 {
		t.Errorf("expected 2 singletons, got %d", stats.SingletonCount)
	}

	if len(stats.ArchetypeBreakdown) != 3 {
		t.Errorf("expected 3 archetype breakdown entries, got %d", len(stats.ArchetypeBreakdown))
	}

	if want := []string{"float64", "string"}; !slices.Equal(stats.SingletonTypes, want) {
		t.Errorf("expected singleton types %v, got %v", want, stats.SingletonTypes)
	}

	foundIntString := false
	foundFloat64String := false
	for _, arch := range stats.ArchetypeBreakdown {
		if arch.EntityCount == 2 && slices.Equal(arch.Components, []string{"int", "string"}) {
			foundIntString = true
		}
		if arch.EntityCount == 1 && slices.Equal(arch.Components, []string{"string", "float64"}) {
			foundFloat64String = true
		}
	}

	if !foundIntString || !foundFloat64String {
		t.Errorf("archetype breakdown incorrect: %+v", stats.ArchetypeBreakdown)
	}
}

type statsLevel int

func (l statsLevel) IndexedValue() int { return int(l) }

type statsTag struct{}

type statsLink struct{}

func TestStoreStatsIndexesAndRelations(t *testing.T) {
	registry := NewComponentRegistry()
	RegisterRangeIndexedComponent[statsLevel, int](registry)
	RegisterTag[statsTag](registry)
	RegisterRelation[statsLink](registry)
	store := NewStore(registry)

	a, _ := store.Spawn(statsLevel(1), statsTag{})
	b, _ := store.Spawn(statsLevel(1))
	c, _ := store.Spawn(statsLevel(2))
	if err := AddRelation(store, a, b, statsLink{}); err != nil {
		t.Fatal(err)
	}
	if err := AddRelation(store, a, c, statsLink{}); err != nil {
		t.Fatal(err)
	}

	stats := store.CollectStats()
	assert.Equal(t, []IndexStats{{Component: "statsLevel", Kind: "range", ValueCount: 2, EntityCount: 3}}, stats.Indexes)
	assert.Equal(t, []RelationStats{{Relation: "statsLink", SourceCount: 1, LinkCount: 2}}, stats.Relations)

	var tagged []string
	for _, arch := range stats.ArchetypeBreakdown {
		tagged = append(tagged, arch.Tags...)
	}
	assert.Equal(t, []string{"statsTag"}, tagged)
}

type TestSystem struct {
	executeCount int
	sleepDur     time.Duration
}

func (s *TestSystem) Execute(frame *UpdateFrame) {
	s.executeCount++
	if s.sleepDur > 0 {
		time.Sleep(s.sleepDur)
	}
}

func TestSchedulerStats(t *testing.T) {
	registry := NewComponentRegistry()
	store := NewStore(registry)
	scheduler := NewScheduler(store)

	stats := scheduler.GetStats()
	if stats.SystemCount != 0 {
		t.Errorf("expected 0 systems, got %d", stats.SystemCount)
	}
	if stats.TotalExecutions != 0 {
		t.Errorf("expected 0 total executions, got %d", stats.TotalExecutions)
	}

	sys1 := &TestSystem{sleepDur: 1 * time.Millisecond}
	sys2 := &TestSystem{sleepDur: 2 * time.Millisecond}
	scheduler.Register(sys1)
	scheduler.Register(sys2)

	stats = scheduler.GetStats()
	if stats.SystemCount != 2 {
		t.Errorf("expected 2 systems, got %d", stats.SystemCount)
	}

	for range 3 {
		if err := scheduler.Once(0.016); err != nil {
			t.Fatal(err)
		}
	}

	stats = scheduler.GetStats()

	if stats.TotalExecutions != 6 {
		t.Errorf("expected 6 total executions (2 systems * 3 runs), got %d", stats.TotalExecutions)
	}

	if len(stats.Systems) != 2 {
		t.Errorf("expected 2 system stats, got %d", len(stats.Systems))
	}

	for _, sysStats := range stats.Systems {
		if sysStats.Name != "TestSystem" {
			t.Errorf("expected system name 'TestSystem', got '%s'", sysStats.Name)
		}

		if sysStats.ExecutionCount != 3 {
			t.Errorf("expected 3 executions, got %d", sysStats.ExecutionCount)
		}

		if sysStats.MinDuration == 0 {
			t.Errorf("expected non-zero min duration")
		}

		if sysStats.MaxDuration == 0 {
			t.Errorf("expected non-zero max duration")
		}

		if sysStats.AvgDuration == 0 {
			t.Errorf("expected non-zero avg duration")
		}

		if sysStats.LastDuration == 0 {
			t.Errorf("expected non-zero last duration")
		}

		if sysStats.TotalDuration == 0 {
			t.Errorf("expected non-zero total duration")
		}

		if sysStats.MinDuration > sysStats.AvgDuration {
			t.Errorf("min duration (%v) should be <= avg duration (%v)", sysStats.MinDuration, sysStats.AvgDuration)
		}

		if sysStats.AvgDuration > sysStats.MaxDuration {
			t.Errorf("avg duration (%v) should be <= max duration (%v)", sysStats.AvgDuration, sysStats.MaxDuration)
		}
	}

	if sys1.executeCount != 3 {
		t.Errorf("expected sys1 to execute 3 times, got %d", sys1.executeCount)
	}

	if sys2.executeCount != 3 {
		t.Errorf("expected sys2 to execute 3 times, got %d", sys2.executeCount)
	}
}
