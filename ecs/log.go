package ecs

import "github.com/rs/zerolog"

func archetypeArray(stats *StoreStats) *zerolog.Array {
	arr := zerolog.Arr()
	for _, a := range stats.ArchetypeBreakdown {
		components := zerolog.Arr()
		for _, name := range a.Components {
			components = components.Str(name)
		}
		tags := zerolog.Arr()
		for _, name := range a.Tags {
			tags = tags.Str(name)
		}
		arr = arr.Dict(zerolog.Dict().
			Uint32("archetype_id", uint32(a.Id)).
			Array("components", components).
			Array("tags", tags).
			Int("entity_count", a.EntityCount))
	}
	return arr
}

func indexArray(stats *StoreStats) *zerolog.Array {
	arr := zerolog.Arr()
	for _, ix := range stats.Indexes {
		arr = arr.Dict(zerolog.Dict().
			Str("component", ix.Component).
			Str("kind", ix.Kind).
			Int("value_count", ix.ValueCount).
			Int("entity_count", ix.EntityCount))
	}
	return arr
}

func relationArray(stats *StoreStats) *zerolog.Array {
	arr := zerolog.Arr()
	for _, rs := range stats.Relations {
		arr = arr.Dict(zerolog.Dict().
			Str("relation", rs.Relation).
			Int("source_count", rs.SourceCount).
			Int("link_count", rs.LinkCount))
	}
	return arr
}

// LogStore writes a structured snapshot of store at level.
func LogStore(logger zerolog.Logger, level zerolog.Level, store *Store) {
	stats := store.CollectStats()
	logger.WithLevel(level).
		Int("total_entities", stats.TotalEntityCount).
		Int("total_archetypes", stats.ArchetypeCount).
		Int("total_singletons", stats.SingletonCount).
		Array("archetypes", archetypeArray(stats)).
		Array("indexes", indexArray(stats)).
		Array("relations", relationArray(stats)).
		Msg("store snapshot")
}

// LogEntity writes the archetype, row and component names of one entity.
func LogEntity(logger zerolog.Logger, level zerolog.Level, store *Store, id EntityId) {
	a, row, err := store.Location(id)
	if err != nil {
		logger.Err(err).Uint32("entity_id", uint32(id)).Msg("entity lookup failed")
		return
	}
	components := zerolog.Arr()
	for _, cid := range a.componentIds {
		components = components.Str(store.registry.components[cid].name)
	}
	logger.WithLevel(level).
		Uint32("entity_id", uint32(id)).
		Uint32("archetype_id", uint32(a.id)).
		Int("row", row).
		Array("components", components).
		Msg("entity")
}
