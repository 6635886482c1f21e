package ecs

import "sort"

// StoreStats is a point in time summary of a store.
type StoreStats struct {
	ArchetypeCount     int
	TotalEntityCount   int
	SingletonCount     int
	ArchetypeBreakdown []ArchetypeStats
	SingletonTypes     []string
	Indexes            []IndexStats
	Relations          []RelationStats
}

// ArchetypeStats describes one archetype and its population.
type ArchetypeStats struct {
	Id          ArchetypeId
	Components  []string
	Tags        []string
	EntityCount int
}

// IndexStats describes a value index. ValueCount is the number of distinct
// keys and EntityCount the number of entities filed under them.
type IndexStats struct {
	Component   string
	Kind        string
	ValueCount  int
	EntityCount int
}

// RelationStats describes the links of one relation type.
type RelationStats struct {
	Relation    string
	SourceCount int
	LinkCount   int
}

// CollectStats walks the store and summarizes its archetypes, singletons,
// value indexes and relations.
func (s *Store) CollectStats() *StoreStats {
	stats := &StoreStats{
		ArchetypeCount:   len(s.archetypes),
		TotalEntityCount: s.entities.alive,
		SingletonCount:   len(s.singletons),
	}

	for _, a := range s.archetypes {
		as := ArchetypeStats{
			Id:          a.id,
			Components:  make([]string, 0, len(a.types)),
			EntityCount: a.Len(),
		}
		for _, cid := range a.componentIds {
			as.Components = append(as.Components, s.registry.components[cid].name)
		}
		for bit := range a.signature.Tags.Bits() {
			as.Tags = append(as.Tags, s.registry.tags[bit].Name())
		}
		stats.ArchetypeBreakdown = append(stats.ArchetypeBreakdown, as)
	}

	for t := range s.singletons {
		stats.SingletonTypes = append(stats.SingletonTypes, t.String())
	}
	sort.Strings(stats.SingletonTypes)

	for _, ix := range s.indexes {
		if ix == nil {
			continue
		}
		stats.Indexes = append(stats.Indexes, IndexStats{
			Component:   ix.component().name,
			Kind:        ix.kind().String(),
			ValueCount:  ix.valueCount(),
			EntityCount: ix.entityCount(),
		})
	}

	for _, rs := range s.relationList {
		stats.Relations = append(stats.Relations, RelationStats{
			Relation:    rs.component().name,
			SourceCount: rs.sourceCount(),
			LinkCount:   rs.linkCount(),
		})
	}
	return stats
}
