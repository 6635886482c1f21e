package ecs

// EntityId is a dense, recyclable entity handle. Zero is never a live id.
// Ids are slots in the store's entity table, so an id stays the same while the
// entity moves between archetypes.
type EntityId uint32

// InvalidEntity is the zero id. No live entity ever has it.
const InvalidEntity EntityId = 0

const freeSlot = -1

// entityLocation is where a live entity's row lives. archetype is freeSlot for
// dead ids.
type entityLocation struct {
	archetype int32
	row       int32
}

// entityTable maps ids to locations and recycles freed ids LIFO.
type entityTable struct {
	locations []entityLocation
	free      []EntityId
	alive     int
}

func newEntityTable(capacity int) *entityTable {
	t := &entityTable{locations: make([]entityLocation, 1, capacity+1)}
	t.locations[0] = entityLocation{archetype: freeSlot}
	return t
}

func (t *entityTable) alloc() EntityId {
	t.alive++
	if n := len(t.free); n > 0 {
		id := t.free[n-1]
		t.free = t.free[:n-1]
		return id
	}
	t.locations = append(t.locations, entityLocation{archetype: freeSlot})
	return EntityId(len(t.locations) - 1)
}

func (t *entityTable) place(id EntityId, archetype ArchetypeId, row int) {
	t.locations[id] = entityLocation{archetype: int32(archetype), row: int32(row)}
}

func (t *entityTable) release(id EntityId) {
	t.locations[id] = entityLocation{archetype: freeSlot}
	t.free = append(t.free, id)
	t.alive--
}

func (t *entityTable) lookup(id EntityId) (entityLocation, bool) {
	if id == InvalidEntity || int(id) >= len(t.locations) {
		return entityLocation{}, false
	}
	loc := t.locations[id]
	return loc, loc.archetype != freeSlot
}
