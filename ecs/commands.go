package ecs

import (
	"reflect"

	"github.com/kamstrup/intmap"
)

// Commands provides a buffer for deferred operations that are executed after
// an iteration or a frame. Structural changes are rejected while the store is
// locked by a query or a signal dispatch; recording them here and flushing
// afterwards is the way to make them.
type Commands struct {
	ops []command
}

type commandKind uint8

const (
	cmdSpawn commandKind = iota
	cmdDelete
	cmdAddComponent
	cmdRemoveComponent
	cmdAddTag
	cmdRemoveTag
	cmdDefer
)

type command struct {
	kind       commandKind
	entity     EntityId
	component  any
	compType   reflect.Type
	components []any
	fn         func()
}

// NewCommands creates an empty command buffer.
func NewCommands() *Commands {
	return &Commands{}
}

// Len returns the number of recorded operations.
func (c *Commands) Len() int {
	return len(c.ops)
}

// Defer queues a function execution operation.
func (c *Commands) Defer(fn func()) {
	c.ops = append(c.ops, command{kind: cmdDefer, fn: fn})
}

// Spawn queues an entity spawn operation with the given components.
func (c *Commands) Spawn(components ...any) {
	c.ops = append(c.ops, command{kind: cmdSpawn, components: components})
}

// Delete queues an entity deletion operation.
func (c *Commands) Delete(entity EntityId) {
	c.ops = append(c.ops, command{kind: cmdDelete, entity: entity})
}

// AddComponent queues a component addition or overwrite.
func (c *Commands) AddComponent(entity EntityId, component any) {
	c.ops = append(c.ops, command{kind: cmdAddComponent, entity: entity, component: component})
}

// RemoveComponent queues a component removal operation.
func (c *Commands) RemoveComponent(entity EntityId, compType reflect.Type) {
	c.ops = append(c.ops, command{kind: cmdRemoveComponent, entity: entity, compType: compType})
}

// AddTag queues setting the tag of type tagType.
func (c *Commands) AddTag(entity EntityId, tagType reflect.Type) {
	c.ops = append(c.ops, command{kind: cmdAddTag, entity: entity, compType: tagType})
}

// RemoveTag queues clearing the tag of type tagType.
func (c *Commands) RemoveTag(entity EntityId, tagType reflect.Type) {
	c.ops = append(c.ops, command{kind: cmdRemoveTag, entity: entity, compType: tagType})
}

// Flush replays the recorded operations against store in the order they were
// recorded and resets the buffer. Operations on an entity deleted earlier in
// the same buffer are skipped. The first failure is returned; later failures
// are logged and the remaining operations still run. Operations recorded
// while flushing, for example by event handlers, run in the same flush.
func (c *Commands) Flush(store *Store) error {
	var first error
	var deleted *intmap.Map[EntityId, struct{}]

	for i := 0; i < len(c.ops); i++ {
		op := c.ops[i]
		if op.kind != cmdSpawn && op.kind != cmdDefer && deleted != nil && deleted.Has(op.entity) {
			continue
		}

		var err error
		switch op.kind {
		case cmdSpawn:
			var id EntityId
			if id, err = store.Spawn(op.components...); err == nil && deleted != nil {
				deleted.Del(id)
			}
		case cmdDelete:
			err = store.DeleteEntity(op.entity)
			if err == nil {
				if deleted == nil {
					deleted = intmap.New[EntityId, struct{}](len(c.ops))
				}
				deleted.Put(op.entity, struct{}{})
			}
		case cmdAddComponent:
			err = store.AddComponentValue(op.entity, op.component)
		case cmdRemoveComponent:
			_, err = store.RemoveComponentType(op.entity, op.compType)
		case cmdAddTag:
			var tag TagID
			if tag, err = store.registry.TagId(op.compType); err == nil {
				err = store.AddTags(op.entity, Mask{}.With(uint8(tag)))
			}
		case cmdRemoveTag:
			var tag TagID
			if tag, err = store.registry.TagId(op.compType); err == nil {
				_, err = store.RemoveTags(op.entity, Mask{}.With(uint8(tag)))
			}
		case cmdDefer:
			op.fn()
		}

		if err != nil {
			if first == nil {
				first = err
			} else {
				store.logger.Warn().Err(err).Uint32("entity_id", uint32(op.entity)).Msg("command playback failed")
			}
		}
	}

	clear(c.ops)
	c.ops = c.ops[:0]
	return first
}
