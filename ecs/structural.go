package ecs

import (
	"reflect"
	"unsafe"

	"github.com/rotisserie/eris"
)

// CreateEntity creates an entity whose signature is the union of sigs. Its
// components start at their zero values; indexed components are filed under
// the zero value's key.
func (s *Store) CreateEntity(sigs ...Signature) (EntityId, error) {
	return s.createEntity(0, sigs)
}

// CreateEntityWithPid creates an entity with a caller supplied persistent id.
func (s *Store) CreateEntityWithPid(pid int64, sigs ...Signature) (EntityId, error) {
	if s.pids == nil {
		return InvalidEntity, eris.Wrap(ErrPersistentIdsDisabled, "")
	}
	if pid <= 0 {
		return InvalidEntity, eris.Wrapf(ErrInvalidOperation, "persistent id %d must be positive", pid)
	}
	if _, ok := s.pids.byPid.Get(pid); ok {
		return InvalidEntity, eris.Wrapf(ErrPidInUse, "pid %d", pid)
	}
	return s.createEntity(pid, sigs)
}

func (s *Store) createEntity(pid int64, sigs []Signature) (EntityId, error) {
	if err := s.checkUnlocked(); err != nil {
		return InvalidEntity, err
	}
	var sig Signature
	for _, x := range sigs {
		sig = sig.Union(x)
	}
	if err := s.registry.validate(sig); err != nil {
		return InvalidEntity, err
	}

	id, a, row := s.place(sig, pid)
	for _, c := range a.columns {
		c.appendZero()
	}
	s.added(id, a, row)
	return id, nil
}

// Spawn creates an entity holding the given component values. Values of
// registered tag types set the tag instead. Later values of a repeated type win.
func (s *Store) Spawn(components ...any) (EntityId, error) {
	if err := s.checkUnlocked(); err != nil {
		return InvalidEntity, err
	}

	var sig Signature
	for _, c := range components {
		t := reflect.TypeOf(c)
		if t == nil {
			return InvalidEntity, eris.Wrap(ErrInvalidComponentValue, "nil component")
		}
		if t.Kind() == reflect.Ptr {
			if reflect.ValueOf(c).IsNil() {
				return InvalidEntity, eris.Wrapf(ErrInvalidComponentValue, "nil %s", t)
			}
			t = t.Elem()
		}
		if tag, ok := s.registry.tagsByType[t]; ok {
			sig = sig.WithTag(tag)
			continue
		}
		ct, err := s.registry.attachable(t)
		if err != nil {
			return InvalidEntity, err
		}
		sig = sig.WithComponent(ct.id)
	}

	id, a, row := s.place(sig, 0)
	for _, c := range a.columns {
		c.appendZero()
	}
	for _, c := range components {
		t, p, err := valuePointer(c)
		if err != nil {
			continue
		}
		if ct, ok := s.registry.byType[t]; ok {
			a.columns[a.slots[ct.id]].assign(row, p)
		}
	}
	s.added(id, a, row)
	return id, nil
}

// place allocates an id and a row in the archetype for sig. Columns are left
// for the caller to grow.
func (s *Store) place(sig Signature, pid int64) (EntityId, *Archetype, int) {
	a := s.archetypeFor(sig)
	id := s.entities.alloc()
	row := a.alloc(id)
	s.entities.place(id, a.id, row)
	if s.pids != nil {
		s.pids.assign(id, pid)
	}
	s.version++
	return id, a, row
}

// added indexes the new entity's components and fires its creation events.
func (s *Store) added(id EntityId, a *Archetype, row int) {
	for i, cid := range a.componentIds {
		if ix := s.indexFor(s.registry.components[cid]); ix != nil {
			ix.insert(id, a.columns[i], row)
		}
	}
	s.emit(Event{Kind: EntityCreated, Entity: id})
	for _, cid := range a.componentIds {
		s.emit(Event{Kind: ComponentAdded, Entity: id, Component: cid})
	}
	if !a.signature.Tags.IsEmpty() {
		s.emit(Event{Kind: TagsAdded, Entity: id, Tags: a.signature.Tags})
	}
}

// DeleteEntity removes id and everything referencing it: its index entries,
// every relation where it is source or target, and its persistent id.
// EntityDeleted fires first, while the entity is still readable.
func (s *Store) DeleteEntity(id EntityId) error {
	if _, err := s.lookup(id); err != nil {
		return err
	}
	if err := s.checkUnlocked(); err != nil {
		return err
	}

	s.emit(Event{Kind: EntityDeleted, Entity: id})

	loc, _ := s.entities.lookup(id)
	a := s.archetypes[loc.archetype]
	row := int(loc.row)
	for i, cid := range a.componentIds {
		if ix := s.indexes[cid]; ix != nil {
			ix.remove(id, a.columns[i], row)
		}
	}
	for _, rs := range s.relationList {
		rs.removeEntity(id)
	}

	if moved, ok := a.removeRow(row); ok {
		s.entities.place(moved, a.id, row)
	}
	s.entities.release(id)
	if s.pids != nil {
		s.pids.release(id)
	}
	s.version++
	return nil
}

// move relocates a live entity into the archetype for sig. Values of shared
// components are copied, new components start zeroed. It returns the new
// archetype and row.
func (s *Store) move(id EntityId, loc entityLocation, sig Signature) (*Archetype, int) {
	src := s.archetypes[loc.archetype]
	dst := s.archetypeFor(sig)
	srcRow := int(loc.row)

	row := dst.alloc(id)
	for i, cid := range dst.componentIds {
		if slot := src.slots[cid]; slot >= 0 {
			dst.columns[i].appendFrom(src.columns[slot], srcRow)
		} else {
			dst.columns[i].appendZero()
		}
	}
	s.entities.place(id, dst.id, row)

	if moved, ok := src.removeRow(srcRow); ok {
		s.entities.place(moved, src.id, srcRow)
	}
	s.version++
	return dst, row
}

// addComponent is the choke point for attaching or overwriting a component
// value. src points at a value of ct's type.
func (s *Store) addComponent(id EntityId, ct *componentType, src unsafe.Pointer) error {
	loc, err := s.lookup(id)
	if err != nil {
		return err
	}
	a := s.archetypes[loc.archetype]
	if slot := a.slots[ct.id]; slot >= 0 {
		return s.assign(id, a, int(slot), int(loc.row), ct, src)
	}
	col, row, err := s.attach(id, loc, ct)
	if err != nil {
		return err
	}
	col.assign(row, src)
	s.attached(id, ct, col, row)
	return nil
}

// attach moves id into the archetype that adds ct and returns the zeroed cell
// the caller must fill before calling attached.
func (s *Store) attach(id EntityId, loc entityLocation, ct *componentType) (column, int, error) {
	if err := s.checkUnlocked(); err != nil {
		return nil, 0, err
	}
	a := s.archetypes[loc.archetype]
	dst, row := s.move(id, loc, a.signature.WithComponent(ct.id))
	return dst.columns[dst.slots[ct.id]], row, nil
}

func (s *Store) attached(id EntityId, ct *componentType, col column, row int) {
	if ix := s.indexFor(ct); ix != nil {
		ix.insert(id, col, row)
	}
	s.emit(Event{Kind: ComponentAdded, Entity: id, Component: ct.id})
}

// assign overwrites a component in place. Writes to indexed components are
// rejected while the store is locked.
func (s *Store) assign(id EntityId, a *Archetype, slot, row int, ct *componentType, src unsafe.Pointer) error {
	col, ix, err := s.beginAssign(a, slot, row, ct)
	if err != nil {
		return err
	}
	col.assign(row, src)
	s.finishAssign(id, ct, ix, col, row)
	return nil
}

// beginAssign returns the column of an in-place write. The index of ct, if
// any, remembers the current key so finishAssign can refile id.
func (s *Store) beginAssign(a *Archetype, slot, row int, ct *componentType) (column, valueIndex, error) {
	col := a.columns[slot]
	ix := s.indexFor(ct)
	if ix != nil {
		if err := s.checkUnlocked(); err != nil {
			return nil, nil, err
		}
		ix.hold(col, row)
	}
	return col, ix, nil
}

func (s *Store) finishAssign(id EntityId, ct *componentType, ix valueIndex, col column, row int) {
	if ix != nil {
		ix.refile(id, col, row)
	}
	s.emit(Event{Kind: ComponentUpdated, Entity: id, Component: ct.id})
}

// assignValue is assign for a statically typed value. The value is stored
// straight into its column so it never escapes to the heap.
func assignValue[T any](s *Store, id EntityId, a *Archetype, slot, row int, ct *componentType, value T) error {
	col, ix, err := s.beginAssign(a, slot, row, ct)
	if err != nil {
		return err
	}
	col.(*typedColumn[T]).data[row] = value
	s.finishAssign(id, ct, ix, col, row)
	return nil
}

func (s *Store) removeComponent(id EntityId, ct *componentType) (bool, error) {
	loc, err := s.lookup(id)
	if err != nil {
		return false, err
	}
	a := s.archetypes[loc.archetype]
	slot := a.slots[ct.id]
	if slot < 0 {
		return false, nil
	}
	if err := s.checkUnlocked(); err != nil {
		return false, err
	}

	if ix := s.indexes[ct.id]; ix != nil {
		ix.remove(id, a.columns[slot], int(loc.row))
	}
	s.move(id, loc, a.signature.WithoutComponent(ct.id))
	s.emit(Event{Kind: ComponentRemoved, Entity: id, Component: ct.id})
	return true, nil
}

// AddComponentValue attaches or overwrites the component whose type is the
// dynamic type of value (or the element type, if value is a pointer).
func (s *Store) AddComponentValue(id EntityId, value any) error {
	t, p, err := valuePointer(value)
	if err != nil {
		return err
	}
	ct, err := s.registry.attachable(t)
	if err != nil {
		return err
	}
	return s.addComponent(id, ct, p)
}

// RemoveComponentType detaches the component of type t. Removing a component
// the entity does not have returns false and no error.
func (s *Store) RemoveComponentType(id EntityId, t reflect.Type) (bool, error) {
	ct, err := s.registry.attachable(t)
	if err != nil {
		return false, err
	}
	return s.removeComponent(id, ct)
}

// ComponentValue returns a pointer to the component of type t as an any holding *T.
func (s *Store) ComponentValue(id EntityId, t reflect.Type) (any, error) {
	ct, err := s.registry.attachable(t)
	if err != nil {
		return nil, err
	}
	loc, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	a := s.archetypes[loc.archetype]
	c := a.column(ct.id)
	if c == nil {
		return nil, eris.Wrapf(ErrComponentNotFound, "component %s on entity %d", ct.name, id)
	}
	return c.get(int(loc.row)), nil
}

// HasComponentType reports whether id currently holds a component of type t.
func (s *Store) HasComponentType(id EntityId, t reflect.Type) bool {
	ct, ok := s.registry.byType[t]
	if !ok {
		return false
	}
	loc, ok := s.entities.lookup(id)
	return ok && s.archetypes[loc.archetype].slots[ct.id] >= 0
}

// AddTags sets every tag in tags on id. Tags already present are ignored.
func (s *Store) AddTags(id EntityId, tags Mask) error {
	loc, err := s.lookup(id)
	if err != nil {
		return err
	}
	if err := s.registry.validate(Signature{Tags: tags}); err != nil {
		return err
	}
	a := s.archetypes[loc.archetype]
	added := tags.Difference(a.signature.Tags)
	if added.IsEmpty() {
		return nil
	}
	if err := s.checkUnlocked(); err != nil {
		return err
	}

	sig := a.signature
	sig.Tags = sig.Tags.Union(added)
	s.move(id, loc, sig)
	s.emit(Event{Kind: TagsAdded, Entity: id, Tags: added})
	return nil
}

// RemoveTags clears every tag in tags on id. It returns false if none were set.
func (s *Store) RemoveTags(id EntityId, tags Mask) (bool, error) {
	loc, err := s.lookup(id)
	if err != nil {
		return false, err
	}
	a := s.archetypes[loc.archetype]
	removed := Mask{}
	for i := range removed {
		removed[i] = tags[i] & a.signature.Tags[i]
	}
	if removed.IsEmpty() {
		return false, nil
	}
	if err := s.checkUnlocked(); err != nil {
		return false, err
	}

	sig := a.signature
	sig.Tags = sig.Tags.Difference(removed)
	s.move(id, loc, sig)
	s.emit(Event{Kind: TagsRemoved, Entity: id, Tags: removed})
	return true, nil
}

// AddComponent attaches value to id, or overwrites it in place if id already
// has a T. Only the first case is a structural change.
func AddComponent[T any](s *Store, id EntityId, value T) error {
	ct, err := s.registry.attachable(reflect.TypeFor[T]())
	if err != nil {
		return err
	}
	loc, err := s.lookup(id)
	if err != nil {
		return err
	}
	a := s.archetypes[loc.archetype]
	if slot := a.slots[ct.id]; slot >= 0 {
		return assignValue(s, id, a, int(slot), int(loc.row), ct, value)
	}
	col, row, err := s.attach(id, loc, ct)
	if err != nil {
		return err
	}
	col.(*typedColumn[T]).data[row] = value
	s.attached(id, ct, col, row)
	return nil
}

// SetComponent overwrites the T of id. It fails with ErrComponentNotFound if id has none.
func SetComponent[T any](s *Store, id EntityId, value T) error {
	ct, err := s.registry.attachable(reflect.TypeFor[T]())
	if err != nil {
		return err
	}
	loc, err := s.lookup(id)
	if err != nil {
		return err
	}
	a := s.archetypes[loc.archetype]
	slot := a.slots[ct.id]
	if slot < 0 {
		return eris.Wrapf(ErrComponentNotFound, "component %s on entity %d", ct.name, id)
	}
	return assignValue(s, id, a, int(slot), int(loc.row), ct, value)
}

// GetComponent returns a pointer to the T of id. The pointer is valid until
// the next structural change; writes through it bypass value indexes.
func GetComponent[T any](s *Store, id EntityId) (*T, error) {
	ct, err := s.registry.attachable(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	loc, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	c := s.archetypes[loc.archetype].column(ct.id)
	if c == nil {
		return nil, eris.Wrapf(ErrComponentNotFound, "component %s on entity %d", ct.name, id)
	}
	return (*T)(c.ptr(int(loc.row))), nil
}

// HasComponent reports whether id currently holds a T.
func HasComponent[T any](s *Store, id EntityId) bool {
	return s.HasComponentType(id, reflect.TypeFor[T]())
}

// RemoveComponent detaches the T of id. It returns false, nil if id has none.
func RemoveComponent[T any](s *Store, id EntityId) (bool, error) {
	return s.RemoveComponentType(id, reflect.TypeFor[T]())
}

// AddTag sets tag T on id.
func AddTag[T any](s *Store, id EntityId) error {
	tag, err := TagIdFor[T](s.registry)
	if err != nil {
		return err
	}
	return s.AddTags(id, Mask{}.With(uint8(tag)))
}

// RemoveTag clears tag T on id. It returns false, nil if the tag was not set.
func RemoveTag[T any](s *Store, id EntityId) (bool, error) {
	tag, err := TagIdFor[T](s.registry)
	if err != nil {
		return false, err
	}
	return s.RemoveTags(id, Mask{}.With(uint8(tag)))
}

// HasTag reports whether tag T is set on id.
func HasTag[T any](s *Store, id EntityId) bool {
	tag, ok := s.registry.tagsByType[reflect.TypeFor[T]()]
	if !ok {
		return false
	}
	loc, ok := s.entities.lookup(id)
	return ok && s.archetypes[loc.archetype].signature.HasTag(tag)
}

// valuePointer returns the component type of v and a pointer to a copy of its value.
func valuePointer(v any) (reflect.Type, unsafe.Pointer, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, nil, eris.Wrap(ErrInvalidComponentValue, "nil component")
	}
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, nil, eris.Wrapf(ErrInvalidComponentValue, "nil %s", rv.Type())
		}
		return rv.Type().Elem(), rv.UnsafePointer(), nil
	}
	cp := reflect.New(rv.Type())
	cp.Elem().Set(rv)
	return rv.Type(), cp.UnsafePointer(), nil
}
