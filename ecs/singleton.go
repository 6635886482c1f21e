package ecs

import (
	"reflect"
	"unsafe"
)

type singletonEntry struct {
	typ     reflect.Type
	value   reflect.Value
	dataPtr unsafe.Pointer
}

// AddSingleton stores value as the singleton of its type, replacing any
// previous value. Pointers are dereferenced.
func (s *Store) AddSingleton(value any) {
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	t := rv.Type()
	if entry, ok := s.singletons[t]; ok {
		entry.value.Elem().Set(rv)
		return
	}
	ptr := reflect.New(t)
	ptr.Elem().Set(rv)
	s.singletons[t] = &singletonEntry{typ: t, value: ptr, dataPtr: ptr.UnsafePointer()}
	s.logger.Debug().Str("singleton", t.String()).Msg("singleton added")
}

// RemoveSingleton drops the singleton of type t. Existing Singleton accessors
// keep the old value until they are re-initialized.
func (s *Store) RemoveSingleton(t reflect.Type) bool {
	if _, ok := s.singletons[t]; !ok {
		return false
	}
	delete(s.singletons, t)
	return true
}

func (s *Store) getSingletonEntry(t reflect.Type) *singletonEntry {
	return s.singletons[t]
}

// Singleton provides efficient access to a single value that is not associated
// with any entity. Use this for global state or configuration.
type Singleton[T any] struct {
	store         *Store
	componentPtr  unsafe.Pointer
	componentType reflect.Type
}

// NewSingleton creates a new Singleton accessor for the given store.
// If initializer is provided and the singleton doesn't exist yet, it is
// created with the initializer value; otherwise a zero value is used.
func NewSingleton[T any](store *Store, initializer ...T) *Singleton[T] {
	componentType := reflect.TypeFor[T]()

	entry := store.getSingletonEntry(componentType)
	if entry == nil {
		var value T
		if len(initializer) > 0 {
			value = initializer[0]
		}
		store.AddSingleton(&value)
		entry = store.getSingletonEntry(componentType)
	}

	return &Singleton[T]{
		store:         store,
		componentPtr:  entry.dataPtr,
		componentType: componentType,
	}
}

// Init initializes the Singleton with a store reference.
// This is called automatically by the Scheduler during system registration.
func (s *Singleton[T]) Init(store *Store) {
	s.store = store
	s.componentType = reflect.TypeFor[T]()
	s.updateCache()
}

// Get returns a pointer to the singleton value, or nil if it does not exist.
func (s *Singleton[T]) Get() *T {
	if s.componentPtr == nil {
		s.updateCache()
	}
	if s.componentPtr == nil {
		return nil
	}
	return (*T)(s.componentPtr)
}

func (s *Singleton[T]) updateCache() {
	if s.store == nil {
		return
	}
	if entry := s.store.getSingletonEntry(s.componentType); entry != nil {
		s.componentPtr = entry.dataPtr
	} else {
		s.componentPtr = nil
	}
}

// Exists returns true if the singleton has been added to the store.
func (s *Singleton[T]) Exists() bool {
	if s.componentPtr == nil {
		s.updateCache()
	}
	return s.componentPtr != nil
}

// ReadSingleton points *out at the singleton of type T, where out is a **T.
// It returns false if no such singleton exists.
func (s *Store) ReadSingleton(out any) bool {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Ptr {
		return false
	}
	entry := s.singletons[rv.Elem().Type().Elem()]
	if entry == nil {
		return false
	}
	rv.Elem().Set(entry.value)
	return true
}
