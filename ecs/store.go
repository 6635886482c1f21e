package ecs

import (
	"reflect"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

const (
	defaultCapacity    = 64
	defaultIndexDegree = 32
)

type options struct {
	logger        zerolog.Logger
	persistentIds bool
	capacity      int
	indexDegree   int
}

// Option configures a Store.
type Option func(*options)

// WithLogger sets the logger used for cold path diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithPersistentIds gives every entity a stable int64 id that survives id recycling.
func WithPersistentIds() Option {
	return func(o *options) {
		o.persistentIds = true
	}
}

// WithInitialCapacity sets the initial row capacity of archetypes and the entity table.
func WithInitialCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithIndexDegree sets the B-tree degree used by range indexes.
func WithIndexDegree(degree int) Option {
	return func(o *options) {
		if degree >= 2 {
			o.indexDegree = degree
		}
	}
}

// Store owns the entity id space, the archetypes, the value indexes and the
// relations of one world. It is a single writer structure: mutations must be
// serialized by the caller, reads may run concurrently with each other.
type Store struct {
	registry *ComponentRegistry
	logger   zerolog.Logger
	opts     options

	entities    *entityTable
	archetypes  []*Archetype
	bySignature map[Signature]*Archetype
	matches     map[matchKey]*archetypeMatch

	pool         *idSetPool
	indexes      [MaxComponentTypes]valueIndex
	relations    [MaxComponentTypes]relationStore
	relationList []relationStore

	events     *eventBus
	pids       *pidTable
	singletons map[reflect.Type]*singletonEntry

	// version is bumped by every structural change and lets live iterators
	// detect that rows moved underneath them.
	version uint64
	// locks counts active iterations and signal dispatches.
	locks int
}

// NewStore creates an empty store over registry. The empty archetype exists from the start.
func NewStore(registry *ComponentRegistry, opts ...Option) *Store {
	o := options{
		logger:      zerolog.Nop(),
		capacity:    defaultCapacity,
		indexDegree: defaultIndexDegree,
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store{
		registry:    registry,
		logger:      o.logger,
		opts:        o,
		entities:    newEntityTable(o.capacity),
		bySignature: make(map[Signature]*Archetype),
		matches:     make(map[matchKey]*archetypeMatch),
		pool:        &idSetPool{},
		events:      newEventBus(),
		singletons:  make(map[reflect.Type]*singletonEntry),
	}
	if o.persistentIds {
		s.pids = newPidTable(o.capacity)
	}
	s.archetypeFor(Signature{})
	return s
}

// Registry returns the registry the store was created with.
func (s *Store) Registry() *ComponentRegistry {
	return s.registry
}

// Logger returns the store's logger.
func (s *Store) Logger() zerolog.Logger {
	return s.logger
}

// Count returns the number of live entities.
func (s *Store) Count() int {
	return s.entities.alive
}

// IsAlive reports whether id names a live entity.
func (s *Store) IsAlive(id EntityId) bool {
	_, ok := s.entities.lookup(id)
	return ok
}

// Archetypes returns every archetype created so far, indexed by ArchetypeId.
func (s *Store) Archetypes() []*Archetype {
	return s.archetypes
}

// Archetype returns the archetype for sig if one has been created.
func (s *Store) Archetype(sig Signature) (*Archetype, error) {
	a, ok := s.bySignature[sig]
	if !ok {
		return nil, eris.Wrapf(ErrArchetypeNotFound, "%s", sig.Describe(s.registry))
	}
	return a, nil
}

// GetArchetype returns the archetype holding exactly the given components, or
// nil. Members are given as for SignatureOf.
func (s *Store) GetArchetype(values ...any) *Archetype {
	sig, err := s.registry.SignatureOf(values...)
	if err != nil {
		return nil
	}
	return s.bySignature[sig]
}

// Location returns the archetype and row of a live entity.
func (s *Store) Location(id EntityId) (*Archetype, int, error) {
	loc, err := s.lookup(id)
	if err != nil {
		return nil, -1, err
	}
	return s.archetypes[loc.archetype], int(loc.row), nil
}

// SignatureOf returns the current signature of a live entity.
func (s *Store) SignatureOf(id EntityId) (Signature, error) {
	loc, err := s.lookup(id)
	if err != nil {
		return Signature{}, err
	}
	return s.archetypes[loc.archetype].signature, nil
}

func (s *Store) lookup(id EntityId) (entityLocation, error) {
	loc, ok := s.entities.lookup(id)
	if !ok {
		return entityLocation{}, eris.Wrapf(ErrEntityNotFound, "entity %d", id)
	}
	return loc, nil
}

func (s *Store) checkUnlocked() error {
	if s.locks > 0 {
		return eris.Wrap(ErrStoreLocked, "defer structural changes with Commands")
	}
	return nil
}

func (s *Store) checkVersion(version uint64) {
	if s.version != version {
		panic(eris.Wrapf(ErrIteratorInvalidated, "structure version %d, iterator started at %d", s.version, version))
	}
}

// archetypeFor returns the interned archetype for sig, creating it on first use.
// New archetypes are appended to every cached query match they satisfy.
func (s *Store) archetypeFor(sig Signature) *Archetype {
	if a, ok := s.bySignature[sig]; ok {
		return a
	}
	a := newArchetype(s, ArchetypeId(len(s.archetypes)), sig)
	s.archetypes = append(s.archetypes, a)
	s.bySignature[sig] = a
	for _, m := range s.matches {
		if sig.Matches(m.required, m.excluded) {
			m.archetypes = append(m.archetypes, a)
		}
	}

	s.logger.Debug().
		Uint32("archetype_id", uint32(a.id)).
		Int("total_components", len(a.types)).
		Int("total_tags", sig.Tags.Len()).
		Str("signature", sig.Describe(s.registry)).
		Msg("archetype created")
	return a
}

// indexFor returns the value index of ct, creating it on first use. It is nil
// for components that are not indexed.
func (s *Store) indexFor(ct *componentType) valueIndex {
	if ct.newIndex == nil {
		return nil
	}
	ix := s.indexes[ct.id]
	if ix == nil {
		ix = ct.newIndex(s)
		s.indexes[ct.id] = ix
		s.logger.Debug().
			Str("component", ct.name).
			Stringer("kind", ct.kind).
			Msg("value index created")
	}
	return ix
}

// relationsFor returns the relation store of ct, creating it on first use.
func (s *Store) relationsFor(ct *componentType) relationStore {
	rs := s.relations[ct.id]
	if rs == nil {
		rs = ct.newRelations(s)
		s.relations[ct.id] = rs
		s.relationList = append(s.relationList, rs)
		s.logger.Debug().
			Str("relation", ct.name).
			Msg("relation store created")
	}
	return rs
}
