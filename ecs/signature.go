package ecs

import (
	"reflect"
	"strings"

	"github.com/rotisserie/eris"
)

// Signature is the exact set of component types and tags an archetype holds.
// It is a comparable value: equal signatures are equal map keys, so every
// signature resolves to a single interned *Archetype per store.
type Signature struct {
	Components Mask
	Tags       Mask
}

// HasComponent reports whether component id is part of s.
func (s Signature) HasComponent(id ComponentID) bool { return s.Components.Has(uint8(id)) }

// HasTag reports whether tag id is part of s.
func (s Signature) HasTag(id TagID) bool { return s.Tags.Has(uint8(id)) }

// HasAll reports whether s contains every component and tag of o.
func (s Signature) HasAll(o Signature) bool {
	return s.Components.HasAll(o.Components) && s.Tags.HasAll(o.Tags)
}

// HasAny reports whether s shares at least one component or tag with o.
func (s Signature) HasAny(o Signature) bool {
	return s.Components.HasAny(o.Components) || s.Tags.HasAny(o.Tags)
}

// HasNone reports whether s shares no component and no tag with o.
func (s Signature) HasNone(o Signature) bool {
	return !s.HasAny(o)
}

// Matches is the query predicate: all of required, none of excluded.
func (s Signature) Matches(required, excluded Signature) bool {
	return s.HasAll(required) && s.HasNone(excluded)
}

// WithComponent returns s plus component id.
func (s Signature) WithComponent(id ComponentID) Signature {
	s.Components = s.Components.With(uint8(id))
	return s
}

// WithoutComponent returns s minus component id.
func (s Signature) WithoutComponent(id ComponentID) Signature {
	s.Components = s.Components.Without(uint8(id))
	return s
}

// WithTag returns s plus tag id.
func (s Signature) WithTag(id TagID) Signature {
	s.Tags = s.Tags.With(uint8(id))
	return s
}

// WithoutTag returns s minus tag id.
func (s Signature) WithoutTag(id TagID) Signature {
	s.Tags = s.Tags.Without(uint8(id))
	return s
}

// Union returns the components and tags of both s and o.
func (s Signature) Union(o Signature) Signature {
	return Signature{Components: s.Components.Union(o.Components), Tags: s.Tags.Union(o.Tags)}
}

// Difference returns the components and tags of s that o lacks.
func (s Signature) Difference(o Signature) Signature {
	return Signature{Components: s.Components.Difference(o.Components), Tags: s.Tags.Difference(o.Tags)}
}

// IsEmpty reports whether s holds no component and no tag.
func (s Signature) IsEmpty() bool {
	return s.Components.IsEmpty() && s.Tags.IsEmpty()
}

// Describe renders s with registered type names, e.g.
// "Signature: [Position, Rotation | #Enemy]".
func (s Signature) Describe(r *ComponentRegistry) string {
	var b strings.Builder
	b.WriteString("Signature: [")
	first := true
	for bit := range s.Components.Bits() {
		if !first {
			b.WriteString(", ")
		}
		first = false
		if int(bit) < len(r.components) {
			b.WriteString(r.components[bit].name)
		} else {
			b.WriteString("?")
		}
	}
	if !s.Tags.IsEmpty() {
		if !first {
			b.WriteString(" ")
		}
		b.WriteString("|")
		for bit := range s.Tags.Bits() {
			b.WriteString(" #")
			if int(bit) < len(r.tags) {
				b.WriteString(r.tags[bit].Name())
			} else {
				b.WriteString("?")
			}
		}
	}
	b.WriteString("]")
	return b.String()
}

// SignatureOf builds a signature from component and tag samples. Each value
// may be a reflect.Type, a value of the type, or a pointer to one.
func (r *ComponentRegistry) SignatureOf(values ...any) (Signature, error) {
	var sig Signature
	for _, v := range values {
		t, ok := v.(reflect.Type)
		if !ok {
			t = reflect.TypeOf(v)
		}
		if t == nil {
			return Signature{}, eris.Wrap(ErrInvalidComponentValue, "nil signature member")
		}
		if t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		if id, ok := r.tagsByType[t]; ok {
			sig = sig.WithTag(id)
			continue
		}
		ct, err := r.attachable(t)
		if err != nil {
			return Signature{}, err
		}
		sig = sig.WithComponent(ct.id)
	}
	return sig, nil
}

// MustSignatureOf is SignatureOf for use during setup; it panics on unregistered types.
func (r *ComponentRegistry) MustSignatureOf(values ...any) Signature {
	sig, err := r.SignatureOf(values...)
	if err != nil {
		panic(eris.Wrap(err, "building signature"))
	}
	return sig
}
