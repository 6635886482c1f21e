package ecs

import (
	"iter"
	"math/bits"
)

const (
	bitsPerWord = 64
	maskWords   = 4

	// MaxComponentTypes is the number of component types a registry can hold.
	MaxComponentTypes = maskWords * bitsPerWord
	// MaxTagTypes is the number of tag types a registry can hold.
	MaxTagTypes = maskWords * bitsPerWord
)

// Mask is a 256 bit set of component or tag ids.
// All operations work on values and never allocate, so a mask can be matched
// against any number of archetypes in a hot loop.
type Mask [maskWords]uint64

// Has reports whether bit is set.
func (m Mask) Has(bit uint8) bool {
	return m[bit>>6]&(uint64(1)<<(bit&63)) != 0
}

// With returns a copy of m with bit set.
func (m Mask) With(bit uint8) Mask {
	m[bit>>6] |= uint64(1) << (bit & 63)
	return m
}

// Without returns a copy of m with bit cleared.
func (m Mask) Without(bit uint8) Mask {
	m[bit>>6] &^= uint64(1) << (bit & 63)
	return m
}

// HasAll reports whether every bit of sub is also set in m.
func (m Mask) HasAll(sub Mask) bool {
	return m[0]&sub[0] == sub[0] &&
		m[1]&sub[1] == sub[1] &&
		m[2]&sub[2] == sub[2] &&
		m[3]&sub[3] == sub[3]
}

// HasAny reports whether m and o share at least one bit.
func (m Mask) HasAny(o Mask) bool {
	return m[0]&o[0] != 0 ||
		m[1]&o[1] != 0 ||
		m[2]&o[2] != 0 ||
		m[3]&o[3] != 0
}

// HasNone reports whether m and o are disjoint.
func (m Mask) HasNone(o Mask) bool {
	return !m.HasAny(o)
}

// Union returns the bits set in m or o.
func (m Mask) Union(o Mask) Mask {
	for i := range m {
		m[i] |= o[i]
	}
	return m
}

// Difference returns the bits of m not set in o.
func (m Mask) Difference(o Mask) Mask {
	for i := range m {
		m[i] &^= o[i]
	}
	return m
}

// IsEmpty reports whether no bit is set.
func (m Mask) IsEmpty() bool {
	return m == Mask{}
}

// Len returns the number of set bits.
func (m Mask) Len() int {
	return bits.OnesCount64(m[0]) + bits.OnesCount64(m[1]) +
		bits.OnesCount64(m[2]) + bits.OnesCount64(m[3])
}

// Next returns the lowest set bit >= from.
//
//	for bit, ok := m.Next(0); ok; bit, ok = m.Next(int(bit) + 1) { ... }
func (m Mask) Next(from int) (uint8, bool) {
	if from < 0 {
		from = 0
	}
	first := from / bitsPerWord
	for w := first; w < maskWords; w++ {
		word := m[w]
		if w == first {
			word &= ^uint64(0) << (uint(from) % bitsPerWord)
		}
		if word != 0 {
			return uint8(w*bitsPerWord + bits.TrailingZeros64(word)), true
		}
	}
	return 0, false
}

// Bits iterates the set bits in ascending order.
func (m Mask) Bits() iter.Seq[uint8] {
	return func(yield func(uint8) bool) {
		for bit, ok := m.Next(0); ok; bit, ok = m.Next(int(bit) + 1) {
			if !yield(bit) {
				return
			}
		}
	}
}
