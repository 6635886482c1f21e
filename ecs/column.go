package ecs

import "unsafe"

// column is a type-erased growable array holding one component type for every
// row of an archetype.
type column interface {
	len() int
	// appendZero grows the column by one zero value.
	appendZero()
	// appendFrom grows the column by a copy of src[row]. src holds the same type.
	appendFrom(src column, row int)
	// swapRemove moves the last value into row and truncates.
	swapRemove(row int)
	// ptr returns the address of the value at row. It is only valid until the
	// column grows or shrinks.
	ptr(row int) unsafe.Pointer
	// get returns a *T for the value at row.
	get(row int) any
	// assign copies the T at src into row.
	assign(row int, src unsafe.Pointer)
}

// typedColumn stores components of a specific type T contiguously.
type typedColumn[T any] struct {
	data []T
}

func newTypedColumn[T any](capacity int) *typedColumn[T] {
	return &typedColumn[T]{data: make([]T, 0, capacity)}
}

func (c *typedColumn[T]) len() int { return len(c.data) }

func (c *typedColumn[T]) appendZero() {
	var zero T
	c.data = append(c.data, zero)
}

func (c *typedColumn[T]) appendFrom(src column, row int) {
	c.data = append(c.data, src.(*typedColumn[T]).data[row])
}

func (c *typedColumn[T]) swapRemove(row int) {
	last := len(c.data) - 1
	if row != last {
		c.data[row] = c.data[last]
	}
	var zero T
	c.data[last] = zero
	c.data = c.data[:last]
}

func (c *typedColumn[T]) ptr(row int) unsafe.Pointer {
	return unsafe.Pointer(&c.data[row])
}

func (c *typedColumn[T]) get(row int) any {
	return &c.data[row]
}

func (c *typedColumn[T]) assign(row int, src unsafe.Pointer) {
	c.data[row] = *(*T)(src)
}
