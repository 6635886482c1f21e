package ecs

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by the store wraps exactly one of these,
// so callers can branch on the category with errors.Is.
var (
	ErrLookup           = errors.New("lookup failed")
	ErrBounds           = errors.New("out of bounds")
	ErrInvalidOperation = errors.New("invalid operation")
)

var (
	ErrEntityNotFound         = categorized(ErrLookup, "entity not found")
	ErrComponentNotRegistered = categorized(ErrLookup, "component type not registered")
	ErrTagNotRegistered       = categorized(ErrLookup, "tag type not registered")
	ErrComponentNotFound      = categorized(ErrLookup, "component not on entity")
	ErrArchetypeNotFound      = categorized(ErrLookup, "archetype not found")
	ErrPidNotFound            = categorized(ErrLookup, "persistent id not found")
	ErrRelationNotFound       = categorized(ErrLookup, "relation not found")

	ErrRowOutOfBounds = categorized(ErrBounds, "row out of bounds")

	ErrStoreLocked                = categorized(ErrInvalidOperation, "store is locked by an active iteration or signal dispatch")
	ErrIteratorInvalidated        = categorized(ErrInvalidOperation, "iterator invalidated by a structural change")
	ErrInvalidSubscription        = categorized(ErrInvalidOperation, "invalid subscription")
	ErrNotIndexed                 = categorized(ErrInvalidOperation, "component type is not indexed")
	ErrNotRelation                = categorized(ErrInvalidOperation, "component type is not a relation")
	ErrRelationAsComponent        = categorized(ErrInvalidOperation, "relation types cannot be attached as components")
	ErrPidInUse                   = categorized(ErrInvalidOperation, "persistent id already in use")
	ErrPersistentIdsDisabled      = categorized(ErrInvalidOperation, "persistent ids are not enabled for this store")
	ErrComponentAlreadyRegistered = categorized(ErrInvalidOperation, "component type already registered with a different kind")
	ErrInvalidComponentValue      = categorized(ErrInvalidOperation, "value does not match the component type")
)

func categorized(category error, msg string) error {
	return fmt.Errorf("%w: %s", category, msg)
}
