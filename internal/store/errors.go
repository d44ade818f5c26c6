package store

import "errors"

var (
	// ErrEntityNotFound is returned when a key lookup matches no row.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrUnknownEntitySet is returned for a set name the model lacks.
	ErrUnknownEntitySet = errors.New("unknown entity set")

	// ErrUnknownNavigation is returned for a navigation name the set lacks.
	ErrUnknownNavigation = errors.New("unknown navigation")

	// ErrInvalidValue is returned when a written value does not fit its
	// property or navigation.
	ErrInvalidValue = errors.New("invalid value")

	// ErrKeyImmutable is returned when an update tries to change a key.
	ErrKeyImmutable = errors.New("key is immutable")

	// ErrDuplicateKey is returned when a create reuses an existing key.
	ErrDuplicateKey = errors.New("duplicate key")
)
