package store

import "errors"

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a unique key (email, externalId, role key,
	// permission key, parameter key) is already taken.
	ErrDuplicate = errors.New("store: duplicate key")
	// ErrConflict is returned when a compare-on-write precondition no longer holds.
	ErrConflict = errors.New("store: write conflict")
)
