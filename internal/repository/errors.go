package repository

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert or update violates a
	// storage-level uniqueness constraint (username, email, or the
	// one-review-per-book rule).
	ErrDuplicate = errors.New("duplicate record")
)
