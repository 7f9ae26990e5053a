// Package repository contains data access layer abstractions.
// Implementations live in subpackages (postgres, memory) and translate their
// driver errors into the sentinel errors below.
package repository

import "errors"

var (
	// ErrNotFound is returned when a point lookup matches no row.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict is returned when an insert violates a uniqueness guarantee:
	// an occupied (incident_id, block_index) slot or a reused verification code.
	ErrConflict = errors.New("repository: conflict")
)

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
