package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when no quad matches a lookup.
	ErrNotFound = errors.New("quad not found")

	// ErrIncompleteQuad is returned when a quad lacks a subject, predicate or object.
	ErrIncompleteQuad = errors.New("quad has a nil subject, predicate or object")
)
