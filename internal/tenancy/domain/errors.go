package domain

import "errors"

var (
	// ErrNotFound indicates the tenant does not exist.
	ErrNotFound = errors.New("tenant not found")
	// ErrDuplicateSlug indicates the slug is already taken.
	ErrDuplicateSlug = errors.New("tenant slug already exists")
)
