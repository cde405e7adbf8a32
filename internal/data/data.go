// Package data provides MongoDB-backed stores for the domain models.
package data

import "errors"

var (
	// ErrNotFound indicates no document matched the query.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a unique-index violation.
	ErrDuplicate = errors.New("duplicate key")
)
