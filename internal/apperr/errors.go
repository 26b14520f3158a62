// Package apperr holds the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrNotAdmin = errors.New("admin mode required")
	ErrDisposed = errors.New("view model disposed")
)
