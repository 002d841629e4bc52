// Package common defines sentinel errors shared by the store, the settings
// manager and the HTTP layer. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Store-level errors.
	ErrNotFound    = errors.New("not found")
	ErrInvalidPath = errors.New("invalid path")
	ErrStorage     = errors.New("storage failure")

	// Request validation errors.
	ErrBadInput = errors.New("bad input")

	// Wiring errors.
	ErrUnknownBackend = errors.New("unknown store backend")
)
