package domain

import "errors"

// Error taxonomy for caller-facing operations. Handlers map these to
// HTTP statuses with errors.Is; wrap with fmt.Errorf("...: %w", Err...).
var (
	// ErrValidation marks malformed input, rejected before any side effect.
	ErrValidation = errors.New("invalid input")
	// ErrConflict marks duplicate registrations and verify calls on an
	// already-verified domain. No mutation happens.
	ErrConflict = errors.New("conflict")
	// ErrNotFound marks operations on unknown endpoints or domains.
	ErrNotFound = errors.New("not found")
)
