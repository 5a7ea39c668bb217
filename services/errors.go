package services

import "errors"

// Business-rule errors. Handlers translate these into polite user-facing
// messages; only startup failures are allowed to terminate the process.
var (
	// ErrNotFound: the referenced entity does not exist or is inactive.
	ErrNotFound = errors.New("not found")

	// ErrConflict: a status-guarded update lost the race because another
	// actor already transitioned the row ("already processed").
	ErrConflict = errors.New("already processed")

	// ErrValidation: malformed input rejected at the boundary — never
	// silently coerced.
	ErrValidation = errors.New("validation failed")
)
