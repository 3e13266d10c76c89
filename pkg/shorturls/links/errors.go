package links

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no link, or no active link, holds the code or id.
	ErrNotFound = errors.New("link not found")

	// ErrGone is returned when resolving a link past its expiry.
	ErrGone = errors.New("link has expired")

	// ErrAllocationExhausted is returned when every generated code collided.
	ErrAllocationExhausted = errors.New("failed to generate unique code")
)

// ValidationError represents a malformed destination or code
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ConflictError is returned when a requested code is held by another link
type ConflictError struct {
	Code string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("code %q is already in use", e.Code)
}
