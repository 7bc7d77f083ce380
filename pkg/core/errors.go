// Package core wires the simulation together: configuration, provider
// construction, persona registry, and the top-level client API.
package core

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrPersonaExists indicates a persona with that name is already
	// registered with the client.
	ErrPersonaExists = errors.New("persona already exists")

	// ErrPersonaNotFound indicates no persona with that name is
	// registered with the client.
	ErrPersonaNotFound = errors.New("persona not found")

	// ErrNoStore indicates a persistence operation was requested but the
	// client was configured without a node store.
	ErrNoStore = errors.New("no node store configured")
)

// SimError wraps errors with the client operation that raised them.
type SimError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns "simulacra: <Op>: <Err>".
func (e *SimError) Error() string {
	return fmt.Sprintf("simulacra: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is / errors.As.
func (e *SimError) Unwrap() error {
	return e.Err
}

// NewSimError wraps err with operation context. Returns nil when err is
// nil, so call sites can wrap unconditionally.
func NewSimError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &SimError{Op: op, Err: err}
}
