package cognition

import (
	"errors"
	"fmt"
)

// Sentinel errors for generation failures.
var (
	// ErrGeneration indicates the generation provider raised an error.
	ErrGeneration = errors.New("generation failed")

	// ErrMalformedOutput indicates the provider returned output missing
	// the expected structure. Treated as a generation failure by callers.
	ErrMalformedOutput = errors.New("malformed generation output")
)

// GenerationError wraps a generation failure with the operation that raised
// it. Whether a GenerationError aborts the surrounding work is decided at
// the call site: utterance generation and relationship summarization
// propagate it, idea summarization suppresses it.
type GenerationError struct {
	// Op is the cognition operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns "cognition: <Op>: <Err>".
func (e *GenerationError) Error() string {
	return fmt.Sprintf("cognition: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is / errors.As.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is reports every GenerationError as an ErrGeneration, so callers can match
// the class without knowing the operation.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGeneration
}

// newGenerationError wraps err with operation context. Returns nil when err
// is nil.
func newGenerationError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &GenerationError{Op: op, Err: err}
}
