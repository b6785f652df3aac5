package comm

import (
	"errors"
	"fmt"
)

var (
	ErrAborted       = errors.New("communicator aborted")
	ErrClosed        = errors.New("communicator closed")
	ErrInvalidRank   = errors.New("rank out of range")
	ErrInvalidSize   = errors.New("communicator size must be positive")
	ErrPartsMismatch = errors.New("one part per rank required")
	ErrLenMismatch   = errors.New("reduction operands differ in length")
)

func invalidRank(r, size int) error {
	return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidRank, r, size)
}

// abortError wraps both ErrAborted and the cause that triggered the abort,
// so errors.Is matches either.
func abortError(cause error) error {
	if cause == nil {
		return ErrAborted
	}
	if errors.Is(cause, ErrAborted) {
		return cause
	}
	return fmt.Errorf("%w: %w", ErrAborted, cause)
}
