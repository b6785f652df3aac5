package shuffle

import "errors"

var (
	ErrInvalidDestination = errors.New("shuffle destination out of range")
	ErrLengthMismatch     = errors.New("items and destinations differ in length")
)
