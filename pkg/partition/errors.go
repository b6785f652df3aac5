package partition

import "errors"

var (
	ErrInvalidAssignment = errors.New("invalid partition assignment")
	ErrUnknownStrategy   = errors.New("unknown partition strategy")
	ErrNotPartitioned    = errors.New("partition has not run")
)
