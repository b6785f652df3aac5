package network

import "errors"

var (
	ErrMissingEndpoint = errors.New("branch endpoint not present on rank")
	ErrDuplicateGlobal = errors.New("global index received twice")
	ErrLoad            = errors.New("component load failed")
)
