package garray

import "errors"

var (
	ErrOutOfRange      = errors.New("global index out of range")
	ErrSizeMismatch    = errors.New("ranks disagree on array size")
	ErrBadDistribution = errors.New("invalid shard starts")
	ErrValueCount      = errors.New("index and value counts differ")
)
