package config

import "errors"

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrAddressCount  = errors.New("transport address count does not match ranks")
)
