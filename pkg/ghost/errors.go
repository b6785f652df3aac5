package ghost

import "errors"

var (
	ErrNotReady      = errors.New("ghost exchange not initialized")
	ErrSizeMismatch  = errors.New("ranks disagree on exchange slot size")
	ErrNoOwner       = errors.New("ghost has no owning rank")
	ErrEntityCount   = errors.New("entity count changed since allocation")
	ErrPayloadLength = errors.New("exchange payload has unexpected length")
)
