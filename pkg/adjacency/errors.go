package adjacency

import "errors"

var (
	ErrUnresolvedEndpoint = errors.New("edge endpoint matches no node")
	ErrNotReady           = errors.New("adjacency not computed")
)
