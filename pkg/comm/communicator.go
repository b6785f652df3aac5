// Package comm provides the message-passing substrate the distributed graph
// is built on: a fixed-size communicator of ranks with point-to-point
// send/receive and the collectives derived from it.
//
// Every rank runs the same program. Collective functions in this package
// must be entered by every rank of the communicator in the same order; a
// rank that skips or reorders a collective leaves its peers blocked until
// the communicator is aborted.
package comm

import (
	"golang.org/x/exp/constraints"
)

// Tag classifies messages. Messages with the same (source, destination, tag)
// are delivered in the order they were sent.
type Tag uint16

// Reserved tags. Tags below TagUser belong to this package's collectives.
const (
	tagAbort Tag = iota
	TagBarrier
	TagGather
	TagBroadcast
	TagAllToAll
	TagUser Tag = 64
)

// Communicator is a fixed group of ranks exchanging byte messages.
type Communicator interface {
	// Rank is this participant's index in [0, Size).
	Rank() int
	// Size is the number of ranks in the communicator.
	Size() int
	// Send queues data for dst. It does not wait for the matching Recv.
	// The caller may reuse data after Send returns.
	Send(dst int, tag Tag, data []byte) error
	// Recv blocks until a message from src with the given tag arrives, or
	// the communicator is aborted or closed.
	Recv(src int, tag Tag) ([]byte, error)
	// Abort fails every pending and future Recv on every rank with an error
	// wrapping ErrAborted and cause.
	Abort(cause error)
	Close() error
}

// WorldIdentifier is implemented by communicators that can name the world
// their ranks share.
type WorldIdentifier interface {
	WorldID() string
}

// Number is the element constraint for reductions and distributed arrays.
type Number interface {
	constraints.Integer | constraints.Float
}

// Op is a reduction operator.
type Op int

const (
	Sum Op = iota
	Max
	Min
	Prod
)

func (op Op) String() string {
	switch op {
	case Sum:
		return "sum"
	case Max:
		return "max"
	case Min:
		return "min"
	case Prod:
		return "prod"
	default:
		return "unknown"
	}
}

func apply[T Number](op Op, a, b T) T {
	switch op {
	case Max:
		if b > a {
			return b
		}
		return a
	case Min:
		if b < a {
			return b
		}
		return a
	case Prod:
		return a * b
	default:
		return a + b
	}
}

func checkRank(c Communicator, r int) error {
	if r < 0 || r >= c.Size() {
		return invalidRank(r, c.Size())
	}
	return nil
}
