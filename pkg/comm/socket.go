package comm

import (
	"errors"
	"io"
	"time"
)

// errRecvTimeout is returned by Socket.Recv when its receive deadline passes
// without a message. Socket implementations translate their transport's
// timeout error into it.
var errRecvTimeout = errors.New("receive timeout")

// errSocketClosed is returned by Socket.Recv once the socket can no longer
// deliver messages.
var errSocketClosed = errors.New("socket closed")

// Socket represents a messaging socket that can send and receive messages.
// This interface abstracts the underlying transport (mangos, ZMQ, or a test
// double).
type Socket interface {
	io.Closer
	Send([]byte) error
	Recv() ([]byte, error)
	SetRecvDeadline(d time.Duration) error
	SetSendDeadline(d time.Duration) error
}

// ListenSocket is a socket that can bind to an address and accept connections.
type ListenSocket interface {
	Socket
	Listen(addr string) error
}

// DialSocket is a socket that can connect to a remote address.
type DialSocket interface {
	Socket
	Dial(addr string) error
}

// SocketFactory creates the push/pull pair a SocketComm is built from.
type SocketFactory interface {
	Name() string
	NewPushSocket() (DialSocket, error)
	NewPullSocket() (ListenSocket, error)
}
