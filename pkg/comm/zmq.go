//go:build zmq
// +build zmq

package comm

import (
	"syscall"
	"time"

	zmq "github.com/pebbe/zmq4"
)

// zmqSocket wraps a zmq4 socket to implement Socket. zmq sockets are not
// safe for concurrent use; SocketComm serialises access per socket.
type zmqSocket struct {
	sock *zmq.Socket
}

func (s *zmqSocket) Send(data []byte) error {
	_, err := s.sock.SendBytes(data, 0)
	return err
}

func (s *zmqSocket) Recv() ([]byte, error) {
	data, err := s.sock.RecvBytes(0)
	if err != nil && zmq.AsErrno(err) == zmq.Errno(syscall.EAGAIN) {
		return nil, errRecvTimeout
	}
	if err != nil && zmq.AsErrno(err) == zmq.ETERM {
		return nil, errSocketClosed
	}
	return data, err
}

func (s *zmqSocket) Close() error {
	return s.sock.Close()
}

func (s *zmqSocket) SetRecvDeadline(d time.Duration) error {
	return s.sock.SetRcvtimeo(d)
}

func (s *zmqSocket) SetSendDeadline(d time.Duration) error {
	return s.sock.SetSndtimeo(d)
}

func (s *zmqSocket) Listen(addr string) error {
	return s.sock.Bind(addr)
}

func (s *zmqSocket) Dial(addr string) error {
	return s.sock.Connect(addr)
}

// ZMQSocketFactory creates ZeroMQ push/pull sockets.
type ZMQSocketFactory struct {
	// Linger bounds how long Close waits to flush queued frames.
	Linger time.Duration
}

func (ZMQSocketFactory) Name() string { return "zmq" }

func (f ZMQSocketFactory) NewPushSocket() (DialSocket, error) {
	sock, err := zmq.NewSocket(zmq.PUSH)
	if err != nil {
		return nil, err
	}
	if err := sock.SetLinger(f.linger()); err != nil {
		sock.Close()
		return nil, err
	}
	return &zmqSocket{sock: sock}, nil
}

func (f ZMQSocketFactory) NewPullSocket() (ListenSocket, error) {
	sock, err := zmq.NewSocket(zmq.PULL)
	if err != nil {
		return nil, err
	}
	if err := sock.SetLinger(0); err != nil {
		sock.Close()
		return nil, err
	}
	return &zmqSocket{sock: sock}, nil
}

func (f ZMQSocketFactory) linger() time.Duration {
	if f.Linger <= 0 {
		return time.Second
	}
	return f.Linger
}

var _ SocketFactory = ZMQSocketFactory{}

// DialZMQ connects rank to its peers over ZeroMQ. addrs are endpoints such
// as "tcp://127.0.0.1:7001".
func DialZMQ(rank int, addrs []string, cfg SocketConfig) (*SocketComm, error) {
	return Dial(rank, addrs, ZMQSocketFactory{}, cfg)
}
