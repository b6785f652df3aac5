package comm

import (
	"errors"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pull"
	"go.nanomsg.org/mangos/v3/protocol/push"

	// Register all transports (tcp, ipc, inproc, ws)
	_ "go.nanomsg.org/mangos/v3/transport/all"
)

// mangosSocket wraps a mangos.Socket to implement Socket.
type mangosSocket struct {
	sock mangos.Socket
}

func (s *mangosSocket) Send(data []byte) error {
	return s.sock.Send(data)
}

func (s *mangosSocket) Recv() ([]byte, error) {
	data, err := s.sock.Recv()
	if errors.Is(err, mangos.ErrRecvTimeout) {
		return nil, errRecvTimeout
	}
	if errors.Is(err, mangos.ErrClosed) {
		return nil, errSocketClosed
	}
	return data, err
}

func (s *mangosSocket) Close() error {
	return s.sock.Close()
}

func (s *mangosSocket) SetRecvDeadline(d time.Duration) error {
	return s.sock.SetOption(mangos.OptionRecvDeadline, d)
}

func (s *mangosSocket) SetSendDeadline(d time.Duration) error {
	return s.sock.SetOption(mangos.OptionSendDeadline, d)
}

func (s *mangosSocket) Listen(addr string) error {
	return s.sock.Listen(addr)
}

// Dial connects in the background so ranks may start in any order.
func (s *mangosSocket) Dial(addr string) error {
	return s.sock.DialOptions(addr, map[string]interface{}{
		mangos.OptionDialAsynch: true,
	})
}

// MangosSocketFactory creates mangos push/pull sockets.
type MangosSocketFactory struct{}

func (MangosSocketFactory) Name() string { return "mangos" }

func (MangosSocketFactory) NewPushSocket() (DialSocket, error) {
	sock, err := push.NewSocket()
	if err != nil {
		return nil, err
	}
	return &mangosSocket{sock: sock}, nil
}

func (MangosSocketFactory) NewPullSocket() (ListenSocket, error) {
	sock, err := pull.NewSocket()
	if err != nil {
		return nil, err
	}
	// Shuffle payloads can exceed the transport's default frame limit.
	if err := sock.SetOption(mangos.OptionMaxRecvSize, 0); err != nil {
		_ = sock.Close()
		return nil, err
	}
	return &mangosSocket{sock: sock}, nil
}

var _ SocketFactory = MangosSocketFactory{}

// DialMangos connects rank to its peers over mangos. addrs are mangos URLs
// such as "tcp://127.0.0.1:7001" or "inproc://world-0".
func DialMangos(rank int, addrs []string, cfg SocketConfig) (*SocketComm, error) {
	return Dial(rank, addrs, MangosSocketFactory{}, cfg)
}
