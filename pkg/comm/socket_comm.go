package comm

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dd0wney/cluso-gridgraph/pkg/logging"
	"github.com/dd0wney/cluso-gridgraph/pkg/metrics"
)

// SocketConfig tunes a SocketComm.
type SocketConfig struct {
	// PollInterval bounds how long the receive loop blocks before checking
	// for shutdown.
	PollInterval time.Duration
	// SendTimeout bounds how long Send waits for a peer connection.
	SendTimeout time.Duration
	Logger      logging.Logger
	Metrics     *metrics.Registry
}

// DefaultSocketConfig returns the defaults used by DialMangos.
func DefaultSocketConfig() SocketConfig {
	return SocketConfig{
		PollInterval: 100 * time.Millisecond,
		SendTimeout:  30 * time.Second,
		Logger:       &logging.NopLogger{},
	}
}

// SocketComm is a Communicator whose ranks are separate processes. Each rank
// listens on a PULL socket at addrs[rank] and dials one PUSH socket per peer.
// Messages to self bypass the sockets.
type SocketComm struct {
	rank    int
	addrs   []string
	factory string
	logger  logging.Logger
	metrics *metrics.Registry
	poll    time.Duration

	pull   ListenSocket
	push   []DialSocket
	pushMu []sync.Mutex
	box    *mailbox

	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	abortOnce sync.Once
}

// Dial builds the socket mesh for rank. It returns once the local listener is
// bound; peer connections complete asynchronously.
func Dial(rank int, addrs []string, factory SocketFactory, cfg SocketConfig) (*SocketComm, error) {
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: no addresses", ErrInvalidSize)
	}
	if rank < 0 || rank >= len(addrs) {
		return nil, invalidRank(rank, len(addrs))
	}
	if cfg.Logger == nil {
		cfg.Logger = &logging.NopLogger{}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultSocketConfig().PollInterval
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSocketConfig().SendTimeout
	}
	logger := cfg.Logger.With(logging.Rank(rank), logging.Component("comm"))

	cleanup := newResourceCleanup(logger)
	defer cleanup.Cleanup()

	pull, err := factory.NewPullSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create PULL socket: %w", err)
	}
	cleanup.Add(pull, "pull")
	if err := pull.SetRecvDeadline(cfg.PollInterval); err != nil {
		return nil, fmt.Errorf("failed to set receive deadline: %w", err)
	}
	if err := pull.Listen(addrs[rank]); err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addrs[rank], err)
	}

	push := make([]DialSocket, len(addrs))
	for peer, addr := range addrs {
		if peer == rank {
			continue
		}
		s, err := factory.NewPushSocket()
		if err != nil {
			return nil, fmt.Errorf("failed to create PUSH socket for rank %d: %w", peer, err)
		}
		cleanup.Add(s, fmt.Sprintf("push[%d]", peer))
		if err := s.SetSendDeadline(cfg.SendTimeout); err != nil {
			return nil, fmt.Errorf("failed to set send deadline: %w", err)
		}
		if err := s.Dial(addr); err != nil {
			return nil, fmt.Errorf("failed to dial rank %d at %s: %w", peer, addr, err)
		}
		push[peer] = s
	}

	c := &SocketComm{
		rank:    rank,
		addrs:   append([]string(nil), addrs...),
		factory: factory.Name(),
		logger:  logger,
		metrics: cfg.Metrics,
		poll:    cfg.PollInterval,
		pull:    pull,
		push:    push,
		pushMu:  make([]sync.Mutex, len(addrs)),
		box:     newMailbox(),
		stopCh:  make(chan struct{}),
	}
	c.wg.Add(1)
	go c.receiveLoop()

	cleanup.Clear()
	logger.Info("communicator ready",
		logging.String("transport", c.factory),
		logging.Address(addrs[rank]),
		logging.Int("size", len(addrs)))
	return c, nil
}

func (c *SocketComm) Rank() int { return c.rank }
func (c *SocketComm) Size() int { return len(c.addrs) }

func (c *SocketComm) Send(dst int, tag Tag, data []byte) error {
	if err := checkRank(c, dst); err != nil {
		return err
	}
	if err := c.box.failed(); err != nil {
		return err
	}
	if dst == c.rank {
		cp := make([]byte, len(data))
		copy(cp, data)
		c.box.put(c.rank, tag, cp)
		c.metrics.RecordMessage(c.rank, "sent", len(data))
		return nil
	}
	if err := c.sendFrame(dst, tag, data); err != nil {
		return fmt.Errorf("send to rank %d: %w", dst, err)
	}
	c.metrics.RecordMessage(c.rank, "sent", len(data))
	return nil
}

func (c *SocketComm) sendFrame(dst int, tag Tag, data []byte) error {
	frame, err := encodeEnvelope(c.rank, tag, data)
	if err != nil {
		return err
	}
	c.pushMu[dst].Lock()
	defer c.pushMu[dst].Unlock()
	return c.push[dst].Send(frame)
}

func (c *SocketComm) Recv(src int, tag Tag) ([]byte, error) {
	if err := checkRank(c, src); err != nil {
		return nil, err
	}
	data, err := c.box.take(src, tag)
	if err != nil {
		return nil, err
	}
	c.metrics.RecordMessage(c.rank, "received", len(data))
	return data, nil
}

// Abort fails this rank and notifies every peer. Notification is best effort:
// a peer that cannot be reached is logged and skipped.
func (c *SocketComm) Abort(cause error) {
	c.abortOnce.Do(func() {
		err := abortError(cause)
		c.box.fail(err)
		c.metrics.RecordAbort()
		c.logger.Error("aborting communicator", logging.Error(err))
		msg := []byte(err.Error())
		for peer := range c.push {
			if peer == c.rank {
				continue
			}
			if sendErr := c.sendFrame(peer, tagAbort, msg); sendErr != nil {
				c.logger.Warn("abort notification failed",
					logging.Peer(peer), logging.Error(sendErr))
			}
		}
	})
}

// Close stops the receive loop and closes all sockets.
func (c *SocketComm) Close() error {
	var firstErr error
	c.closeOnce.Do(func() {
		close(c.stopCh)
		c.wg.Wait()
		c.box.fail(ErrClosed)
		for peer, s := range c.push {
			if s == nil {
				continue
			}
			c.pushMu[peer].Lock()
			if err := s.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
			c.pushMu[peer].Unlock()
		}
		c.logger.Debug("communicator closed")
	})
	return firstErr
}

func (c *SocketComm) receiveLoop() {
	defer c.wg.Done()
	defer func() {
		if err := c.pull.Close(); err != nil {
			c.logger.Warn("failed to close PULL socket", logging.Error(err))
		}
	}()
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		frame, err := c.pull.Recv()
		if err != nil {
			if errors.Is(err, errRecvTimeout) {
				continue
			}
			select {
			case <-c.stopCh:
				return
			default:
			}
			if errors.Is(err, errSocketClosed) {
				c.logger.Error("receive socket closed", logging.Error(err))
				c.box.fail(fmt.Errorf("%w: receive socket closed", ErrClosed))
				return
			}
			c.logger.Warn("receive failed", logging.Error(err))
			select {
			case <-c.stopCh:
				return
			case <-time.After(c.poll):
			}
			continue
		}

		env, err := decodeEnvelope(frame)
		if err != nil {
			c.logger.Warn("dropping malformed frame", logging.Error(err))
			continue
		}
		if env.Src < 0 || env.Src >= len(c.addrs) {
			c.logger.Warn("dropping frame from unknown rank", logging.Peer(env.Src))
			continue
		}
		if env.Tag == tagAbort {
			c.box.fail(abortError(fmt.Errorf("rank %d: %s", env.Src, env.Body)))
			continue
		}
		c.box.put(env.Src, env.Tag, env.Body)
	}
}
