package comm

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func inprocAddrs(n int) []string {
	id := uuid.New().String()
	addrs := make([]string, n)
	for i := range addrs {
		addrs[i] = fmt.Sprintf("inproc://gridgraph-%s-%d", id, i)
	}
	return addrs
}

func fastConfig() SocketConfig {
	cfg := DefaultSocketConfig()
	cfg.PollInterval = 20 * time.Millisecond
	cfg.SendTimeout = 5 * time.Second
	return cfg
}

// dialAll brings up one SocketComm per address. Listeners are bound before
// anyone sends because Dial returns after Listen.
func dialAll(t *testing.T, addrs []string) []*SocketComm {
	t.Helper()
	comms := make([]*SocketComm, len(addrs))
	for r := range addrs {
		c, err := DialMangos(r, addrs, fastConfig())
		if err != nil {
			t.Fatalf("DialMangos(%d): %v", r, err)
		}
		comms[r] = c
	}
	t.Cleanup(func() {
		for _, c := range comms {
			c.Close()
		}
	})
	return comms
}

func TestDial_InvalidRank(t *testing.T) {
	if _, err := DialMangos(3, inprocAddrs(2), fastConfig()); !errors.Is(err, ErrInvalidRank) {
		t.Errorf("expected ErrInvalidRank, got %v", err)
	}
	if _, err := DialMangos(0, nil, fastConfig()); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
}

func TestSocketComm_Collectives(t *testing.T) {
	const n = 3
	comms := dialAll(t, inprocAddrs(n))

	var wg sync.WaitGroup
	errs := make([]error, n)
	for r := 0; r < n; r++ {
		wg.Add(1)
		go func(c Communicator) {
			defer wg.Done()
			errs[c.Rank()] = func() error {
				sum, err := AllReduce(c, c.Rank(), Sum)
				if err != nil {
					return err
				}
				assert.Equal(t, 3, sum)

				parts := make([][]byte, n)
				for d := range parts {
					parts[d] = []byte{byte(c.Rank()), byte(d)}
				}
				got, err := AllToAll(c, parts)
				if err != nil {
					return err
				}
				for s := range got {
					assert.Equal(t, []byte{byte(s), byte(c.Rank())}, got[s])
				}
				return Barrier(c)
			}()
		}(comms[r])
	}
	wg.Wait()
	for r, err := range errs {
		if err != nil {
			t.Errorf("rank %d: %v", r, err)
		}
	}
}

func TestSocketComm_AbortReachesPeers(t *testing.T) {
	comms := dialAll(t, inprocAddrs(2))

	done := make(chan error, 1)
	go func() {
		_, err := comms[1].Recv(0, TagUser)
		done <- err
	}()

	// Make sure the push pipe is connected before aborting.
	if err := comms[0].Send(1, TagUser+1, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	if _, err := comms[1].Recv(0, TagUser+1); err != nil {
		t.Fatal(err)
	}

	comms[0].Abort(errors.New("rank 0 gave up"))

	select {
	case err := <-done:
		if !errors.Is(err, ErrAborted) {
			t.Errorf("expected ErrAborted, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("peer was not aborted")
	}
}

// failingSocket is a pull socket whose Recv always returns err.
type failingSocket struct {
	err   error
	calls atomic.Int64
}

func (s *failingSocket) Send([]byte) error { return nil }
func (s *failingSocket) Recv() ([]byte, error) {
	s.calls.Add(1)
	return nil, s.err
}
func (s *failingSocket) Close() error                        { return nil }
func (s *failingSocket) SetRecvDeadline(time.Duration) error { return nil }
func (s *failingSocket) SetSendDeadline(time.Duration) error { return nil }
func (s *failingSocket) Listen(string) error                 { return nil }

type failingFactory struct{ pull *failingSocket }

func (failingFactory) Name() string { return "failing" }
func (failingFactory) NewPushSocket() (DialSocket, error) {
	return nil, errors.New("single-rank world has no peers")
}
func (f failingFactory) NewPullSocket() (ListenSocket, error) { return f.pull, nil }

func TestSocketComm_ReceiveErrorsBackOff(t *testing.T) {
	pull := &failingSocket{err: errors.New("connection reset")}
	c, err := Dial(0, []string{"fake://0"}, failingFactory{pull}, fastConfig())
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	// One attempt per 20ms poll interval, with slack for scheduling.
	calls := pull.calls.Load()
	assert.GreaterOrEqual(t, calls, int64(1))
	assert.LessOrEqual(t, calls, int64(20))
}

func TestSocketComm_ClosedSocketFailsReceivers(t *testing.T) {
	pull := &failingSocket{err: errSocketClosed}
	c, err := Dial(0, []string{"fake://0"}, failingFactory{pull}, fastConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	done := make(chan error, 1)
	go func() {
		_, err := c.Recv(0, TagUser)
		done <- err
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("receiver was not released")
	}
	assert.Equal(t, int64(1), pull.calls.Load())
}
