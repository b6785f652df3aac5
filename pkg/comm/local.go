package comm

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-gridgraph/pkg/metrics"
)

// LocalWorld is an in-memory communicator whose ranks are goroutines of the
// current process.
type LocalWorld struct {
	id      string
	boxes   []*mailbox
	metrics *metrics.Registry
}

// WorldOption configures a LocalWorld.
type WorldOption func(*LocalWorld)

// WithWorldMetrics counts every message moved by the world.
func WithWorldMetrics(m *metrics.Registry) WorldOption {
	return func(w *LocalWorld) { w.metrics = m }
}

// NewLocalWorld creates a world of size ranks.
func NewLocalWorld(size int, opts ...WorldOption) (*LocalWorld, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	w := &LocalWorld{
		id:    uuid.New().String(),
		boxes: make([]*mailbox, size),
	}
	for i := range w.boxes {
		w.boxes[i] = newMailbox()
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// ID uniquely identifies this world, for log correlation.
func (w *LocalWorld) ID() string { return w.id }

// Size returns the number of ranks.
func (w *LocalWorld) Size() int { return len(w.boxes) }

// Comm returns the communicator handle of rank r.
func (w *LocalWorld) Comm(r int) Communicator {
	if r < 0 || r >= len(w.boxes) {
		panic(invalidRank(r, len(w.boxes)))
	}
	return &localComm{world: w, rank: r}
}

// Abort fails every rank of the world.
func (w *LocalWorld) Abort(cause error) {
	err := abortError(cause)
	for _, b := range w.boxes {
		b.fail(err)
	}
	w.metrics.RecordAbort()
}

type localComm struct {
	world *LocalWorld
	rank  int
}

func (c *localComm) Rank() int       { return c.rank }
func (c *localComm) WorldID() string { return c.world.id }
func (c *localComm) Size() int       { return len(c.world.boxes) }

func (c *localComm) Send(dst int, tag Tag, data []byte) error {
	if err := checkRank(c, dst); err != nil {
		return err
	}
	if err := c.world.boxes[c.rank].failed(); err != nil {
		return err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.world.boxes[dst].put(c.rank, tag, cp)
	c.world.metrics.RecordMessage(c.rank, "sent", len(data))
	return nil
}

func (c *localComm) Recv(src int, tag Tag) ([]byte, error) {
	if err := checkRank(c, src); err != nil {
		return nil, err
	}
	data, err := c.world.boxes[c.rank].take(src, tag)
	if err != nil {
		return nil, err
	}
	c.world.metrics.RecordMessage(c.rank, "received", len(data))
	return data, nil
}

func (c *localComm) Abort(cause error) {
	c.world.Abort(cause)
}

// Close detaches this rank. Pending receives on this rank fail with ErrClosed.
func (c *localComm) Close() error {
	c.world.boxes[c.rank].fail(ErrClosed)
	return nil
}
