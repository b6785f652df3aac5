package comm

import (
	"sync"
)

type mailKey struct {
	src int
	tag Tag
}

// mailbox is the receive side of one rank: unbounded FIFO queues keyed by
// (source, tag). Unbounded queues make "send everything, then receive
// everything" collectives deadlock free.
type mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queues map[mailKey][][]byte
	err    error
}

func newMailbox() *mailbox {
	m := &mailbox{queues: make(map[mailKey][][]byte)}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *mailbox) put(src int, tag Tag, data []byte) {
	k := mailKey{src, tag}
	m.mu.Lock()
	m.queues[k] = append(m.queues[k], data)
	m.mu.Unlock()
	m.cond.Broadcast()
}

func (m *mailbox) take(src int, tag Tag) ([]byte, error) {
	k := mailKey{src, tag}
	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		if m.err != nil {
			return nil, m.err
		}
		if q := m.queues[k]; len(q) > 0 {
			data := q[0]
			q[0] = nil
			if len(q) == 1 {
				delete(m.queues, k)
			} else {
				m.queues[k] = q[1:]
			}
			return data, nil
		}
		m.cond.Wait()
	}
}

// fail makes every blocked and future take return err. The first error wins.
func (m *mailbox) fail(err error) {
	m.mu.Lock()
	if m.err == nil {
		m.err = err
	}
	m.mu.Unlock()
	m.cond.Broadcast()
}

func (m *mailbox) failed() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}
