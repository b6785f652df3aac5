// Package shuffle redistributes records between ranks according to a
// per-record destination.
package shuffle

import (
	"fmt"
	"time"

	"github.com/golang/snappy"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/dd0wney/cluso-gridgraph/pkg/comm"
	"github.com/dd0wney/cluso-gridgraph/pkg/env"
	"github.com/dd0wney/cluso-gridgraph/pkg/logging"
	"github.com/dd0wney/cluso-gridgraph/pkg/pools"
)

// Shuffler moves records of type T between ranks. T must be msgpack
// serializable; exported struct fields, slices, maps and strings are all
// carried.
type Shuffler[T any] struct {
	e *env.Env
}

// New creates a Shuffler bound to e's communicator.
func New[T any](e *env.Env) *Shuffler[T] {
	return &Shuffler[T]{e: e}
}

// Shuffle sends items[k] to rank dest[k] and returns the records addressed
// to this rank. Collective. Records from one source keep their relative
// order and sources are concatenated in rank order. A bad destination or
// length mismatch on any rank aborts the communicator.
func (s *Shuffler[T]) Shuffle(items []T, dest []int) ([]T, error) {
	var out []T
	start := time.Now()
	var sentBytes, recvBytes int
	err := s.e.Collective("shuffle", func() error {
		n := s.e.Size()
		if len(items) != len(dest) {
			return s.e.Fail(fmt.Errorf("%w: %d items, %d destinations",
				ErrLengthMismatch, len(items), len(dest)))
		}
		groups := make([][]T, n)
		for k, d := range dest {
			if d < 0 || d >= n {
				return s.e.Fail(fmt.Errorf("%w: record %d addressed to rank %d of %d",
					ErrInvalidDestination, k, d, n))
			}
			groups[d] = append(groups[d], items[k])
		}

		parts := make([][]byte, n)
		for d, g := range groups {
			b, err := encode(g)
			if err != nil {
				return s.e.Fail(fmt.Errorf("encode records for rank %d: %w", d, err))
			}
			parts[d] = b
			sentBytes += len(b)
		}

		recv, err := comm.AllToAll(s.e.Comm, parts)
		if err != nil {
			return err
		}

		for src, raw := range recv {
			recvBytes += len(raw)
			g, err := decode[T](raw)
			if err != nil {
				return s.e.Fail(fmt.Errorf("decode records from rank %d: %w", src, err))
			}
			out = append(out, g...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	d := time.Since(start)
	s.e.Metrics.RecordShuffle(s.e.Rank(), len(items), len(out), sentBytes, recvBytes, d)
	s.e.Logger.Debug("shuffle complete",
		logging.Int("sent", len(items)),
		logging.Records(len(out)),
		logging.Bytes(recvBytes),
		logging.Latency(d))
	return out, nil
}

// encode serializes a record group with msgpack and compresses it with
// snappy. An empty group encodes to an empty frame.
func encode[T any](records []T) ([]byte, error) {
	if len(records) == 0 {
		return nil, nil
	}
	buf := pools.GetBuffer()
	defer pools.PutBuffer(buf)

	enc := msgpack.GetEncoder()
	defer msgpack.PutEncoder(enc)
	enc.Reset(buf)
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return snappy.Encode(nil, buf.Bytes()), nil
}

func decode[T any](frame []byte) ([]T, error) {
	if len(frame) == 0 {
		return nil, nil
	}
	raw, err := snappy.Decode(nil, frame)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	var records []T
	if err := msgpack.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	return records, nil
}
