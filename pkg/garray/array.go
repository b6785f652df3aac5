// Package garray implements a global integer-indexed array whose elements are
// partitioned across the ranks of a communicator.
//
// All data-moving operations are collective. The underlying transport only
// offers two-sided messaging, so a read or write of remote elements is a
// request/reply round in which every rank takes part, possibly with an empty
// request.
package garray

import (
	"fmt"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/dd0wney/cluso-gridgraph/pkg/comm"
	"github.com/dd0wney/cluso-gridgraph/pkg/env"
	"github.com/dd0wney/cluso-gridgraph/pkg/logging"
)

// Array is one rank's view of a distributed array.
type Array[T comm.Number] struct {
	e      *env.Env
	total  int
	starts []int // len Size()+1, starts[Size()] == total
	local  []T
}

// New creates an array of total elements with an even block distribution.
// Collective: every rank must pass the same total.
func New[T comm.Number](e *env.Env, total int) (*Array[T], error) {
	n := e.Size()
	starts := make([]int, n)
	for p := range starts {
		starts[p] = p * total / n
	}
	return NewIrregular[T](e, total, starts)
}

// NewIrregular creates an array whose rank p owns [starts[p], starts[p+1]).
// starts must begin at 0 and be nondecreasing. Collective.
func NewIrregular[T comm.Number](e *env.Env, total int, starts []int) (*Array[T], error) {
	a := &Array[T]{e: e, total: total}
	err := e.Collective("garray.create", func() error {
		totals, err := comm.AllGatherValues(e.Comm, total)
		if err != nil {
			return err
		}
		for r, t := range totals {
			if t != total {
				return e.Fail(fmt.Errorf("%w: rank %d has %d, rank %d has %d",
					ErrSizeMismatch, r, t, e.Rank(), total))
			}
		}
		if err := validateStarts(starts, e.Size(), total); err != nil {
			return e.Fail(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.starts = append(append(make([]int, 0, len(starts)+1), starts...), total)
	lo, hi := a.Distribution(e.Rank())
	a.local = make([]T, hi-lo)
	return a, nil
}

func validateStarts(starts []int, n, total int) error {
	if total < 0 {
		return fmt.Errorf("%w: negative total %d", ErrBadDistribution, total)
	}
	if len(starts) != n {
		return fmt.Errorf("%w: %d starts for %d ranks", ErrBadDistribution, len(starts), n)
	}
	if starts[0] != 0 {
		return fmt.Errorf("%w: first start is %d", ErrBadDistribution, starts[0])
	}
	for p := 1; p < n; p++ {
		if starts[p] < starts[p-1] || starts[p] > total {
			return fmt.Errorf("%w: start %d of rank %d", ErrBadDistribution, starts[p], p)
		}
	}
	return nil
}

// Len is the global element count.
func (a *Array[T]) Len() int { return a.total }

// Distribution returns the half-open global range owned by rank.
func (a *Array[T]) Distribution(rank int) (lo, hi int) {
	return a.starts[rank], a.starts[rank+1]
}

// Local is this rank's shard. Writes are visible to later collective reads.
func (a *Array[T]) Local() []T { return a.local }

// Fill sets every local element to v.
func (a *Array[T]) Fill(v T) {
	for i := range a.local {
		a.local[i] = v
	}
}

// owner returns the rank whose shard holds global index i.
func (a *Array[T]) owner(i int) int {
	n := len(a.starts) - 1
	return sort.Search(n, func(p int) bool { return a.starts[p+1] > i })
}

func (a *Array[T]) checkIndices(indices []int) error {
	for _, i := range indices {
		if i < 0 || i >= a.total {
			return fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, i, a.total)
		}
	}
	return nil
}

type writeBatch[T comm.Number] struct {
	Idx []int `msgpack:"i"`
	Val []T   `msgpack:"v"`
}

// Scatter writes values[k] at global index indices[k]. Collective. When
// several ranks write the same index, the highest source rank wins.
func (a *Array[T]) Scatter(indices []int, values []T) error {
	return a.e.Collective("garray.scatter", func() error {
		if len(indices) != len(values) {
			return a.e.Fail(fmt.Errorf("%w: %d indices, %d values", ErrValueCount, len(indices), len(values)))
		}
		if err := a.checkIndices(indices); err != nil {
			return a.e.Fail(err)
		}
		n := a.e.Size()
		batches := make([]writeBatch[T], n)
		for k, i := range indices {
			p := a.owner(i)
			batches[p].Idx = append(batches[p].Idx, i)
			batches[p].Val = append(batches[p].Val, values[k])
		}
		parts := make([][]byte, n)
		for p := range batches {
			b, err := msgpack.Marshal(&batches[p])
			if err != nil {
				return a.e.Fail(fmt.Errorf("encode scatter batch: %w", err))
			}
			parts[p] = b
		}
		recv, err := comm.AllToAll(a.e.Comm, parts)
		if err != nil {
			return err
		}
		lo, _ := a.Distribution(a.e.Rank())
		for src, raw := range recv {
			var batch writeBatch[T]
			if err := msgpack.Unmarshal(raw, &batch); err != nil {
				return a.e.Fail(fmt.Errorf("decode scatter batch from rank %d: %w", src, err))
			}
			for k, i := range batch.Idx {
				a.local[i-lo] = batch.Val[k]
			}
		}
		return nil
	})
}

// Gather reads the elements at the given global indices. Collective.
func (a *Array[T]) Gather(indices []int) ([]T, error) {
	var out []T
	err := a.e.Collective("garray.gather", func() error {
		if err := a.checkIndices(indices); err != nil {
			return a.e.Fail(err)
		}
		n := a.e.Size()

		// Request round: global indices per owner.
		requests := make([][]int, n)
		for _, i := range indices {
			p := a.owner(i)
			requests[p] = append(requests[p], i)
		}
		parts := make([][]byte, n)
		for p := range requests {
			b, err := msgpack.Marshal(requests[p])
			if err != nil {
				return a.e.Fail(fmt.Errorf("encode gather request: %w", err))
			}
			parts[p] = b
		}
		incoming, err := comm.AllToAll(a.e.Comm, parts)
		if err != nil {
			return err
		}

		// Reply round: values in request order.
		lo, _ := a.Distribution(a.e.Rank())
		for src, raw := range incoming {
			var want []int
			if err := msgpack.Unmarshal(raw, &want); err != nil {
				return a.e.Fail(fmt.Errorf("decode gather request from rank %d: %w", src, err))
			}
			vals := make([]T, len(want))
			for k, i := range want {
				vals[k] = a.local[i-lo]
			}
			b, err := msgpack.Marshal(vals)
			if err != nil {
				return a.e.Fail(fmt.Errorf("encode gather reply: %w", err))
			}
			parts[src] = b
		}
		replies, err := comm.AllToAll(a.e.Comm, parts)
		if err != nil {
			return err
		}

		decoded := make([][]T, n)
		for p, raw := range replies {
			if err := msgpack.Unmarshal(raw, &decoded[p]); err != nil {
				return a.e.Fail(fmt.Errorf("decode gather reply from rank %d: %w", p, err))
			}
			if len(decoded[p]) != len(requests[p]) {
				return a.e.Fail(fmt.Errorf("%w: rank %d answered %d of %d",
					ErrValueCount, p, len(decoded[p]), len(requests[p])))
			}
		}
		out = make([]T, len(indices))
		next := make([]int, n)
		for k, i := range indices {
			p := a.owner(i)
			out[k] = decoded[p][next[p]]
			next[p]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.e.Logger.Debug("gathered", logging.Int("count", len(out)))
	return out, nil
}

// Get reads the global range [lo, hi). Collective; ranks may ask for
// different ranges, including empty ones.
func (a *Array[T]) Get(lo, hi int) ([]T, error) {
	indices, err := a.rangeIndices(lo, hi)
	if err != nil {
		return nil, a.e.Fail(err)
	}
	return a.Gather(indices)
}

// Put writes values over the global range [lo, hi). Collective.
func (a *Array[T]) Put(lo, hi int, values []T) error {
	indices, err := a.rangeIndices(lo, hi)
	if err != nil {
		return a.e.Fail(err)
	}
	return a.Scatter(indices, values)
}

func (a *Array[T]) rangeIndices(lo, hi int) ([]int, error) {
	if lo < 0 || hi > a.total || lo > hi {
		return nil, fmt.Errorf("%w: range [%d, %d) in [0, %d)", ErrOutOfRange, lo, hi, a.total)
	}
	indices := make([]int, hi-lo)
	for k := range indices {
		indices[k] = lo + k
	}
	return indices, nil
}
