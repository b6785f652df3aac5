package comm

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Barrier returns once every rank has entered it.
func Barrier(c Communicator) error {
	_, err := gather(c, TagBarrier, nil)
	return err
}

// AllGather returns every rank's data, indexed by source rank.
func AllGather(c Communicator, data []byte) ([][]byte, error) {
	return gather(c, TagGather, data)
}

func gather(c Communicator, tag Tag, data []byte) ([][]byte, error) {
	me, n := c.Rank(), c.Size()
	for d := 0; d < n; d++ {
		if d == me {
			continue
		}
		if err := c.Send(d, tag, data); err != nil {
			return nil, err
		}
	}
	out := make([][]byte, n)
	out[me] = data
	for s := 0; s < n; s++ {
		if s == me {
			continue
		}
		b, err := c.Recv(s, tag)
		if err != nil {
			return nil, err
		}
		out[s] = b
	}
	return out, nil
}

// Broadcast distributes root's data to every rank. Non-root ranks' data
// argument is ignored.
func Broadcast(c Communicator, root int, data []byte) ([]byte, error) {
	if err := checkRank(c, root); err != nil {
		return nil, err
	}
	if c.Rank() != root {
		return c.Recv(root, TagBroadcast)
	}
	for d := 0; d < c.Size(); d++ {
		if d == root {
			continue
		}
		if err := c.Send(d, TagBroadcast, data); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// AllToAll performs a personalized exchange: parts[d] is delivered to rank d
// and the result holds, at index s, what rank s addressed to this rank.
func AllToAll(c Communicator, parts [][]byte) ([][]byte, error) {
	me, n := c.Rank(), c.Size()
	if len(parts) != n {
		return nil, fmt.Errorf("%w: got %d parts for %d ranks", ErrPartsMismatch, len(parts), n)
	}
	for d := 0; d < n; d++ {
		if d == me {
			continue
		}
		if err := c.Send(d, TagAllToAll, parts[d]); err != nil {
			return nil, err
		}
	}
	out := make([][]byte, n)
	out[me] = parts[me]
	for s := 0; s < n; s++ {
		if s == me {
			continue
		}
		b, err := c.Recv(s, TagAllToAll)
		if err != nil {
			return nil, err
		}
		out[s] = b
	}
	return out, nil
}

// AllGatherValues gathers one value per rank.
func AllGatherValues[T any](c Communicator, v T) ([]T, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode gather value: %w", err)
	}
	all, err := AllGather(c, b)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(all))
	for r, raw := range all {
		if err := msgpack.Unmarshal(raw, &out[r]); err != nil {
			return nil, fmt.Errorf("decode gather value from rank %d: %w", r, err)
		}
	}
	return out, nil
}

// AllReduce combines one value per rank with op. Operands are combined in
// rank order so every rank computes a bitwise identical result.
func AllReduce[T Number](c Communicator, v T, op Op) (T, error) {
	all, err := AllGatherValues(c, v)
	if err != nil {
		var zero T
		return zero, err
	}
	acc := all[0]
	for _, x := range all[1:] {
		acc = apply(op, acc, x)
	}
	return acc, nil
}

// AllReduceSlice combines equal-length slices element-wise.
func AllReduceSlice[T Number](c Communicator, vs []T, op Op) ([]T, error) {
	all, err := AllGatherValues(c, vs)
	if err != nil {
		return nil, err
	}
	acc := make([]T, len(vs))
	for r, x := range all {
		if len(x) != len(vs) {
			return nil, fmt.Errorf("%w: rank %d has %d, rank %d has %d",
				ErrLenMismatch, r, len(x), c.Rank(), len(vs))
		}
		if r == 0 {
			copy(acc, x)
			continue
		}
		for i := range acc {
			acc[i] = apply(op, acc[i], x[i])
		}
	}
	return acc, nil
}

// ExclusiveScan returns the sum of v over all ranks below this one.
func ExclusiveScan[T Number](c Communicator, v T) (T, error) {
	all, err := AllGatherValues(c, v)
	if err != nil {
		var zero T
		return zero, err
	}
	var acc T
	for _, x := range all[:c.Rank()] {
		acc += x
	}
	return acc, nil
}
