// Package ghost keeps ghost copies of buses and branches in step with the
// owning rank's copy.
//
// Each entity class (buses, branches) has its own Exchange holding one
// fixed-size byte slot per local entity. After Init has computed who owns
// what, Update copies every owner's slot over the matching ghost slots on
// other ranks.
package ghost

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/dd0wney/cluso-gridgraph/pkg/comm"
	"github.com/dd0wney/cluso-gridgraph/pkg/env"
	"github.com/dd0wney/cluso-gridgraph/pkg/garray"
	"github.com/dd0wney/cluso-gridgraph/pkg/logging"
	"github.com/dd0wney/cluso-gridgraph/pkg/pools"
)

// State of an Exchange's schedule.
type State int

const (
	Uninitialized State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "uninitialized"
}

// Entities describes the local entities of one class. Active entities are
// owned here; inactive ones are ghosts of an entity owned elsewhere.
type Entities interface {
	Len() int
	Active(i int) bool
	GlobalIndex(i int) int
}

// Exchange is the ghost-sync state of one entity class on one rank.
type Exchange struct {
	e     *env.Env
	class string

	size  int
	count int
	arena []byte
	state State

	// sendTo[d] lists local owned entities whose slots go to rank d, in the
	// order rank d expects them. recvFrom[s] lists local ghosts filled from
	// rank s.
	sendTo   [][]int
	recvFrom [][]int
}

// New creates an exchange for the named class.
func New(e *env.Env, class string) *Exchange {
	return &Exchange{e: e, class: class}
}

func (x *Exchange) Class() string { return x.class }
func (x *Exchange) State() State  { return x.state }

// SlotSize is the per-entity slot size in bytes, 0 if unallocated.
func (x *Exchange) SlotSize() int { return x.size }

// Allocated reports whether a buffer is held.
func (x *Exchange) Allocated() bool { return x.arena != nil }

// Allocate reserves one slot of size bytes per entity. Collective: every
// rank must pass the same size. Any previous buffer and schedule are
// released.
func (x *Exchange) Allocate(ents Entities, size int) error {
	return x.e.Collective("ghost.allocate", func() error {
		sizes, err := comm.AllGatherValues(x.e.Comm, size)
		if err != nil {
			return err
		}
		for r, s := range sizes {
			if s != size || s < 0 {
				return x.e.Fail(fmt.Errorf("%w: %s slot is %d on rank %d, %d on rank %d",
					ErrSizeMismatch, x.class, s, r, size, x.e.Rank()))
			}
		}
		x.Free()
		x.size = size
		x.count = ents.Len()
		x.arena = pools.GetBytesSized(x.count * size)
		return nil
	})
}

// Buffer returns entity i's slot, or nil if nothing is allocated or i is
// out of range. Slots do not overlap.
func (x *Exchange) Buffer(i int) []byte {
	if x.arena == nil || i < 0 || i >= x.count {
		return nil
	}
	lo := i * x.size
	hi := lo + x.size
	return x.arena[lo:hi:hi]
}

// Init computes the send and receive schedule. Collective.
func (x *Exchange) Init(ents Entities) error {
	err := x.e.Collective("ghost.init", func() error {
		n := ents.Len()
		if x.arena != nil && n != x.count {
			return x.e.Fail(fmt.Errorf("%w: %s allocated for %d, now %d",
				ErrEntityCount, x.class, x.count, n))
		}

		maxIndex := -1
		for i := 0; i < n; i++ {
			if g := ents.GlobalIndex(i); g > maxIndex {
				maxIndex = g
			}
		}
		maxIndex, err := comm.AllReduce(x.e.Comm, maxIndex, comm.Max)
		if err != nil {
			return err
		}

		// Owners publish their rank at their global index.
		owners, err := garray.New[int](x.e, maxIndex+1)
		if err != nil {
			return err
		}
		owners.Fill(-1)
		var owned, ownedRank, ghosts, ghostGlobal []int
		for i := 0; i < n; i++ {
			if ents.Active(i) {
				owned = append(owned, ents.GlobalIndex(i))
				ownedRank = append(ownedRank, x.e.Rank())
			} else {
				ghosts = append(ghosts, i)
				ghostGlobal = append(ghostGlobal, ents.GlobalIndex(i))
			}
		}
		if err := owners.Scatter(owned, ownedRank); err != nil {
			return err
		}
		ghostOwner, err := owners.Gather(ghostGlobal)
		if err != nil {
			return err
		}

		size := x.e.Size()
		x.recvFrom = make([][]int, size)
		requests := make([][]int, size)
		for k, i := range ghosts {
			o := ghostOwner[k]
			if o < 0 {
				return x.e.Fail(fmt.Errorf("%w: %s global index %d",
					ErrNoOwner, x.class, ghostGlobal[k]))
			}
			x.recvFrom[o] = append(x.recvFrom[o], i)
			requests[o] = append(requests[o], ghostGlobal[k])
		}

		parts := make([][]byte, size)
		for d := range requests {
			b, err := msgpack.Marshal(requests[d])
			if err != nil {
				return x.e.Fail(fmt.Errorf("encode ghost request: %w", err))
			}
			parts[d] = b
		}
		incoming, err := comm.AllToAll(x.e.Comm, parts)
		if err != nil {
			return err
		}

		localOf := make(map[int]int, len(owned))
		for i := 0; i < n; i++ {
			if ents.Active(i) {
				localOf[ents.GlobalIndex(i)] = i
			}
		}
		x.sendTo = make([][]int, size)
		for src, raw := range incoming {
			var want []int
			if err := msgpack.Unmarshal(raw, &want); err != nil {
				return x.e.Fail(fmt.Errorf("decode ghost request from rank %d: %w", src, err))
			}
			for _, g := range want {
				i, ok := localOf[g]
				if !ok {
					return x.e.Fail(fmt.Errorf("%w: rank %d asked for %s %d",
						ErrNoOwner, src, x.class, g))
				}
				x.sendTo[src] = append(x.sendTo[src], i)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	x.state = Ready
	x.e.Metrics.RecordGhostSchedule(x.class)
	x.e.Logger.Debug("ghost schedule ready",
		logging.Class(x.class),
		logging.Int("sends", countAll(x.sendTo)),
		logging.Int("receives", countAll(x.recvFrom)))
	return nil
}

func countAll(lists [][]int) int {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	return n
}

// Update copies owner slots into ghost slots on every rank. Collective.
// Returns ErrNotReady without communicating if Init has not run since the
// last Allocate, Invalidate or Free.
func (x *Exchange) Update() error {
	if x.state != Ready {
		return fmt.Errorf("%w: %s", ErrNotReady, x.class)
	}
	start := time.Now()
	moved := 0
	err := x.e.Collective("ghost.update", func() error {
		size := x.e.Size()
		parts := make([][]byte, size)
		for d, list := range x.sendTo {
			if len(list) == 0 || x.size == 0 {
				continue
			}
			buf := make([]byte, 0, len(list)*x.size)
			for _, i := range list {
				buf = append(buf, x.Buffer(i)...)
			}
			parts[d] = buf
		}
		recv, err := comm.AllToAll(x.e.Comm, parts)
		if err != nil {
			return err
		}
		for s, raw := range recv {
			want := len(x.recvFrom[s]) * x.size
			if len(raw) != want {
				return x.e.Fail(fmt.Errorf("%w: %d bytes from rank %d, want %d",
					ErrPayloadLength, len(raw), s, want))
			}
			for k, i := range x.recvFrom[s] {
				copy(x.Buffer(i), raw[k*x.size:(k+1)*x.size])
			}
			moved += len(raw)
		}
		return nil
	})
	if err != nil {
		return err
	}
	x.e.Metrics.RecordGhostUpdate(x.class, moved, time.Since(start))
	return nil
}

// Invalidate discards the schedule. The buffer is kept.
func (x *Exchange) Invalidate() {
	x.state = Uninitialized
	x.sendTo = nil
	x.recvFrom = nil
}

// Free releases the buffer and the schedule.
func (x *Exchange) Free() {
	x.Invalidate()
	if x.arena != nil {
		pools.PutBytes(x.arena)
	}
	x.arena = nil
	x.size = 0
	x.count = 0
}
