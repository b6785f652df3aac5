// Package network holds one rank's share of a distributed electrical network:
// owned buses and branches plus ghost copies of their remote neighbors, the
// index spaces that name them, and the collective operations that
// redistribute, prune and copy the whole graph.
//
// Indices passed to and returned from Network methods are local (positions
// in this rank's arrays) unless the method name says otherwise. Local
// indices change on Partition and Clean.
package network

import (
	"fmt"
	"reflect"

	"github.com/dd0wney/cluso-gridgraph/pkg/comm"
	"github.com/dd0wney/cluso-gridgraph/pkg/component"
	"github.com/dd0wney/cluso-gridgraph/pkg/env"
	"github.com/dd0wney/cluso-gridgraph/pkg/ghost"
	"github.com/dd0wney/cluso-gridgraph/pkg/partition"
)

// Network is a distributed graph of buses with payload B and branches with
// payload R.
type Network[B, R any] struct {
	e         *env.Env
	newBus    func() B
	newBranch func() R
	strategy  partition.Strategy
	gp        *partition.GraphPartitioner

	buses    []*BusData[B]
	branches []*BranchData[R]

	busMap    map[int][]int
	branchMap map[branchKey][]int

	busXC    *ghost.Exchange
	branchXC *ghost.Exchange
}

// Option configures a Network.
type Option func(*options)

type options struct {
	strategy partition.Strategy
}

// WithStrategy sets the partitioning strategy. The default is contiguous
// global-index ranges.
func WithStrategy(s partition.Strategy) Option {
	return func(o *options) { o.strategy = s }
}

// New creates an empty network. newBus and newBranch build default payloads.
func New[B, R any](e *env.Env, newBus func() B, newBranch func() R, opts ...Option) *Network[B, R] {
	o := options{strategy: partition.NewRangePartition(e.Size(), 0)}
	for _, opt := range opts {
		opt(&o)
	}
	return &Network[B, R]{
		e:         e,
		newBus:    newBus,
		newBranch: newBranch,
		strategy:  o.strategy,
		busMap:    make(map[int][]int),
		branchMap: make(map[branchKey][]int),
		busXC:     ghost.New(e, "bus"),
		branchXC:  ghost.New(e, "branch"),
	}
}

// Env returns the context the network was built with.
func (n *Network[B, R]) Env() *env.Env { return n.e }

// AddBus appends an active bus with an unassigned global index.
func (n *Network[B, R]) AddBus(originalIndex int) int {
	n.buses = append(n.buses, &BusData[B]{
		OriginalIndex: originalIndex,
		GlobalIndex:   Unassigned,
		Active:        true,
		Bus:           n.newBus(),
		Data:          component.NewDataCollection(),
	})
	return len(n.buses) - 1
}

// AddBranch appends an active branch between two buses named by original
// index. Its global and local indices are unassigned.
func (n *Network[B, R]) AddBranch(original1, original2 int) int {
	n.branches = append(n.branches, &BranchData[R]{
		GlobalIndex:  Unassigned,
		OriginalBus1: original1,
		OriginalBus2: original2,
		GlobalBus1:   Unassigned,
		GlobalBus2:   Unassigned,
		LocalBus1:    Unassigned,
		LocalBus2:    Unassigned,
		Active:       true,
		Branch:       n.newBranch(),
		Data:         component.NewDataCollection(),
	})
	return len(n.branches) - 1
}

func (n *Network[B, R]) NumBuses() int    { return len(n.buses) }
func (n *Network[B, R]) NumBranches() int { return len(n.branches) }

// TotalBuses returns the number of active buses on all ranks. Collective.
func (n *Network[B, R]) TotalBuses() (int, error) {
	return comm.AllReduce(n.e.Comm, n.Stats().OwnedBuses, comm.Sum)
}

// TotalBranches returns the number of active branches on all ranks.
// Collective.
func (n *Network[B, R]) TotalBranches() (int, error) {
	return comm.AllReduce(n.e.Comm, n.Stats().OwnedBranches, comm.Sum)
}

// Stats counts owned and ghost entities on this rank and publishes the
// counts as gauges.
func (n *Network[B, R]) Stats() Stats {
	var s Stats
	for _, b := range n.buses {
		if b.Active {
			s.OwnedBuses++
		} else {
			s.GhostBuses++
		}
	}
	for _, br := range n.branches {
		if br.Active {
			s.OwnedBranches++
		} else {
			s.GhostBranches++
		}
	}
	n.e.Metrics.SetNetworkCounts(n.e.Rank(), s.OwnedBuses, s.GhostBuses, s.OwnedBranches, s.GhostBranches)
	return s
}

func (n *Network[B, R]) bus(i int) (*BusData[B], bool) {
	if i < 0 || i >= len(n.buses) {
		return nil, false
	}
	return n.buses[i], true
}

func (n *Network[B, R]) branch(i int) (*BranchData[R], bool) {
	if i < 0 || i >= len(n.branches) {
		return nil, false
	}
	return n.branches[i], true
}

// Bus setters. Each returns false if i is out of range.

func (n *Network[B, R]) SetGlobalBusIndex(i, g int) bool {
	b, ok := n.bus(i)
	if ok {
		b.GlobalIndex = g
	}
	return ok
}

func (n *Network[B, R]) SetOriginalBusIndex(i, o int) bool {
	b, ok := n.bus(i)
	if ok {
		b.OriginalIndex = o
	}
	return ok
}

func (n *Network[B, R]) SetActiveBus(i int, active bool) bool {
	b, ok := n.bus(i)
	if ok {
		b.Active = active
	}
	return ok
}

// SetReferenceBus designates bus i as the reference bus, clearing the flag
// on every other local bus.
func (n *Network[B, R]) SetReferenceBus(i int) bool {
	if _, ok := n.bus(i); !ok {
		return false
	}
	for k, b := range n.buses {
		b.RefFlag = k == i
		if rs, ok := any(b.Bus).(component.ReferenceSetter); ok {
			rs.SetReferenceBus(b.RefFlag)
		}
	}
	return true
}

func (n *Network[B, R]) ClearBranchNeighbors(i int) bool {
	b, ok := n.bus(i)
	if ok {
		b.BranchNeighbors = b.BranchNeighbors[:0]
	}
	return ok
}

// AddBranchNeighbor records that branch touches bus i.
func (n *Network[B, R]) AddBranchNeighbor(i, branch int) bool {
	b, ok := n.bus(i)
	if !ok {
		return false
	}
	if _, ok := n.branch(branch); !ok {
		return false
	}
	b.BranchNeighbors = append(b.BranchNeighbors, branch)
	return true
}

// Branch setters. Each returns false if i is out of range.

func (n *Network[B, R]) SetGlobalBranchIndex(i, g int) bool {
	br, ok := n.branch(i)
	if ok {
		br.GlobalIndex = g
	}
	return ok
}

func (n *Network[B, R]) SetOriginalBusIndex1(i, o int) bool {
	br, ok := n.branch(i)
	if ok {
		br.OriginalBus1 = o
	}
	return ok
}

func (n *Network[B, R]) SetOriginalBusIndex2(i, o int) bool {
	br, ok := n.branch(i)
	if ok {
		br.OriginalBus2 = o
	}
	return ok
}

func (n *Network[B, R]) SetGlobalBusIndex1(i, g int) bool {
	br, ok := n.branch(i)
	if ok {
		br.GlobalBus1 = g
	}
	return ok
}

func (n *Network[B, R]) SetGlobalBusIndex2(i, g int) bool {
	br, ok := n.branch(i)
	if ok {
		br.GlobalBus2 = g
	}
	return ok
}

func (n *Network[B, R]) SetLocalBusIndex1(i, l int) bool {
	br, ok := n.branch(i)
	if ok {
		br.LocalBus1 = l
	}
	return ok
}

func (n *Network[B, R]) SetLocalBusIndex2(i, l int) bool {
	br, ok := n.branch(i)
	if ok {
		br.LocalBus2 = l
	}
	return ok
}

func (n *Network[B, R]) SetActiveBranch(i int, active bool) bool {
	br, ok := n.branch(i)
	if ok {
		br.Active = active
	}
	return ok
}

// Bus getters. Out-of-range indices yield Unassigned, false or the zero
// value.

func (n *Network[B, R]) GetOriginalBusIndex(i int) int {
	if b, ok := n.bus(i); ok {
		return b.OriginalIndex
	}
	return Unassigned
}

func (n *Network[B, R]) GetGlobalBusIndex(i int) int {
	if b, ok := n.bus(i); ok {
		return b.GlobalIndex
	}
	return Unassigned
}

func (n *Network[B, R]) GetActiveBus(i int) bool {
	b, ok := n.bus(i)
	return ok && b.Active
}

func (n *Network[B, R]) GetBus(i int) (B, bool) {
	if b, ok := n.bus(i); ok {
		return b.Bus, true
	}
	var zero B
	return zero, false
}

func (n *Network[B, R]) GetBusData(i int) *component.DataCollection {
	if b, ok := n.bus(i); ok {
		return b.Data
	}
	return nil
}

// GetReferenceBus returns the local index of the reference bus if this rank
// owns it, Unassigned otherwise.
func (n *Network[B, R]) GetReferenceBus() int {
	for i, b := range n.buses {
		if b.RefFlag && b.Active {
			return i
		}
	}
	return Unassigned
}

// GetConnectedBranches returns the branch neighbor list of bus i.
func (n *Network[B, R]) GetConnectedBranches(i int) []int {
	b, ok := n.bus(i)
	if !ok {
		return nil
	}
	return append([]int(nil), b.BranchNeighbors...)
}

// GetConnectedBuses returns, for each connected branch of bus i, the local
// index of the branch's other endpoint. The entry is Unassigned when that
// endpoint is not held on this rank.
func (n *Network[B, R]) GetConnectedBuses(i int) []int {
	b, ok := n.bus(i)
	if !ok {
		return nil
	}
	out := make([]int, 0, len(b.BranchNeighbors))
	for _, j := range b.BranchNeighbors {
		br, ok := n.branch(j)
		if !ok {
			out = append(out, Unassigned)
			continue
		}
		if br.LocalBus1 == i {
			out = append(out, br.LocalBus2)
		} else {
			out = append(out, br.LocalBus1)
		}
	}
	return out
}

// Branch getters.

func (n *Network[B, R]) GetGlobalBranchIndex(i int) int {
	if br, ok := n.branch(i); ok {
		return br.GlobalIndex
	}
	return Unassigned
}

func (n *Network[B, R]) GetActiveBranch(i int) bool {
	br, ok := n.branch(i)
	return ok && br.Active
}

func (n *Network[B, R]) GetBranchSwitched(i int) bool {
	br, ok := n.branch(i)
	return ok && br.Switched
}

// GetBranchEndpoints returns the local indices of branch i's buses.
func (n *Network[B, R]) GetBranchEndpoints(i int) (l1, l2 int, ok bool) {
	br, ok := n.branch(i)
	if !ok {
		return Unassigned, Unassigned, false
	}
	return br.LocalBus1, br.LocalBus2, true
}

func (n *Network[B, R]) GetOriginalBranchEndpoints(i int) (o1, o2 int, ok bool) {
	br, ok := n.branch(i)
	if !ok {
		return Unassigned, Unassigned, false
	}
	return br.OriginalBus1, br.OriginalBus2, true
}

func (n *Network[B, R]) GetGlobalBranchEndpoints(i int) (g1, g2 int, ok bool) {
	br, ok := n.branch(i)
	if !ok {
		return Unassigned, Unassigned, false
	}
	return br.GlobalBus1, br.GlobalBus2, true
}

func (n *Network[B, R]) GetBranch(i int) (R, bool) {
	if br, ok := n.branch(i); ok {
		return br.Branch, true
	}
	var zero R
	return zero, false
}

func (n *Network[B, R]) GetBranchData(i int) *component.DataCollection {
	if br, ok := n.branch(i); ok {
		return br.Data
	}
	return nil
}

// LoadComponents passes every bus and branch its data collection, for
// payloads implementing component.Loader.
func (n *Network[B, R]) LoadComponents() error {
	for i, b := range n.buses {
		if l, ok := any(b.Bus).(component.Loader); ok {
			if err := l.Load(b.Data); err != nil {
				return fmt.Errorf("%w: bus %d: %w", ErrLoad, i, err)
			}
		}
	}
	for i, br := range n.branches {
		if l, ok := any(br.Branch).(component.Loader); ok {
			if err := l.Load(br.Data); err != nil {
				return fmt.Errorf("%w: branch %d: %w", ErrLoad, i, err)
			}
		}
	}
	return nil
}

// isNil reports whether a payload decoded to nothing, so that a default can
// be substituted.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
