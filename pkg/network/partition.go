package network

import (
	"fmt"
	"sort"
	"time"

	"github.com/dd0wney/cluso-gridgraph/pkg/comm"
	"github.com/dd0wney/cluso-gridgraph/pkg/component"
	"github.com/dd0wney/cluso-gridgraph/pkg/logging"
	"github.com/dd0wney/cluso-gridgraph/pkg/partition"
	"github.com/dd0wney/cluso-gridgraph/pkg/shuffle"
)

// Partition redistributes the network: every active bus and branch moves to
// the rank the strategy assigns it, and ghost copies are created wherever a
// rank needs a neighbor it does not own. Inactive entries present before the
// call are discarded and rebuilt from their owners. Collective.
//
// Ghost-exchange schedules and buffers are released.
func (n *Network[B, R]) Partition() error {
	start := time.Now()
	err := n.e.Collective("network.partition", func() error {
		if err := n.assignGlobalIndices(); err != nil {
			return err
		}

		gp := partition.NewGraphPartitioner(n.e, n.strategy)
		var activeBuses []*BusData[B]
		for _, b := range n.buses {
			if b.Active {
				activeBuses = append(activeBuses, b)
				gp.AddNode(b.GlobalIndex, b.OriginalIndex)
			}
		}
		var activeBranches []*BranchData[R]
		for _, br := range n.branches {
			if br.Active {
				activeBranches = append(activeBranches, br)
				gp.AddEdge(br.GlobalIndex, br.OriginalBus1, br.OriginalBus2)
			}
		}
		if err := gp.Partition(); err != nil {
			return err
		}

		busRecs, busDest := busRecords(activeBuses, gp)
		branchRecs, branchDest := branchRecords(activeBranches, gp)

		buses, err := shuffle.New[BusData[B]](n.e).Shuffle(busRecs, busDest)
		if err != nil {
			return err
		}
		branches, err := shuffle.New[BranchData[R]](n.e).Shuffle(branchRecs, branchDest)
		if err != nil {
			return err
		}
		if err := n.install(buses, branches); err != nil {
			return err
		}
		n.gp = gp
		return nil
	})
	if err != nil {
		return err
	}
	if err := n.BuildIndexMaps(); err != nil {
		return err
	}
	s := n.Stats()
	n.e.Logger.Info("network partitioned",
		logging.String("strategy", n.strategy.Name()),
		logging.Int("owned_buses", s.OwnedBuses),
		logging.Int("ghost_buses", s.GhostBuses),
		logging.Int("owned_branches", s.OwnedBranches),
		logging.Int("ghost_branches", s.GhostBranches),
		logging.Latency(time.Since(start)))
	return nil
}

// PartitionQuality reports partition sizes, edge cuts and balance of the
// last Partition. Collective.
func (n *Network[B, R]) PartitionQuality() (*partition.Metrics, error) {
	if n.gp == nil {
		return nil, partition.ErrNotPartitioned
	}
	return partition.ComputeMetrics(n.e, n.gp)
}

// assignGlobalIndices numbers active buses, and separately active branches,
// densely in rank order when any active entity on any rank lacks an index.
func (n *Network[B, R]) assignGlobalIndices() error {
	missing := [2]int{}
	owned := [2]int{}
	for _, b := range n.buses {
		if b.Active {
			owned[0]++
			if b.GlobalIndex == Unassigned {
				missing[0] = 1
			}
		}
	}
	for _, br := range n.branches {
		if br.Active {
			owned[1]++
			if br.GlobalIndex == Unassigned {
				missing[1] = 1
			}
		}
	}
	anyMissing, err := comm.AllReduceSlice(n.e.Comm, missing[:], comm.Max)
	if err != nil {
		return err
	}
	if anyMissing[0] == 1 {
		next, err := comm.ExclusiveScan(n.e.Comm, owned[0])
		if err != nil {
			return err
		}
		for _, b := range n.buses {
			if b.Active {
				b.GlobalIndex = next
				next++
			}
		}
	}
	if anyMissing[1] == 1 {
		next, err := comm.ExclusiveScan(n.e.Comm, owned[1])
		if err != nil {
			return err
		}
		for _, br := range n.branches {
			if br.Active {
				br.GlobalIndex = next
				next++
			}
		}
	}
	return nil
}

func busRecords[B any](buses []*BusData[B], gp *partition.GraphPartitioner) ([]BusData[B], []int) {
	var recs []BusData[B]
	var dest []int
	ghosts := gp.GhostNodeDestinations()
	for k, d := range gp.NodeDestinations() {
		rec := *buses[k]
		rec.BranchNeighbors = nil
		rec.Active = true
		recs = append(recs, rec)
		dest = append(dest, d)
		for _, g := range ghosts[k] {
			rec.Active = false
			recs = append(recs, rec)
			dest = append(dest, g)
		}
	}
	return recs, dest
}

func branchRecords[R any](branches []*BranchData[R], gp *partition.GraphPartitioner) ([]BranchData[R], []int) {
	var recs []BranchData[R]
	var dest []int
	ghosts := gp.GhostEdgeDestinations()
	for k, d := range gp.EdgeDestinations() {
		rec := *branches[k]
		rec.GlobalBus1, rec.GlobalBus2 = gp.GlobalEdgeEnds(k)
		rec.Active = true
		recs = append(recs, rec)
		dest = append(dest, d)
		if g := ghosts[k]; g != partition.NotGhosted {
			rec.Active = false
			recs = append(recs, rec)
			dest = append(dest, g)
		}
	}
	return recs, dest
}

// install replaces the local arrays with the shuffled records: owned before
// ghosts, each by global index. Branch endpoints are resolved to local
// indices and bus neighbor lists rebuilt.
func (n *Network[B, R]) install(buses []BusData[B], branches []BranchData[R]) error {
	sort.SliceStable(buses, func(i, j int) bool {
		if buses[i].Active != buses[j].Active {
			return buses[i].Active
		}
		return buses[i].GlobalIndex < buses[j].GlobalIndex
	})
	sort.SliceStable(branches, func(i, j int) bool {
		if branches[i].Active != branches[j].Active {
			return branches[i].Active
		}
		return branches[i].GlobalIndex < branches[j].GlobalIndex
	})

	n.FreeBusExchange()
	n.FreeBranchExchange()

	n.buses = make([]*BusData[B], len(buses))
	local := make(map[int]int, len(buses))
	for i := range buses {
		b := &buses[i]
		if _, dup := local[b.GlobalIndex]; dup {
			return n.e.Fail(fmt.Errorf("%w: bus %d", ErrDuplicateGlobal, b.GlobalIndex))
		}
		local[b.GlobalIndex] = i
		if isNil(any(b.Bus)) {
			b.Bus = n.newBus()
		}
		if b.Data == nil {
			b.Data = component.NewDataCollection()
		}
		b.BranchNeighbors = nil
		n.buses[i] = b
	}

	n.branches = make([]*BranchData[R], len(branches))
	for i := range branches {
		br := &branches[i]
		l1, ok1 := local[br.GlobalBus1]
		l2, ok2 := local[br.GlobalBus2]
		if !ok1 || !ok2 {
			return n.e.Fail(fmt.Errorf("%w: branch %d (%d, %d)",
				ErrMissingEndpoint, br.GlobalIndex, br.GlobalBus1, br.GlobalBus2))
		}
		br.LocalBus1, br.LocalBus2 = l1, l2
		if isNil(any(br.Branch)) {
			br.Branch = n.newBranch()
		}
		if br.Data == nil {
			br.Data = component.NewDataCollection()
		}
		n.branches[i] = br
		n.buses[l1].BranchNeighbors = append(n.buses[l1].BranchNeighbors, i)
		if l2 != l1 {
			n.buses[l2].BranchNeighbors = append(n.buses[l2].BranchNeighbors, i)
		}
	}
	return nil
}
