package network

import (
	"sort"

	"github.com/dd0wney/cluso-gridgraph/pkg/comm"
	"github.com/dd0wney/cluso-gridgraph/pkg/logging"
)

// BuildIndexMaps rebuilds the original-index lookups after bulk changes to
// original indices. Collective: ranks leave together and agree on the
// network totals, which are logged.
func (n *Network[B, R]) BuildIndexMaps() error {
	n.busMap = make(map[int][]int, len(n.buses))
	for i, b := range n.buses {
		n.busMap[b.OriginalIndex] = append(n.busMap[b.OriginalIndex], i)
	}
	n.branchMap = make(map[branchKey][]int, len(n.branches))
	for i, br := range n.branches {
		k := branchKey{br.OriginalBus1, br.OriginalBus2}
		n.branchMap[k] = append(n.branchMap[k], i)
	}

	s := n.Stats()
	totals, err := comm.AllReduceSlice(n.e.Comm, []int{s.OwnedBuses, s.OwnedBranches}, comm.Sum)
	if err != nil {
		return err
	}
	n.e.Logger.Debug("index maps built",
		logging.Buses(len(n.buses)),
		logging.Branches(len(n.branches)),
		logging.Int("total_buses", totals[0]),
		logging.Int("total_branches", totals[1]))
	return nil
}

// GetLocalBusIndices returns every local bus, owned or ghost, with the given
// original index. Valid after BuildIndexMaps.
func (n *Network[B, R]) GetLocalBusIndices(original int) []int {
	return append([]int(nil), n.busMap[original]...)
}

// GetLocalBranchIndices returns every local branch between the two original
// buses, in either orientation, in ascending order. Valid after
// BuildIndexMaps.
func (n *Network[B, R]) GetLocalBranchIndices(original1, original2 int) []int {
	out := append([]int(nil), n.branchMap[branchKey{original1, original2}]...)
	if original1 != original2 {
		out = append(out, n.branchMap[branchKey{original2, original1}]...)
	}
	sort.Ints(out)
	return out
}

// DetectSwitched marks branches that repeat an earlier local branch with
// its endpoints in reverse order, and returns how many were marked.
func (n *Network[B, R]) DetectSwitched() int {
	seen := make(map[branchKey]bool, len(n.branches))
	marked := 0
	for _, br := range n.branches {
		k := branchKey{br.OriginalBus1, br.OriginalBus2}
		rev := branchKey{br.OriginalBus2, br.OriginalBus1}
		if k != rev && seen[rev] && !seen[k] {
			br.Switched = true
			marked++
		}
		seen[k] = true
	}
	return marked
}
