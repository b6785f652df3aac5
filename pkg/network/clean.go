package network

import (
	"github.com/dd0wney/cluso-gridgraph/pkg/logging"
)

// Clean drops every inactive bus and branch, leaving only what this rank
// owns, and renumbers local indices. A kept branch whose endpoint was a
// ghost keeps Unassigned for that local endpoint. Exchange buffers and
// schedules are released. Collective; a second call changes nothing.
func (n *Network[B, R]) Clean() error {
	err := n.e.Collective("network.clean", func() error {
		n.FreeBusExchange()
		n.FreeBranchExchange()

		busRemap := make([]int, len(n.buses))
		buses := n.buses[:0:0]
		for i, b := range n.buses {
			busRemap[i] = Unassigned
			if b.Active {
				busRemap[i] = len(buses)
				buses = append(buses, b)
			}
		}

		branchRemap := make([]int, len(n.branches))
		branches := n.branches[:0:0]
		for i, br := range n.branches {
			branchRemap[i] = Unassigned
			if !br.Active {
				continue
			}
			branchRemap[i] = len(branches)
			br.LocalBus1 = remap(busRemap, br.LocalBus1)
			br.LocalBus2 = remap(busRemap, br.LocalBus2)
			branches = append(branches, br)
		}

		for _, b := range buses {
			kept := b.BranchNeighbors[:0]
			for _, j := range b.BranchNeighbors {
				if k := remap(branchRemap, j); k != Unassigned {
					kept = append(kept, k)
				}
			}
			b.BranchNeighbors = kept
		}

		dropped := len(n.buses) - len(buses) + len(n.branches) - len(branches)
		n.buses = buses
		n.branches = branches
		n.e.Metrics.RecordClean()
		n.e.Logger.Debug("network cleaned",
			logging.Buses(len(buses)),
			logging.Branches(len(branches)),
			logging.Int("dropped", dropped))
		return nil
	})
	if err != nil {
		return err
	}
	return n.BuildIndexMaps()
}

func remap(m []int, i int) int {
	if i < 0 || i >= len(m) {
		return Unassigned
	}
	return m[i]
}
