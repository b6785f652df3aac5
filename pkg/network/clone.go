package network

import (
	"github.com/dd0wney/cluso-gridgraph/pkg/component"
)

// Clone builds a network with the same topology, indices, flags and
// reference bus as src, with fresh payloads from newBus and newBranch and
// deep copies of the data collections. The clone uses src's strategy and
// has no exchange buffers. Collective.
func Clone[B2, R2, B, R any](src *Network[B, R], newBus func() B2, newBranch func() R2) (*Network[B2, R2], error) {
	dst := New[B2, R2](src.e, newBus, newBranch, WithStrategy(src.strategy))
	dst.buses = make([]*BusData[B2], len(src.buses))
	for i, b := range src.buses {
		dst.buses[i] = &BusData[B2]{
			OriginalIndex:   b.OriginalIndex,
			GlobalIndex:     b.GlobalIndex,
			Active:          b.Active,
			RefFlag:         b.RefFlag,
			BranchNeighbors: append([]int(nil), b.BranchNeighbors...),
			Bus:             newBus(),
			Data:            cloneData(b.Data),
		}
		if rs, ok := any(dst.buses[i].Bus).(component.ReferenceSetter); ok && b.RefFlag {
			rs.SetReferenceBus(true)
		}
	}
	dst.branches = make([]*BranchData[R2], len(src.branches))
	for i, br := range src.branches {
		dst.branches[i] = &BranchData[R2]{
			GlobalIndex:  br.GlobalIndex,
			OriginalBus1: br.OriginalBus1,
			OriginalBus2: br.OriginalBus2,
			GlobalBus1:   br.GlobalBus1,
			GlobalBus2:   br.GlobalBus2,
			LocalBus1:    br.LocalBus1,
			LocalBus2:    br.LocalBus2,
			Active:       br.Active,
			Switched:     br.Switched,
			Branch:       newBranch(),
			Data:         cloneData(br.Data),
		}
	}
	if err := dst.BuildIndexMaps(); err != nil {
		return nil, err
	}
	return dst, nil
}

func cloneData(d *component.DataCollection) *component.DataCollection {
	if d == nil {
		return component.NewDataCollection()
	}
	return d.Clone()
}
