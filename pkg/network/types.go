package network

import (
	"github.com/dd0wney/cluso-gridgraph/pkg/component"
)

// Unassigned marks an index that has not been set, or a lookup that found
// nothing.
const Unassigned = -1

// BusData is everything a rank holds for one bus. Exported fields travel
// with the bus when the network is partitioned, so the payload type B must
// be msgpack serializable.
type BusData[B any] struct {
	OriginalIndex   int                       `msgpack:"orig"`
	GlobalIndex     int                       `msgpack:"global"`
	Active          bool                      `msgpack:"active"`
	RefFlag         bool                      `msgpack:"ref"`
	BranchNeighbors []int                     `msgpack:"-"`
	Bus             B                         `msgpack:"bus"`
	Data            *component.DataCollection `msgpack:"data"`
}

// BranchData is everything a rank holds for one branch.
type BranchData[R any] struct {
	GlobalIndex  int                       `msgpack:"global"`
	OriginalBus1 int                       `msgpack:"orig1"`
	OriginalBus2 int                       `msgpack:"orig2"`
	GlobalBus1   int                       `msgpack:"global1"`
	GlobalBus2   int                       `msgpack:"global2"`
	LocalBus1    int                       `msgpack:"-"`
	LocalBus2    int                       `msgpack:"-"`
	Active       bool                      `msgpack:"active"`
	Switched     bool                      `msgpack:"switched"`
	Branch       R                         `msgpack:"branch"`
	Data         *component.DataCollection `msgpack:"data"`
}

// Stats counts what a rank holds.
type Stats struct {
	OwnedBuses    int
	GhostBuses    int
	OwnedBranches int
	GhostBranches int
}

type branchKey struct {
	orig1, orig2 int
}
