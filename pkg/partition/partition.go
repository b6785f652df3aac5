// Package partition decides which rank owns each node and edge of a
// distributed graph and where ghost copies are needed.
package partition

import (
	"encoding/binary"
	"fmt"

	"github.com/spaolacci/murmur3"
)

// Input is what a Strategy sees on one rank: the nodes currently held here
// and their neighbors, all by global index.
type Input struct {
	Rank       int
	Size       int
	TotalNodes int
	Nodes      []int
	Adjacency  [][]int
}

// Strategy assigns a destination rank to every node in Input.Nodes. It is
// called on every rank; implementations that communicate must do so
// collectively.
type Strategy interface {
	Name() string
	Assign(in Input) ([]int, error)
}

// PartitionStrategy maps a single node id to a partition.
type PartitionStrategy interface {
	GetPartition(nodeID uint64) int
	GetPartitionCount() int
}

// HashPartition partitions nodes by hash (simplest, good load balance)
type HashPartition struct {
	partitionCount int
}

// NewHashPartition creates a hash-based partitioning strategy
func NewHashPartition(partitionCount int) *HashPartition {
	return &HashPartition{
		partitionCount: partitionCount,
	}
}

// GetPartition returns which partition a node belongs to
func (hp *HashPartition) GetPartition(nodeID uint64) int {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], nodeID)
	return int(murmur3.Sum64(b[:]) % uint64(hp.partitionCount))
}

// GetPartitionCount returns total number of partitions
func (hp *HashPartition) GetPartitionCount() int {
	return hp.partitionCount
}

func (hp *HashPartition) Name() string { return "hash" }

func (hp *HashPartition) Assign(in Input) ([]int, error) {
	if hp.partitionCount != in.Size {
		return nil, fmt.Errorf("%w: %d partitions for %d ranks",
			ErrInvalidAssignment, hp.partitionCount, in.Size)
	}
	dest := make([]int, len(in.Nodes))
	for i, g := range in.Nodes {
		dest[i] = hp.GetPartition(uint64(g))
	}
	return dest, nil
}

// RangePartition partitions by contiguous global-index ranges. Consecutive
// ids stay together, so chains and grids numbered in order cut few edges.
type RangePartition struct {
	partitionCount int
	totalNodes     uint64
}

// NewRangePartition creates range-based partitioning over ids [0, totalNodes).
func NewRangePartition(partitionCount int, totalNodes uint64) *RangePartition {
	return &RangePartition{
		partitionCount: partitionCount,
		totalNodes:     totalNodes,
	}
}

// GetPartition returns partition for a node. Ids at or beyond totalNodes
// fall in the last partition.
func (rp *RangePartition) GetPartition(nodeID uint64) int {
	if rp.totalNodes == 0 || nodeID >= rp.totalNodes {
		return rp.partitionCount - 1
	}
	return int(nodeID * uint64(rp.partitionCount) / rp.totalNodes)
}

// GetPartitionCount returns total partitions
func (rp *RangePartition) GetPartitionCount() int {
	return rp.partitionCount
}

func (rp *RangePartition) Name() string { return "range" }

// Assign sizes the ranges from the collective node count, ignoring the
// totalNodes given at construction.
func (rp *RangePartition) Assign(in Input) ([]int, error) {
	if rp.partitionCount != in.Size {
		return nil, fmt.Errorf("%w: %d partitions for %d ranks",
			ErrInvalidAssignment, rp.partitionCount, in.Size)
	}
	sized := NewRangePartition(in.Size, uint64(in.TotalNodes))
	dest := make([]int, len(in.Nodes))
	for i, g := range in.Nodes {
		dest[i] = sized.GetPartition(uint64(g))
	}
	return dest, nil
}

// KeepPartition leaves every node on the rank that holds it.
type KeepPartition struct{}

func (KeepPartition) Name() string { return "keep" }

func (KeepPartition) Assign(in Input) ([]int, error) {
	dest := make([]int, len(in.Nodes))
	for i := range dest {
		dest[i] = in.Rank
	}
	return dest, nil
}

var (
	_ Strategy          = (*HashPartition)(nil)
	_ Strategy          = (*RangePartition)(nil)
	_ Strategy          = KeepPartition{}
	_ PartitionStrategy = (*HashPartition)(nil)
	_ PartitionStrategy = (*RangePartition)(nil)
)

// StrategyByName builds the named strategy for a communicator of size ranks.
func StrategyByName(name string, size int) (Strategy, error) {
	switch name {
	case "", "range":
		return NewRangePartition(size, 0), nil
	case "hash":
		return NewHashPartition(size), nil
	case "keep":
		return KeepPartition{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}
