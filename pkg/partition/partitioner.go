package partition

import (
	"fmt"
	"sort"
	"time"

	"github.com/dd0wney/cluso-gridgraph/pkg/adjacency"
	"github.com/dd0wney/cluso-gridgraph/pkg/comm"
	"github.com/dd0wney/cluso-gridgraph/pkg/env"
	"github.com/dd0wney/cluso-gridgraph/pkg/garray"
	"github.com/dd0wney/cluso-gridgraph/pkg/logging"
)

// NotGhosted is the ghost destination of an edge whose endpoints share an
// owner.
const NotGhosted = -1

// GraphPartitioner turns a Strategy's node assignment into owner and ghost
// destinations for the nodes and edges held on this rank.
type GraphPartitioner struct {
	e        *env.Env
	strategy Strategy
	adj      *adjacency.List

	nodeDest      []int
	edgeDest      []int
	ghostNodeDest [][]int
	ghostEdgeDest []int
	done          bool
}

// NewGraphPartitioner creates an empty partitioner.
func NewGraphPartitioner(e *env.Env, strategy Strategy) *GraphPartitioner {
	return &GraphPartitioner{
		e:        e,
		strategy: strategy,
		adj:      adjacency.New(e),
	}
}

// AddNode registers a node held on this rank.
func (gp *GraphPartitioner) AddNode(globalIndex, originalIndex int) {
	gp.adj.AddNode(globalIndex, originalIndex)
	gp.done = false
}

// AddEdge registers an edge held on this rank.
func (gp *GraphPartitioner) AddEdge(globalIndex, original1, original2 int) {
	gp.adj.AddEdge(globalIndex, original1, original2)
	gp.done = false
}

func (gp *GraphPartitioner) Nodes() int { return gp.adj.Nodes() }
func (gp *GraphPartitioner) Edges() int { return gp.adj.Edges() }

// Strategy returns the strategy in use.
func (gp *GraphPartitioner) Strategy() Strategy { return gp.strategy }

// Partition computes destinations for every local node and edge. Collective.
func (gp *GraphPartitioner) Partition() error {
	err := gp.e.Collective("partition", func() error {
		if err := gp.phase("adjacency", gp.adj.Ready); err != nil {
			return err
		}
		if err := gp.phase("assign", gp.assign); err != nil {
			return err
		}
		return gp.phase("destinations", gp.destinations)
	})
	if err != nil {
		return err
	}
	gp.done = true
	gp.e.Metrics.RecordPartition()
	gp.e.Logger.Info("graph partitioned",
		logging.String("strategy", gp.strategy.Name()),
		logging.Int("nodes", gp.adj.Nodes()),
		logging.Int("edges", gp.adj.Edges()))
	return nil
}

func (gp *GraphPartitioner) phase(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	gp.e.Metrics.RecordPartitionPhase(name, time.Since(start))
	return err
}

func (gp *GraphPartitioner) assign() error {
	total, err := comm.AllReduce(gp.e.Comm, gp.adj.Nodes(), comm.Sum)
	if err != nil {
		return err
	}
	nodes := make([]int, gp.adj.Nodes())
	for i := range nodes {
		nodes[i] = gp.adj.NodeIndex(i)
	}
	adj, err := gp.adj.Adjacency()
	if err != nil {
		return err
	}
	dest, err := gp.strategy.Assign(Input{
		Rank:       gp.e.Rank(),
		Size:       gp.e.Size(),
		TotalNodes: total,
		Nodes:      nodes,
		Adjacency:  adj,
	})
	if err != nil {
		return gp.e.Fail(fmt.Errorf("strategy %s: %w", gp.strategy.Name(), err))
	}
	if len(dest) != len(nodes) {
		return gp.e.Fail(fmt.Errorf("%w: %d destinations for %d nodes",
			ErrInvalidAssignment, len(dest), len(nodes)))
	}
	for i, d := range dest {
		if d < 0 || d >= gp.e.Size() {
			return gp.e.Fail(fmt.Errorf("%w: node %d sent to rank %d",
				ErrInvalidAssignment, nodes[i], d))
		}
	}
	gp.nodeDest = dest
	return nil
}

// destinations publishes node owners by global index, then derives edge
// owners from endpoint 1, edge ghosts from endpoint 2 and node ghosts from
// neighbor owners.
func (gp *GraphPartitioner) destinations() error {
	total, err := comm.AllReduce(gp.e.Comm, gp.adj.Nodes(), comm.Sum)
	if err != nil {
		return err
	}
	owners, err := garray.New[int](gp.e, total)
	if err != nil {
		return err
	}
	nodes := make([]int, gp.adj.Nodes())
	for i := range nodes {
		nodes[i] = gp.adj.NodeIndex(i)
	}
	if err := owners.Scatter(nodes, gp.nodeDest); err != nil {
		return err
	}

	nEdges := gp.adj.Edges()
	ends := make([]int, 2*nEdges)
	for i := 0; i < nEdges; i++ {
		ends[2*i], ends[2*i+1] = gp.adj.Edge(i)
	}
	endOwners, err := owners.Gather(ends)
	if err != nil {
		return err
	}
	gp.edgeDest = make([]int, nEdges)
	gp.ghostEdgeDest = make([]int, nEdges)
	for i := 0; i < nEdges; i++ {
		d1, d2 := endOwners[2*i], endOwners[2*i+1]
		gp.edgeDest[i] = d1
		gp.ghostEdgeDest[i] = NotGhosted
		if d2 != d1 {
			gp.ghostEdgeDest[i] = d2
		}
	}

	var neighbors []int
	for i := range nodes {
		neighbors = append(neighbors, gp.adj.Neighbors(i)...)
	}
	neighborOwners, err := owners.Gather(neighbors)
	if err != nil {
		return err
	}
	gp.ghostNodeDest = make([][]int, len(nodes))
	k := 0
	for i := range nodes {
		own := gp.nodeDest[i]
		var ghosts []int
		for range gp.adj.Neighbors(i) {
			if d := neighborOwners[k]; d != own {
				ghosts = append(ghosts, d)
			}
			k++
		}
		gp.ghostNodeDest[i] = sortedUnique(ghosts)
	}
	return nil
}

func sortedUnique(xs []int) []int {
	if len(xs) == 0 {
		return nil
	}
	sort.Ints(xs)
	out := xs[:1]
	for _, x := range xs[1:] {
		if x != out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out
}

// NodeDestinations returns the owner rank of each local node.
func (gp *GraphPartitioner) NodeDestinations() []int { return gp.nodeDest }

// EdgeDestinations returns the owner rank of each local edge.
func (gp *GraphPartitioner) EdgeDestinations() []int { return gp.edgeDest }

// GhostNodeDestinations returns, per local node, the ranks needing a ghost
// copy. Each list is sorted and free of duplicates.
func (gp *GraphPartitioner) GhostNodeDestinations() [][]int { return gp.ghostNodeDest }

// GhostEdgeDestinations returns, per local edge, the rank needing a ghost
// copy or NotGhosted.
func (gp *GraphPartitioner) GhostEdgeDestinations() []int { return gp.ghostEdgeDest }

// GlobalEdgeEnds returns the resolved global endpoints of local edge i.
func (gp *GraphPartitioner) GlobalEdgeEnds(i int) (g1, g2 int) {
	return gp.adj.Edge(i)
}

// NodeIndex and EdgeIndex return global indices of local entries.
func (gp *GraphPartitioner) NodeIndex(i int) int { return gp.adj.NodeIndex(i) }
func (gp *GraphPartitioner) EdgeIndex(i int) int { return gp.adj.EdgeIndex(i) }

// Done reports whether Partition has completed since the last mutation.
func (gp *GraphPartitioner) Done() bool { return gp.done }
