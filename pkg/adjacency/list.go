// Package adjacency computes, for nodes spread over many ranks, the global
// indices of their neighbors given edges expressed in original node ids.
package adjacency

import (
	"fmt"
	"time"

	"github.com/dd0wney/cluso-gridgraph/pkg/comm"
	"github.com/dd0wney/cluso-gridgraph/pkg/env"
	"github.com/dd0wney/cluso-gridgraph/pkg/garray"
	"github.com/dd0wney/cluso-gridgraph/pkg/logging"
)

// Unresolved marks an edge endpoint whose global index is not known yet.
const Unresolved = -1

type edge struct {
	index     int
	original1 int
	original2 int
	global1   int
	global2   int
}

// List is one rank's share of a distributed adjacency computation. Global
// node indices must be dense in [0, total nodes).
type List struct {
	e         *env.Env
	global    []int
	original  []int
	edges     []edge
	adjacency [][]int
	ready     bool
}

// New creates an empty list.
func New(e *env.Env) *List {
	return &List{e: e}
}

// AddNode registers a local node.
func (l *List) AddNode(globalIndex, originalIndex int) {
	l.global = append(l.global, globalIndex)
	l.original = append(l.original, originalIndex)
	l.ready = false
}

// AddEdge registers a local edge between two nodes named by original id.
func (l *List) AddEdge(globalIndex, original1, original2 int) {
	l.edges = append(l.edges, edge{
		index:     globalIndex,
		original1: original1,
		original2: original2,
		global1:   Unresolved,
		global2:   Unresolved,
	})
	l.ready = false
}

func (l *List) Nodes() int { return len(l.global) }
func (l *List) Edges() int { return len(l.edges) }

func (l *List) NodeIndex(i int) int { return l.global[i] }
func (l *List) EdgeIndex(i int) int { return l.edges[i].index }

// Edge returns the global indices of edge i's endpoints, or Unresolved
// before Ready.
func (l *List) Edge(i int) (g1, g2 int) {
	return l.edges[i].global1, l.edges[i].global2
}

// IsReady reports whether Ready has completed since the last mutation.
func (l *List) IsReady() bool { return l.ready }

// NeighborCount returns the number of neighbors of local node i.
func (l *List) NeighborCount(i int) int {
	if !l.ready || i < 0 || i >= len(l.adjacency) {
		return 0
	}
	return len(l.adjacency[i])
}

// Neighbors returns the global indices adjacent to local node i.
func (l *List) Neighbors(i int) []int {
	if !l.ready || i < 0 || i >= len(l.adjacency) {
		return nil
	}
	return l.adjacency[i]
}

// Adjacency returns neighbor lists for all local nodes, or ErrNotReady.
func (l *List) Adjacency() ([][]int, error) {
	if !l.ready {
		return nil, ErrNotReady
	}
	return l.adjacency, nil
}

// Ready resolves edge endpoints to global indices and builds the neighbor
// lists. Collective.
func (l *List) Ready() error {
	start := time.Now()
	err := l.e.Collective("adjacency.ready", func() error {
		totalNodes, err := comm.AllReduce(l.e.Comm, len(l.global), comm.Sum)
		if err != nil {
			return err
		}
		totalEdges, err := comm.AllReduce(l.e.Comm, len(l.edges), comm.Sum)
		if err != nil {
			return err
		}
		if err := l.resolveEndpoints(totalNodes); err != nil {
			return err
		}
		return l.buildAdjacency(totalEdges)
	})
	if err != nil {
		return err
	}
	l.ready = true
	d := time.Since(start)
	l.e.Metrics.RecordAdjacency(d)
	l.e.Logger.Debug("adjacency ready",
		logging.Int("nodes", len(l.global)),
		logging.Int("edges", len(l.edges)),
		logging.Latency(d))
	return nil
}

// resolveEndpoints publishes original ids at their global slots, then visits
// every shard in turn starting with the next rank to translate edge
// endpoints.
func (l *List) resolveEndpoints(totalNodes int) error {
	nodes, err := garray.New[int](l.e, totalNodes)
	if err != nil {
		return err
	}
	nodes.Fill(Unresolved)
	if err := nodes.Scatter(l.global, l.original); err != nil {
		return err
	}

	for i := range l.edges {
		l.edges[i].global1 = Unresolved
		l.edges[i].global2 = Unresolved
	}

	me, n := l.e.Rank(), l.e.Size()
	for p := 0; p < n; p++ {
		lo, hi := nodes.Distribution((me + p) % n)
		shard, err := nodes.Get(lo, hi)
		if err != nil {
			return err
		}
		byOriginal := make(map[int]int, len(shard))
		for k, orig := range shard {
			if orig == Unresolved {
				continue
			}
			if _, dup := byOriginal[orig]; !dup {
				byOriginal[orig] = lo + k
			}
		}
		for i := range l.edges {
			e := &l.edges[i]
			if g, ok := byOriginal[e.original1]; ok {
				e.global1 = g
			}
			if g, ok := byOriginal[e.original2]; ok {
				e.global2 = g
			}
		}
	}

	for _, e := range l.edges {
		if e.global1 == Unresolved || e.global2 == Unresolved {
			return l.e.Fail(fmt.Errorf("%w: edge %d (%d, %d)",
				ErrUnresolvedEndpoint, e.index, e.original1, e.original2))
		}
	}
	return nil
}

// buildAdjacency publishes resolved endpoint pairs and scans every pair
// shard, appending the far end to each local node it touches.
func (l *List) buildAdjacency(totalEdges int) error {
	me, n := l.e.Rank(), l.e.Size()
	starts := make([]int, n)
	for p := 1; p < n; p++ {
		starts[p] = 2 * int(float64(p)*(float64(totalEdges)/float64(n)))
	}
	pairs, err := garray.NewIrregular[int](l.e, 2*totalEdges, starts)
	if err != nil {
		return err
	}

	offset, err := comm.ExclusiveScan(l.e.Comm, 2*len(l.edges))
	if err != nil {
		return err
	}
	ends := make([]int, 2*len(l.edges))
	for i, e := range l.edges {
		ends[2*i] = e.global1
		ends[2*i+1] = e.global2
	}
	if err := pairs.Put(offset, offset+len(ends), ends); err != nil {
		return err
	}

	local := make(map[int]int, len(l.global))
	for i, g := range l.global {
		local[g] = i
	}
	l.adjacency = make([][]int, len(l.global))
	for p := 0; p < n; p++ {
		lo, hi := pairs.Distribution((me + p) % n)
		shard, err := pairs.Get(lo, hi)
		if err != nil {
			return err
		}
		for k := 0; k+1 < len(shard); k += 2 {
			g1, g2 := shard[k], shard[k+1]
			if i, ok := local[g1]; ok {
				l.adjacency[i] = append(l.adjacency[i], g2)
			}
			if i, ok := local[g2]; ok {
				l.adjacency[i] = append(l.adjacency[i], g1)
			}
		}
	}
	return nil
}
