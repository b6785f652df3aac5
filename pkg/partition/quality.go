package partition

import (
	"gonum.org/v1/gonum/stat"

	"github.com/dd0wney/cluso-gridgraph/pkg/comm"
	"github.com/dd0wney/cluso-gridgraph/pkg/env"
	"github.com/dd0wney/cluso-gridgraph/pkg/logging"
)

// Metrics contains partitioning quality metrics
type Metrics struct {
	PartitionSizes []int // Nodes per partition
	EdgeCuts       []int // Cut edges per owning partition
	TotalEdges     int
	LoadBalance    float64 // 0-1 (1 = perfect balance)
	CutRatio       float64 // Fraction of edges that are cuts
}

// ComputeMetrics analyzes the quality of a completed partition. Collective;
// every rank receives the same result.
func ComputeMetrics(e *env.Env, gp *GraphPartitioner) (*Metrics, error) {
	if !gp.Done() {
		return nil, ErrNotPartitioned
	}
	n := e.Size()
	local := make([]int, 2*n+1)
	for _, d := range gp.NodeDestinations() {
		local[d]++
	}
	for i, d := range gp.EdgeDestinations() {
		if gp.GhostEdgeDestinations()[i] != NotGhosted {
			local[n+d]++
		}
	}
	local[2*n] = gp.Edges()

	all, err := comm.AllReduceSlice(e.Comm, local, comm.Sum)
	if err != nil {
		return nil, err
	}
	m := &Metrics{
		PartitionSizes: all[:n],
		EdgeCuts:       all[n : 2*n],
		TotalEdges:     all[2*n],
		LoadBalance:    loadBalance(all[:n]),
	}
	totalCuts := 0
	for _, c := range m.EdgeCuts {
		totalCuts += c
	}
	if m.TotalEdges > 0 {
		m.CutRatio = float64(totalCuts) / float64(m.TotalEdges)
	}

	e.Metrics.SetPartitionQuality(m.CutRatio, m.LoadBalance)
	e.Logger.Debug("partition quality",
		logging.Float64("cut_ratio", m.CutRatio),
		logging.Float64("load_balance", m.LoadBalance))
	return m, nil
}

// loadBalance maps the population variance of partition sizes to (0, 1],
// 1 meaning every partition has the same size.
func loadBalance(sizes []int) float64 {
	xs := make([]float64, len(sizes))
	for i, s := range sizes {
		xs[i] = float64(s)
	}
	mean, variance := stat.PopMeanVariance(xs, nil)
	if variance == 0 || mean == 0 {
		return 1.0
	}
	return 1.0 / (1.0 + variance/mean)
}

// NodeMigration represents a suggested rebalancing operation
type NodeMigration struct {
	FromPartition int
	ToPartition   int
	NodeCount     int
}

// SuggestMigrations pairs partitions more than 10% above the mean size with
// the most underloaded partitions.
func SuggestMigrations(m *Metrics) []NodeMigration {
	partCount := len(m.PartitionSizes)
	if partCount == 0 {
		return nil
	}
	total := 0
	for _, size := range m.PartitionSizes {
		total += size
	}
	avgSize := total / partCount
	threshold := float64(avgSize) * 0.1 // 10% tolerance

	deficit := make([]int, partCount)
	for p, size := range m.PartitionSizes {
		if size < avgSize {
			deficit[p] = avgSize - size
		}
	}

	var migrations []NodeMigration
	for from, size := range m.PartitionSizes {
		if float64(size) <= float64(avgSize)+threshold {
			continue
		}
		excess := size - avgSize
		for excess > 0 {
			to := -1
			for p, d := range deficit {
				if d > 0 && (to < 0 || d > deficit[to]) {
					to = p
				}
			}
			if to < 0 {
				break
			}
			moved := min(excess, deficit[to])
			migrations = append(migrations, NodeMigration{
				FromPartition: from,
				ToPartition:   to,
				NodeCount:     moved,
			})
			deficit[to] -= moved
			excess -= moved
		}
	}
	return migrations
}
