package network

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/dd0wney/cluso-gridgraph/pkg/shuffle"
)

type dotBus struct {
	Global   int `msgpack:"g"`
	Original int `msgpack:"o"`
	Rank     int `msgpack:"r"`
}

type dotBranch struct {
	Global  int `msgpack:"g"`
	Global1 int `msgpack:"g1"`
	Global2 int `msgpack:"g2"`
	Rank    int `msgpack:"r"`
}

// WriteGraph writes the network as an undirected Graphviz graph to w on
// rank 0. Nodes are named by global index, labelled with the original index
// and colored by owning rank. Other ranks only contribute their owned
// entities and do not touch w. Collective.
func (n *Network[B, R]) WriteGraph(w io.Writer) error {
	rank := n.e.Rank()
	var buses []dotBus
	for _, b := range n.buses {
		if b.Active {
			buses = append(buses, dotBus{Global: b.GlobalIndex, Original: b.OriginalIndex, Rank: rank})
		}
	}
	var branches []dotBranch
	for _, br := range n.branches {
		if br.Active {
			branches = append(branches, dotBranch{
				Global: br.GlobalIndex, Global1: br.GlobalBus1, Global2: br.GlobalBus2, Rank: rank,
			})
		}
	}

	allBuses, err := shuffle.New[dotBus](n.e).Shuffle(buses, make([]int, len(buses)))
	if err != nil {
		return err
	}
	allBranches, err := shuffle.New[dotBranch](n.e).Shuffle(branches, make([]int, len(branches)))
	if err != nil {
		return err
	}
	if rank != 0 {
		return nil
	}

	sort.Slice(allBuses, func(i, j int) bool { return allBuses[i].Global < allBuses[j].Global })
	sort.Slice(allBranches, func(i, j int) bool { return allBranches[i].Global < allBranches[j].Global })

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "graph network {")
	for _, b := range allBuses {
		fmt.Fprintf(bw, "  b%d [label=\"%d\", colorscheme=set19, color=%d];\n",
			b.Global, b.Original, b.Rank%9+1)
	}
	for _, br := range allBranches {
		fmt.Fprintf(bw, "  b%d -- b%d [colorscheme=set19, color=%d];\n", br.Global1, br.Global2, br.Rank%9+1)
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
