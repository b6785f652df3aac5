package adjacency

import (
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dd0wney/cluso-gridgraph/pkg/comm"
	"github.com/dd0wney/cluso-gridgraph/pkg/env"
)

// Original ids are offset so they never coincide with global indices.
const origOffset = 1000

func TestReady_Chain(t *testing.T) {
	const nodes = 20
	for _, ranks := range []int{1, 2, 3, 4} {
		t.Run(fmt.Sprintf("ranks=%d", ranks), func(t *testing.T) {
			err := comm.RunLocal(ranks, func(c comm.Communicator) error {
				l := New(env.New(c))
				// Nodes dealt round-robin, edges held by the rank after the
				// owner of their first endpoint.
				for g := c.Rank(); g < nodes; g += ranks {
					l.AddNode(g, g+origOffset)
				}
				for k := 0; k < nodes-1; k++ {
					if (k+1)%ranks == c.Rank() {
						l.AddEdge(k, k+origOffset, k+1+origOffset)
					}
				}
				if err := l.Ready(); err != nil {
					return err
				}
				for i := 0; i < l.Edges(); i++ {
					g1, g2 := l.Edge(i)
					assert.Equal(t, l.EdgeIndex(i), g1)
					assert.Equal(t, l.EdgeIndex(i)+1, g2)
				}
				for i := 0; i < l.Nodes(); i++ {
					g := l.NodeIndex(i)
					var want []int
					if g > 0 {
						want = append(want, g-1)
					}
					if g < nodes-1 {
						want = append(want, g+1)
					}
					got := append([]int(nil), l.Neighbors(i)...)
					sort.Ints(got)
					assert.Equal(t, want, got, "neighbors of %d", g)
					assert.Equal(t, len(want), l.NeighborCount(i))
				}
				return nil
			})
			if err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestReady_EmptyRanks(t *testing.T) {
	err := comm.RunLocal(3, func(c comm.Communicator) error {
		l := New(env.New(c))
		if c.Rank() == 1 {
			l.AddNode(0, 7)
			l.AddNode(1, 9)
			l.AddEdge(0, 9, 7)
		}
		if err := l.Ready(); err != nil {
			return err
		}
		if c.Rank() == 1 {
			assert.Equal(t, []int{1}, l.Neighbors(0))
			assert.Equal(t, []int{0}, l.Neighbors(1))
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestReady_UnresolvedEndpoint(t *testing.T) {
	err := comm.RunLocal(2, func(c comm.Communicator) error {
		l := New(env.New(c))
		l.AddNode(c.Rank(), c.Rank()+origOffset)
		if c.Rank() == 0 {
			l.AddEdge(0, origOffset, 42)
		}
		return l.Ready()
	})
	if !errors.Is(err, ErrUnresolvedEndpoint) {
		t.Fatalf("expected ErrUnresolvedEndpoint, got %v", err)
	}
}

func TestAccessorsBeforeReady(t *testing.T) {
	w, _ := comm.NewLocalWorld(1)
	l := New(env.New(w.Comm(0)))
	l.AddNode(0, 1)
	if l.NeighborCount(0) != 0 || l.Neighbors(0) != nil {
		t.Error("Expected empty neighbors before Ready")
	}
	if _, err := l.Adjacency(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Expected ErrNotReady, got %v", err)
	}
}
