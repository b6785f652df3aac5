package comm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var worldSizes = []int{1, 2, 3, 5}

func TestBarrierAndBroadcast(t *testing.T) {
	for _, n := range worldSizes {
		t.Run(fmt.Sprintf("ranks=%d", n), func(t *testing.T) {
			err := RunLocal(n, func(c Communicator) error {
				if err := Barrier(c); err != nil {
					return err
				}
				root := n - 1
				var data []byte
				if c.Rank() == root {
					data = []byte("from root")
				}
				got, err := Broadcast(c, root, data)
				if err != nil {
					return err
				}
				assert.Equal(t, "from root", string(got))
				return Barrier(c)
			})
			if err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestAllToAll(t *testing.T) {
	for _, n := range worldSizes {
		t.Run(fmt.Sprintf("ranks=%d", n), func(t *testing.T) {
			err := RunLocal(n, func(c Communicator) error {
				parts := make([][]byte, n)
				for d := range parts {
					parts[d] = []byte(fmt.Sprintf("%d->%d", c.Rank(), d))
				}
				got, err := AllToAll(c, parts)
				if err != nil {
					return err
				}
				for s := range got {
					assert.Equal(t, fmt.Sprintf("%d->%d", s, c.Rank()), string(got[s]))
				}
				return nil
			})
			if err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestAllToAll_PartsMismatch(t *testing.T) {
	err := RunLocal(2, func(c Communicator) error {
		_, err := AllToAll(c, make([][]byte, 1))
		return err
	})
	if !errors.Is(err, ErrPartsMismatch) {
		t.Fatalf("expected ErrPartsMismatch, got %v", err)
	}
}

func TestAllReduce(t *testing.T) {
	tests := []struct {
		op   Op
		want func(n int) int
	}{
		{Sum, func(n int) int { return n * (n + 1) / 2 }},
		{Max, func(n int) int { return n }},
		{Min, func(n int) int { return 1 }},
		{Prod, func(n int) int {
			p := 1
			for i := 2; i <= n; i++ {
				p *= i
			}
			return p
		}},
	}
	for _, n := range worldSizes {
		for _, tt := range tests {
			t.Run(fmt.Sprintf("%s/ranks=%d", tt.op, n), func(t *testing.T) {
				err := RunLocal(n, func(c Communicator) error {
					got, err := AllReduce(c, c.Rank()+1, tt.op)
					if err != nil {
						return err
					}
					assert.Equal(t, tt.want(n), got)
					return nil
				})
				if err != nil {
					t.Fatal(err)
				}
			})
		}
	}
}

func TestAllReduceSlice(t *testing.T) {
	err := RunLocal(3, func(c Communicator) error {
		got, err := AllReduceSlice(c, []float64{float64(c.Rank()), 1}, Sum)
		if err != nil {
			return err
		}
		assert.Equal(t, []float64{3, 3}, got)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestAllReduceSlice_LengthMismatch(t *testing.T) {
	err := RunLocal(2, func(c Communicator) error {
		_, err := AllReduceSlice(c, make([]int, c.Rank()+1), Sum)
		return err
	})
	if !errors.Is(err, ErrLenMismatch) {
		t.Fatalf("expected ErrLenMismatch, got %v", err)
	}
}

func TestExclusiveScan(t *testing.T) {
	counts := []int{4, 0, 3, 5}
	err := RunLocal(len(counts), func(c Communicator) error {
		got, err := ExclusiveScan(c, counts[c.Rank()])
		if err != nil {
			return err
		}
		want := 0
		for _, x := range counts[:c.Rank()] {
			want += x
		}
		assert.Equal(t, want, got)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestAllGatherValues(t *testing.T) {
	err := RunLocal(4, func(c Communicator) error {
		got, err := AllGatherValues(c, fmt.Sprintf("rank%d", c.Rank()))
		if err != nil {
			return err
		}
		assert.Equal(t, []string{"rank0", "rank1", "rank2", "rank3"}, got)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
