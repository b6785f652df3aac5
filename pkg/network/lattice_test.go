package network

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dd0wney/cluso-gridgraph/pkg/comm"
	"github.com/dd0wney/cluso-gridgraph/pkg/env"
)

const (
	xdim = 20
	ydim = 20
)

// factorGrid splits nproc into a pdx by pdy process grid whose cells are as
// close to square as possible.
func factorGrid(nproc, xsize, ysize int) (pdx, pdy int) {
	var primes []int
	for i := 2; i <= nproc; i++ {
		prime := true
		for _, p := range primes {
			if i%p == 0 {
				prime = false
				break
			}
		}
		if prime {
			primes = append(primes, i)
		}
	}
	var factors []int
	ip := nproc
	for _, p := range primes {
		for ip%p == 0 && ip > 1 {
			factors = append(factors, p)
			ip /= p
		}
	}
	xtmp, ytmp := float64(xsize), float64(ysize)
	pdx, pdy = 1, 1
	for i := len(factors) - 1; i >= 0; i-- {
		if xtmp >= ytmp {
			pdx *= factors[i]
			xtmp /= float64(factors[i])
		} else {
			pdy *= factors[i]
			ytmp /= float64(factors[i])
		}
	}
	return pdx, pdy
}

// bounds are the owned [xmin, xmax] x [ymin, ymax] lattice cells of a rank
// and the held cells including one ghost layer.
type bounds struct {
	xmin, xmax, ymin, ymax     int
	axmin, axmax, aymin, aymax int
}

func (b bounds) owns(ix, iy int) bool {
	return ix >= b.xmin && ix <= b.xmax && iy >= b.ymin && iy <= b.ymax
}

func latticeBounds(rank, size int) bounds {
	pdx, pdy := factorGrid(size, xdim, ydim)
	ipx := rank % pdx
	ipy := (rank - ipx) / pdx
	var b bounds
	b.xmin = ipx * xdim / pdx
	b.xmax = (ipx+1)*xdim/pdx - 1
	b.ymin = ipy * ydim / pdy
	b.ymax = (ipy+1)*ydim/pdy - 1
	b.axmin, b.axmax = max(b.xmin-1, 0), min(b.xmax+1, xdim-1)
	b.aymin, b.aymax = max(b.ymin-1, 0), min(b.ymax+1, ydim-1)
	return b
}

// buildLattice hand-distributes a xdim by ydim grid: each rank holds its
// block plus a ghost layer, with every index already assigned. A branch is
// owned by the owner of its first bus.
func buildLattice(e *env.Env) (*testNetwork, bounds) {
	net := New(e, newTestBus, newTestBranch)
	b := latticeBounds(e.Rank(), e.Size())
	ldx := b.axmax - b.axmin + 1

	k := 0
	for iy := b.aymin; iy <= b.aymax; iy++ {
		for ix := b.axmin; ix <= b.axmax; ix++ {
			n := iy*xdim + ix
			net.AddBus(2 * n)
			net.SetActiveBus(k, b.owns(ix, iy))
			net.SetGlobalBusIndex(k, n)
			if ix == 0 && iy == 0 {
				net.SetReferenceBus(k)
			}
			k++
		}
	}

	k = 0
	for iy := b.ymin; iy <= b.ymax; iy++ {
		for ix := b.axmin; ix < b.axmax; ix++ {
			n1, n2 := iy*xdim+ix, iy*xdim+ix+1
			net.AddBranch(2*n1, 2*n2)
			net.SetGlobalBusIndex1(k, n1)
			net.SetGlobalBusIndex2(k, n2)
			net.SetGlobalBranchIndex(k, iy*(xdim-1)+ix)
			lx, ly := ix-b.axmin, iy-b.aymin
			net.SetLocalBusIndex1(k, ly*ldx+lx)
			net.SetLocalBusIndex2(k, ly*ldx+lx+1)
			net.SetActiveBranch(k, b.owns(ix, iy))
			k++
		}
	}
	for iy := b.aymin; iy < b.aymax; iy++ {
		for ix := b.xmin; ix <= b.xmax; ix++ {
			n1, n2 := iy*xdim+ix, (iy+1)*xdim+ix
			net.AddBranch(2*n1, 2*n2)
			net.SetGlobalBusIndex1(k, n1)
			net.SetGlobalBusIndex2(k, n2)
			net.SetGlobalBranchIndex(k, iy*xdim+ix+(xdim-1)*ydim)
			lx, ly := ix-b.axmin, iy-b.aymin
			net.SetLocalBusIndex1(k, ly*ldx+lx)
			net.SetLocalBusIndex2(k, (ly+1)*ldx+lx)
			net.SetActiveBranch(k, b.owns(ix, iy))
			k++
		}
	}

	for i := 0; i < net.NumBuses(); i++ {
		net.ClearBranchNeighbors(i)
	}
	for i := 0; i < net.NumBranches(); i++ {
		n1, n2, _ := net.GetBranchEndpoints(i)
		if net.GetActiveBus(n1) || net.GetActiveBus(n2) {
			net.AddBranchNeighbor(n1, i)
			net.AddBranchNeighbor(n2, i)
		}
	}
	return net, b
}

// checkNeighbors verifies that every owned bus has want(ix, iy) branches and
// that GetConnectedBuses names their far endpoints.
func checkNeighbors(t *testing.T, net *testNetwork, rank int, xmin, ymin, ldx int, want func(ix, iy int) int) {
	for i := 0; i < net.NumBuses(); i++ {
		if !net.GetActiveBus(i) {
			continue
		}
		ix, iy := i%ldx+xmin, i/ldx+ymin
		branches := net.GetConnectedBranches(i)
		assert.Len(t, branches, want(ix, iy), "rank %d bus %d", rank, i)
		far := make(map[int]bool)
		for _, j := range branches {
			n1, n2, _ := net.GetBranchEndpoints(j)
			assert.True(t, n1 == i || n2 == i, "rank %d branch %d not on bus %d", rank, j, i)
			if n1 != i {
				far[n1] = true
			} else {
				far[n2] = true
			}
		}
		buses := net.GetConnectedBuses(i)
		assert.Len(t, buses, len(branches))
		for _, k := range buses {
			assert.True(t, far[k], "rank %d bus %d neighbor %d", rank, i, k)
		}
	}
}

func TestNetwork_Lattice(t *testing.T) {
	for _, ranks := range []int{1, 2, 3, 4} {
		err := comm.RunLocal(ranks, func(c comm.Communicator) error {
			rank := c.Rank()
			net, b := buildLattice(env.New(c))

			held := (b.axmax - b.axmin + 1) * (b.aymax - b.aymin + 1)
			assert.Equal(t, held, net.NumBuses())
			heldBranches := (b.axmax-b.axmin)*(b.ymax-b.ymin+1) + (b.xmax-b.xmin+1)*(b.aymax-b.aymin)
			assert.Equal(t, heldBranches, net.NumBranches())

			total, err := net.TotalBuses()
			if err != nil {
				return err
			}
			assert.Equal(t, xdim*ydim, total)
			totalBranches, err := net.TotalBranches()
			if err != nil {
				return err
			}
			assert.Equal(t, (xdim-1)*ydim+xdim*(ydim-1), totalBranches)

			if rank == 0 {
				assert.Equal(t, 0, net.GetReferenceBus())
			} else {
				assert.Equal(t, Unassigned, net.GetReferenceBus())
			}

			ldx := b.axmax - b.axmin + 1
			checkNeighbors(t, net, rank, b.axmin, b.aymin, ldx, func(ix, iy int) int {
				n := 0
				if ix > b.axmin {
					n++
				}
				if ix < b.axmax {
					n++
				}
				if iy > b.aymin {
					n++
				}
				if iy < b.aymax {
					n++
				}
				return n
			})

			clone, err := Clone(net, newTestBus, newTestBranch)
			if err != nil {
				return err
			}
			assertSameNetwork(t, net, clone)

			if err := net.BuildIndexMaps(); err != nil {
				return err
			}
			for i := 0; i < net.NumBuses(); i++ {
				assert.Contains(t, net.GetLocalBusIndices(net.GetOriginalBusIndex(i)), i)
			}
			for i := 0; i < net.NumBranches(); i++ {
				o1, o2, _ := net.GetOriginalBranchEndpoints(i)
				assert.Contains(t, net.GetLocalBranchIndices(o1, o2), i)
			}

			if err := checkLatticeGhosts(net); err != nil {
				return err
			}
			for i := 0; i < net.NumBuses(); i++ {
				assert.Equal(t, uint64(net.GetGlobalBusIndex(i)),
					binary.LittleEndian.Uint64(net.BusExchangeBuffer(i)), "rank %d bus %d", rank, i)
			}
			for i := 0; i < net.NumBranches(); i++ {
				assert.Equal(t, uint64(net.GetGlobalBranchIndex(i)),
					binary.LittleEndian.Uint64(net.BranchExchangeBuffer(i)), "rank %d branch %d", rank, i)
			}
			net.FreeBusExchange()
			net.FreeBranchExchange()

			if err := net.Clean(); err != nil {
				return err
			}
			assert.Equal(t, (b.xmax-b.xmin+1)*(b.ymax-b.ymin+1), net.NumBuses())
			assert.Equal(t, (b.axmax-b.xmin)*(b.ymax-b.ymin+1)+(b.xmax-b.xmin+1)*(b.aymax-b.ymin),
				net.NumBranches())
			total, err = net.TotalBuses()
			if err != nil {
				return err
			}
			assert.Equal(t, xdim*ydim, total)

			checkNeighbors(t, net, rank, b.xmin, b.ymin, b.xmax-b.xmin+1, func(ix, iy int) int {
				n := 0
				if ix > b.xmin {
					n++
				}
				if ix < b.axmax {
					n++
				}
				if iy > b.ymin {
					n++
				}
				if iy < b.aymax {
					n++
				}
				return n
			})
			return nil
		})
		if err != nil {
			t.Fatalf("ranks=%d: %v", ranks, err)
		}
	}
}

// checkLatticeGhosts fills owned slots with global indices and ghost slots
// with a sentinel, then runs one bus and one branch update.
func checkLatticeGhosts(net *testNetwork) error {
	if err := net.AllocBusExchange(8); err != nil {
		return err
	}
	if err := net.AllocBranchExchange(8); err != nil {
		return err
	}
	for i := 0; i < net.NumBuses(); i++ {
		v := uint64(math.MaxUint64)
		if net.GetActiveBus(i) {
			v = uint64(net.GetGlobalBusIndex(i))
		}
		binary.LittleEndian.PutUint64(net.BusExchangeBuffer(i), v)
	}
	for i := 0; i < net.NumBranches(); i++ {
		v := uint64(math.MaxUint64)
		if net.GetActiveBranch(i) {
			v = uint64(net.GetGlobalBranchIndex(i))
		}
		binary.LittleEndian.PutUint64(net.BranchExchangeBuffer(i), v)
	}
	if err := net.InitBusUpdate(); err != nil {
		return err
	}
	if err := net.InitBranchUpdate(); err != nil {
		return err
	}
	if err := net.UpdateBuses(); err != nil {
		return err
	}
	return net.UpdateBranches()
}

func assertSameNetwork[B1, R1, B2, R2 any](t *testing.T, a *Network[B1, R1], b *Network[B2, R2]) {
	t.Helper()
	if !assert.Equal(t, a.NumBuses(), b.NumBuses()) || !assert.Equal(t, a.NumBranches(), b.NumBranches()) {
		return
	}
	for i := 0; i < a.NumBuses(); i++ {
		assert.Equal(t, a.GetOriginalBusIndex(i), b.GetOriginalBusIndex(i))
		assert.Equal(t, a.GetGlobalBusIndex(i), b.GetGlobalBusIndex(i))
		assert.Equal(t, a.GetActiveBus(i), b.GetActiveBus(i))
		assert.Equal(t, a.GetConnectedBranches(i), b.GetConnectedBranches(i))
		assert.Equal(t, a.GetConnectedBuses(i), b.GetConnectedBuses(i))
		assert.Equal(t, a.GetBusData(i).Keys(), b.GetBusData(i).Keys())
	}
	assert.Equal(t, a.GetReferenceBus(), b.GetReferenceBus())
	for i := 0; i < a.NumBranches(); i++ {
		assert.Equal(t, a.GetGlobalBranchIndex(i), b.GetGlobalBranchIndex(i))
		assert.Equal(t, a.GetActiveBranch(i), b.GetActiveBranch(i))
		assert.Equal(t, a.GetBranchSwitched(i), b.GetBranchSwitched(i))
		o1, o2, _ := a.GetOriginalBranchEndpoints(i)
		p1, p2, _ := b.GetOriginalBranchEndpoints(i)
		assert.Equal(t, [2]int{o1, o2}, [2]int{p1, p2})
		g1, g2, _ := a.GetGlobalBranchEndpoints(i)
		h1, h2, _ := b.GetGlobalBranchEndpoints(i)
		assert.Equal(t, [2]int{g1, g2}, [2]int{h1, h2})
		l1, l2, _ := a.GetBranchEndpoints(i)
		m1, m2, _ := b.GetBranchEndpoints(i)
		assert.Equal(t, [2]int{l1, l2}, [2]int{m1, m2})
	}
}
