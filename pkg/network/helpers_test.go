package network

import (
	"encoding/binary"

	"github.com/dd0wney/cluso-gridgraph/pkg/component"
	"github.com/dd0wney/cluso-gridgraph/pkg/env"
	"github.com/dd0wney/cluso-gridgraph/pkg/partition"
)

type testBus struct {
	component.BaseBus
	Voltage float64
	slot    []byte
}

func newTestBus() *testBus { return &testBus{} }

func (b *testBus) ExchangeSize() int             { return 8 }
func (b *testBus) SetExchangeBuffer(slot []byte) { b.slot = slot }

func (b *testBus) put(v uint64) { binary.LittleEndian.PutUint64(b.slot, v) }
func (b *testBus) get() uint64  { return binary.LittleEndian.Uint64(b.slot) }

type testBranch struct {
	component.BaseBranch
	Impedance float64
}

func newTestBranch() *testBranch { return &testBranch{} }

type testNetwork = Network[*testBus, *testBranch]

// buildChain puts a path of n buses, with original indices offset by 100,
// entirely on rank 0. Bus 0 is the reference bus.
func buildChain(e *env.Env, n int, strategy partition.Strategy) *testNetwork {
	net := New(e, newTestBus, newTestBranch, WithStrategy(strategy))
	if e.Rank() != 0 {
		return net
	}
	for i := 0; i < n; i++ {
		k := net.AddBus(100 + i)
		net.GetBusData(k).SetInt(component.BusNumber, 100+i)
	}
	for i := 0; i+1 < n; i++ {
		k := net.AddBranch(100+i, 101+i)
		net.GetBranchData(k).SetInt(component.BranchFromBus, 100+i)
		net.GetBranchData(k).SetInt(component.BranchToBus, 101+i)
	}
	net.SetReferenceBus(0)
	return net
}
