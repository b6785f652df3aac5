package network

import (
	"github.com/dd0wney/cluso-gridgraph/pkg/comm"
	"github.com/dd0wney/cluso-gridgraph/pkg/component"
	"github.com/dd0wney/cluso-gridgraph/pkg/ghost"
)

type busEntities[B, R any] struct{ n *Network[B, R] }

func (be busEntities[B, R]) Len() int              { return len(be.n.buses) }
func (be busEntities[B, R]) Active(i int) bool     { return be.n.buses[i].Active }
func (be busEntities[B, R]) GlobalIndex(i int) int { return be.n.buses[i].GlobalIndex }

type branchEntities[B, R any] struct{ n *Network[B, R] }

func (be branchEntities[B, R]) Len() int              { return len(be.n.branches) }
func (be branchEntities[B, R]) Active(i int) bool     { return be.n.branches[i].Active }
func (be branchEntities[B, R]) GlobalIndex(i int) int { return be.n.branches[i].GlobalIndex }

// AllocBusExchange reserves a size-byte ghost slot for every local bus and
// hands each slot to payloads implementing component.ExchangeUser.
// Collective; every rank must pass the same size.
func (n *Network[B, R]) AllocBusExchange(size int) error {
	if err := n.busXC.Allocate(busEntities[B, R]{n}, size); err != nil {
		return err
	}
	for i, b := range n.buses {
		if u, ok := any(b.Bus).(component.ExchangeUser); ok {
			u.SetExchangeBuffer(n.busXC.Buffer(i))
		}
	}
	return nil
}

// AllocBusExchangeFromPayloads sizes the bus slots to the largest
// ExchangeSize reported by any bus payload on any rank. Collective.
func (n *Network[B, R]) AllocBusExchangeFromPayloads() error {
	size := 0
	for _, b := range n.buses {
		if u, ok := any(b.Bus).(component.ExchangeUser); ok {
			size = max(size, u.ExchangeSize())
		}
	}
	size, err := comm.AllReduce(n.e.Comm, size, comm.Max)
	if err != nil {
		return err
	}
	return n.AllocBusExchange(size)
}

// BusExchangeBuffer returns bus i's slot, nil if unallocated.
func (n *Network[B, R]) BusExchangeBuffer(i int) []byte { return n.busXC.Buffer(i) }

// InitBusUpdate computes which ghost bus slots each rank fills. Collective.
func (n *Network[B, R]) InitBusUpdate() error { return n.busXC.Init(busEntities[B, R]{n}) }

// UpdateBuses copies owned bus slots into their ghosts. Collective.
func (n *Network[B, R]) UpdateBuses() error { return n.busXC.Update() }

// FreeBusExchange releases the bus slots and takes them back from payloads.
func (n *Network[B, R]) FreeBusExchange() {
	n.busXC.Free()
	for _, b := range n.buses {
		if u, ok := any(b.Bus).(component.ExchangeUser); ok {
			u.SetExchangeBuffer(nil)
		}
	}
}

func (n *Network[B, R]) BusExchangeState() ghost.State { return n.busXC.State() }

// AllocBranchExchange is AllocBusExchange for branches.
func (n *Network[B, R]) AllocBranchExchange(size int) error {
	if err := n.branchXC.Allocate(branchEntities[B, R]{n}, size); err != nil {
		return err
	}
	for i, br := range n.branches {
		if u, ok := any(br.Branch).(component.ExchangeUser); ok {
			u.SetExchangeBuffer(n.branchXC.Buffer(i))
		}
	}
	return nil
}

// AllocBranchExchangeFromPayloads is AllocBusExchangeFromPayloads for
// branches.
func (n *Network[B, R]) AllocBranchExchangeFromPayloads() error {
	size := 0
	for _, br := range n.branches {
		if u, ok := any(br.Branch).(component.ExchangeUser); ok {
			size = max(size, u.ExchangeSize())
		}
	}
	size, err := comm.AllReduce(n.e.Comm, size, comm.Max)
	if err != nil {
		return err
	}
	return n.AllocBranchExchange(size)
}

func (n *Network[B, R]) BranchExchangeBuffer(i int) []byte { return n.branchXC.Buffer(i) }

func (n *Network[B, R]) InitBranchUpdate() error {
	return n.branchXC.Init(branchEntities[B, R]{n})
}

func (n *Network[B, R]) UpdateBranches() error { return n.branchXC.Update() }

func (n *Network[B, R]) FreeBranchExchange() {
	n.branchXC.Free()
	for _, br := range n.branches {
		if u, ok := any(br.Branch).(component.ExchangeUser); ok {
			u.SetExchangeBuffer(nil)
		}
	}
}

func (n *Network[B, R]) BranchExchangeState() ghost.State { return n.branchXC.State() }
