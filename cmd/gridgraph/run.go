package main

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/dd0wney/cluso-gridgraph/pkg/component"
	"github.com/dd0wney/cluso-gridgraph/pkg/config"
	"github.com/dd0wney/cluso-gridgraph/pkg/env"
	"github.com/dd0wney/cluso-gridgraph/pkg/logging"
	"github.com/dd0wney/cluso-gridgraph/pkg/network"
	"github.com/dd0wney/cluso-gridgraph/pkg/partition"
)

// bus carries a voltage magnitude that is kept in step on ghost copies.
type bus struct {
	component.BaseBus
	VoltageMag float64
	slot       []byte
}

func (b *bus) Load(data *component.DataCollection) error {
	if err := b.BaseBus.Load(data); err != nil {
		return err
	}
	if v, ok := data.GetFloat(component.BusVoltMag); ok {
		b.VoltageMag = v
	}
	return nil
}

func (b *bus) ExchangeSize() int             { return 8 }
func (b *bus) SetExchangeBuffer(slot []byte) { b.slot = slot }

func (b *bus) publish() {
	binary.LittleEndian.PutUint64(b.slot, math.Float64bits(b.VoltageMag))
}

func (b *bus) received() float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b.slot))
}

type branch struct {
	component.BaseBranch
	R, X float64
}

func (br *branch) Load(data *component.DataCollection) error {
	if err := br.BaseBranch.Load(data); err != nil {
		return err
	}
	br.R, _ = data.GetFloat(component.BranchR)
	br.X, _ = data.GetFloat(component.BranchX)
	return nil
}

type gridNetwork = network.Network[*bus, *branch]

// run builds the scenario on rank 0, distributes it, syncs ghost voltages
// once and prunes the ghosts. Every rank calls it.
func run(e *env.Env, cfg *config.Config, opts options) error {
	strategy, err := partition.StrategyByName(cfg.Partition.Strategy, e.Size())
	if err != nil {
		return err
	}
	net := network.New(e,
		func() *bus { return &bus{} },
		func() *branch { return &branch{} },
		network.WithStrategy(strategy))
	if e.Rank() == 0 {
		switch opts.scenario {
		case "lattice":
			buildLattice(net, opts.size)
		default:
			buildChain(net, opts.size)
		}
	}

	if err := net.Partition(); err != nil {
		return err
	}
	if err := net.LoadComponents(); err != nil {
		return e.Fail(err)
	}

	q, err := net.PartitionQuality()
	if err != nil {
		return err
	}
	if e.Rank() == 0 {
		e.Logger.Info("partition quality",
			logging.String("strategy", strategy.Name()),
			logging.Any("sizes", q.PartitionSizes),
			logging.Any("edge_cuts", q.EdgeCuts),
			logging.Float64("cut_ratio", q.CutRatio),
			logging.Float64("load_balance", q.LoadBalance))
		for _, m := range partition.SuggestMigrations(q) {
			e.Logger.Info("suggested migration",
				logging.Int("from", m.FromPartition),
				logging.Int("to", m.ToPartition),
				logging.Int("nodes", m.NodeCount))
		}
	}

	stale, err := syncVoltages(net)
	if err != nil {
		return err
	}

	if opts.dotPath != "" {
		w, err := dotWriter(e, opts.dotPath)
		if err != nil {
			return e.Fail(fmt.Errorf("create %s: %w", opts.dotPath, err))
		}
		err = net.WriteGraph(w)
		if cerr := w.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
	}

	before := net.Stats()
	if err := net.Clean(); err != nil {
		return err
	}
	total, err := net.TotalBuses()
	if err != nil {
		return err
	}
	e.Metrics.UpdateSystemMetrics()
	e.Logger.Info("rank summary",
		logging.Int("owned_buses", before.OwnedBuses),
		logging.Int("ghost_buses", before.GhostBuses),
		logging.Int("owned_branches", before.OwnedBranches),
		logging.Int("ghost_branches", before.GhostBranches),
		logging.Int("stale_ghosts", stale),
		logging.Int("total_buses", total),
		logging.Bool("reference_bus_here", net.GetReferenceBus() != network.Unassigned))
	return nil
}

// syncVoltages publishes every owned voltage to its ghosts and returns how
// many ghosts disagree with their owner afterwards.
func syncVoltages(net *gridNetwork) (int, error) {
	if err := net.AllocBusExchangeFromPayloads(); err != nil {
		return 0, err
	}
	defer net.FreeBusExchange()
	if err := net.InitBusUpdate(); err != nil {
		return 0, err
	}
	for i := 0; i < net.NumBuses(); i++ {
		if b, _ := net.GetBus(i); net.GetActiveBus(i) {
			b.publish()
		}
	}
	if err := net.UpdateBuses(); err != nil {
		return 0, err
	}
	stale := 0
	for i := 0; i < net.NumBuses(); i++ {
		if b, _ := net.GetBus(i); !net.GetActiveBus(i) && b.received() != b.VoltageMag {
			stale++
		}
	}
	return stale, nil
}

func addBus(net *gridNetwork, original int, vm float64) {
	k := net.AddBus(original)
	d := net.GetBusData(k)
	d.SetInt(component.BusNumber, original)
	d.SetFloat(component.BusVoltMag, vm)
}

func addBranch(net *gridNetwork, from, to int) {
	k := net.AddBranch(from, to)
	d := net.GetBranchData(k)
	d.SetInt(component.BranchFromBus, from)
	d.SetInt(component.BranchToBus, to)
	d.SetFloat(component.BranchR, 0.01)
	d.SetFloat(component.BranchX, 0.1)
}

// buildChain adds a path of n buses with a falling voltage profile.
func buildChain(net *gridNetwork, n int) {
	for i := 0; i < n; i++ {
		addBus(net, i+1, 1.05-0.001*float64(i))
	}
	for i := 1; i < n; i++ {
		addBranch(net, i, i+1)
	}
	net.SetReferenceBus(0)
}

// buildLattice adds a side by side grid. Original indices are doubled so
// that they differ from the global indices assigned later.
func buildLattice(net *gridNetwork, side int) {
	for iy := 0; iy < side; iy++ {
		for ix := 0; ix < side; ix++ {
			addBus(net, 2*(iy*side+ix), 1.0+0.0001*float64(ix+iy))
		}
	}
	for iy := 0; iy < side; iy++ {
		for ix := 0; ix+1 < side; ix++ {
			addBranch(net, 2*(iy*side+ix), 2*(iy*side+ix+1))
		}
	}
	for iy := 0; iy+1 < side; iy++ {
		for ix := 0; ix < side; ix++ {
			addBranch(net, 2*(iy*side+ix), 2*((iy+1)*side+ix))
		}
	}
	net.SetReferenceBus(0)
}
