package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-gridgraph/pkg/comm"
	"github.com/dd0wney/cluso-gridgraph/pkg/config"
	"github.com/dd0wney/cluso-gridgraph/pkg/env"
	"github.com/dd0wney/cluso-gridgraph/pkg/logging"
	"github.com/dd0wney/cluso-gridgraph/pkg/metrics"
)

// dialer connects one rank of a networked run.
type dialer func(rank int, addrs []string, cfg comm.SocketConfig) (*comm.SocketComm, error)

var dialers = map[string]dialer{
	config.TransportMangos: comm.DialMangos,
}

type options struct {
	scenario string
	size     int
	dotPath  string
}

func main() {
	configPath := flag.String("config", "", "YAML configuration file (defaults apply when empty)")
	scenario := flag.String("scenario", "chain", "Network to build: chain or lattice")
	size := flag.Int("size", 20, "Chain length, or lattice side")
	rank := flag.Int("rank", -1, "This process's rank (networked transports only)")
	ranks := flag.Int("ranks", 0, "Override the configured rank count")
	dotPath := flag.String("dot", "", "Write the partitioned network as Graphviz DOT to this file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *ranks > 0 {
		cfg.Ranks = *ranks
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}
	}
	if *scenario != "chain" && *scenario != "lattice" {
		log.Fatalf("Unknown scenario %q (want chain or lattice)", *scenario)
	}
	if *size < 2 {
		log.Fatalf("Size must be at least 2, got %d", *size)
	}

	logger := cfg.Logger()
	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
		go serveMetrics(cfg.Metrics.Addr, reg, logger)
	}

	opts := options{scenario: *scenario, size: *size, dotPath: *dotPath}
	var err error
	if cfg.Networked() {
		err = runNetworked(cfg, *rank, opts, logger, reg)
	} else {
		err = comm.RunLocal(cfg.Ranks, func(c comm.Communicator) error {
			return run(env.New(c, env.WithLogger(logger), env.WithMetrics(reg)), cfg, opts)
		}, comm.WithWorldMetrics(reg))
	}
	if err != nil {
		logger.Error("run failed", logging.Error(err))
		os.Exit(1)
	}
}

func runNetworked(cfg *config.Config, rank int, opts options, logger logging.Logger, reg *metrics.Registry) error {
	dial, ok := dialers[cfg.Transport.Kind]
	if !ok {
		return fmt.Errorf("transport %q is not built into this binary", cfg.Transport.Kind)
	}
	if rank < 0 || rank >= cfg.Ranks {
		return fmt.Errorf("-rank must be in [0, %d) for transport %s", cfg.Ranks, cfg.Transport.Kind)
	}
	c, err := dial(rank, cfg.Transport.Addresses, cfg.SocketConfig(logger, reg))
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	e := env.New(c, env.WithLogger(logger), env.WithMetrics(reg))
	defer e.Close()
	logger.Info("rank connected",
		logging.Rank(rank),
		logging.String("transport", cfg.Transport.Kind),
		logging.Address(cfg.Transport.Addresses[rank]))
	if err := comm.Barrier(c); err != nil {
		return err
	}
	return run(e, cfg, opts)
}

func serveMetrics(addr string, reg *metrics.Registry, logger logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	logger.Info("serving metrics", logging.Address(addr))
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server stopped", logging.Error(err))
	}
}

// dotWriter returns where rank 0 writes the DOT file; other ranks only take
// part in the collective.
func dotWriter(e *env.Env, path string) (io.WriteCloser, error) {
	if e.Rank() != 0 {
		return nopCloser{io.Discard}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
