// Package config loads the YAML configuration of a gridgraph run: how many
// ranks, how they talk, how the network is partitioned and how the run is
// observed.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-gridgraph/pkg/comm"
	"github.com/dd0wney/cluso-gridgraph/pkg/logging"
	"github.com/dd0wney/cluso-gridgraph/pkg/metrics"
	"github.com/dd0wney/cluso-gridgraph/pkg/partition"
)

// Transport kinds.
const (
	TransportLocal  = "local"
	TransportMangos = "mangos"
	TransportZMQ    = "zmq"
)

// Config is the top-level configuration.
type Config struct {
	Ranks     int             `yaml:"ranks" validate:"min=1,max=4096"`
	Transport TransportConfig `yaml:"transport"`
	Partition PartitionConfig `yaml:"partition"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// TransportConfig selects the communicator. Local runs every rank as a
// goroutine of one process; mangos and zmq run one process per rank, rank r
// listening on Addresses[r].
type TransportConfig struct {
	Kind         string        `yaml:"kind" validate:"oneof=local mangos zmq"`
	Addresses    []string      `yaml:"addresses" validate:"dive,required"`
	PollInterval time.Duration `yaml:"poll_interval"`
	SendTimeout  time.Duration `yaml:"send_timeout"`
}

type PartitionConfig struct {
	Strategy string `yaml:"strategy" validate:"omitempty,oneof=range hash keep"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns a single-process configuration with four local ranks.
func Default() *Config {
	sc := comm.DefaultSocketConfig()
	return &Config{
		Ranks: 4,
		Transport: TransportConfig{
			Kind:         TransportLocal,
			PollInterval: sc.PollInterval,
			SendTimeout:  sc.SendTimeout,
		},
		Partition: PartitionConfig{Strategy: "range"},
		Logging:   LoggingConfig{Level: "info"},
		Metrics:   MetricsConfig{Addr: ":9090"},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints, then the rules that span fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	networked := c.Transport.Kind != TransportLocal
	return NewConfigValidator("Config").
		Positive("Ranks", c.Ranks).
		When(networked, func(cv *ConfigValidator) {
			cv.Custom("Transport.Addresses", func() error {
				if len(c.Transport.Addresses) != c.Ranks {
					return fmt.Errorf("%w: %d addresses for %d ranks",
						ErrAddressCount, len(c.Transport.Addresses), c.Ranks)
				}
				return nil
			})
			cv.MinDuration("Transport.PollInterval", c.Transport.PollInterval, time.Millisecond)
			cv.MinDuration("Transport.SendTimeout", c.Transport.SendTimeout, c.Transport.PollInterval)
		}).
		When(c.Metrics.Enabled, func(cv *ConfigValidator) {
			cv.Required("Metrics.Addr", c.Metrics.Addr)
			cv.HostPort("Metrics.Addr", c.Metrics.Addr)
		}).
		Validate()
}

// Networked reports whether each rank runs in its own process.
func (c *Config) Networked() bool {
	return c.Transport.Kind != TransportLocal
}

// Strategy builds the configured partitioning strategy.
func (c *Config) Strategy() (partition.Strategy, error) {
	return partition.StrategyByName(c.Partition.Strategy, c.Ranks)
}

// Logger builds a stderr JSON logger at the configured level.
func (c *Config) Logger() *logging.JSONLogger {
	return logging.NewStderrLogger(c.Logging.Level)
}

// SocketConfig returns the communicator settings for networked transports.
func (c *Config) SocketConfig(logger logging.Logger, reg *metrics.Registry) comm.SocketConfig {
	sc := comm.DefaultSocketConfig()
	if c.Transport.PollInterval > 0 {
		sc.PollInterval = c.Transport.PollInterval
	}
	if c.Transport.SendTimeout > 0 {
		sc.SendTimeout = c.Transport.SendTimeout
	}
	sc.Logger = logger
	sc.Metrics = reg
	return sc
}
