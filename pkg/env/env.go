// Package env carries the per-rank context every distributed structure is
// built with: the communicator, a rank-tagged logger and an optional metrics
// registry.
package env

import (
	"time"

	"github.com/dd0wney/cluso-gridgraph/pkg/comm"
	"github.com/dd0wney/cluso-gridgraph/pkg/logging"
	"github.com/dd0wney/cluso-gridgraph/pkg/metrics"
)

// Env is passed explicitly to constructors instead of process-wide state.
type Env struct {
	Comm    comm.Communicator
	Logger  logging.Logger
	Metrics *metrics.Registry
}

// Option configures an Env.
type Option func(*Env)

// WithLogger sets the base logger. The rank field, and the world field for
// local worlds, are added by New.
func WithLogger(l logging.Logger) Option {
	return func(e *Env) { e.Logger = l }
}

// WithMetrics enables metrics recording. A nil registry disables it.
func WithMetrics(m *metrics.Registry) Option {
	return func(e *Env) { e.Metrics = m }
}

// New wraps a communicator.
func New(c comm.Communicator, opts ...Option) *Env {
	e := &Env{Comm: c, Logger: logging.NopLogger{}}
	for _, opt := range opts {
		opt(e)
	}
	if e.Logger == nil {
		e.Logger = logging.NopLogger{}
	}
	fields := []logging.Field{logging.Rank(c.Rank())}
	if wi, ok := c.(comm.WorldIdentifier); ok {
		fields = append(fields, logging.World(wi.WorldID()))
	}
	e.Logger = e.Logger.With(fields...)
	return e
}

func (e *Env) Rank() int { return e.Comm.Rank() }
func (e *Env) Size() int { return e.Comm.Size() }

// Fail logs err, aborts the communicator with it and returns it. Structural
// failures inside collectives go through here so every rank stops.
func (e *Env) Fail(err error, fields ...logging.Field) error {
	e.Logger.Error("fatal collective failure", append(fields, logging.Error(err))...)
	e.Comm.Abort(err)
	return err
}

// Collective runs fn as the named collective phase, logging its latency at
// Debug and recording its duration.
func (e *Env) Collective(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)
	e.Metrics.RecordCollective(name, d)
	if err != nil {
		e.Logger.Debug("collective failed",
			logging.Collective(name), logging.Latency(d), logging.Error(err))
		return err
	}
	e.Logger.Debug("collective complete", logging.Collective(name), logging.Latency(d))
	return nil
}

// Close closes the communicator.
func (e *Env) Close() error {
	return e.Comm.Close()
}
