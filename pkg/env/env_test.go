package env

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dd0wney/cluso-gridgraph/pkg/comm"
	"github.com/dd0wney/cluso-gridgraph/pkg/logging"
	"github.com/dd0wney/cluso-gridgraph/pkg/metrics"
)

func TestNew_TagsLoggerWithRank(t *testing.T) {
	w, err := comm.NewLocalWorld(3)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	e := New(w.Comm(2), WithLogger(logging.NewJSONLogger(&buf, logging.InfoLevel)))
	e.Logger.Info("hello")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	fields, _ := entry["fields"].(map[string]interface{})
	if fields["rank"] != float64(2) {
		t.Errorf("Expected rank 2 in log fields, got %v", entry)
	}
	if fields["world"] != w.ID() {
		t.Errorf("Expected world %s in log fields, got %v", w.ID(), fields["world"])
	}
	if e.Rank() != 2 || e.Size() != 3 {
		t.Errorf("Expected rank 2 of 3, got %d of %d", e.Rank(), e.Size())
	}
}

func TestNew_DefaultsToNopLogger(t *testing.T) {
	w, _ := comm.NewLocalWorld(1)
	e := New(w.Comm(0), WithLogger(nil))
	e.Logger.Info("discarded")
	if e.Metrics != nil {
		t.Error("Expected metrics disabled by default")
	}
}

func TestFail_AbortsEveryRank(t *testing.T) {
	cause := errors.New("unresolved endpoint")
	err := comm.RunLocal(3, func(c comm.Communicator) error {
		e := New(c)
		if c.Rank() == 0 {
			return e.Fail(cause)
		}
		_, err := c.Recv(0, comm.TagUser)
		return err
	})
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to propagate, got %v", err)
	}
}

func TestCollective_RecordsDuration(t *testing.T) {
	reg := metrics.NewRegistry()
	w, _ := comm.NewLocalWorld(1)
	e := New(w.Comm(0), WithMetrics(reg))

	if err := e.Collective("barrier", func() error { return comm.Barrier(e.Comm) }); err != nil {
		t.Fatal(err)
	}
	want := errors.New("phase failed")
	if err := e.Collective("scan", func() error { return want }); !errors.Is(err, want) {
		t.Errorf("expected phase error, got %v", err)
	}

	families, err := reg.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "gridgraph_collective_duration_seconds" {
			found = true
			if len(mf.GetMetric()) != 2 {
				t.Errorf("Expected 2 collective series, got %d", len(mf.GetMetric()))
			}
		}
	}
	if !found {
		t.Error("collective duration histogram not registered")
	}
}
