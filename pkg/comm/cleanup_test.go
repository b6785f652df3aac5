package comm

import (
	"errors"
	"testing"

	"github.com/dd0wney/cluso-gridgraph/pkg/logging"
)

type mockCloser struct {
	name   string
	order  *[]string
	err    error
	closed int
}

func (m *mockCloser) Close() error {
	m.closed++
	if m.order != nil {
		*m.order = append(*m.order, m.name)
	}
	return m.err
}

func TestResourceCleanup_ReverseOrder(t *testing.T) {
	var order []string
	cleanup := newResourceCleanup(&logging.NopLogger{})
	for _, name := range []string{"pull", "push[1]", "push[2]"} {
		cleanup.Add(&mockCloser{name: name, order: &order}, name)
	}
	cleanup.Cleanup()

	want := []string{"push[2]", "push[1]", "pull"}
	if len(order) != len(want) {
		t.Fatalf("Expected %d closes, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("close %d: expected %s, got %s", i, want[i], order[i])
		}
	}
	if cleanup.Len() != 0 {
		t.Errorf("Expected 0 resources after cleanup, got %d", cleanup.Len())
	}
}

func TestResourceCleanup_ClearKeepsResourcesOpen(t *testing.T) {
	c := &mockCloser{}
	cleanup := newResourceCleanup(&logging.NopLogger{})
	cleanup.Add(c, "pull")
	cleanup.Clear()
	cleanup.Cleanup()
	if c.closed != 0 {
		t.Errorf("Expected resource to stay open, closed %d times", c.closed)
	}
}

func TestResourceCleanup_ContinuesOnError(t *testing.T) {
	failing := &mockCloser{err: errors.New("close failed")}
	ok := &mockCloser{}
	cleanup := newResourceCleanup(&logging.NopLogger{})
	cleanup.Add(ok, "ok")
	cleanup.Add(failing, "failing")
	cleanup.Cleanup()
	if ok.closed != 1 || failing.closed != 1 {
		t.Errorf("Expected both resources closed once, got ok=%d failing=%d", ok.closed, failing.closed)
	}
}
