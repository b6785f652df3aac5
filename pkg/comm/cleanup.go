package comm

import (
	"io"

	"github.com/dd0wney/cluso-gridgraph/pkg/logging"
)

// resourceCleanup closes registered resources in reverse order. Used while
// wiring sockets so a failure halfway leaves nothing open.
//
//	cleanup := newResourceCleanup(logger)
//	defer cleanup.Cleanup()
//	...
//	cleanup.Clear() // success, keep everything open
type resourceCleanup struct {
	logger    logging.Logger
	resources []namedCloser
}

type namedCloser struct {
	closer io.Closer
	name   string
}

func newResourceCleanup(logger logging.Logger) *resourceCleanup {
	return &resourceCleanup{
		logger:    logger,
		resources: make([]namedCloser, 0, 8),
	}
}

func (rc *resourceCleanup) Add(closer io.Closer, name string) {
	rc.resources = append(rc.resources, namedCloser{closer: closer, name: name})
}

// Cleanup closes everything still registered. Errors are logged, not returned.
func (rc *resourceCleanup) Cleanup() {
	for i := len(rc.resources) - 1; i >= 0; i-- {
		r := rc.resources[i]
		if r.closer == nil {
			continue
		}
		if err := r.closer.Close(); err != nil {
			rc.logger.Warn("close failed during cleanup",
				logging.String("resource", r.name), logging.Error(err))
		}
	}
	rc.resources = rc.resources[:0]
}

// Clear forgets the registered resources without closing them.
func (rc *resourceCleanup) Clear() {
	rc.resources = rc.resources[:0]
}

func (rc *resourceCleanup) Len() int {
	return len(rc.resources)
}
