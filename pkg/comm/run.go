package comm

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// RunLocal runs fn on every rank of a fresh LocalWorld of the given size and
// waits for all of them. The first rank to fail aborts the world so that its
// peers return instead of blocking in a collective.
func RunLocal(size int, fn func(c Communicator) error, opts ...WorldOption) error {
	w, err := NewLocalWorld(size, opts...)
	if err != nil {
		return err
	}
	return RunWorld(w, fn)
}

// RunWorld runs fn on every rank of w.
func RunWorld(w *LocalWorld, fn func(c Communicator) error) error {
	var g errgroup.Group
	for r := 0; r < w.Size(); r++ {
		c := w.Comm(r)
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("rank %d panicked: %v", c.Rank(), p)
					w.Abort(err)
				}
			}()
			if err := fn(c); err != nil {
				err = fmt.Errorf("rank %d: %w", c.Rank(), err)
				w.Abort(err)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
