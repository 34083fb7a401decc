package state

import (
	"context"
	"sync"
)

// refresher runs at most one load at a time. Calls that arrive while a load
// is in flight are folded into a single trailing load that starts when the
// current one finishes; every such caller gets that trailing load's result.
type refresher struct {
	run func(context.Context) error

	mu      sync.Mutex
	running bool
	queued  []chan error
}

func newRefresher(run func(context.Context) error) *refresher {
	return &refresher{run: run}
}

// Do loads now, or waits for the next load if one is already running.
func (r *refresher) Do(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		ch := make(chan error, 1)
		r.queued = append(r.queued, ch)
		r.mu.Unlock()
		select {
		case err := <-ch:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.running = true
	r.mu.Unlock()

	err := r.run(ctx)

	// The caller that started the chain drives trailing loads for everyone
	// who queued behind it. They must not inherit its cancellation.
	tctx := context.WithoutCancel(ctx)
	for {
		r.mu.Lock()
		waiters := r.queued
		r.queued = nil
		if len(waiters) == 0 {
			r.running = false
			r.mu.Unlock()
			return err
		}
		r.mu.Unlock()

		terr := r.run(tctx)
		for _, w := range waiters {
			w <- terr
		}
	}
}

// waiting reports how many callers are queued for the trailing load.
func (r *refresher) waiting() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queued)
}
