// Package batch provides the throttled batch executor that drives every
// remote-heavy step of the migration. Items are processed in sequential
// batches of bounded width with a pause between batches, so that nested use
// (comments inside threads inside rooms) stays under the destination API's
// aggregate rate limit.
package batch

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultWidth is the number of operations run concurrently per batch.
	DefaultWidth = 10
	// DefaultDelay is the pause between batches. It is backpressure, not a
	// correctness requirement.
	DefaultDelay = 50 * time.Millisecond
)

// Options controls the shape of a batched run.
type Options struct {
	Width int
	Delay time.Duration
}

// WithDefaults fills a zero or negative Width. Delay is taken as given; a
// zero Delay means no pause, callers wanting the default use DefaultDelay.
func (o Options) WithDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Delay < 0 {
		o.Delay = 0
	}
	return o
}

// Run partitions items into ceil(len/Width) sequential batches, runs each
// batch's operations concurrently, waits for the whole batch, sleeps Delay,
// then moves on. The returned slice has one entry per input item in input
// order; entries for items whose operation returned an error are nil. A
// single item's failure never aborts its siblings, but a panic inside op
// aborts the whole run and is re-raised on the caller's goroutine.
//
// If ctx is cancelled between batches, remaining items are left nil and the
// partial result slice is returned.
func Run[T any, R any](ctx context.Context, items []T, opts Options, op func(context.Context, T) (R, error)) []*R {
	opts = opts.WithDefaults()
	results := make([]*R, len(items))

	var (
		panicMu  sync.Mutex
		panicked any
	)

	for start := 0; start < len(items); start += opts.Width {
		if ctx.Err() != nil {
			return results
		}

		end := start + opts.Width
		if end > len(items) {
			end = len(items)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						panicMu.Lock()
						if panicked == nil {
							panicked = r
						}
						panicMu.Unlock()
					}
				}()
				res, err := op(ctx, items[i])
				if err != nil {
					return
				}
				results[i] = &res
			}(i)
		}
		wg.Wait()

		if panicked != nil {
			panic(panicked)
		}

		if end < len(items) && opts.Delay > 0 {
			select {
			case <-ctx.Done():
				return results
			case <-time.After(opts.Delay):
			}
		}
	}

	return results
}
