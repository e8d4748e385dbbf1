// Package workers runs construction passes over a bounded pool of
// goroutines and holds the process-wide pool size.
//
// Work is always split into fixed-size chunks that do not depend on the
// number of workers, and results are merged in chunk order, so a build is
// bit-for-bit identical whether it runs on one worker or many.
package workers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	mphferrors "github.com/stefanfred/MPHF-Experiments/errors"
)

var (
	defaultMu     sync.Mutex
	defaultCount  int
	defaultLocked bool
)

// SetDefault sets the process-wide worker count. It may be called once, and
// only before the first construction; later calls fail with
// ErrParallelismLocked.
func SetDefault(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: %d", mphferrors.ErrInvalidWorkers, n)
	}
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLocked {
		return mphferrors.ErrParallelismLocked
	}
	defaultCount = n
	defaultLocked = true
	return nil
}

// Default returns the process-wide worker count and locks it against later
// SetDefault calls. Without SetDefault it is the number of CPUs available to
// the process.
func Default() int {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if !defaultLocked {
		defaultCount = availableCPUs()
		defaultLocked = true
	}
	return defaultCount
}

// Resolve returns n when positive, otherwise Default().
func Resolve(n int) int {
	if n > 0 {
		return n
	}
	return Default()
}

// ForEachChunk splits [0, n) into consecutive chunks of chunkSize items and
// calls fn(ctx, chunk, lo, hi) for each, running at most workers calls at
// once. The first error cancels the remaining chunks and is returned.
func ForEachChunk(ctx context.Context, n, chunkSize, workers int, fn func(ctx context.Context, chunk, lo, hi int) error) error {
	if n <= 0 {
		return ctx.Err()
	}
	numChunks := NumChunks(n, chunkSize)

	if workers <= 1 || numChunks == 1 {
		for c := range numChunks {
			if err := ctx.Err(); err != nil {
				return err
			}
			lo := c * chunkSize
			if err := fn(ctx, c, lo, min(lo+chunkSize, n)); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for c := range numChunks {
		if gctx.Err() != nil {
			break
		}
		lo := c * chunkSize
		hi := min(lo+chunkSize, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, c, lo, hi)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// NumChunks returns the number of chunks ForEachChunk uses for n items.
func NumChunks(n, chunkSize int) int {
	return (n + chunkSize - 1) / chunkSize
}

// Run executes numTasks tasks on workers goroutines. Each goroutine creates
// its own state with newState and reuses it for every task it claims, which
// lets expensive scratch buffers live for the whole pass.
func Run[S any](ctx context.Context, numTasks, workers int, newState func() S, fn func(ctx context.Context, state S, task int) error) error {
	if numTasks <= 0 {
		return ctx.Err()
	}
	workers = max(1, min(workers, numTasks))

	var next atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			state := newState()
			for {
				task := int(next.Add(1) - 1)
				if task >= numTasks {
					return nil
				}
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := fn(gctx, state, task); err != nil {
					return err
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
