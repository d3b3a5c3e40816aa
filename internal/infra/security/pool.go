package security

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// workerPool bounds how many CPU-heavy derivations run at once.
type workerPool struct {
	sem *semaphore.Weighted
}

func newWorkerPool(size int) *workerPool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &workerPool{sem: semaphore.NewWeighted(int64(size))}
}

// run blocks until a slot is free or ctx is done, then executes fn.
func (p *workerPool) run(ctx context.Context, fn func()) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	fn()
	return nil
}
