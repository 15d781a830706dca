// Package pool provides the bounded worker pool probes are scheduled on.
package pool

import (
	"golang.org/x/sync/errgroup"
)

// Pool runs tasks on at most Size goroutines at once. A Pool is single use:
// schedule tasks with Go, then Wait once.
type Pool struct {
	group errgroup.Group
	size  int
}

// New creates a pool of the given size. size <= 0 means unbounded.
func New(size int) *Pool {
	p := &Pool{size: size}
	if size > 0 {
		p.group.SetLimit(size)
	}
	return p
}

// Size returns the concurrency bound, or 0 when unbounded
func (p *Pool) Size() int {
	if p.size < 0 {
		return 0
	}
	return p.size
}

// Go schedules task, blocking while the pool is full
func (p *Pool) Go(task func()) {
	p.group.Go(func() error {
		task()
		return nil
	})
}

// Wait blocks until every scheduled task has returned
func (p *Pool) Wait() {
	p.group.Wait()
}

// Factory creates a fresh pool for a batch of tasks. It is what the attack
// stages depend on, so tests can pin the concurrency degree.
type Factory func(size int) *Pool
