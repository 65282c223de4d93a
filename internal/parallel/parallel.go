// Package parallel provides the thread pool kernels are executed on.
package parallel

import (
	"golang.org/x/sync/errgroup"
)

// Pool runs loop bodies on a bounded number of goroutines.
//
// A nil *Pool, or one of size 1, runs everything inline on the caller's
// goroutine, which is how the kernels behave without a thread pool.
type Pool struct {
	size int
}

// New creates a pool that runs at most size tasks at once.
func New(size int) *Pool {
	return &Pool{size: max(size, 1)}
}

// Size returns the number of workers; 1 for a nil pool.
func (p *Pool) Size() int {
	if p == nil {
		return 1
	}
	return p.size
}

// Parallelize1D executes f(i) for i in [0, n). Each worker receives a
// contiguous range of indices. It returns once every call has finished.
func (p *Pool) Parallelize1D(n int, f func(i int)) {
	workers := p.Size()
	if workers == 1 || n <= 1 {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(workers)
	chunkSize := (n + workers - 1) / workers

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				f(i)
			}
			return nil
		})
	}
	_ = g.Wait() // bodies never fail
}

// Parallelize2D executes f(i, j) for i in [0, rows) and j in [0, cols).
// Common in NCHW kernels iterating over batch and channels.
func (p *Pool) Parallelize2D(rows, cols int, f func(i, j int)) {
	p.Parallelize1D(rows*cols, func(k int) {
		f(k/cols, k%cols)
	})
}
