package cpupool

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("cpu pool closed")

type task struct {
	fn   func()
	done chan struct{}
}

// Pool runs CPU-bound functions on a fixed set of worker goroutines so
// they never occupy the goroutines multiplexing network I/O. Run blocks
// the caller until the function completes, but the work itself executes
// on a pool worker.
type Pool struct {
	tasks chan task

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New starts a pool with the given number of workers. Sizes below one are
// clamped to one.
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}

	p := &Pool{
		tasks: make(chan task),
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		t.fn()
		close(t.done)
	}
}

// Run executes fn on a pool worker and waits for it to finish. Enqueueing
// honors ctx; once fn is dispatched it runs to completion regardless of
// cancellation, and Run waits for it so callers never race the work.
func (p *Pool) Run(ctx context.Context, fn func()) error {
	// Read lock spans the enqueue so Close cannot close the task channel
	// while a send is in flight.
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrClosed
	}

	t := task{fn: fn, done: make(chan struct{})}

	select {
	case p.tasks <- t:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return ctx.Err()
	}

	<-t.done
	return nil
}

// Close stops the workers after in-flight tasks finish. Run calls made
// after Close fail with ErrClosed.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}
