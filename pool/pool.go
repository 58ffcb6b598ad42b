package pool

import (
	"runtime"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
)

// Task is a unit of work submitted to a Pool.
type Task func()

// Future resolves when a submitted task has finished executing, or when the
// pool is closed before the task could run.
type Future struct {
	done chan struct{}
}

// job pairs a task with the future tracking it, nil for detached
// submissions. Keeping the channel alongside the task lets Close resolve
// futures of tasks that never ran.
type job struct {
	fn   Task
	done chan struct{}
}

// run executes the job, resolving its future.
func (j job) run() {
	if j.done != nil {
		defer close(j.done)
	}
	j.fn()
}

// Wait blocks until the task has run.
func (f *Future) Wait() { <-f.done }

// Done exposes the completion channel for select-based waiting.
func (f *Future) Done() <-chan struct{} { return f.done }

// Pool runs submitted tasks on a fixed set of worker goroutines draining a
// shared queue.
type Pool struct {
	work     *Queue
	shutdown *Queue // func() error callbacks run at Close
	done     *atomic.Bool
	idle     []*atomic.Bool
	wg       sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// New starts a pool of n workers. If n < 1 the pool sizes itself to the
// machine, always keeping at least one worker.
func New(n int) *Pool {
	if n < 1 {
		n = runtime.NumCPU() - 1
		if n < 1 {
			n = 1
		}
	}
	p := &Pool{
		work:     NewQueue(),
		shutdown: NewQueue(),
		done:     atomic.NewBool(false),
		idle:     make([]*atomic.Bool, n),
	}
	for i := range p.idle {
		p.idle[i] = atomic.NewBool(true)
		p.wg.Add(1)
		go p.worker(p.idle[i])
	}
	return p
}

// Submit queues task and returns a Future resolving when it has run.
// After Close the task is dropped and the Future resolves immediately.
func (p *Pool) Submit(task Task) *Future {
	f := &Future{done: make(chan struct{})}
	if task == nil || !p.work.TryPush(job{fn: task, done: f.done}) {
		close(f.done)
	}
	return f
}

// SubmitDetached queues task without completion tracking.
func (p *Pool) SubmitDetached(task Task) {
	if task != nil {
		p.work.TryPush(job{fn: task})
	}
}

// NumIdle returns the number of workers currently waiting for work.
func (p *Pool) NumIdle() int {
	n := 0
	for _, flag := range p.idle {
		if flag.Load() {
			n++
		}
	}
	return n
}

// Pending returns the number of tasks waiting to be processed.
func (p *Pool) Pending() int { return p.work.Len() }

// OnShutdown registers fn to run when the pool is closed, before workers
// are joined.
func (p *Pool) OnShutdown(fn func() error) {
	if fn != nil {
		p.shutdown.Push(fn)
	}
}

// Close drains the shutdown callbacks, invalidates the work queue to
// unblock the workers, and joins them. The combined callback errors are
// returned. Close is idempotent.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		var err error
		for {
			v, ok := p.shutdown.TryPop()
			if !ok {
				break
			}
			err = multierr.Append(err, v.(func() error)())
		}
		p.done.Store(true)
		p.work.Invalidate()
		p.wg.Wait()
		// Tasks still queued never ran; their futures must resolve anyway
		// or waiters block forever.
		for _, v := range p.work.Drain() {
			if j := v.(job); j.done != nil {
				close(j.done)
			}
		}
		p.closeErr = err
	})
	return p.closeErr
}

// worker drains the shared queue until the pool shuts down, keeping its
// availability flag current.
func (p *Pool) worker(idle *atomic.Bool) {
	defer p.wg.Done()
	defer idle.Store(false)
	for !p.done.Load() {
		idle.Store(true)
		v, ok := p.work.WaitPop()
		if !ok {
			return
		}
		idle.Store(false)
		v.(job).run()
	}
}
