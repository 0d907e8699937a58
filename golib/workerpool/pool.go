package workerpool

import (
	"context"
	"sync"
)

// Job is a unit of work to run on a Pool.
type Job func() error

// Pool runs jobs on a fixed number of worker goroutines. A Pool may be
// reused: jobs can be added again after Wait returns.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Job
	stopped bool
	err     error

	pending sync.WaitGroup
}

// New returns a Pool with numWorkers workers.
func New(numWorkers int) *Pool {
	return NewWithCtx(context.Background(), numWorkers)
}

// NewWithCtx returns a Pool that stops once ctx is done. Jobs already
// running when the context fires are allowed to finish.
func NewWithCtx(ctx context.Context, numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	p := &Pool{}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < numWorkers; i++ {
		go p.work()
	}
	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			p.Stop()
		}()
	}
	return p
}

// Add queues jobs for execution without blocking. Jobs added after Stop
// are discarded.
func (p *Pool) Add(jobs []Job) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.pending.Add(len(jobs))
	p.queue = append(p.queue, jobs...)
	p.cond.Broadcast()
}

// Wait blocks until every queued job has run or been discarded by Stop,
// then returns the first error any job returned.
func (p *Pool) Wait() error {
	p.pending.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stop discards queued jobs and shuts the workers down. Jobs already
// running are allowed to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	for range p.queue {
		p.pending.Done()
	}
	p.queue = nil
	p.cond.Broadcast()
}

func (p *Pool) work() {
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.stopped {
			p.cond.Wait()
		}
		if p.stopped {
			p.mu.Unlock()
			return
		}
		job := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		err := job()

		p.mu.Lock()
		if err != nil && p.err == nil {
			p.err = err
		}
		p.mu.Unlock()
		p.pending.Done()
	}
}
