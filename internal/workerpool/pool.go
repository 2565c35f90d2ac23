// Package workerpool implements a bounded pool of worker goroutines
// draining a FIFO task queue: sync.Mutex + sync.Cond guarding a slice,
// with a per-task panic guard.
package workerpool

import (
	"errors"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrStopped is returned by Enqueue once the pool has been told to stop.
var ErrStopped = errors.New("workerpool: stopped")

// Task is a callable enqueued by the reactor and run by exactly one
// worker.
type Task func()

// Pool is a fixed set of goroutines draining a FIFO task queue.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Task
	stopped bool
	wg      sync.WaitGroup
	log     *logrus.Entry
}

// New starts n worker goroutines. n<=0 means runtime.GOMAXPROCS(0).
func New(n int, log *logrus.Entry) *Pool {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	p := &Pool{log: log}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.worker(i)
	}
	return p
}

// Enqueue appends task to the queue and wakes one waiting worker. It
// rejects with ErrStopped once Stop has been called.
func (p *Pool) Enqueue(task Task) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrStopped
	}
	p.queue = append(p.queue, task)
	p.mu.Unlock()
	p.cond.Signal()
	return nil
}

// Stop sets the stop flag, wakes every waiter, and joins all workers.
// Already-dequeued tasks run to completion; no further task is accepted.
func (p *Pool) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.stopped {
			p.cond.Wait()
		}
		if len(p.queue) == 0 && p.stopped {
			p.mu.Unlock()
			return
		}
		task := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.runTask(id, task)
	}
}

// runTask executes task under a catch-all guard so one failing task
// never kills a worker goroutine; the panic is logged and the worker
// returns to the queue.
func (p *Pool) runTask(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.WithField("worker", id).WithField("panic", r).Error("worker task panicked")
		}
	}()
	task()
}
