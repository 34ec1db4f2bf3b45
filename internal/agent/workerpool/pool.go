package workerpool

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/labassist/backend/internal/infrastructure/logger"
)

// Task is a unit of work submitted to the pool.
type Task func()

// Pool is a bounded goroutine pool with a fixed-size task queue. Submit never
// blocks: when the queue is full the task is dropped.
type Pool struct {
	queue    chan Task
	wg       sync.WaitGroup
	stopChan chan struct{}
	log      *logger.Logger

	mu        sync.RWMutex
	accepting bool
	stopOnce  sync.Once
	closeOnce sync.Once
}

func New(maxWorkers, queueSize int, log *logger.Logger) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if log == nil {
		log = logger.NewNop()
	}

	p := &Pool{
		queue:     make(chan Task, queueSize),
		stopChan:  make(chan struct{}),
		log:       log,
		accepting: true,
	}
	for i := 0; i < maxWorkers; i++ {
		go p.worker()
	}

	log.Debugw("workerpool_started", "workers", maxWorkers, "queue_size", queueSize)
	return p
}

// Submit enqueues task. It returns false if the pool is stopped or the queue is full.
func (p *Pool) Submit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.accepting {
		return false
	}

	// Add before enqueue so Drain cannot miss the task.
	p.wg.Add(1)
	select {
	case p.queue <- task:
		return true
	default:
		p.wg.Done()
		p.log.Warnw("workerpool_queue_full_task_dropped")
		return false
	}
}

func (p *Pool) StopAccepting() {
	p.mu.Lock()
	p.accepting = false
	p.mu.Unlock()
}

// Drain stops intake and waits for queued and running tasks until ctx is done.
// Workers exit afterwards.
func (p *Pool) Drain(ctx context.Context) {
	p.StopAccepting()
	p.stopOnce.Do(func() { close(p.stopChan) })

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Debugw("workerpool_drained")
	case <-ctx.Done():
		p.log.Warnw("workerpool_drain_timed_out")
	}

	p.mu.Lock()
	p.closeOnce.Do(func() { close(p.queue) })
	p.mu.Unlock()
}

func (p *Pool) worker() {
	for {
		select {
		case task, ok := <-p.queue:
			if !ok {
				return
			}
			p.runTask(task)
		case <-p.stopChan:
			for {
				select {
				case task, ok := <-p.queue:
					if !ok {
						return
					}
					p.runTask(task)
				default:
					return
				}
			}
		}
	}
}

func (p *Pool) runTask(task Task) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorw("workerpool_task_panic", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	task()
}
