// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

// ErrPoolStopped is returned by Submit once Stop has been called.
var ErrPoolStopped = errors.New("worker pool stopped")

type Task func(ctx context.Context) error

// Pool runs submitted tasks on a fixed set of workers. Tasks submitted with the
// same key always land on the same worker, so they run one at a time in submit order.
type Pool struct {
	wg     sync.WaitGroup
	queues []chan Task
	quit   chan struct{}
	once   sync.Once
	log    *zerolog.Logger
}

func NewPool(workers, buffer int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if buffer <= 0 {
		buffer = 16
	}
	l := logger.With().Str("component", "WorkerPool").Logger()
	p := &Pool{queues: make([]chan Task, workers), quit: make(chan struct{}), log: &l}
	for i := range p.queues {
		p.queues[i] = make(chan Task, buffer)
	}
	return p
}

func (p *Pool) Size() int { return len(p.queues) }

func (p *Pool) Start(ctx context.Context) {
	for i := range p.queues {
		p.wg.Add(1)
		go func(id int, jobs <-chan Task) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task := <-jobs:
					p.run(ctx, id, task)
				}
			}
		}(i, p.queues[i])
	}
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Int("worker", id).Interface("panic", r).Msg("task panicked")
		}
	}()
	if err := task(ctx); err != nil {
		p.log.Error().Err(err).Int("worker", id).Msg("task error")
	}
}

// Stop signals the workers and waits for the running tasks to return. Queued tasks are dropped.
func (p *Pool) Stop() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}

// Submit enqueues task on the worker owning key. It blocks while that worker's
// queue is full, until ctx is done or the pool stops.
func (p *Pool) Submit(ctx context.Context, key int64, task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	idx := int(uint64(key) % uint64(len(p.queues)))
	select {
	case <-p.quit:
		return ErrPoolStopped
	default:
	}
	select {
	case p.queues[idx] <- task:
		return nil
	case <-p.quit:
		return ErrPoolStopped
	case <-ctx.Done():
		return fmt.Errorf("submit task: %w", ctx.Err())
	}
}
