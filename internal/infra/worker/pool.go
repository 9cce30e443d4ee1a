// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"learnhub-checkout/internal/domain"
	"learnhub-checkout/internal/domain/ports/adapter"
)

var _ adapter.TaskQueue = (*Pool)(nil)

// Task is background work such as rendering and mailing a receipt.
type Task = func(ctx context.Context) error

// Pool runs tasks on a fixed set of goroutines over a bounded queue of
// 4 slots per worker. Submit never blocks; Stop runs what is queued.
type Pool struct {
	workers int
	log     *zerolog.Logger

	mu     sync.RWMutex
	queue  chan Task
	closed bool
	wg     sync.WaitGroup
}

func NewPool(workers int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	l := logger.With().Str("component", "worker_pool").Logger()
	return &Pool{workers: workers, queue: make(chan Task, workers*4), log: &l}
}

// Start launches the workers. ctx is handed to every task.
func (p *Pool) Start(ctx context.Context) {
	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func(id int) {
			defer p.wg.Done()
			for task := range p.queue {
				p.run(ctx, id, task)
			}
		}(i)
	}
	p.log.Info().Int("workers", p.workers).Int("queue", cap(p.queue)).Msg("worker pool started")
}

// Stop closes the queue and waits until every queued task has run.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("%w: pool stopped", domain.ErrWorkerSaturated)
	}
	select {
	case p.queue <- task:
		return nil
	default:
		p.log.Warn().Int("queued", len(p.queue)).Msg("queue full, task rejected")
		return domain.ErrWorkerSaturated
	}
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Int("worker", id).Interface("panic", r).Msg("task panicked")
		}
	}()
	if err := task(ctx); err != nil {
		p.log.Warn().Err(err).Int("worker", id).Msg("task failed")
	}
}
