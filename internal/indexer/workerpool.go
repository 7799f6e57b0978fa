package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/techresidents/indexsvc/internal/domain"
	"github.com/techresidents/indexsvc/internal/observability"
)

// ThreadPool runs a fixed number of worker goroutines over a bounded job
// channel. Put blocks while the channel is full, which backpressures the
// monitor. A panicking job is logged and absorbed; workers never die.
type ThreadPool struct {
	workers int
	coords  *CoordinatorPool
	leaser  Leaser
	log     *slog.Logger

	jobs chan domain.IndexJob
	wg   sync.WaitGroup
	once sync.Once
	stop sync.Once
}

// NewThreadPool builds a pool of workers goroutines feeding from coords.
func NewThreadPool(workers int, coords *CoordinatorPool, leaser Leaser, log *slog.Logger) *ThreadPool {
	if workers < 1 {
		workers = 1
	}
	return &ThreadPool{
		workers: workers,
		coords:  coords,
		leaser:  leaser,
		log:     log,
		jobs:    make(chan domain.IndexJob, workers),
	}
}

// Start launches the workers. Calling it more than once is a no-op.
func (p *ThreadPool) Start() {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.work()
		}
	})
}

// Stop closes the intake and waits for in-flight jobs to finish.
func (p *ThreadPool) Stop() {
	p.stop.Do(func() { close(p.jobs) })
	p.wg.Wait()
}

// Put submits a job, blocking while all workers are busy and the buffer is
// full.
func (p *ThreadPool) Put(ctx context.Context, job domain.IndexJob) error {
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("op=threadpool.put: %w", ctx.Err())
	}
}

func (p *ThreadPool) work() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.process(job)
	}
}

func (p *ThreadPool) process(job domain.IndexJob) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("worker panic",
				slog.String("job_id", job.ID),
				slog.Any("panic", r))
		}
	}()
	observability.WorkersBusy.Inc()
	defer observability.WorkersBusy.Dec()

	ctx := context.Background()
	coord, err := p.coords.Acquire(ctx)
	if err != nil {
		p.log.Error("coordinator acquire failed", slog.Any("error", err))
		return
	}
	defer p.coords.Release(coord)
	coord.Process(ctx, p.leaser, job)
}
