package dbqueue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/techresidents/indexsvc/internal/domain"
)

// Sink receives candidate jobs from the monitor. Put blocks while the sink
// is at capacity, which is the backpressure that keeps the monitor from
// outrunning the workers.
type Sink interface {
	Put(ctx context.Context, job domain.IndexJob) error
}

// Monitor moves jobs from the queue into the worker sink. An empty poll
// interval is normal and just loops; the monitor exits when the queue
// stops.
type Monitor struct {
	queue *Queue
	sink  Sink
	log   *slog.Logger

	once sync.Once
	done chan struct{}
}

// NewMonitor wires a queue to a sink.
func NewMonitor(queue *Queue, sink Sink, log *slog.Logger) *Monitor {
	return &Monitor{queue: queue, sink: sink, log: log, done: make(chan struct{})}
}

// Start launches the monitor loop. Calling it more than once is a no-op.
func (m *Monitor) Start() {
	m.once.Do(func() { go m.run() })
}

// Stop shuts down the underlying queue, which makes the loop exit.
func (m *Monitor) Stop() { m.queue.Stop() }

// Join waits for the loop to exit, up to timeout.
func (m *Monitor) Join(timeout time.Duration) bool {
	select {
	case <-m.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (m *Monitor) run() {
	defer close(m.done)
	ctx := context.Background()
	for {
		job, err := m.queue.Get(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrQueueStopped) {
				m.log.Info("job monitor stopped")
				return
			}
			if errors.Is(err, domain.ErrQueueEmpty) {
				continue
			}
			m.log.Error("queue get failed", slog.Any("error", err))
			continue
		}
		if err := m.sink.Put(ctx, job); err != nil {
			m.log.Error("dispatch failed", slog.String("job_id", job.ID), slog.Any("error", err))
		}
	}
}
