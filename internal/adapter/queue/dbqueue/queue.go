// Package dbqueue implements a durable job queue on top of the index_jobs
// table. No broker is involved: a poll loop selects ready rows and hands
// them to consumers, and ownership is settled by the store's atomic claim
// when a consumer leases the row.
package dbqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/techresidents/indexsvc/internal/domain"
	"github.com/techresidents/indexsvc/internal/observability"
)

// Queue polls the job store for claimable rows and delivers them through
// Get. Rows delivered here are candidates only; the claim happens inside
// Lease, so two replicas may see the same row and exactly one wins it.
type Queue struct {
	store        domain.JobStore
	log          *slog.Logger
	pollInterval time.Duration
	fetchLimit   int
	owner        string

	jobs   chan domain.IndexJob
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
	stop   sync.Once
}

// New builds a queue over store. The owner identity is unique per process
// so claimed rows are attributable in the table.
func New(store domain.JobStore, pollInterval time.Duration, fetchLimit int, log *slog.Logger) *Queue {
	host, _ := os.Hostname()
	if host == "" {
		host = "indexsvc"
	}
	if fetchLimit < 1 {
		fetchLimit = 1
	}
	return &Queue{
		store:        store,
		log:          log,
		pollInterval: pollInterval,
		fetchLimit:   fetchLimit,
		owner:        fmt.Sprintf("%s-%s", host, ulid.Make().String()),
		jobs:         make(chan domain.IndexJob, fetchLimit),
		stopCh:       make(chan struct{}),
	}
}

// Owner returns the claim identity this queue stamps on leased rows.
func (q *Queue) Owner() string { return q.owner }

// Start launches the poll loop. Calling it more than once is a no-op.
func (q *Queue) Start() {
	q.once.Do(func() {
		q.wg.Add(1)
		go q.pollLoop()
	})
}

// Stop shuts the queue down and unblocks all Get callers.
func (q *Queue) Stop() {
	q.stop.Do(func() { close(q.stopCh) })
	q.wg.Wait()
}

// Get returns the next candidate job. It blocks for at most one poll
// interval; an empty interval yields ErrQueueEmpty, shutdown yields
// ErrQueueStopped.
func (q *Queue) Get(ctx context.Context) (domain.IndexJob, error) {
	timer := time.NewTimer(q.pollInterval)
	defer timer.Stop()
	select {
	case j := <-q.jobs:
		return j, nil
	case <-q.stopCh:
		return domain.IndexJob{}, domain.ErrQueueStopped
	case <-ctx.Done():
		return domain.IndexJob{}, fmt.Errorf("op=queue.get: %w", ctx.Err())
	case <-timer.C:
		return domain.IndexJob{}, domain.ErrQueueEmpty
	}
}

// Lease claims job for this queue's owner, runs fn, and finishes the row
// with fn's outcome. A lost claim race returns ErrJobOwned without touching
// the row; any other claim failure returns ErrClaimFailed and leaves the
// row claimable. In both cases the caller drops the candidate and moves on.
func (q *Queue) Lease(ctx context.Context, job domain.IndexJob, fn func(ctx context.Context) error) error {
	if err := q.store.Claim(ctx, job.ID, q.owner); err != nil {
		if errors.Is(err, domain.ErrJobOwned) {
			return err
		}
		// The claim write failed; the row stays unowned and will be
		// re-polled. Report it distinctly so no retry chain forks off a
		// row that is still claimable.
		return fmt.Errorf("op=queue.lease: %v: %w", err, domain.ErrClaimFailed)
	}
	observability.JobsClaimedTotal.Inc()

	workErr := fn(ctx)
	successful := workErr == nil
	if err := q.store.Finish(ctx, job.ID, successful); err != nil {
		q.log.Error("finish failed", slog.String("job_id", job.ID), slog.Any("error", err))
		if workErr == nil {
			return fmt.Errorf("op=queue.lease: %w", err)
		}
	}
	if successful {
		observability.JobsSucceededTotal.Inc()
	} else {
		observability.JobsFailedTotal.Inc()
	}
	return workErr
}

func (q *Queue) pollLoop() {
	defer q.wg.Done()
	ticker := time.NewTicker(q.pollInterval)
	defer ticker.Stop()
	q.poll()
	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			q.poll()
		}
	}
}

// poll selects ready rows and offers them to consumers. A full delivery
// channel drops the remainder; unclaimed rows reappear on the next tick.
func (q *Queue) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), q.pollInterval)
	defer cancel()
	jobs, err := q.store.SelectClaimable(ctx, time.Now().UTC(), q.fetchLimit)
	if err != nil {
		q.log.Error("poll failed", slog.Any("error", err))
		return
	}
	for _, j := range jobs {
		select {
		case q.jobs <- j:
		default:
			return
		}
	}
}
