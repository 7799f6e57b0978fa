package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/techresidents/indexsvc/internal/domain"
	"github.com/techresidents/indexsvc/internal/observability"
)

// Leaser claims a job, runs the work function, and finishes the row with
// its outcome. dbqueue.Queue is the production implementation.
type Leaser interface {
	Lease(ctx context.Context, job domain.IndexJob, fn func(ctx context.Context) error) error
}

// Coordinator drives one job end to end: lease, decode, index, and on
// failure schedule the retry successor. Work errors never propagate past
// Process; the durable rows carry the outcome.
type Coordinator struct {
	store      domain.JobStore
	indexer    domain.Indexer
	retryDelay time.Duration
	log        *slog.Logger
}

// NewCoordinator builds a coordinator.
func NewCoordinator(store domain.JobStore, indexer domain.Indexer, retryDelay time.Duration, log *slog.Logger) *Coordinator {
	return &Coordinator{store: store, indexer: indexer, retryDelay: retryDelay, log: log}
}

// Process leases and executes job. A lost claim race is not an error; the
// winning replica is handling the row.
func (c *Coordinator) Process(ctx context.Context, leaser Leaser, job domain.IndexJob) {
	err := leaser.Lease(ctx, job, func(ctx context.Context) error {
		return c.execute(ctx, job)
	})
	if err == nil {
		return
	}
	if errors.Is(err, domain.ErrJobOwned) {
		c.log.Warn("job claimed elsewhere", slog.String("job_id", job.ID))
		return
	}
	// The row was never claimed, so it stays claimable and the next poll
	// re-delivers it with its full retry budget. Scheduling a successor
	// here would fork the chain.
	if errors.Is(err, domain.ErrClaimFailed) {
		c.log.Error("claim failed", slog.String("job_id", job.ID), slog.Any("error", err))
		return
	}
	c.log.Error("job failed",
		slog.String("job_id", job.ID),
		slog.String("context", job.Context),
		slog.Any("error", err))
	c.retry(ctx, job, err)
}

func (c *Coordinator) execute(ctx context.Context, job domain.IndexJob) error {
	op, err := domain.DecodeIndexOp(job.Data)
	if err != nil {
		return err
	}
	count, err := c.indexer.Index(ctx, op)
	if err != nil {
		return fmt.Errorf("op=coordinator.index action=%s name=%s: %w", op.Action, op.Name, err)
	}
	c.log.Info("job indexed",
		slog.String("job_id", job.ID),
		slog.String("action", string(op.Action)),
		slog.String("index", op.Name),
		slog.Int("operations", count))
	return nil
}

// retry schedules a successor row with one fewer retry, delayed by the
// configured backoff. The failed row stays terminal; accounting lives in
// the chain of rows, not in-place updates. Scheduling failures are logged
// and absorbed so a flaky database cannot crash the worker.
func (c *Coordinator) retry(ctx context.Context, job domain.IndexJob, cause error) {
	if job.RetriesRemaining <= 0 {
		observability.JobsExhaustedTotal.Inc()
		c.log.Error("job retries exhausted",
			slog.String("job_id", job.ID),
			slog.String("context", job.Context),
			slog.Any("error", cause))
		return
	}
	successor := domain.IndexJob{
		Context:          job.Context,
		Data:             job.Data,
		NotBefore:        time.Now().UTC().Add(c.retryDelay),
		RetriesRemaining: job.RetriesRemaining - 1,
	}
	id, err := c.store.Insert(ctx, successor)
	if err != nil {
		c.log.Error("retry scheduling failed",
			slog.String("job_id", job.ID),
			slog.Any("error", err))
		return
	}
	observability.JobsRetriedTotal.Inc()
	c.log.Warn("retry scheduled",
		slog.String("job_id", job.ID),
		slog.String("retry_job_id", id),
		slog.Int("retries_remaining", successor.RetriesRemaining),
		slog.Duration("delay", c.retryDelay))
}
