// Package domain holds the core entities and ports of the index service.
//
// The service is an at-least-once pipeline: callers enqueue durable
// IndexJob rows, a monitor leases them, and indexers replay the decoded
// operation against the search backend. Create/update must therefore be
// idempotent at the backend; update is the canonical replayable action.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	// ErrInvalidData is raised at job submission when input fails shape checks.
	ErrInvalidData = errors.New("invalid data")
	// ErrUnavailable covers unexpected server-side failures at the API surface.
	ErrUnavailable = errors.New("unavailable")
	// ErrJobOwned signals that another replica claimed the row first.
	ErrJobOwned = errors.New("job already owned")
	// ErrClaimFailed signals the claim write itself failed. The row was
	// never owned and stays claimable, so callers must not schedule a
	// retry successor for it.
	ErrClaimFailed = errors.New("claim failed")
	// ErrQueueEmpty signals that no job became ready within one poll interval.
	ErrQueueEmpty = errors.New("queue empty")
	// ErrQueueStopped signals that the queue has shut down.
	ErrQueueStopped = errors.New("queue stopped")
	// ErrDecode marks a malformed job payload.
	ErrDecode = errors.New("payload decode failed")
	// ErrUnsupportedTarget marks an unrecognized (index name, doc type) pair.
	ErrUnsupportedTarget = errors.New("unsupported index target")
	// ErrGenerator marks a document generation (database) failure.
	ErrGenerator = errors.New("document generation failed")
	// ErrBackend marks a search backend failure reported by a bulk session.
	ErrBackend = errors.New("search backend error")
	// ErrNotFound marks a missing row.
	ErrNotFound = errors.New("not found")
)

// IndexJob is one durable row of the index_jobs table: the unit of leasing
// and retry. Owner, Start, End and Successful stay nil until the lifecycle
// writes fill them in; a non-nil Successful means the row is terminal.
type IndexJob struct {
	ID               string
	Context          string
	Data             []byte
	Created          time.Time
	NotBefore        time.Time
	RetriesRemaining int
	Owner            *string
	Start            *time.Time
	End              *time.Time
	Successful       *bool
}

// Terminal reports whether the row will never be claimed again.
func (j IndexJob) Terminal() bool { return j.Successful != nil }

// JobStore is the persistence port for IndexJob rows.
//
// Claim must be an atomic compare-and-set on owner: exactly one caller
// succeeds per row, all others receive ErrJobOwned.
type JobStore interface {
	Insert(ctx context.Context, j IndexJob) (string, error)
	Get(ctx context.Context, id string) (IndexJob, error)
	// SelectClaimable returns up to limit rows with owner IS NULL,
	// successful IS NULL and not_before <= now, ordered by not_before ASC.
	SelectClaimable(ctx context.Context, now time.Time, limit int) ([]IndexJob, error)
	Claim(ctx context.Context, id, owner string) error
	Finish(ctx context.Context, id string, successful bool) error
}

// Document is an opaque key/value document destined for the search backend.
// Every generated document carries the entity's primary key under "id".
type Document map[string]any

// DocumentIterator is a single-pass, lazy stream of (key, document) pairs.
// It holds database resources for the stream's lifetime; Close releases
// them on every exit path.
type DocumentIterator interface {
	Next(ctx context.Context) bool
	Document() (key string, doc Document)
	Err() error
	Close()
}

// DocumentGenerator assembles documents of one type for a key set.
// An empty key set means "all keys".
type DocumentGenerator interface {
	Generate(ctx context.Context, keys []string) (DocumentIterator, error)
}

// BulkError is one per-item failure reported by the search backend.
type BulkError struct {
	Key    string
	Status int
	Reason string
}

// BulkSession batches index operations against one (index, type) target and
// flushes automatically when the configured threshold of buffered operations
// is reached. Close performs the final flush. Errors accumulates per-item
// backend failures; callers inspect it after every operation.
type BulkSession interface {
	Put(ctx context.Context, key string, doc Document, create bool) error
	Delete(ctx context.Context, key string) error
	Errors() []BulkError
	Close(ctx context.Context) error
}

// IndexClient is one pooled connection to the search backend. A client must
// never be used concurrently; the pool enforces mutual exclusion through
// checkout.
type IndexClient interface {
	Bulk(name, docType string, flushThreshold int) BulkSession
	Ping(ctx context.Context) error
}

// Indexer executes one decoded index operation and returns the number of
// operations issued to the backend.
type Indexer interface {
	Index(ctx context.Context, op IndexOp) (int, error)
}
