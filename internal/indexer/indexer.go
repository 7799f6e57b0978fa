// Package indexer executes decoded index operations and runs the worker
// side of the job pipeline: a bounded coordinator pool, a fixed worker
// pool, and retry accounting that schedules a successor row per failure.
package indexer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/techresidents/indexsvc/internal/domain"
)

// TargetRegistry resolves (index name, document type) to a generator.
type TargetRegistry interface {
	Lookup(name, docType string) (domain.DocumentGenerator, error)
}

// ClientPool hands out backend clients one at a time.
type ClientPool interface {
	Acquire(ctx context.Context) (domain.IndexClient, error)
	Release(c domain.IndexClient)
}

// ESIndexer executes one IndexOp against the search backend. It borrows a
// client for the duration of the operation and runs everything through one
// bulk session, so an op's backend writes batch together.
type ESIndexer struct {
	clients        ClientPool
	registry       TargetRegistry
	flushThreshold int
	log            *slog.Logger
}

// NewESIndexer builds an indexer.
func NewESIndexer(clients ClientPool, registry TargetRegistry, flushThreshold int, log *slog.Logger) *ESIndexer {
	return &ESIndexer{clients: clients, registry: registry, flushThreshold: flushThreshold, log: log}
}

// Index runs op and returns the number of operations issued to the backend.
// The decoded action is authoritative: create rejects existing documents,
// update overwrites, delete removes by key.
func (ix *ESIndexer) Index(ctx context.Context, op domain.IndexOp) (int, error) {
	gen, err := ix.registry.Lookup(op.Name, op.Type)
	if err != nil {
		return 0, err
	}

	client, err := ix.clients.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("op=indexer.acquire: %w", err)
	}
	defer ix.clients.Release(client)

	session := client.Bulk(op.Name, op.Type, ix.flushThreshold)
	count, err := ix.run(ctx, session, gen, op)
	closeErr := session.Close(ctx)
	if err != nil {
		return count, err
	}
	if closeErr != nil {
		return count, closeErr
	}
	if err := backendErrors(session); err != nil {
		return count, err
	}
	return count, nil
}

func (ix *ESIndexer) run(ctx context.Context, session domain.BulkSession, gen domain.DocumentGenerator, op domain.IndexOp) (int, error) {
	if op.Action == domain.ActionDelete {
		count := 0
		for _, key := range op.Keys {
			if err := session.Delete(ctx, key); err != nil {
				return count, err
			}
			count++
			if err := backendErrors(session); err != nil {
				return count, err
			}
		}
		return count, nil
	}

	create := op.Action == domain.ActionCreate
	it, err := gen.Generate(ctx, op.Keys)
	if err != nil {
		return 0, err
	}
	defer it.Close()

	count := 0
	for it.Next(ctx) {
		key, doc := it.Document()
		if err := session.Put(ctx, key, doc, create); err != nil {
			return count, err
		}
		count++
		if err := backendErrors(session); err != nil {
			return count, err
		}
	}
	if err := it.Err(); err != nil {
		return count, err
	}
	return count, nil
}

// backendErrors folds accumulated per-item failures into one error.
func backendErrors(session domain.BulkSession) error {
	errs := session.Errors()
	if len(errs) == 0 {
		return nil
	}
	first := errs[0]
	return fmt.Errorf("op=indexer.bulk key=%s status=%d reason=%q (%d total): %w",
		first.Key, first.Status, first.Reason, len(errs), domain.ErrBackend)
}
