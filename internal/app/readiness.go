package app

import (
	"context"
	"fmt"

	"github.com/techresidents/indexsvc/internal/domain"
)

// Pinger is the minimal interface for a database pool capable of Ping.
type Pinger interface{ Ping(ctx context.Context) error }

// BuildReadinessChecks returns the db and search backend checks for
// /readyz.
func BuildReadinessChecks(pool Pinger, backend domain.IndexClient) (
	func(ctx context.Context) error,
	func(ctx context.Context) error,
) {
	dbCheck := func(ctx context.Context) error {
		if pool == nil {
			return fmt.Errorf("db not configured")
		}
		return pool.Ping(ctx)
	}
	esCheck := func(ctx context.Context) error {
		if backend == nil {
			return fmt.Errorf("search backend not configured")
		}
		return backend.Ping(ctx)
	}
	return dbCheck, esCheck
}
