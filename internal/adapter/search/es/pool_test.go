package es_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techresidents/indexsvc/internal/adapter/search/es"
	"github.com/techresidents/indexsvc/internal/domain"
)

type nopClient struct{}

func (nopClient) Bulk(name, docType string, flushThreshold int) domain.BulkSession { return nil }
func (nopClient) Ping(ctx context.Context) error                                   { return nil }

func TestPool_BlocksWhenExhausted(t *testing.T) {
	t.Parallel()
	pool, err := es.NewPool(1, func() (domain.IndexClient, error) { return nopClient{}, nil })
	require.NoError(t, err)

	ctx := context.Background()
	c, err := pool.Acquire(ctx)
	require.NoError(t, err)

	// Second acquire must block until the first client is released.
	shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(shortCtx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	pool.Release(c)
	c2, err := pool.Acquire(ctx)
	require.NoError(t, err)
	pool.Release(c2)
}

func TestPool_RejectsZeroSize(t *testing.T) {
	t.Parallel()
	_, err := es.NewPool(0, func() (domain.IndexClient, error) { return nopClient{}, nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidData)
}
