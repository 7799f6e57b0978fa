package indexer

import (
	"context"
	"fmt"

	"github.com/techresidents/indexsvc/internal/domain"
)

// CoordinatorPool is a bounded set of coordinators. Its size caps how many
// jobs the process drives concurrently, independent of the worker count.
type CoordinatorPool struct {
	coords chan *Coordinator
}

// NewCoordinatorPool creates size coordinators with the factory.
func NewCoordinatorPool(size int, factory func() *Coordinator) (*CoordinatorPool, error) {
	if size < 1 {
		return nil, fmt.Errorf("op=coordpool.new: size %d: %w", size, domain.ErrInvalidData)
	}
	p := &CoordinatorPool{coords: make(chan *Coordinator, size)}
	for i := 0; i < size; i++ {
		p.coords <- factory()
	}
	return p, nil
}

// Acquire checks out a coordinator, blocking until one is free or ctx is
// done.
func (p *CoordinatorPool) Acquire(ctx context.Context) (*Coordinator, error) {
	select {
	case c := <-p.coords:
		return c, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("op=coordpool.acquire: %w", ctx.Err())
	}
}

// Release returns a coordinator to the pool.
func (p *CoordinatorPool) Release(c *Coordinator) {
	p.coords <- c
}
