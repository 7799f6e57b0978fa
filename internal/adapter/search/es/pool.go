package es

import (
	"context"
	"fmt"

	"github.com/techresidents/indexsvc/internal/domain"
)

// Pool is a bounded set of index clients. Acquire blocks while all clients
// are checked out, which throttles concurrent backend work to the pool size.
type Pool struct {
	clients chan domain.IndexClient
}

// NewPool creates size clients with the given factory.
func NewPool(size int, factory func() (domain.IndexClient, error)) (*Pool, error) {
	if size < 1 {
		return nil, fmt.Errorf("op=espool.new: size %d: %w", size, domain.ErrInvalidData)
	}
	p := &Pool{clients: make(chan domain.IndexClient, size)}
	for i := 0; i < size; i++ {
		c, err := factory()
		if err != nil {
			return nil, fmt.Errorf("op=espool.new: %w", err)
		}
		p.clients <- c
	}
	return p, nil
}

// Acquire checks out a client, blocking until one is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (domain.IndexClient, error) {
	select {
	case c := <-p.clients:
		return c, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("op=espool.acquire: %w", ctx.Err())
	}
}

// Release returns a client to the pool. Callers must release exactly the
// client they acquired.
func (p *Pool) Release(c domain.IndexClient) {
	p.clients <- c
}
