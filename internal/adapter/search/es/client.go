// Package es adapts the Elasticsearch client to the indexing ports.
//
// A Client is one connection to the cluster and must not be shared between
// goroutines; Pool hands clients out one at a time. Bulk sessions buffer
// NDJSON operations and flush when the configured threshold is reached.
package es

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/elastic/go-elasticsearch/v8"

	"github.com/techresidents/indexsvc/internal/domain"
)

// Client wraps an Elasticsearch connection. It implements domain.IndexClient.
type Client struct {
	es *elasticsearch.Client
}

// NewClient builds a client against the given endpoint.
func NewClient(endpoint string) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{endpoint},
	})
	if err != nil {
		return nil, fmt.Errorf("op=es.new: %w", err)
	}
	return &Client{es: es}, nil
}

// Bulk opens a buffered session against one (index, type) target.
func (c *Client) Bulk(name, docType string, flushThreshold int) domain.BulkSession {
	return newBulkSession(c.es, name, docType, flushThreshold)
}

// Ping checks cluster reachability.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("op=es.ping: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("op=es.ping status=%d: %w", res.StatusCode, domain.ErrBackend)
	}
	return nil
}

// WaitReady pings with exponential backoff until the cluster answers or the
// context expires. Used at process startup.
func (c *Client) WaitReady(ctx context.Context, maxWait time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxWait
	op := func() error { return c.Ping(ctx) }
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("op=es.wait_ready: %w", err)
	}
	return nil
}
