package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/techresidents/indexsvc/internal/domain"
	"github.com/techresidents/indexsvc/internal/observability"
)

// bulkSession buffers NDJSON bulk operations for one (index, type) target.
// Reaching the flush threshold triggers an automatic flush; Close performs
// the final one. Per-item backend failures accumulate in errs instead of
// failing the whole batch.
type bulkSession struct {
	es        *elasticsearch.Client
	index     string
	docType   string
	threshold int
	buf       bytes.Buffer
	buffered  int
	errs      []domain.BulkError
	closed    bool
}

func newBulkSession(es *elasticsearch.Client, index, docType string, threshold int) *bulkSession {
	if threshold < 1 {
		threshold = 1
	}
	return &bulkSession{es: es, index: index, docType: docType, threshold: threshold}
}

type bulkMeta struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

type bulkItemResult struct {
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

type bulkResponse struct {
	Errors bool                        `json:"errors"`
	Items  []map[string]bulkItemResult `json:"items"`
}

// Put buffers an index or create operation for key. Create fails on the
// backend with a 409 when the document already exists; index overwrites.
func (s *bulkSession) Put(ctx context.Context, key string, doc domain.Document, create bool) error {
	if s.closed {
		return fmt.Errorf("op=bulk.put: session closed: %w", domain.ErrBackend)
	}
	action := "index"
	if create {
		action = "create"
	}
	if err := s.append(action, key, doc); err != nil {
		return err
	}
	observability.DocumentsIndexedTotal.WithLabelValues(s.index, action).Inc()
	return s.maybeFlush(ctx)
}

// Delete buffers a delete operation for key.
func (s *bulkSession) Delete(ctx context.Context, key string) error {
	if s.closed {
		return fmt.Errorf("op=bulk.delete: session closed: %w", domain.ErrBackend)
	}
	if err := s.append("delete", key, nil); err != nil {
		return err
	}
	observability.DocumentsIndexedTotal.WithLabelValues(s.index, "delete").Inc()
	return s.maybeFlush(ctx)
}

// Errors returns the per-item failures accumulated so far.
func (s *bulkSession) Errors() []domain.BulkError { return s.errs }

// Close flushes any buffered operations and retires the session.
func (s *bulkSession) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.buffered == 0 {
		return nil
	}
	return s.flush(ctx)
}

func (s *bulkSession) append(action, key string, doc domain.Document) error {
	meta := map[string]bulkMeta{action: {Index: s.index, ID: key}}
	line, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("op=bulk.append: %w", err)
	}
	s.buf.Write(line)
	s.buf.WriteByte('\n')
	if doc != nil {
		body, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("op=bulk.append: %w", err)
		}
		s.buf.Write(body)
		s.buf.WriteByte('\n')
	}
	s.buffered++
	return nil
}

func (s *bulkSession) maybeFlush(ctx context.Context) error {
	if s.buffered < s.threshold {
		return nil
	}
	return s.flush(ctx)
}

func (s *bulkSession) flush(ctx context.Context) error {
	start := time.Now()
	res, err := s.es.Bulk(bytes.NewReader(s.buf.Bytes()), s.es.Bulk.WithContext(ctx))
	observability.BulkFlushDuration.Observe(time.Since(start).Seconds())
	s.buf.Reset()
	s.buffered = 0
	if err != nil {
		return fmt.Errorf("op=bulk.flush: %v: %w", err, domain.ErrBackend)
	}
	defer res.Body.Close()
	if res.IsError() {
		io.Copy(io.Discard, res.Body)
		return fmt.Errorf("op=bulk.flush status=%d: %w", res.StatusCode, domain.ErrBackend)
	}
	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("op=bulk.flush decode: %v: %w", err, domain.ErrBackend)
	}
	if !parsed.Errors {
		return nil
	}
	for _, item := range parsed.Items {
		for _, r := range item {
			if r.Status >= 400 {
				reason := ""
				if r.Error != nil {
					reason = r.Error.Reason
				}
				s.errs = append(s.errs, domain.BulkError{Key: r.ID, Status: r.Status, Reason: reason})
				observability.BulkErrorsTotal.Inc()
			}
		}
	}
	return nil
}
