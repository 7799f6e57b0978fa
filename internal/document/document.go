// Package document assembles search documents from the relational source
// data. Each generator covers one (index name, document type) target and
// streams (key, document) pairs lazily; an empty key set means every key.
package document

import (
	"fmt"
	"strconv"

	"github.com/techresidents/indexsvc/internal/adapter/repo/postgres"
	"github.com/techresidents/indexsvc/internal/domain"
)

// Registry resolves (index name, document type) pairs to generators.
type Registry struct {
	pool postgres.PgxPool
}

// NewRegistry builds a registry over the source database pool.
func NewRegistry(pool postgres.PgxPool) *Registry {
	return &Registry{pool: pool}
}

// Lookup returns the generator for the target, or ErrUnsupportedTarget for
// unrecognized pairs.
func (r *Registry) Lookup(name, docType string) (domain.DocumentGenerator, error) {
	switch {
	case name == "users" && docType == "user":
		return &UserGenerator{pool: r.pool}, nil
	case name == "technologies" && docType == "technology":
		return &TechnologyGenerator{pool: r.pool}, nil
	case name == "topics" && docType == "topic":
		return &TopicGenerator{pool: r.pool}, nil
	case name == "locations" && docType == "location":
		return &LocationGenerator{pool: r.pool}, nil
	}
	return nil, fmt.Errorf("op=docgen.lookup name=%s type=%s: %w", name, docType, domain.ErrUnsupportedTarget)
}

// parseKeys converts string keys to the integer ids the source tables use.
func parseKeys(keys []string) ([]int64, error) {
	ids := make([]int64, 0, len(keys))
	for _, k := range keys {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("op=docgen.keys key=%q: %w", k, domain.ErrGenerator)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func keyString(id int64) string { return strconv.FormatInt(id, 10) }

func generatorErr(op string, err error) error {
	return fmt.Errorf("op=%s: %v: %w", op, err, domain.ErrGenerator)
}
