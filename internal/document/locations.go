package document

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/techresidents/indexsvc/internal/adapter/repo/postgres"
	"github.com/techresidents/indexsvc/internal/domain"
)

// LocationGenerator builds location documents.
type LocationGenerator struct {
	pool postgres.PgxPool
}

func (g *LocationGenerator) Generate(ctx context.Context, keys []string) (domain.DocumentIterator, error) {
	ids, err := parseKeys(keys)
	if err != nil {
		return nil, err
	}
	q := `SELECT id, region FROM locations
		WHERE cardinality($1::bigint[]) = 0 OR id = ANY($1::bigint[])
		ORDER BY id`
	rows, err := g.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, generatorErr("docgen.locations", err)
	}
	return &locationIterator{rows: rows}, nil
}

type locationIterator struct {
	rows pgx.Rows
	key  string
	doc  domain.Document
	err  error
}

func (it *locationIterator) Next(_ context.Context) bool {
	if it.err != nil {
		return false
	}
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			it.err = generatorErr("docgen.locations", err)
		}
		return false
	}
	var (
		id     int64
		region string
	)
	if err := it.rows.Scan(&id, &region); err != nil {
		it.err = generatorErr("docgen.locations_scan", err)
		return false
	}
	it.key = keyString(id)
	it.doc = domain.Document{"id": id, "region": region}
	return true
}

func (it *locationIterator) Document() (string, domain.Document) { return it.key, it.doc }
func (it *locationIterator) Err() error                          { return it.err }
func (it *locationIterator) Close()                              { it.rows.Close() }
