package document

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/techresidents/indexsvc/internal/adapter/repo/postgres"
	"github.com/techresidents/indexsvc/internal/domain"
)

// TechnologyGenerator builds technology documents.
type TechnologyGenerator struct {
	pool postgres.PgxPool
}

func (g *TechnologyGenerator) Generate(ctx context.Context, keys []string) (domain.DocumentIterator, error) {
	ids, err := parseKeys(keys)
	if err != nil {
		return nil, err
	}
	q := `SELECT t.id, t.name, t.description, t.type_id, tt.name
		FROM technologies t
		JOIN technology_types tt ON tt.id = t.type_id
		WHERE cardinality($1::bigint[]) = 0 OR t.id = ANY($1::bigint[])
		ORDER BY t.id`
	rows, err := g.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, generatorErr("docgen.technologies", err)
	}
	return &technologyIterator{rows: rows}, nil
}

type technologyIterator struct {
	rows pgx.Rows
	key  string
	doc  domain.Document
	err  error
}

func (it *technologyIterator) Next(_ context.Context) bool {
	if it.err != nil {
		return false
	}
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			it.err = generatorErr("docgen.technologies", err)
		}
		return false
	}
	var (
		id, typeID        int64
		name, descr, kind string
	)
	if err := it.rows.Scan(&id, &name, &descr, &typeID, &kind); err != nil {
		it.err = generatorErr("docgen.technologies_scan", err)
		return false
	}
	it.key = keyString(id)
	it.doc = domain.Document{
		"id":          id,
		"name":        name,
		"description": descr,
		"type_id":     typeID,
		"type":        kind,
	}
	return true
}

func (it *technologyIterator) Document() (string, domain.Document) { return it.key, it.doc }
func (it *technologyIterator) Err() error                          { return it.err }
func (it *technologyIterator) Close()                              { it.rows.Close() }
