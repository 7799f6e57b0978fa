package document

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/techresidents/indexsvc/internal/adapter/repo/postgres"
	"github.com/techresidents/indexsvc/internal/domain"
)

// rootTopicRank marks top-level topics. Only roots are indexed; subtopics
// contribute through the tree and the subtopic_summary text.
const rootTopicRank = 0

// TopicGenerator builds topic documents for root topics, embedding the full
// rank-ordered subtree and a concatenated summary of direct children.
type TopicGenerator struct {
	pool postgres.PgxPool
}

func (g *TopicGenerator) Generate(ctx context.Context, keys []string) (domain.DocumentIterator, error) {
	ids, err := parseKeys(keys)
	if err != nil {
		return nil, err
	}
	q := `SELECT t.id, tt.name, t.duration, t.title, t.description
		FROM topics t
		JOIN topic_types tt ON tt.id = t.type_id
		WHERE t.rank = $1 AND (cardinality($2::bigint[]) = 0 OR t.id = ANY($2::bigint[]))
		ORDER BY t.id`
	rows, err := g.pool.Query(ctx, q, rootTopicRank, ids)
	if err != nil {
		return nil, generatorErr("docgen.topics", err)
	}
	return &topicIterator{pool: g.pool, rows: rows}, nil
}

type topicIterator struct {
	pool postgres.PgxPool
	rows pgx.Rows
	key  string
	doc  domain.Document
	err  error
}

func (it *topicIterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			it.err = generatorErr("docgen.topics", err)
		}
		return false
	}
	var (
		id       int64
		kind     string
		duration int
		title    string
		descr    string
	)
	if err := it.rows.Scan(&id, &kind, &duration, &title, &descr); err != nil {
		it.err = generatorErr("docgen.topics_scan", err)
		return false
	}

	tree, err := it.queryTree(ctx, id)
	if err != nil {
		it.err = err
		return false
	}
	summary, err := it.querySubtopicSummary(ctx, id)
	if err != nil {
		it.err = err
		return false
	}

	it.key = keyString(id)
	it.doc = domain.Document{
		"id":               id,
		"type":             kind,
		"duration":         duration,
		"title":            title,
		"description":      descr,
		"subtopic_summary": summary,
		"tree":             tree,
	}
	return true
}

func (it *topicIterator) Document() (string, domain.Document) { return it.key, it.doc }
func (it *topicIterator) Err() error                          { return it.err }
func (it *topicIterator) Close()                              { it.rows.Close() }

// queryTree walks the subtree depth-first in rank order, tagging each node
// with its depth below the root.
func (it *topicIterator) queryTree(ctx context.Context, rootID int64) ([]domain.Document, error) {
	q := `WITH RECURSIVE topic_tree AS (
			SELECT t.id, t.type_id, t.duration, t.title, t.description,
				t.recommended_participants, t.rank, t.public, t.active,
				0 AS level, ARRAY[t.rank] AS path
			FROM topics t WHERE t.id = $1
			UNION ALL
			SELECT c.id, c.type_id, c.duration, c.title, c.description,
				c.recommended_participants, c.rank, c.public, c.active,
				tt.level + 1, tt.path || c.rank
			FROM topics c JOIN topic_tree tt ON c.parent_id = tt.id
		)
		SELECT tt.id, tt.type_id, ty.name, tt.duration, tt.title, tt.description,
			tt.recommended_participants, tt.rank, tt.public, tt.active, tt.level
		FROM topic_tree tt
		JOIN topic_types ty ON ty.id = tt.type_id
		ORDER BY tt.path`
	rows, err := it.pool.Query(ctx, q, rootID)
	if err != nil {
		return nil, generatorErr("docgen.topics_tree", err)
	}
	defer rows.Close()
	var out []domain.Document
	for rows.Next() {
		var (
			id, typeID                         int64
			kind, title, descr                 string
			duration, recommended, rank, level int
			public, active                     bool
		)
		if err := rows.Scan(&id, &typeID, &kind, &duration, &title, &descr,
			&recommended, &rank, &public, &active, &level); err != nil {
			return nil, generatorErr("docgen.topics_tree", err)
		}
		out = append(out, domain.Document{
			"id":                       id,
			"type_id":                  typeID,
			"type":                     kind,
			"duration":                 duration,
			"title":                    title,
			"description":              descr,
			"recommended_participants": recommended,
			"rank":                     rank,
			"public":                   public,
			"active":                   active,
			"level":                    level,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, generatorErr("docgen.topics_tree", err)
	}
	return out, nil
}

func (it *topicIterator) querySubtopicSummary(ctx context.Context, rootID int64) (string, error) {
	q := `SELECT COALESCE(string_agg(title || ': ' || description, '' ORDER BY rank), '')
		FROM topics WHERE parent_id = $1`
	var summary string
	if err := it.pool.QueryRow(ctx, q, rootID).Scan(&summary); err != nil {
		return "", generatorErr("docgen.topics_summary", err)
	}
	return summary, nil
}
