package document

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techresidents/indexsvc/internal/domain"
)

type stubPool struct {
	rows    pgx.Rows
	queryFn func(sql string, args []any) (pgx.Rows, error)
}

func (p *stubPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (p *stubPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (p *stubPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if p.queryFn != nil {
		return p.queryFn(sql, args)
	}
	return p.rows, nil
}

func (p *stubPool) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	return nil, nil
}

type stubRows struct {
	scans []func(dest ...any) error
	pos   int
}

func (r *stubRows) Next() bool {
	if r.pos >= len(r.scans) {
		return false
	}
	r.pos++
	return true
}

func (r *stubRows) Scan(dest ...any) error                       { return r.scans[r.pos-1](dest...) }
func (r *stubRows) Close()                                       {}
func (r *stubRows) Err() error                                   { return nil }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Values() ([]any, error)                       { return nil, nil }
func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

func TestRegistry_Lookup(t *testing.T) {
	t.Parallel()
	reg := NewRegistry(&stubPool{})

	for _, tc := range []struct{ name, docType string }{
		{"users", "user"},
		{"technologies", "technology"},
		{"topics", "topic"},
		{"locations", "location"},
	} {
		gen, err := reg.Lookup(tc.name, tc.docType)
		require.NoError(t, err, "%s/%s", tc.name, tc.docType)
		require.NotNil(t, gen)
	}

	_, err := reg.Lookup("users", "company")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedTarget)

	_, err = reg.Lookup("unknown", "user")
	assert.ErrorIs(t, err, domain.ErrUnsupportedTarget)
}

func TestParseKeys(t *testing.T) {
	t.Parallel()
	ids, err := parseKeys([]string{"1", "42"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 42}, ids)

	ids, err = parseKeys(nil)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = parseKeys([]string{"abc"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGenerator)
}

func TestScore(t *testing.T) {
	t.Parallel()
	one := []domain.Document{{}}

	assert.Equal(t, 1.0, score(false, nil, nil, nil, nil, nil))
	assert.Equal(t, 3.0, score(true, nil, nil, nil, nil, nil))
	assert.Equal(t, 2.0, score(false, one, nil, nil, nil, nil))
	assert.Equal(t, 3.0, score(false, nil, nil, nil, nil, one))
	// Fully complete profile.
	assert.Equal(t, 7.5, score(true, one, one, one, one, one))
}

func TestYrsExperience(t *testing.T) {
	t.Parallel()
	since := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Now().UTC().Year()-2020, yrsExperience(&since, nil))

	skills := []domain.Document{
		{"yrs_experience": 3},
		{"yrs_experience": 9},
		{"yrs_experience": 5},
	}
	assert.Equal(t, 9, yrsExperience(nil, skills))
	assert.Equal(t, 0, yrsExperience(nil, nil))
}

func TestLocationGenerator_Streams(t *testing.T) {
	t.Parallel()
	scan := func(id int64, region string) func(dest ...any) error {
		return func(dest ...any) error {
			*dest[0].(*int64) = id
			*dest[1].(*string) = region
			return nil
		}
	}
	pool := &stubPool{rows: &stubRows{scans: []func(dest ...any) error{
		scan(1, "San Francisco"),
		scan(2, "Boston"),
	}}}

	gen := &LocationGenerator{pool: pool}
	it, err := gen.Generate(context.Background(), nil)
	require.NoError(t, err)
	defer it.Close()

	var keys []string
	var regions []string
	for it.Next(context.Background()) {
		key, doc := it.Document()
		keys = append(keys, key)
		regions = append(regions, doc["region"].(string))
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"1", "2"}, keys)
	assert.Equal(t, []string{"San Francisco", "Boston"}, regions)
}

func TestTechnologyGenerator_BadKey(t *testing.T) {
	t.Parallel()
	gen := &TechnologyGenerator{pool: &stubPool{}}
	_, err := gen.Generate(context.Background(), []string{"not-a-number"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGenerator)
}
