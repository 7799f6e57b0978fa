package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/techresidents/indexsvc/internal/domain"
)

// JobRepo persists and loads index_jobs rows using a minimal pgx pool.
// It implements domain.JobStore; the claim update is the compare-and-set
// that makes leasing safe across replicas.
type JobRepo struct{ Pool PgxPool }

// NewJobRepo constructs a JobRepo with the given pool.
func NewJobRepo(p PgxPool) *JobRepo { return &JobRepo{Pool: p} }

const jobColumns = `id, context, data, created, not_before, retries_remaining, owner, start, "end", successful`

// Insert stores a new job row and returns its id.
func (r *JobRepo) Insert(ctx context.Context, j domain.IndexJob) (string, error) {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.Insert")
	defer span.End()
	id := j.ID
	if id == "" {
		id = uuid.New().String()
	}
	created := j.Created
	if created.IsZero() {
		created = time.Now().UTC()
	}
	notBefore := j.NotBefore
	if notBefore.IsZero() {
		notBefore = created
	}
	q := `INSERT INTO index_jobs (id, context, data, created, not_before, retries_remaining) VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.Pool.Exec(ctx, q, id, j.Context, j.Data, created, notBefore, j.RetriesRemaining)
	if err != nil {
		return "", fmt.Errorf("op=job.insert: %w", err)
	}
	return id, nil
}

// Get loads a job by id.
func (r *JobRepo) Get(ctx context.Context, id string) (domain.IndexJob, error) {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.Get")
	defer span.End()
	q := `SELECT ` + jobColumns + ` FROM index_jobs WHERE id=$1`
	row := r.Pool.QueryRow(ctx, q, id)
	j, err := scanJob(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.IndexJob{}, fmt.Errorf("op=job.get: %w", domain.ErrNotFound)
		}
		return domain.IndexJob{}, fmt.Errorf("op=job.get: %w", err)
	}
	return j, nil
}

// SelectClaimable returns up to limit ready rows ordered by not_before ASC.
// A row is claimable iff owner IS NULL AND successful IS NULL AND
// not_before <= now.
func (r *JobRepo) SelectClaimable(ctx context.Context, now time.Time, limit int) ([]domain.IndexJob, error) {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.SelectClaimable")
	defer span.End()
	q := `SELECT ` + jobColumns + ` FROM index_jobs
		WHERE owner IS NULL AND successful IS NULL AND not_before <= $1
		ORDER BY not_before ASC LIMIT $2`
	rows, err := r.Pool.Query(ctx, q, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("op=job.select_claimable: %w", err)
	}
	defer rows.Close()
	var jobs []domain.IndexJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("op=job.select_claimable_scan: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=job.select_claimable_rows: %w", err)
	}
	return jobs, nil
}

// Claim atomically assigns the row to owner and stamps start. Exactly one
// claimer succeeds per row; the rest observe domain.ErrJobOwned and must
// abandon the candidate without touching it further.
func (r *JobRepo) Claim(ctx context.Context, id, owner string) error {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.Claim")
	defer span.End()
	q := `UPDATE index_jobs SET owner=$2, start=$3 WHERE id=$1 AND owner IS NULL AND successful IS NULL`
	tag, err := r.Pool.Exec(ctx, q, id, owner, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=job.claim: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=job.claim id=%s: %w", id, domain.ErrJobOwned)
	}
	return nil
}

// Finish marks the row terminal. Once successful is non-NULL the row will
// never be claimed again.
func (r *JobRepo) Finish(ctx context.Context, id string, successful bool) error {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.Finish")
	defer span.End()
	q := `UPDATE index_jobs SET successful=$2, "end"=$3 WHERE id=$1`
	_, err := r.Pool.Exec(ctx, q, id, successful, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=job.finish: %w", err)
	}
	return nil
}

func scanJob(row pgx.Row) (domain.IndexJob, error) {
	var j domain.IndexJob
	err := row.Scan(
		&j.ID, &j.Context, &j.Data, &j.Created, &j.NotBefore,
		&j.RetriesRemaining, &j.Owner, &j.Start, &j.End, &j.Successful,
	)
	return j, err
}
