package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dongjiahong/qa-system/internal/domain"
)

type enrichmentJobRepository struct {
	db *pgxpool.Pool
}

// NewEnrichmentJobRepository creates the queue repository the enrichment
// worker polls.
func NewEnrichmentJobRepository(db *pgxpool.Pool) domain.EnrichmentJobRepository {
	return &enrichmentJobRepository{db: db}
}

func (r *enrichmentJobRepository) Enqueue(ctx context.Context, job *domain.EnrichmentJob) error {
	query := `
		INSERT INTO enrichment_jobs (id, kb_name, fragment_id, status, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (fragment_id) WHERE status IN ('new', 'processing') DO NOTHING
	`
	_, err := r.db.Exec(ctx, query,
		job.ID,
		job.KBName,
		job.FragmentID,
		job.Status,
		job.ErrorMessage,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue enrichment job: %w", err)
	}
	return nil
}

// AcquireNextJob claims the oldest new job and marks it processing in one
// statement, so concurrent workers never pick the same job.
func (r *enrichmentJobRepository) AcquireNextJob(ctx context.Context) (*domain.EnrichmentJob, error) {
	cteQuery := `
		WITH next_job AS (
			SELECT id
			FROM enrichment_jobs
			WHERE status = 'new'
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE enrichment_jobs
		SET status = 'processing', updated_at = $1
		FROM next_job
		WHERE enrichment_jobs.id = next_job.id
		RETURNING enrichment_jobs.id, enrichment_jobs.kb_name, enrichment_jobs.fragment_id,
		          enrichment_jobs.status, enrichment_jobs.error_message,
		          enrichment_jobs.created_at, enrichment_jobs.updated_at
	`

	var job domain.EnrichmentJob
	err := r.db.QueryRow(ctx, cteQuery, time.Now()).Scan(
		&job.ID,
		&job.KBName,
		&job.FragmentID,
		&job.Status,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to acquire next enrichment job: %w", err)
	}
	return &job, nil
}

func (r *enrichmentJobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error {
	query := `
		UPDATE enrichment_jobs
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.Exec(ctx, query, status, errorMessage, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update enrichment job status: %w", err)
	}
	return nil
}
