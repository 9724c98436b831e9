package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/dongjiahong/qa-system/internal/domain"
)

type fragmentRepository struct {
	pool *pgxpool.Pool
}

// NewFragmentRepository creates a new FragmentRepository.
func NewFragmentRepository(pool *pgxpool.Pool) domain.FragmentRepository {
	return &fragmentRepository{pool: pool}
}

type dbExecutor interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *fragmentRepository) getExecutor(ctx context.Context) dbExecutor {
	tx := ExtractTx(ctx)
	if tx != nil {
		return tx
	}
	return r.pool
}

func (r *fragmentRepository) KnowledgeBaseExists(ctx context.Context, kbName string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM knowledge_bases WHERE name = $1)`

	var exists bool
	if err := r.getExecutor(ctx).QueryRow(ctx, query, kbName).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check knowledge base: %w", err)
	}
	return exists, nil
}

func (r *fragmentRepository) ListFragments(ctx context.Context, kbName string) ([]domain.ContentFragment, error) {
	query := `
		SELECT id, kb_name, source_id, content, metadata, created_at
		FROM fragments
		WHERE kb_name = $1
		ORDER BY created_at ASC
	`
	rows, err := r.getExecutor(ctx).Query(ctx, query, kbName)
	if err != nil {
		return nil, fmt.Errorf("failed to query fragments: %w", err)
	}
	defer rows.Close()

	var fragments []domain.ContentFragment
	for rows.Next() {
		var f domain.ContentFragment
		if err := rows.Scan(&f.ID, &f.KBName, &f.SourceID, &f.Content, &f.Metadata, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fragment: %w", err)
		}
		fragments = append(fragments, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return fragments, nil
}

func (r *fragmentRepository) GetFragment(ctx context.Context, id uuid.UUID) (*domain.ContentFragment, error) {
	query := `
		SELECT id, kb_name, source_id, content, metadata, created_at
		FROM fragments
		WHERE id = $1
	`
	var f domain.ContentFragment
	err := r.getExecutor(ctx).QueryRow(ctx, query, id).
		Scan(&f.ID, &f.KBName, &f.SourceID, &f.Content, &f.Metadata, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fragment: %w", err)
	}
	return &f, nil
}

func (r *fragmentRepository) Search(ctx context.Context, kbName string, queryVector []float32, limit int) ([]domain.RetrievedFragment, error) {
	query := `
		SELECT id, kb_name, source_id, content, metadata, created_at,
		       1 - (embedding <=> $2) AS score
		FROM fragments
		WHERE kb_name = $1 AND embedding IS NOT NULL
		ORDER BY embedding <=> $2
		LIMIT $3
	`
	rows, err := r.getExecutor(ctx).Query(ctx, query, kbName, pgvector.NewVector(queryVector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search fragments: %w", err)
	}
	defer rows.Close()

	var retrieved []domain.RetrievedFragment
	for rows.Next() {
		var rf domain.RetrievedFragment
		f := &rf.Fragment
		if err := rows.Scan(&f.ID, &f.KBName, &f.SourceID, &f.Content, &f.Metadata, &f.CreatedAt, &rf.Score); err != nil {
			return nil, fmt.Errorf("failed to scan retrieved fragment: %w", err)
		}
		retrieved = append(retrieved, rf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return retrieved, nil
}

func (r *fragmentRepository) Stats(ctx context.Context, kbName string) (*domain.KnowledgeBaseStats, error) {
	query := `
		SELECT COUNT(*), COUNT(DISTINCT source_id)
		FROM fragments
		WHERE kb_name = $1
	`
	var stats domain.KnowledgeBaseStats
	if err := r.getExecutor(ctx).QueryRow(ctx, query, kbName).Scan(&stats.FragmentCount, &stats.SourceCount); err != nil {
		return nil, fmt.Errorf("failed to query knowledge base stats: %w", err)
	}
	return &stats, nil
}

func (r *fragmentRepository) IngestFragments(ctx context.Context, kbName string, fragments []domain.ContentFragment, embeddings [][]float32) error {
	if len(fragments) == 0 {
		return nil
	}
	if len(embeddings) != len(fragments) {
		return fmt.Errorf("fragment/embedding count mismatch: %d vs %d", len(fragments), len(embeddings))
	}

	exec := r.getExecutor(ctx)

	_, err := exec.Exec(ctx,
		`INSERT INTO knowledge_bases (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, kbName)
	if err != nil {
		return fmt.Errorf("failed to register knowledge base: %w", err)
	}

	rows := make([][]interface{}, len(fragments))
	for i, f := range fragments {
		rows[i] = []interface{}{
			f.ID,
			kbName,
			f.SourceID,
			f.Content,
			f.Metadata,
			pgvector.NewVector(embeddings[i]),
			f.CreatedAt,
		}
	}

	_, err = exec.CopyFrom(
		ctx,
		pgx.Identifier{"fragments"},
		[]string{"id", "kb_name", "source_id", "content", "metadata", "embedding", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk insert fragments: %w", err)
	}
	return nil
}
