package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dongjiahong/qa-system/internal/domain"
)

type metadataRepository struct {
	pool *pgxpool.Pool
}

// NewMetadataRepository creates a new MetadataIndex backed by the
// fragment_annotations table.
func NewMetadataRepository(pool *pgxpool.Pool) domain.MetadataIndex {
	return &metadataRepository{pool: pool}
}

func (r *metadataRepository) getExecutor(ctx context.Context) dbExecutor {
	tx := ExtractTx(ctx)
	if tx != nil {
		return tx
	}
	return r.pool
}

func (r *metadataRepository) Annotations(ctx context.Context, kbName string) (map[uuid.UUID]domain.FragmentAnnotations, error) {
	query := `
		SELECT fragment_id, kb_name, qa_pairs, key_concepts, question_count, confidence, updated_at
		FROM fragment_annotations
		WHERE kb_name = $1
	`
	rows, err := r.getExecutor(ctx).Query(ctx, query, kbName)
	if err != nil {
		return nil, fmt.Errorf("failed to query fragment annotations: %w", err)
	}
	defer rows.Close()

	annotations := make(map[uuid.UUID]domain.FragmentAnnotations)
	for rows.Next() {
		var ann domain.FragmentAnnotations
		var qaPairs []byte
		if err := rows.Scan(&ann.FragmentID, &ann.KBName, &qaPairs, &ann.KeyConcepts, &ann.QuestionCount, &ann.Confidence, &ann.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan annotation: %w", err)
		}
		if len(qaPairs) > 0 {
			if err := json.Unmarshal(qaPairs, &ann.QAPairs); err != nil {
				return nil, fmt.Errorf("failed to decode qa pairs: %w", err)
			}
		}
		annotations[ann.FragmentID] = ann
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return annotations, nil
}

func (r *metadataRepository) UpsertAnnotations(ctx context.Context, ann *domain.FragmentAnnotations) error {
	qaPairs, err := json.Marshal(ann.QAPairs)
	if err != nil {
		return fmt.Errorf("failed to encode qa pairs: %w", err)
	}

	query := `
		INSERT INTO fragment_annotations (fragment_id, kb_name, qa_pairs, key_concepts, confidence, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (fragment_id) DO UPDATE SET
			qa_pairs = EXCLUDED.qa_pairs,
			key_concepts = EXCLUDED.key_concepts,
			confidence = EXCLUDED.confidence,
			updated_at = EXCLUDED.updated_at
	`
	_, err = r.getExecutor(ctx).Exec(ctx, query,
		ann.FragmentID, ann.KBName, qaPairs, ann.KeyConcepts, ann.Confidence, ann.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert fragment annotations: %w", err)
	}
	return nil
}

func (r *metadataRepository) IncrementQuestionCount(ctx context.Context, fragmentID uuid.UUID) error {
	query := `
		UPDATE fragment_annotations
		SET question_count = question_count + 1, updated_at = NOW()
		WHERE fragment_id = $1
	`
	_, err := r.getExecutor(ctx).Exec(ctx, query, fragmentID)
	if err != nil {
		return fmt.Errorf("failed to increment question count: %w", err)
	}
	return nil
}
