package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dongjiahong/qa-system/internal/domain"
)

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository creates a new HistoryRepository backed by qa_records.
func NewHistoryRepository(pool *pgxpool.Pool) domain.HistoryRepository {
	return &historyRepository{pool: pool}
}

func (r *historyRepository) getExecutor(ctx context.Context) dbExecutor {
	tx := ExtractTx(ctx)
	if tx != nil {
		return tx
	}
	return r.pool
}

func (r *historyRepository) SaveRecord(ctx context.Context, record *domain.QARecord) (int64, error) {
	question, err := json.Marshal(record.Question)
	if err != nil {
		return 0, fmt.Errorf("failed to encode question: %w", err)
	}
	evaluation, err := json.Marshal(record.Evaluation)
	if err != nil {
		return 0, fmt.Errorf("failed to encode evaluation: %w", err)
	}

	query := `
		INSERT INTO qa_records (kb_name, question, user_answer, evaluation, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	var id int64
	err = r.getExecutor(ctx).QueryRow(ctx, query,
		record.KBName, question, record.UserAnswer, evaluation, record.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert qa record: %w", err)
	}
	return id, nil
}

func (r *historyRepository) RecentRecords(ctx context.Context, kbName string, limit int) ([]domain.QARecord, error) {
	query := `
		SELECT id, kb_name, question, user_answer, evaluation, created_at
		FROM qa_records
		WHERE kb_name = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.getExecutor(ctx).Query(ctx, query, kbName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query qa records: %w", err)
	}
	defer rows.Close()

	var records []domain.QARecord
	for rows.Next() {
		var rec domain.QARecord
		var question, evaluation []byte
		if err := rows.Scan(&rec.ID, &rec.KBName, &question, &rec.UserAnswer, &evaluation, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan qa record: %w", err)
		}
		if err := json.Unmarshal(question, &rec.Question); err != nil {
			return nil, fmt.Errorf("failed to decode question: %w", err)
		}
		if err := json.Unmarshal(evaluation, &rec.Evaluation); err != nil {
			return nil, fmt.Errorf("failed to decode evaluation: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return records, nil
}

func (r *historyRepository) Statistics(ctx context.Context, kbName string) (*domain.HistoryStatistics, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE (evaluation->>'is_correct')::boolean),
		       COALESCE(AVG((evaluation->>'score')::float), 0)
		FROM qa_records
		WHERE kb_name = $1
	`
	var stats domain.HistoryStatistics
	err := r.getExecutor(ctx).QueryRow(ctx, query, kbName).
		Scan(&stats.TotalRecords, &stats.CorrectCount, &stats.AverageScore)
	if err != nil {
		return nil, fmt.Errorf("failed to query history statistics: %w", err)
	}
	return &stats, nil
}
