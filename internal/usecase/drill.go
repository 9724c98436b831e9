package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dongjiahong/qa-system/internal/domain"
)

const (
	// batchConcurrency bounds parallel question generation in a batch so a
	// single batch cannot saturate the model service.
	batchConcurrency = 2

	historyWriteTimeout = 5 * time.Second
)

// DrillUsecase drives a drill session: generating questions, grading
// attempts, and recording them.
type DrillUsecase interface {
	RecordAttempt(ctx context.Context, question *domain.Question, userAnswer string) (*domain.QARecord, error)
	GenerateBatch(ctx context.Context, kbName string, count int, difficulty domain.Difficulty, strategy domain.SelectionStrategy) ([]*domain.Question, error)
	History(ctx context.Context, kbName string, limit int) ([]domain.QARecord, error)
	Statistics(ctx context.Context, kbName string) (*domain.HistoryStatistics, error)
}

type drillUsecase struct {
	questions  QuestionPipeline
	evaluation EvaluationPipeline
	history    domain.HistoryRepository
	logger     *slog.Logger
}

// NewDrillUsecase wires the drill flow over the two pipelines and the
// history store.
func NewDrillUsecase(
	questions QuestionPipeline,
	evaluation EvaluationPipeline,
	history domain.HistoryRepository,
	logger *slog.Logger,
) DrillUsecase {
	return &drillUsecase{
		questions:  questions,
		evaluation: evaluation,
		history:    history,
		logger:     logger,
	}
}

// RecordAttempt grades the answer and persists the attempt. A degraded
// evaluation is still recorded; the session continues either way.
func (u *drillUsecase) RecordAttempt(ctx context.Context, question *domain.Question, userAnswer string) (*domain.QARecord, error) {
	result, err := u.evaluation.Evaluate(ctx, question, userAnswer)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate answer: %w", err)
	}

	record := &domain.QARecord{
		KBName:     question.KBName,
		Question:   *question,
		UserAnswer: userAnswer,
		Evaluation: *result,
		CreatedAt:  time.Now(),
	}

	writeCtx, cancel := context.WithTimeout(ctx, historyWriteTimeout)
	defer cancel()

	id, err := u.history.SaveRecord(writeCtx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to save drill record: %w", err)
	}
	record.ID = id

	u.logger.Info("drill_attempt_recorded",
		slog.String("kb_name", question.KBName),
		slog.Int64("record_id", id),
		slog.Float64("score", result.Score),
		slog.String("status", string(result.Status)))
	return record, nil
}

// GenerateBatch produces up to count questions concurrently. Individual
// failures are tolerated; an error is returned only when every slot failed.
func (u *drillUsecase) GenerateBatch(ctx context.Context, kbName string, count int, difficulty domain.Difficulty, strategy domain.SelectionStrategy) ([]*domain.Question, error) {
	if count <= 0 {
		return nil, fmt.Errorf("count must be positive, got %d", count)
	}

	results := make([]*domain.Question, count)
	errs := make([]error, count)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i := 0; i < count; i++ {
		g.Go(func() error {
			q, err := u.questions.Generate(gctx, kbName, difficulty, strategy)
			if err != nil {
				// Keep the batch going; empty or missing knowledge
				// bases fail every slot identically anyway.
				errs[i] = err
				return nil
			}
			results[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	questions := make([]*domain.Question, 0, count)
	var lastErr error
	for i := 0; i < count; i++ {
		if results[i] != nil {
			questions = append(questions, results[i])
		} else if errs[i] != nil {
			lastErr = errs[i]
		}
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("failed to generate any question: %w", lastErr)
	}
	if len(questions) < count {
		u.logger.Warn("batch_generation_partial",
			slog.String("kb_name", kbName),
			slog.Int("requested", count),
			slog.Int("generated", len(questions)),
			slog.String("last_error", errString(lastErr)))
	}
	return questions, nil
}

func (u *drillUsecase) History(ctx context.Context, kbName string, limit int) ([]domain.QARecord, error) {
	if limit <= 0 {
		limit = 20
	}
	records, err := u.history.RecentRecords(ctx, kbName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load drill history: %w", err)
	}
	return records, nil
}

func (u *drillUsecase) Statistics(ctx context.Context, kbName string) (*domain.HistoryStatistics, error) {
	stats, err := u.history.Statistics(ctx, kbName)
	if err != nil {
		return nil, fmt.Errorf("failed to load drill statistics: %w", err)
	}
	return stats, nil
}
