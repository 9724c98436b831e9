package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dongjiahong/qa-system/internal/domain"
)

// EnrichmentAdmin queues annotation work for whole knowledge bases.
type EnrichmentAdmin interface {
	// EnqueueKnowledgeBase enqueues one enrichment job per fragment and
	// returns the number of jobs enqueued.
	EnqueueKnowledgeBase(ctx context.Context, kbName string) (int, error)
}

type enrichmentAdmin struct {
	fragments domain.FragmentRepository
	jobs      domain.EnrichmentJobRepository
	tx        domain.TransactionManager
	logger    *slog.Logger
}

// NewEnrichmentAdmin wires the enrichment queueing flow.
func NewEnrichmentAdmin(
	fragments domain.FragmentRepository,
	jobs domain.EnrichmentJobRepository,
	tx domain.TransactionManager,
	logger *slog.Logger,
) EnrichmentAdmin {
	return &enrichmentAdmin{
		fragments: fragments,
		jobs:      jobs,
		tx:        tx,
		logger:    logger,
	}
}

func (a *enrichmentAdmin) EnqueueKnowledgeBase(ctx context.Context, kbName string) (int, error) {
	exists, err := a.fragments.KnowledgeBaseExists(ctx, kbName)
	if err != nil {
		return 0, fmt.Errorf("failed to check knowledge base: %w", err)
	}
	if !exists {
		return 0, fmt.Errorf("%w: %s", domain.ErrKnowledgeBaseNotFound, kbName)
	}

	fragments, err := a.fragments.ListFragments(ctx, kbName)
	if err != nil {
		return 0, fmt.Errorf("failed to list fragments: %w", err)
	}
	if len(fragments) == 0 {
		return 0, nil
	}

	// All-or-nothing: a half-enqueued knowledge base would leave the worker
	// annotating an arbitrary subset.
	now := time.Now()
	err = a.tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, f := range fragments {
			job := &domain.EnrichmentJob{
				ID:         uuid.New(),
				KBName:     kbName,
				FragmentID: f.ID,
				Status:     domain.JobStatusNew,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := a.jobs.Enqueue(ctx, job); err != nil {
				return fmt.Errorf("failed to enqueue enrichment job: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	a.logger.Info("enrichment_jobs_enqueued",
		slog.String("kb_name", kbName),
		slog.Int("count", len(fragments)))
	return len(fragments), nil
}
