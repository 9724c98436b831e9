package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dongjiahong/qa-system/internal/domain"
	"github.com/dongjiahong/qa-system/internal/usecase"
)

const (
	defaultPollInterval = 10 * time.Second
	jobTimeout          = 120 * time.Second
	initialBackoff      = 1 * time.Second
	maxBackoff          = 5 * time.Minute
)

// EnrichmentWorker polls the job queue and annotates fragments so the
// comprehensive selection strategy has metadata to rank.
type EnrichmentWorker struct {
	jobRepo      domain.EnrichmentJobRepository
	fragments    domain.FragmentRepository
	extractor    usecase.MetadataExtractor
	logger       *slog.Logger
	pollInterval time.Duration
	stopChan     chan struct{}
	backoff      time.Duration
}

func NewEnrichmentWorker(
	jobRepo domain.EnrichmentJobRepository,
	fragments domain.FragmentRepository,
	extractor usecase.MetadataExtractor,
	pollInterval time.Duration,
	logger *slog.Logger,
) *EnrichmentWorker {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &EnrichmentWorker{
		jobRepo:      jobRepo,
		fragments:    fragments,
		extractor:    extractor,
		logger:       logger,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
	}
}

func (w *EnrichmentWorker) Start() {
	w.logger.Info("enrichment_worker_started", slog.Duration("poll_interval", w.pollInterval))
	go w.run()
}

func (w *EnrichmentWorker) Stop() {
	w.logger.Info("enrichment_worker_stopping")
	close(w.stopChan)
}

func (w *EnrichmentWorker) run() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.processNextJob()
			if w.backoff > 0 {
				ticker.Reset(w.backoff)
			} else {
				ticker.Reset(w.pollInterval)
			}
		}
	}
}

func (w *EnrichmentWorker) processNextJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	job, err := w.jobRepo.AcquireNextJob(ctx)
	if err != nil {
		w.logger.Error("enrichment_acquire_failed", slog.String("error", err.Error()))
		return
	}
	if job == nil {
		return // queue is empty
	}

	w.logger.Info("enrichment_job_processing",
		slog.String("job_id", job.ID.String()),
		slog.String("kb_name", job.KBName),
		slog.String("fragment_id", job.FragmentID.String()))

	processErr := w.enrich(ctx, job)

	status := domain.JobStatusCompleted
	var errMsg *string
	if processErr != nil {
		status = domain.JobStatusFailed
		msg := processErr.Error()
		errMsg = &msg
		w.backoff = w.nextBackoff(w.backoff)
		w.logger.Warn("enrichment_backing_off",
			slog.String("job_id", job.ID.String()),
			slog.Duration("backoff", w.backoff),
			slog.String("error", processErr.Error()))
	} else {
		w.backoff = 0
		w.logger.Info("enrichment_job_completed", slog.String("job_id", job.ID.String()))
	}

	if err := w.jobRepo.UpdateStatus(ctx, job.ID, status, errMsg); err != nil {
		w.logger.Error("enrichment_status_update_failed",
			slog.String("job_id", job.ID.String()),
			slog.String("error", err.Error()))
	}
}

func (w *EnrichmentWorker) enrich(ctx context.Context, job *domain.EnrichmentJob) error {
	fragment, err := w.fragments.GetFragment(ctx, job.FragmentID)
	if err != nil {
		return fmt.Errorf("failed to load fragment: %w", err)
	}
	if fragment == nil {
		return fmt.Errorf("fragment %s no longer exists", job.FragmentID)
	}
	return w.extractor.EnrichFragment(ctx, job.KBName, fragment)
}

func (w *EnrichmentWorker) nextBackoff(current time.Duration) time.Duration {
	if current == 0 {
		return initialBackoff
	}
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
