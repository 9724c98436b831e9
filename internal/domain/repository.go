package domain

import (
	"context"

	"github.com/google/uuid"
)

// FragmentRepository exposes a knowledge base's indexed fragments.
// Read paths are safe for concurrent use; the quiz pipelines never mutate
// ingestion state.
type FragmentRepository interface {
	// KnowledgeBaseExists reports whether the knowledge base is known.
	KnowledgeBaseExists(ctx context.Context, kbName string) (bool, error)

	// ListFragments returns every indexed fragment of a knowledge base,
	// ordered by ingestion time ascending.
	ListFragments(ctx context.Context, kbName string) ([]ContentFragment, error)

	// GetFragment retrieves a single fragment by ID. Returns nil, nil if
	// not found.
	GetFragment(ctx context.Context, id uuid.UUID) (*ContentFragment, error)

	// Search performs a vector similarity search within one knowledge base.
	Search(ctx context.Context, kbName string, queryVector []float32, limit int) ([]RetrievedFragment, error)

	// Stats summarizes the indexed content of a knowledge base.
	Stats(ctx context.Context, kbName string) (*KnowledgeBaseStats, error)

	// IngestFragments stores pre-chunked fragments with their embeddings.
	// Chunking and embedding happen upstream; this is the boundary contract.
	IngestFragments(ctx context.Context, kbName string, fragments []ContentFragment, embeddings [][]float32) error
}

// MetadataIndex exposes the precomputed per-fragment enrichment metadata
// the comprehensive selection strategy consumes. The index is optional; a
// knowledge base without annotations degrades gracefully.
type MetadataIndex interface {
	// Annotations returns all annotations for a knowledge base, keyed by
	// fragment ID. An empty map is a valid result.
	Annotations(ctx context.Context, kbName string) (map[uuid.UUID]FragmentAnnotations, error)

	// UpsertAnnotations stores or replaces the annotations of one fragment.
	UpsertAnnotations(ctx context.Context, ann *FragmentAnnotations) error

	// IncrementQuestionCount records that a generated question referenced
	// the fragment.
	IncrementQuestionCount(ctx context.Context, fragmentID uuid.UUID) error
}

// HistoryRepository persists drill transcripts. Writes are bounded; a slow
// history store must never stall the pipelines beyond the write call.
type HistoryRepository interface {
	// SaveRecord stores one attempt and returns its assigned ID.
	SaveRecord(ctx context.Context, record *QARecord) (int64, error)

	// RecentRecords returns the newest records for a knowledge base.
	RecentRecords(ctx context.Context, kbName string, limit int) ([]QARecord, error)

	// Statistics aggregates drill outcomes for a knowledge base.
	Statistics(ctx context.Context, kbName string) (*HistoryStatistics, error)
}

// EnrichmentJobRepository queues fragment annotation work for the worker.
type EnrichmentJobRepository interface {
	Enqueue(ctx context.Context, job *EnrichmentJob) error

	// AcquireNextJob atomically claims the oldest new job.
	// Returns nil, nil when the queue is empty.
	AcquireNextJob(ctx context.Context) (*EnrichmentJob, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error
}

// TransactionManager defines the interface for handling database transactions.
type TransactionManager interface {
	// RunInTx executes the given function within a transaction.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
