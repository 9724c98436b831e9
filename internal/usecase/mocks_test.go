package usecase_test

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dongjiahong/qa-system/internal/domain"
	"github.com/dongjiahong/qa-system/internal/usecase"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Mocks ---

type mockFragmentRepo struct {
	mock.Mock
}

func (m *mockFragmentRepo) KnowledgeBaseExists(ctx context.Context, kbName string) (bool, error) {
	args := m.Called(ctx, kbName)
	return args.Bool(0), args.Error(1)
}

func (m *mockFragmentRepo) ListFragments(ctx context.Context, kbName string) ([]domain.ContentFragment, error) {
	args := m.Called(ctx, kbName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ContentFragment), args.Error(1)
}

func (m *mockFragmentRepo) GetFragment(ctx context.Context, id uuid.UUID) (*domain.ContentFragment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContentFragment), args.Error(1)
}

func (m *mockFragmentRepo) Search(ctx context.Context, kbName string, queryVector []float32, limit int) ([]domain.RetrievedFragment, error) {
	args := m.Called(ctx, kbName, queryVector, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RetrievedFragment), args.Error(1)
}

func (m *mockFragmentRepo) Stats(ctx context.Context, kbName string) (*domain.KnowledgeBaseStats, error) {
	args := m.Called(ctx, kbName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeBaseStats), args.Error(1)
}

func (m *mockFragmentRepo) IngestFragments(ctx context.Context, kbName string, fragments []domain.ContentFragment, embeddings [][]float32) error {
	args := m.Called(ctx, kbName, fragments, embeddings)
	return args.Error(0)
}

type mockMetadataIndex struct {
	mock.Mock
}

func (m *mockMetadataIndex) Annotations(ctx context.Context, kbName string) (map[uuid.UUID]domain.FragmentAnnotations, error) {
	args := m.Called(ctx, kbName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]domain.FragmentAnnotations), args.Error(1)
}

func (m *mockMetadataIndex) UpsertAnnotations(ctx context.Context, ann *domain.FragmentAnnotations) error {
	args := m.Called(ctx, ann)
	return args.Error(0)
}

func (m *mockMetadataIndex) IncrementQuestionCount(ctx context.Context, fragmentID uuid.UUID) error {
	args := m.Called(ctx, fragmentID)
	return args.Error(0)
}

type mockLLMClient struct {
	mock.Mock
}

func (m *mockLLMClient) Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (*domain.LLMResponse, error) {
	args := m.Called(ctx, prompt, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LLMResponse), args.Error(1)
}

func (m *mockLLMClient) Version() string {
	return "mock"
}

type mockVectorEncoder struct {
	mock.Mock
}

func (m *mockVectorEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *mockVectorEncoder) Version() string {
	return "mock"
}

type mockHistoryRepo struct {
	mock.Mock
}

func (m *mockHistoryRepo) SaveRecord(ctx context.Context, record *domain.QARecord) (int64, error) {
	args := m.Called(ctx, record)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockHistoryRepo) RecentRecords(ctx context.Context, kbName string, limit int) ([]domain.QARecord, error) {
	args := m.Called(ctx, kbName, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.QARecord), args.Error(1)
}

func (m *mockHistoryRepo) Statistics(ctx context.Context, kbName string) (*domain.HistoryStatistics, error) {
	args := m.Called(ctx, kbName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HistoryStatistics), args.Error(1)
}

type mockJobRepo struct {
	mock.Mock
}

func (m *mockJobRepo) Enqueue(ctx context.Context, job *domain.EnrichmentJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *mockJobRepo) AcquireNextJob(ctx context.Context) (*domain.EnrichmentJob, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EnrichmentJob), args.Error(1)
}

func (m *mockJobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error {
	args := m.Called(ctx, id, status, errorMessage)
	return args.Error(0)
}

// mockTxManager records the transaction boundary and runs the body inline.
type mockTxManager struct {
	mock.Mock
}

func (m *mockTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

type mockContentSelector struct {
	mock.Mock
}

func (m *mockContentSelector) Select(ctx context.Context, kbName string, strategy domain.SelectionStrategy, difficulty domain.Difficulty) (*domain.ContentFragment, error) {
	args := m.Called(ctx, kbName, strategy, difficulty)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContentFragment), args.Error(1)
}

type mockQuestionPipeline struct {
	mock.Mock
}

func (m *mockQuestionPipeline) Generate(ctx context.Context, kbName string, difficulty domain.Difficulty, strategy domain.SelectionStrategy) (*domain.Question, error) {
	args := m.Called(ctx, kbName, difficulty, strategy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Question), args.Error(1)
}

type mockEvaluationPipeline struct {
	mock.Mock
}

func (m *mockEvaluationPipeline) Evaluate(ctx context.Context, question *domain.Question, userAnswer string) (*domain.EvaluationResult, error) {
	args := m.Called(ctx, question, userAnswer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EvaluationResult), args.Error(1)
}

var _ usecase.ContentSelector = (*mockContentSelector)(nil)
var _ usecase.QuestionPipeline = (*mockQuestionPipeline)(nil)
var _ usecase.EvaluationPipeline = (*mockEvaluationPipeline)(nil)
var _ domain.LLMClient = (*mockLLMClient)(nil)
var _ domain.VectorEncoder = (*mockVectorEncoder)(nil)
var _ domain.FragmentRepository = (*mockFragmentRepo)(nil)
var _ domain.MetadataIndex = (*mockMetadataIndex)(nil)
var _ domain.HistoryRepository = (*mockHistoryRepo)(nil)
var _ domain.EnrichmentJobRepository = (*mockJobRepo)(nil)
var _ domain.TransactionManager = (*mockTxManager)(nil)
