package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dongjiahong/qa-system/internal/domain"
	"github.com/dongjiahong/qa-system/internal/usecase"
)

func newEnrichmentAdmin(fragments *mockFragmentRepo, jobs *mockJobRepo, tx *mockTxManager) usecase.EnrichmentAdmin {
	return usecase.NewEnrichmentAdmin(fragments, jobs, tx, testLogger())
}

func TestEnqueueKnowledgeBase_EnqueuesAllFragmentsInOneTransaction(t *testing.T) {
	ctx := context.Background()
	fragments := new(mockFragmentRepo)
	jobs := new(mockJobRepo)
	tx := new(mockTxManager)

	candidates := testFragments(3)
	fragments.On("KnowledgeBaseExists", mock.Anything, "golang").Return(true, nil)
	fragments.On("ListFragments", mock.Anything, "golang").Return(candidates, nil)
	tx.On("RunInTx", mock.Anything).Return(nil)
	jobs.On("Enqueue", mock.Anything, mock.MatchedBy(func(job *domain.EnrichmentJob) bool {
		return job.KBName == "golang" && job.Status == domain.JobStatusNew
	})).Return(nil)

	admin := newEnrichmentAdmin(fragments, jobs, tx)

	enqueued, err := admin.EnqueueKnowledgeBase(ctx, "golang")
	require.NoError(t, err)
	assert.Equal(t, 3, enqueued)
	tx.AssertNumberOfCalls(t, "RunInTx", 1)
	jobs.AssertNumberOfCalls(t, "Enqueue", 3)
}

func TestEnqueueKnowledgeBase_UnknownKB(t *testing.T) {
	ctx := context.Background()
	fragments := new(mockFragmentRepo)
	jobs := new(mockJobRepo)
	tx := new(mockTxManager)

	fragments.On("KnowledgeBaseExists", mock.Anything, "missing").Return(false, nil)

	admin := newEnrichmentAdmin(fragments, jobs, tx)

	_, err := admin.EnqueueKnowledgeBase(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrKnowledgeBaseNotFound)
	tx.AssertNotCalled(t, "RunInTx", mock.Anything)
	jobs.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
}

func TestEnqueueKnowledgeBase_EmptyKBEnqueuesNothing(t *testing.T) {
	ctx := context.Background()
	fragments := new(mockFragmentRepo)
	jobs := new(mockJobRepo)
	tx := new(mockTxManager)

	fragments.On("KnowledgeBaseExists", mock.Anything, "golang").Return(true, nil)
	fragments.On("ListFragments", mock.Anything, "golang").Return([]domain.ContentFragment{}, nil)

	admin := newEnrichmentAdmin(fragments, jobs, tx)

	enqueued, err := admin.EnqueueKnowledgeBase(ctx, "golang")
	require.NoError(t, err)
	assert.Zero(t, enqueued)
	tx.AssertNotCalled(t, "RunInTx", mock.Anything)
}

func TestEnqueueKnowledgeBase_EnqueueFailureAbortsBatch(t *testing.T) {
	ctx := context.Background()
	fragments := new(mockFragmentRepo)
	jobs := new(mockJobRepo)
	tx := new(mockTxManager)

	fragments.On("KnowledgeBaseExists", mock.Anything, "golang").Return(true, nil)
	fragments.On("ListFragments", mock.Anything, "golang").Return(testFragments(2), nil)
	tx.On("RunInTx", mock.Anything).Return(nil)
	jobs.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("insert failed")).Once()

	admin := newEnrichmentAdmin(fragments, jobs, tx)

	enqueued, err := admin.EnqueueKnowledgeBase(ctx, "golang")
	require.Error(t, err)
	assert.Zero(t, enqueued)
	jobs.AssertNumberOfCalls(t, "Enqueue", 1)
}

func TestEnqueueKnowledgeBase_TransactionFailurePropagates(t *testing.T) {
	ctx := context.Background()
	fragments := new(mockFragmentRepo)
	jobs := new(mockJobRepo)
	tx := new(mockTxManager)

	fragments.On("KnowledgeBaseExists", mock.Anything, "golang").Return(true, nil)
	fragments.On("ListFragments", mock.Anything, "golang").Return(testFragments(2), nil)
	tx.On("RunInTx", mock.Anything).Return(errors.New("begin failed"))

	admin := newEnrichmentAdmin(fragments, jobs, tx)

	_, err := admin.EnqueueKnowledgeBase(ctx, "golang")
	require.Error(t, err)
	jobs.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
}
