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

func TestRecordAttempt_PersistsEvaluatedAnswer(t *testing.T) {
	ctx := context.Background()
	questions := new(mockQuestionPipeline)
	evaluation := new(mockEvaluationPipeline)
	history := new(mockHistoryRepo)

	question := domain.NewQuestion(
		"Go的接口是如何实现多态的？",
		"golang",
		"接口定义方法集合，任何实现了这些方法的类型都满足该接口。",
		"",
		domain.DifficultyHard,
	)
	evaluation.On("Evaluate", mock.Anything, question, "通过隐式实现方法集合。").
		Return(&domain.EvaluationResult{
			IsCorrect: true,
			Score:     8,
			Feedback:  "正确",
			Status:    domain.EvaluationSuccess,
		}, nil)
	history.On("SaveRecord", mock.Anything, mock.Anything).Return(int64(42), nil)

	u := usecase.NewDrillUsecase(questions, evaluation, history, testLogger())

	record, err := u.RecordAttempt(ctx, question, "通过隐式实现方法集合。")
	require.NoError(t, err)
	assert.Equal(t, int64(42), record.ID)
	assert.Equal(t, "golang", record.KBName)
	assert.Equal(t, domain.DifficultyHard, record.Question.Difficulty)
	assert.Equal(t, 8.0, record.Evaluation.Score)
	history.AssertNumberOfCalls(t, "SaveRecord", 1)
}

func TestRecordAttempt_DegradedEvaluationStillRecorded(t *testing.T) {
	ctx := context.Background()
	questions := new(mockQuestionPipeline)
	evaluation := new(mockEvaluationPipeline)
	history := new(mockHistoryRepo)

	question := stubQuestion()
	evaluation.On("Evaluate", mock.Anything, question, mock.Anything).
		Return(&domain.EvaluationResult{
			IsCorrect:     false,
			Score:         0,
			Feedback:      "评估未能完成，请稍后重试。",
			MissingPoints: []string{},
			Strengths:     []string{},
			Status:        domain.EvaluationError,
		}, nil)
	history.On("SaveRecord", mock.Anything, mock.Anything).Return(int64(7), nil)

	u := usecase.NewDrillUsecase(questions, evaluation, history, testLogger())

	record, err := u.RecordAttempt(ctx, question, "一个认真的答案。")
	require.NoError(t, err)
	assert.Equal(t, domain.EvaluationError, record.Evaluation.Status)
}

func TestRecordAttempt_SaveFailure(t *testing.T) {
	ctx := context.Background()
	questions := new(mockQuestionPipeline)
	evaluation := new(mockEvaluationPipeline)
	history := new(mockHistoryRepo)

	question := stubQuestion()
	evaluation.On("Evaluate", mock.Anything, question, mock.Anything).
		Return(&domain.EvaluationResult{Score: 6, IsCorrect: true, Status: domain.EvaluationSuccess}, nil)
	history.On("SaveRecord", mock.Anything, mock.Anything).Return(int64(0), errors.New("db down"))

	u := usecase.NewDrillUsecase(questions, evaluation, history, testLogger())

	_, err := u.RecordAttempt(ctx, question, "一个认真的答案。")
	assert.Error(t, err)
}

func TestGenerateBatch_AllSucceed(t *testing.T) {
	ctx := context.Background()
	questions := new(mockQuestionPipeline)
	evaluation := new(mockEvaluationPipeline)
	history := new(mockHistoryRepo)

	questions.On("Generate", mock.Anything, "golang", domain.DifficultyMedium, domain.StrategyDiverse).
		Return(stubQuestion(), nil)

	u := usecase.NewDrillUsecase(questions, evaluation, history, testLogger())

	batch, err := u.GenerateBatch(ctx, "golang", 3, domain.DifficultyMedium, domain.StrategyDiverse)
	require.NoError(t, err)
	assert.Len(t, batch, 3)
	questions.AssertNumberOfCalls(t, "Generate", 3)
}

func TestGenerateBatch_PartialFailure(t *testing.T) {
	ctx := context.Background()
	questions := new(mockQuestionPipeline)
	evaluation := new(mockEvaluationPipeline)
	history := new(mockHistoryRepo)

	questions.On("Generate", mock.Anything, "golang", domain.DifficultyMedium, domain.StrategyRandom).
		Return(stubQuestion(), nil).Twice()
	questions.On("Generate", mock.Anything, "golang", domain.DifficultyMedium, domain.StrategyRandom).
		Return(nil, errors.New("model timeout")).Once()

	u := usecase.NewDrillUsecase(questions, evaluation, history, testLogger())

	batch, err := u.GenerateBatch(ctx, "golang", 3, domain.DifficultyMedium, domain.StrategyRandom)
	require.NoError(t, err, "partial success is still success")
	assert.Len(t, batch, 2)
}

func TestGenerateBatch_AllFail(t *testing.T) {
	ctx := context.Background()
	questions := new(mockQuestionPipeline)
	evaluation := new(mockEvaluationPipeline)
	history := new(mockHistoryRepo)

	questions.On("Generate", mock.Anything, "golang", domain.DifficultyMedium, domain.StrategyRandom).
		Return(nil, domain.ErrEmptyKnowledgeBase)

	u := usecase.NewDrillUsecase(questions, evaluation, history, testLogger())

	_, err := u.GenerateBatch(ctx, "golang", 2, domain.DifficultyMedium, domain.StrategyRandom)
	assert.ErrorIs(t, err, domain.ErrEmptyKnowledgeBase)
}

func TestGenerateBatch_RejectsNonPositiveCount(t *testing.T) {
	questions := new(mockQuestionPipeline)
	evaluation := new(mockEvaluationPipeline)
	history := new(mockHistoryRepo)

	u := usecase.NewDrillUsecase(questions, evaluation, history, testLogger())

	_, err := u.GenerateBatch(context.Background(), "golang", 0, domain.DifficultyMedium, domain.StrategyRandom)
	assert.Error(t, err)
}

func TestHistoryAndStatistics(t *testing.T) {
	ctx := context.Background()
	questions := new(mockQuestionPipeline)
	evaluation := new(mockEvaluationPipeline)
	history := new(mockHistoryRepo)

	history.On("RecentRecords", mock.Anything, "golang", 20).
		Return([]domain.QARecord{{ID: 1, KBName: "golang"}}, nil)
	history.On("Statistics", mock.Anything, "golang").
		Return(&domain.HistoryStatistics{TotalRecords: 10, CorrectCount: 7, AverageScore: 6.8}, nil)

	u := usecase.NewDrillUsecase(questions, evaluation, history, testLogger())

	records, err := u.History(ctx, "golang", 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	stats, err := u.Statistics(ctx, "golang")
	require.NoError(t, err)
	assert.Equal(t, 10, stats.TotalRecords)
	assert.Equal(t, 7, stats.CorrectCount)
	assert.InDelta(t, 6.8, stats.AverageScore, 0.001)
}
