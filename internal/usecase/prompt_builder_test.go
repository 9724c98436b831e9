package usecase_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dongjiahong/qa-system/internal/domain"
	"github.com/dongjiahong/qa-system/internal/usecase"
)

func TestBuildQuestionPrompt_DifficultyLabels(t *testing.T) {
	builder := usecase.NewQuizPromptBuilder()

	tests := []struct {
		difficulty domain.Difficulty
		label      string
	}{
		{domain.DifficultyEasy, "简单"},
		{domain.DifficultyMedium, "中等"},
		{domain.DifficultyHard, "困难"},
	}
	for _, tt := range tests {
		t.Run(string(tt.difficulty), func(t *testing.T) {
			prompt, err := builder.BuildQuestionPrompt(usecase.QuestionPromptInput{
				Content:    "Go的并发模型基于CSP。",
				Difficulty: tt.difficulty,
			})
			require.NoError(t, err)
			assert.Contains(t, prompt, tt.label)
			assert.Contains(t, prompt, "Go的并发模型基于CSP。")
			assert.Contains(t, prompt, `"question"`)
			assert.Contains(t, prompt, `"background"`)
		})
	}
}

func TestBuildQuestionPrompt_Invalid(t *testing.T) {
	builder := usecase.NewQuizPromptBuilder()

	_, err := builder.BuildQuestionPrompt(usecase.QuestionPromptInput{
		Content:    "  ",
		Difficulty: domain.DifficultyEasy,
	})
	assert.Error(t, err)

	_, err = builder.BuildQuestionPrompt(usecase.QuestionPromptInput{
		Content:    "内容",
		Difficulty: "impossible",
	})
	assert.Error(t, err)
}

func TestBuildEvaluationPrompt_ContainsAllParts(t *testing.T) {
	builder := usecase.NewQuizPromptBuilder()

	prompt, err := builder.BuildEvaluationPrompt(usecase.EvaluationPromptInput{
		Question:         "什么是CSP模型？",
		UserAnswer:       "通过通信共享内存。",
		ReferenceContext: "CSP是communicating sequential processes的缩写。",
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "什么是CSP模型？")
	assert.Contains(t, prompt, "通过通信共享内存。")
	assert.Contains(t, prompt, "CSP是communicating sequential processes的缩写。")

	// The expected response contract must be spelled out.
	for _, field := range []string{"is_correct", "score", "feedback", "reference_answer", "missing_points", "strengths"} {
		assert.True(t, strings.Contains(prompt, field), "prompt missing field %s", field)
	}
}

func TestBuildEvaluationPrompt_RequiresQuestion(t *testing.T) {
	builder := usecase.NewQuizPromptBuilder()

	_, err := builder.BuildEvaluationPrompt(usecase.EvaluationPromptInput{
		Question:   "",
		UserAnswer: "答案",
	})
	assert.Error(t, err)
}
