package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyKnowledgeBase is returned when selection runs against a
	// knowledge base with no indexed fragments. Fatal to the call.
	ErrEmptyKnowledgeBase = errors.New("knowledge base has no indexed content")

	// ErrKnowledgeBaseNotFound is returned for unknown knowledge base
	// names. Fatal, never retried.
	ErrKnowledgeBaseNotFound = errors.New("knowledge base not found")

	// ErrModelUnavailable marks connection or timeout failures against the
	// generation model. Retryable up to the pipeline budget.
	ErrModelUnavailable = errors.New("model service unavailable")

	// ErrModelResponse marks malformed or empty model output. Retryable.
	ErrModelResponse = errors.New("malformed model response")

	// ErrEvaluationParse marks evaluation output whose mandatory fields
	// could not be located. Never surfaced to callers as a hard failure;
	// the evaluation pipeline downgrades it to a degraded result.
	ErrEvaluationParse = errors.New("evaluation response could not be parsed")
)

// QuestionGenerationError reports an exhausted generation retry budget.
// LastRawOutput carries the final unprocessed model output for diagnostics.
type QuestionGenerationError struct {
	KBName        string
	Attempts      int
	LastRawOutput string
	Err           error
}

func (e *QuestionGenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to generate question for %q after %d attempts: %v", e.KBName, e.Attempts, e.Err)
	}
	return fmt.Sprintf("failed to generate question for %q after %d attempts", e.KBName, e.Attempts)
}

func (e *QuestionGenerationError) Unwrap() error {
	return e.Err
}
