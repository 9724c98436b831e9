package usecase

import (
	"fmt"
	"time"
)

// GenerationConfig holds tunable parameters for the question pipeline.
type GenerationConfig struct {
	// MaxRetries is the unified retry budget for one generate call. It
	// covers transport failures, validation failures, and duplicate hits.
	MaxRetries int

	// Temperature is the base sampling temperature for question generation.
	Temperature float64

	// TemperatureStep is added per retry so repeated failures can escape a
	// deterministic bad sample. Capped at MaxTemperature.
	TemperatureStep float64
	MaxTemperature  float64

	// MaxTokens bounds the model output length.
	MaxTokens int

	// MaxContextLength bounds the fragment text embedded in the prompt, in
	// runes. Longer fragments are truncated from the end.
	MaxContextLength int

	// CallTimeout bounds a single model invocation. A timeout counts
	// against MaxRetries like any other transient failure.
	CallTimeout time.Duration

	// RecentQuestionWindow sizes the per-process LRU of recently generated
	// questions used for near-duplicate detection.
	RecentQuestionWindow int

	// DuplicateOverlap is the bigram overlap ratio above which a candidate
	// question counts as a near-duplicate of a recent one.
	DuplicateOverlap float64
}

// DefaultGenerationConfig mirrors the shipped defaults.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		MaxRetries:           3,
		Temperature:          0.7,
		TemperatureStep:      0.1,
		MaxTemperature:       1.0,
		MaxTokens:            1000,
		MaxContextLength:     4000,
		CallTimeout:          60 * time.Second,
		RecentQuestionWindow: 64,
		DuplicateOverlap:     0.8,
	}
}

// Validate checks the configuration values are usable.
func (c GenerationConfig) Validate() error {
	if c.MaxRetries <= 0 {
		return fmt.Errorf("maxRetries must be positive, got %d", c.MaxRetries)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be in [0, 2], got %f", c.Temperature)
	}
	if c.MaxTemperature < c.Temperature {
		return fmt.Errorf("maxTemperature %f below base temperature %f", c.MaxTemperature, c.Temperature)
	}
	if c.MaxContextLength <= 0 {
		return fmt.Errorf("maxContextLength must be positive, got %d", c.MaxContextLength)
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("callTimeout must be positive, got %v", c.CallTimeout)
	}
	if c.RecentQuestionWindow <= 0 {
		return fmt.Errorf("recentQuestionWindow must be positive, got %d", c.RecentQuestionWindow)
	}
	if c.DuplicateOverlap <= 0 || c.DuplicateOverlap > 1 {
		return fmt.Errorf("duplicateOverlap must be in (0, 1], got %f", c.DuplicateOverlap)
	}
	return nil
}

// EvaluationConfig holds tunable parameters for the evaluation pipeline.
type EvaluationConfig struct {
	// MaxRetries is the unified retry budget for one evaluate call,
	// covering retrieval failures, model failures, and parse failures.
	MaxRetries int

	// Temperature is lower than generation; grading favors determinism.
	Temperature float64

	MaxTokens int

	// MaxContextLength bounds the combined reference context, in runes.
	// The question's source context is always kept whole; retrieved
	// additions are truncated first.
	MaxContextLength int

	// TopK is the number of semantic neighbors retrieved as supporting
	// context.
	TopK int

	// CorrectThreshold maps score to verdict: is_correct == score >= it.
	CorrectThreshold float64

	CallTimeout time.Duration
}

// DefaultEvaluationConfig mirrors the shipped defaults. The 6.0 threshold
// sits inside the prompt rubric's "partially correct" band (4-7), so the
// forced verdict never contradicts the rubric shown to the model.
func DefaultEvaluationConfig() EvaluationConfig {
	return EvaluationConfig{
		MaxRetries:       3,
		Temperature:      0.3,
		MaxTokens:        1000,
		MaxContextLength: 4000,
		TopK:             5,
		CorrectThreshold: 6.0,
		CallTimeout:      60 * time.Second,
	}
}

// Validate checks the configuration values are usable.
func (c EvaluationConfig) Validate() error {
	if c.MaxRetries <= 0 {
		return fmt.Errorf("maxRetries must be positive, got %d", c.MaxRetries)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be in [0, 2], got %f", c.Temperature)
	}
	if c.MaxContextLength <= 0 {
		return fmt.Errorf("maxContextLength must be positive, got %d", c.MaxContextLength)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("topK must be positive, got %d", c.TopK)
	}
	if c.CorrectThreshold < 0 || c.CorrectThreshold > 10 {
		return fmt.Errorf("correctThreshold must be in [0, 10], got %f", c.CorrectThreshold)
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("callTimeout must be positive, got %v", c.CallTimeout)
	}
	return nil
}
