package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Difficulty controls the rubric used when generating a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty validates a raw difficulty string.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(strings.ToLower(strings.TrimSpace(s))) {
	case DifficultyEasy:
		return DifficultyEasy, nil
	case DifficultyMedium, "":
		return DifficultyMedium, nil
	case DifficultyHard:
		return DifficultyHard, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

// SelectionStrategy names the sampling policy the content selector applies
// for a single call. It is a pure parameter, never persisted.
type SelectionStrategy string

const (
	StrategyRandom        SelectionStrategy = "random"
	StrategyDiverse       SelectionStrategy = "diverse"
	StrategyRecent        SelectionStrategy = "recent"
	StrategyComprehensive SelectionStrategy = "comprehensive"
)

// ParseStrategy validates a raw strategy string.
func ParseStrategy(s string) (SelectionStrategy, error) {
	switch SelectionStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyRandom, "":
		return StrategyRandom, nil
	case StrategyDiverse:
		return StrategyDiverse, nil
	case StrategyRecent:
		return StrategyRecent, nil
	case StrategyComprehensive:
		return StrategyComprehensive, nil
	}
	return "", fmt.Errorf("unknown selection strategy %q", s)
}

// ContentFragment is a retrievable unit of knowledge-base text with
// provenance metadata. Immutable once ingested.
type ContentFragment struct {
	ID        uuid.UUID
	KBName    string
	SourceID  string
	Content   string
	Metadata  map[string]interface{}
	CreatedAt time.Time
}

// RetrievedFragment pairs a fragment with its similarity score.
type RetrievedFragment struct {
	Fragment ContentFragment
	Score    float32
}

// Question is a generated drill question. Immutable once returned by the
// generation pipeline; SourceContext carries the exact fragment text the
// question was generated from so evaluation grades against the same material.
type Question struct {
	ID             string     `json:"id"`
	Content        string     `json:"content"`
	KBName         string     `json:"kb_name"`
	SourceContext  string     `json:"source_context"`
	BackgroundInfo string     `json:"background_info,omitempty"`
	Difficulty     Difficulty `json:"difficulty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NewQuestion builds a question with a fresh ID and timestamp.
func NewQuestion(content, kbName, sourceContext, backgroundInfo string, difficulty Difficulty) *Question {
	return &Question{
		ID:             uuid.NewString(),
		Content:        content,
		KBName:         kbName,
		SourceContext:  sourceContext,
		BackgroundInfo: backgroundInfo,
		Difficulty:     difficulty,
		CreatedAt:      time.Now(),
	}
}

// ContentHash returns a stable digest of the normalized question text,
// scoped to its knowledge base. Used for duplicate detection.
func (q *Question) ContentHash() string {
	return QuestionHash(q.KBName, q.Content)
}

// QuestionHash digests normalized question text for duplicate detection.
func QuestionHash(kbName, content string) string {
	normalized := strings.ToLower(strings.TrimSpace(content))
	sum := md5.Sum([]byte(kbName + ":" + normalized))
	return hex.EncodeToString(sum[:])
}

// Validate checks the invariants a question must satisfy before it leaves
// the generation pipeline.
func (q *Question) Validate() error {
	if strings.TrimSpace(q.Content) == "" {
		return fmt.Errorf("question content is empty")
	}
	if strings.TrimSpace(q.KBName) == "" {
		return fmt.Errorf("question has no knowledge base name")
	}
	if strings.TrimSpace(q.SourceContext) == "" {
		return fmt.Errorf("question has no source context")
	}
	if _, err := ParseDifficulty(string(q.Difficulty)); err != nil {
		return err
	}
	return nil
}

// EvaluationStatus distinguishes fully parsed evaluations from salvaged or
// degraded ones.
type EvaluationStatus string

const (
	EvaluationSuccess EvaluationStatus = "success"
	EvaluationPartial EvaluationStatus = "partial"
	EvaluationError   EvaluationStatus = "error"
)

// EvaluationResult is the structured grade for one answered question.
// IsCorrect and Score are kept mutually consistent under the configured
// threshold; a degraded result (Status == EvaluationError) always carries
// IsCorrect=false, Score=0 and an explanatory Feedback.
type EvaluationResult struct {
	IsCorrect       bool             `json:"is_correct"`
	Score           float64          `json:"score"`
	Feedback        string           `json:"feedback"`
	ReferenceAnswer string           `json:"reference_answer"`
	MissingPoints   []string         `json:"missing_points"`
	Strengths       []string         `json:"strengths"`
	Status          EvaluationStatus `json:"status"`
}

// Validate checks the score range and the score/verdict consistency
// invariant under the given threshold.
func (r *EvaluationResult) Validate(threshold float64) error {
	if r.Score < 0 || r.Score > 10 {
		return fmt.Errorf("score %.2f out of range [0, 10]", r.Score)
	}
	if r.IsCorrect != (r.Score >= threshold) {
		return fmt.Errorf("is_correct=%v inconsistent with score %.2f under threshold %.1f",
			r.IsCorrect, r.Score, threshold)
	}
	return nil
}

// QARecord is the persisted transcript of one drill attempt.
type QARecord struct {
	ID         int64            `json:"id"`
	KBName     string           `json:"kb_name"`
	Question   Question         `json:"question"`
	UserAnswer string           `json:"user_answer"`
	Evaluation EvaluationResult `json:"evaluation"`
	CreatedAt  time.Time        `json:"created_at"`
}

// KnowledgeBaseStats summarizes a knowledge base's indexed content.
type KnowledgeBaseStats struct {
	FragmentCount int `json:"fragment_count"`
	SourceCount   int `json:"source_count"`
}

// HistoryStatistics aggregates drill outcomes for one knowledge base.
type HistoryStatistics struct {
	TotalRecords int     `json:"total_records"`
	CorrectCount int     `json:"correct_count"`
	AverageScore float64 `json:"average_score"`
}

// QAPair is an existing question/answer pair found inside a fragment.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// FragmentAnnotations holds the precomputed enrichment metadata for one
// fragment: Q/A pairs already present in the text, extracted key concepts,
// and how many drill questions have referenced the fragment so far. Consumed
// by the comprehensive selection strategy.
type FragmentAnnotations struct {
	FragmentID    uuid.UUID
	KBName        string
	QAPairs       []QAPair
	KeyConcepts   []string
	QuestionCount int
	Confidence    float64
	UpdatedAt     time.Time
}

// EnrichmentJob is a queued request to annotate one fragment.
type EnrichmentJob struct {
	ID           uuid.UUID
	KBName       string
	FragmentID   uuid.UUID
	Status       string
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const (
	JobStatusNew        = "new"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)
