package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/dongjiahong/qa-system/internal/domain"
)

// QuestionPipeline generates drill questions from knowledge-base content.
type QuestionPipeline interface {
	Generate(ctx context.Context, kbName string, difficulty domain.Difficulty, strategy domain.SelectionStrategy) (*domain.Question, error)
}

type recentQuestion struct {
	kbName  string
	content string
}

type questionPipeline struct {
	selector  ContentSelector
	prompts   PromptBuilder
	llm       domain.LLMClient
	metadata  domain.MetadataIndex // nil disables question-count tracking
	sanitizer ResponseSanitizer
	limiter   *rate.Limiter
	cfg       GenerationConfig
	recent    *lru.Cache[string, recentQuestion]
	logger    *slog.Logger
}

// NewQuestionPipeline wires together the components needed to generate a
// question. The limiter is shared with the evaluation pipeline to bound
// load on the model service; pass nil to disable throttling. metadata may
// be nil; the comprehensive strategy then loses its asked-count signal.
func NewQuestionPipeline(
	selector ContentSelector,
	prompts PromptBuilder,
	llm domain.LLMClient,
	metadata domain.MetadataIndex,
	limiter *rate.Limiter,
	cfg GenerationConfig,
	logger *slog.Logger,
) (QuestionPipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generation config: %w", err)
	}
	recent, err := lru.New[string, recentQuestion](cfg.RecentQuestionWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to create recent-question cache: %w", err)
	}
	return &questionPipeline{
		selector:  selector,
		prompts:   prompts,
		llm:       llm,
		metadata:  metadata,
		sanitizer: NewResponseSanitizer(),
		limiter:   limiter,
		cfg:       cfg,
		recent:    recent,
		logger:    logger,
	}, nil
}

func (p *questionPipeline) Generate(ctx context.Context, kbName string, difficulty domain.Difficulty, strategy domain.SelectionStrategy) (*domain.Question, error) {
	if strings.TrimSpace(kbName) == "" {
		return nil, fmt.Errorf("knowledge base name is required")
	}
	difficulty, err := domain.ParseDifficulty(string(difficulty))
	if err != nil {
		return nil, err
	}
	if _, err := domain.ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}

	fragment, err := p.selector.Select(ctx, kbName, strategy, difficulty)
	if err != nil {
		return nil, err
	}

	content := truncateRunes(fragment.Content, p.cfg.MaxContextLength)
	prompt, err := p.prompts.BuildQuestionPrompt(QuestionPromptInput{
		Content:    content,
		Difficulty: difficulty,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build question prompt: %w", err)
	}

	var (
		lastErr error
		lastRaw string
	)
	for attempt := 1; attempt <= p.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := p.invokeModel(ctx, prompt, p.attemptTemperature(attempt))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			p.logger.Warn("question_generation_attempt_failed",
				slog.String("kb_name", kbName),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			continue
		}
		lastRaw = raw

		text, truncated := p.sanitizer.Sanitize(raw)
		if truncated {
			p.logger.Warn("thinking_block_unterminated", slog.String("kb_name", kbName))
		}

		question, background := parseQuestionResponse(text)
		if err := validateQuestion(question); err != nil {
			lastErr = fmt.Errorf("%w: %v", domain.ErrModelResponse, err)
			p.logger.Warn("question_validation_failed",
				slog.String("kb_name", kbName),
				slog.Int("attempt", attempt),
				slog.String("reason", err.Error()))
			continue
		}

		if p.isDuplicate(kbName, question) {
			lastErr = fmt.Errorf("%w: near-duplicate of a recent question", domain.ErrModelResponse)
			p.logger.Warn("question_duplicate",
				slog.String("kb_name", kbName),
				slog.Int("attempt", attempt))
			continue
		}

		q := domain.NewQuestion(question, kbName, fragment.Content, background, difficulty)
		p.recent.Add(q.ContentHash(), recentQuestion{kbName: kbName, content: question})
		p.recordFragmentUse(ctx, kbName, fragment.ID)

		p.logger.Info("question_generated",
			slog.String("kb_name", kbName),
			slog.String("question_id", q.ID),
			slog.String("difficulty", string(difficulty)),
			slog.Int("attempt", attempt))
		return q, nil
	}

	return nil, &domain.QuestionGenerationError{
		KBName:        kbName,
		Attempts:      p.cfg.MaxRetries,
		LastRawOutput: lastRaw,
		Err:           lastErr,
	}
}

// recordFragmentUse bumps the fragment's asked count so the comprehensive
// strategy stops preferring it. Best effort: a missing or failing index must
// not void a question that was already generated.
func (p *questionPipeline) recordFragmentUse(ctx context.Context, kbName string, fragmentID uuid.UUID) {
	if p.metadata == nil {
		return
	}
	if err := p.metadata.IncrementQuestionCount(ctx, fragmentID); err != nil {
		p.logger.Warn("question_count_update_failed",
			slog.String("kb_name", kbName),
			slog.String("fragment_id", fragmentID.String()),
			slog.String("error", err.Error()))
	}
}

// attemptTemperature escalates the sampling temperature slightly on each
// retry so repeated failures are not resampled from the same distribution.
func (p *questionPipeline) attemptTemperature(attempt int) float64 {
	t := p.cfg.Temperature + float64(attempt-1)*p.cfg.TemperatureStep
	if t > p.cfg.MaxTemperature {
		t = p.cfg.MaxTemperature
	}
	return t
}

func (p *questionPipeline) invokeModel(ctx context.Context, prompt string, temperature float64) (string, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()

	resp, err := p.llm.Generate(callCtx, prompt, domain.GenerateOptions{
		Temperature: temperature,
		MaxTokens:   p.cfg.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return "", fmt.Errorf("%w: empty generation", domain.ErrModelResponse)
	}
	return resp.Text, nil
}

// isDuplicate reports whether the candidate question exactly matches or
// heavily overlaps a recently generated question for the same knowledge base.
func (p *questionPipeline) isDuplicate(kbName, question string) bool {
	if p.recent.Contains(domain.QuestionHash(kbName, question)) {
		return true
	}
	for _, prev := range p.recent.Values() {
		if prev.kbName != kbName {
			continue
		}
		if bigramOverlap(question, prev.content) >= p.cfg.DuplicateOverlap {
			return true
		}
	}
	return false
}

// bigramOverlap computes the Dice coefficient over character bigrams.
func bigramOverlap(a, b string) float64 {
	ba := bigrams(a)
	bb := bigrams(b)
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}
	shared := 0
	for g, n := range ba {
		if m, ok := bb[g]; ok {
			if m < n {
				n = m
			}
			shared += n
		}
	}
	totalA, totalB := 0, 0
	for _, n := range ba {
		totalA += n
	}
	for _, n := range bb {
		totalB += n
	}
	return 2 * float64(shared) / float64(totalA+totalB)
}

func bigrams(s string) map[string]int {
	runes := []rune(strings.ToLower(strings.TrimSpace(s)))
	grams := make(map[string]int, len(runes))
	for i := 0; i+1 < len(runes); i++ {
		grams[string(runes[i:i+2])]++
	}
	return grams
}

type questionResponse struct {
	Question   string `json:"question"`
	Background string `json:"background"`
}

// parseQuestionResponse extracts question and background from the sanitized
// model output. The prompt asks for JSON; free-text output falls back to
// prefix cleanup.
func parseQuestionResponse(text string) (question, background string) {
	if span := extractJSONObject(text); span != "" {
		var parsed questionResponse
		if err := json.Unmarshal([]byte(span), &parsed); err == nil && strings.TrimSpace(parsed.Question) != "" {
			return cleanQuestionText(parsed.Question), strings.TrimSpace(parsed.Background)
		}
	}
	return cleanQuestionText(text), ""
}

var questionPrefixRes = []*regexp.Regexp{
	regexp.MustCompile(`^问题[:：]\s*`),
	regexp.MustCompile(`^问[:：]\s*`),
	regexp.MustCompile(`^题目[:：]\s*`),
	regexp.MustCompile(`^\d+[\.\)、]\s*`),
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func cleanQuestionText(s string) string {
	s = whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
	for _, re := range questionPrefixRes {
		s = re.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(s)
}

// interrogativeWords covers the forms a Chinese question is expected to use
// when the model omits the question mark.
var interrogativeWords = []string{
	"什么", "如何", "为什么", "怎样", "怎么", "哪些", "哪个", "谁", "何时", "何地", "是否", "多少",
}

// validateQuestion applies the quality heuristics: non-empty, bounded
// length, and a recognizable interrogative form.
func validateQuestion(question string) error {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" || trimmed == "？" || trimmed == "?" {
		return errors.New("question is empty")
	}
	if n := len([]rune(trimmed)); n < 5 {
		return fmt.Errorf("question too short (%d chars)", n)
	} else if n > 500 {
		return fmt.Errorf("question too long (%d chars)", n)
	}

	if strings.ContainsAny(trimmed, "？?") {
		return nil
	}
	for _, w := range interrogativeWords {
		if strings.Contains(trimmed, w) {
			return nil
		}
	}
	return errors.New("question has no recognizable interrogative form")
}

// truncateRunes cuts s to at most n runes, preserving the opening of the
// text and marking the cut.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// extractJSONObject returns the outermost {...} span of s, or "".
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}
