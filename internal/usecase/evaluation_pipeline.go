package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/time/rate"

	"github.com/dongjiahong/qa-system/internal/domain"
)

// EvaluationPipeline grades a user's answer against a question and its
// supporting knowledge.
type EvaluationPipeline interface {
	Evaluate(ctx context.Context, question *domain.Question, userAnswer string) (*domain.EvaluationResult, error)
}

type evaluationPipeline struct {
	fragments domain.FragmentRepository
	encoder   domain.VectorEncoder
	llm       domain.LLMClient
	prompts   PromptBuilder
	sanitizer ResponseSanitizer
	parser    *EvaluationParser
	limiter   *rate.Limiter
	cfg       EvaluationConfig
	logger    *slog.Logger
}

// NewEvaluationPipeline wires the grading flow. encoder may be nil; the
// pipeline then grades against the question's source context alone without
// semantic retrieval.
func NewEvaluationPipeline(
	fragments domain.FragmentRepository,
	encoder domain.VectorEncoder,
	llm domain.LLMClient,
	prompts PromptBuilder,
	limiter *rate.Limiter,
	cfg EvaluationConfig,
	logger *slog.Logger,
) (EvaluationPipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid evaluation config: %w", err)
	}
	return &evaluationPipeline{
		fragments: fragments,
		encoder:   encoder,
		llm:       llm,
		prompts:   prompts,
		sanitizer: NewResponseSanitizer(),
		parser:    NewEvaluationParser(cfg.CorrectThreshold),
		limiter:   limiter,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// nonAnswerRe matches refusals that never warrant a model call.
var nonAnswerRe = regexp.MustCompile(`^(不知道|不清楚|不会|没有|无|没)[。.!！]?$`)

// Evaluate grades userAnswer. Model and parse failures never propagate as
// errors: after the retry budget is spent the caller receives a degraded
// result so a drill session can continue. Only caller cancellation and
// invalid questions surface as errors.
func (p *evaluationPipeline) Evaluate(ctx context.Context, question *domain.Question, userAnswer string) (*domain.EvaluationResult, error) {
	if question == nil {
		return nil, fmt.Errorf("question is required")
	}
	if err := question.Validate(); err != nil {
		return nil, fmt.Errorf("invalid question: %w", err)
	}

	if reason, invalid := rejectAnswer(userAnswer); invalid {
		p.logger.Info("answer_rejected_without_grading",
			slog.String("kb_name", question.KBName),
			slog.String("reason", reason))
		return &domain.EvaluationResult{
			IsCorrect:       false,
			Score:           0,
			Feedback:        "请提供一个有效的答案。" + reason,
			ReferenceAnswer: "",
			MissingPoints:   []string{},
			Strengths:       []string{},
			Status:          domain.EvaluationError,
		}, nil
	}

	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := p.evaluateOnce(ctx, question, userAnswer)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			p.logger.Warn("evaluation_attempt_failed",
				slog.String("kb_name", question.KBName),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			continue
		}
		if err := result.Validate(p.cfg.CorrectThreshold); err != nil {
			lastErr = fmt.Errorf("%w: %v", domain.ErrEvaluationParse, err)
			continue
		}

		p.logger.Info("answer_evaluated",
			slog.String("kb_name", question.KBName),
			slog.Float64("score", result.Score),
			slog.Bool("is_correct", result.IsCorrect),
			slog.Int("attempt", attempt))
		return result, nil
	}

	p.logger.Error("evaluation_degraded",
		slog.String("kb_name", question.KBName),
		slog.Int("attempts", p.cfg.MaxRetries),
		slog.String("error", errString(lastErr)))

	feedback := "评估未能完成，请稍后重试。"
	if lastErr != nil {
		feedback = fmt.Sprintf("评估未能完成，请稍后重试。原因: %s", lastErr.Error())
	}
	return &domain.EvaluationResult{
		IsCorrect:       false,
		Score:           0,
		Feedback:        feedback,
		ReferenceAnswer: "",
		MissingPoints:   []string{},
		Strengths:       []string{},
		Status:          domain.EvaluationError,
	}, nil
}

func (p *evaluationPipeline) evaluateOnce(ctx context.Context, question *domain.Question, userAnswer string) (*domain.EvaluationResult, error) {
	reference := p.buildReferenceContext(ctx, question, userAnswer)

	prompt, err := p.prompts.BuildEvaluationPrompt(EvaluationPromptInput{
		Question:         question.Content,
		UserAnswer:       userAnswer,
		ReferenceContext: reference,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build evaluation prompt: %w", err)
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()

	resp, err := p.llm.Generate(callCtx, prompt, domain.GenerateOptions{
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return nil, fmt.Errorf("%w: empty evaluation output", domain.ErrModelResponse)
	}

	text, truncated := p.sanitizer.Sanitize(resp.Text)
	if truncated {
		p.logger.Warn("thinking_block_unterminated", slog.String("kb_name", question.KBName))
	}
	return p.parser.Parse(text)
}

// buildReferenceContext assembles grading context: the question's own source
// fragment first and whole, then semantic neighbors of question+answer,
// deduplicated and truncated to the remaining rune budget. Retrieval
// failures are tolerated; the source context alone is enough to grade.
func (p *evaluationPipeline) buildReferenceContext(ctx context.Context, question *domain.Question, userAnswer string) string {
	source := strings.TrimSpace(question.SourceContext)
	sections := []string{source}
	budget := p.cfg.MaxContextLength - len([]rune(source))

	retrieved := p.retrieveNeighbors(ctx, question, userAnswer)
	seen := map[string]bool{source: true}
	n := 0
	for _, rf := range retrieved {
		content := strings.TrimSpace(rf.Fragment.Content)
		if content == "" || seen[content] {
			continue
		}
		seen[content] = true

		// Too little room left for a fragment to carry meaning.
		if budget < 100 {
			break
		}
		if r := []rune(content); len(r) > budget {
			content = string(r[:budget]) + "..."
		}
		n++
		section := fmt.Sprintf("参考内容%d：\n%s", n, content)
		sections = append(sections, section)
		budget -= len([]rune(content))
	}

	return strings.Join(sections, "\n\n")
}

func (p *evaluationPipeline) retrieveNeighbors(ctx context.Context, question *domain.Question, userAnswer string) []domain.RetrievedFragment {
	if p.encoder == nil {
		return nil
	}

	vectors, err := p.encoder.Encode(ctx, []string{question.Content + " " + userAnswer})
	if err != nil || len(vectors) == 0 {
		p.logger.Warn("reference_retrieval_skipped",
			slog.String("kb_name", question.KBName),
			slog.String("error", errString(err)))
		return nil
	}

	retrieved, err := p.fragments.Search(ctx, question.KBName, vectors[0], p.cfg.TopK)
	if err != nil {
		p.logger.Warn("reference_retrieval_skipped",
			slog.String("kb_name", question.KBName),
			slog.String("error", err.Error()))
		return nil
	}
	return retrieved
}

// rejectAnswer screens out inputs that cannot be graded meaningfully.
func rejectAnswer(userAnswer string) (reason string, invalid bool) {
	trimmed := strings.TrimSpace(userAnswer)
	if trimmed == "" {
		return "答案不能为空。", true
	}
	if len([]rune(trimmed)) < 2 {
		return "答案过短，请展开说明。", true
	}
	if nonAnswerRe.MatchString(trimmed) {
		return "请尝试根据所学知识作答。", true
	}
	return "", false
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
