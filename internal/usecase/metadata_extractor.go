package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dongjiahong/qa-system/internal/domain"
)

// minInlinePairs is the number of literal Q/A pairs a fragment must already
// contain before the extractor skips the model call.
const minInlinePairs = 3

// MetadataExtractor annotates fragments with Q/A pairs and key concepts so
// the comprehensive selection strategy has something to rank.
type MetadataExtractor interface {
	EnrichFragment(ctx context.Context, kbName string, fragment *domain.ContentFragment) error
}

type metadataExtractor struct {
	metadata  domain.MetadataIndex
	llm       domain.LLMClient
	sanitizer ResponseSanitizer
	limiter   *rate.Limiter
	timeout   time.Duration
	logger    *slog.Logger
}

// NewMetadataExtractor wires the enrichment flow over the metadata index.
func NewMetadataExtractor(
	metadata domain.MetadataIndex,
	llm domain.LLMClient,
	limiter *rate.Limiter,
	timeout time.Duration,
	logger *slog.Logger,
) MetadataExtractor {
	return &metadataExtractor{
		metadata:  metadata,
		llm:       llm,
		sanitizer: NewResponseSanitizer(),
		limiter:   limiter,
		timeout:   timeout,
		logger:    logger,
	}
}

// inlineQARe matches Q/A pairs written out in the fragment text itself,
// e.g. "问：... 答：..." or "Q: ... A: ...".
var inlineQARe = regexp.MustCompile(`(?m)^\s*(?:问|Q)[:：]\s*(.+)\n\s*(?:答|A)[:：]\s*(.+)$`)

func (e *metadataExtractor) EnrichFragment(ctx context.Context, kbName string, fragment *domain.ContentFragment) error {
	if fragment == nil {
		return fmt.Errorf("fragment is required")
	}

	pairs := extractInlinePairs(fragment.Content)
	concepts, confidence, err := e.extractConcepts(ctx, fragment.Content)
	if err != nil {
		// Inline pairs alone still improve selection; record what we have.
		e.logger.Warn("concept_extraction_failed",
			slog.String("kb_name", kbName),
			slog.String("fragment_id", fragment.ID.String()),
			slog.String("error", err.Error()))
		if len(pairs) == 0 {
			return fmt.Errorf("failed to extract fragment metadata: %w", err)
		}
		confidence = 0.5
	}

	ann := &domain.FragmentAnnotations{
		FragmentID:  fragment.ID,
		KBName:      kbName,
		QAPairs:     pairs,
		KeyConcepts: concepts,
		Confidence:  confidence,
		UpdatedAt:   time.Now(),
	}
	if err := e.metadata.UpsertAnnotations(ctx, ann); err != nil {
		return fmt.Errorf("failed to store fragment annotations: %w", err)
	}

	e.logger.Info("fragment_enriched",
		slog.String("kb_name", kbName),
		slog.String("fragment_id", fragment.ID.String()),
		slog.Int("qa_pairs", len(pairs)),
		slog.Int("key_concepts", len(concepts)))
	return nil
}

func extractInlinePairs(content string) []domain.QAPair {
	matches := inlineQARe.FindAllStringSubmatch(content, -1)
	pairs := make([]domain.QAPair, 0, len(matches))
	for _, m := range matches {
		q := strings.TrimSpace(m[1])
		a := strings.TrimSpace(m[2])
		if q != "" && a != "" {
			pairs = append(pairs, domain.QAPair{Question: q, Answer: a})
		}
	}
	return pairs
}

type conceptResponse struct {
	KeyConcepts []string `json:"key_concepts"`
}

// extractConcepts asks the model for the fragment's key concepts. Fragments
// that are mostly literal Q/A pairs already describe themselves, so the
// model call is skipped for them.
func (e *metadataExtractor) extractConcepts(ctx context.Context, content string) ([]string, float64, error) {
	if len(extractInlinePairs(content)) >= minInlinePairs {
		return []string{}, 0.9, nil
	}

	prompt := buildConceptPrompt(content)
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, 0, err
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.llm.Generate(callCtx, prompt, domain.GenerateOptions{
		Temperature: 0.2,
		MaxTokens:   300,
	})
	if err != nil {
		return nil, 0, err
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return nil, 0, fmt.Errorf("%w: empty concept extraction output", domain.ErrModelResponse)
	}

	text, _ := e.sanitizer.Sanitize(resp.Text)
	span := extractJSONObject(text)
	if span == "" {
		return nil, 0, fmt.Errorf("%w: no JSON object in concept output", domain.ErrModelResponse)
	}

	var parsed conceptResponse
	if err := json.Unmarshal([]byte(span), &parsed); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrModelResponse, err)
	}

	concepts := make([]string, 0, len(parsed.KeyConcepts))
	for _, c := range parsed.KeyConcepts {
		if c = strings.TrimSpace(c); c != "" {
			concepts = append(concepts, c)
		}
	}
	return concepts, 0.8, nil
}

func buildConceptPrompt(content string) string {
	var sb strings.Builder
	sb.WriteString("从以下知识内容中提取3-8个关键概念。\n\n")
	sb.WriteString("知识内容：\n")
	sb.WriteString(truncateRunes(content, 2000))
	sb.WriteString("\n\n请按照以下JSON格式返回结果：\n")
	sb.WriteString("{\n")
	sb.WriteString("    \"key_concepts\": [\"概念1\", \"概念2\"]\n")
	sb.WriteString("}\n\n")
	sb.WriteString("请确保返回有效的JSON格式：")
	return sb.String()
}
