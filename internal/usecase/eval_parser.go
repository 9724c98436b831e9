package usecase

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dongjiahong/qa-system/internal/domain"
)

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// EvaluationParser turns raw model grading output into a structured result.
// Parsing is deliberately tolerant: models return scores as strings, mix
// number types, drop optional fields, and leave trailing commas.
type EvaluationParser struct {
	threshold float64
}

// NewEvaluationParser creates a parser whose correctness verdict is derived
// from score >= threshold, overriding whatever the model claims.
func NewEvaluationParser(threshold float64) *EvaluationParser {
	return &EvaluationParser{threshold: threshold}
}

// Parse extracts an evaluation from sanitized model output. A score is the
// only mandatory field; everything else degrades to a zero value. Returns
// ErrEvaluationParse when no usable JSON object with a score is present.
func (p *EvaluationParser) Parse(raw string) (*domain.EvaluationResult, error) {
	span := extractJSONObject(raw)
	if span == "" {
		return nil, fmt.Errorf("%w: no JSON object in output", domain.ErrEvaluationParse)
	}
	span = trailingCommaRe.ReplaceAllString(span, "$1")

	dec := json.NewDecoder(strings.NewReader(span))
	dec.UseNumber()
	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEvaluationParse, err)
	}

	score, ok := parseScore(fields["score"])
	if !ok {
		return nil, fmt.Errorf("%w: missing or unreadable score", domain.ErrEvaluationParse)
	}
	if score < 0 {
		score = 0
	} else if score > 10 {
		score = 10
	}

	result := &domain.EvaluationResult{
		IsCorrect:       score >= p.threshold,
		Score:           score,
		Feedback:        stringField(fields["feedback"]),
		ReferenceAnswer: stringField(fields["reference_answer"]),
		MissingPoints:   listField(fields["missing_points"]),
		Strengths:       listField(fields["strengths"]),
		Status:          domain.EvaluationSuccess,
	}
	return result, nil
}

func parseScore(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	case float64:
		return t, true
	default:
		return 0, false
	}
}

func stringField(v interface{}) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// listField accepts a JSON array of strings or a single newline/bullet
// separated string; anything else yields an empty (never nil) slice.
func listField(v interface{}) []string {
	out := []string{}
	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			if s := stringField(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, line := range strings.Split(t, "\n") {
			line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-•*"))
			if line != "" {
				out = append(out, line)
			}
		}
	}
	return out
}
