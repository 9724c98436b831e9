package usecase

import (
	"regexp"
	"strings"
)

var (
	closedThinkRe = regexp.MustCompile(`(?is)<(think|thinking|thought)>.*?</(think|thinking|thought)>`)
	openThinkRe   = regexp.MustCompile(`(?is)<(think|thinking|thought)>.*$`)
	blankRunsRe   = regexp.MustCompile(`\n\s*\n\s*\n`)
)

// ResponseSanitizer strips a model's internal reasoning trace from its raw
// output, leaving only the final answer text.
type ResponseSanitizer struct{}

// NewResponseSanitizer creates a sanitizer instance (stateless).
func NewResponseSanitizer() ResponseSanitizer {
	return ResponseSanitizer{}
}

// Sanitize removes thinking blocks, delimiters included, wherever they
// appear. An unterminated block is removed through end of text and reported
// via the truncated flag. If removal would leave nothing, the original raw
// text is returned unmodified so downstream parsing can still attempt to
// extract meaning. Sanitizing already-clean text returns it unchanged.
func (ResponseSanitizer) Sanitize(raw string) (text string, truncated bool) {
	if raw == "" {
		return raw, false
	}

	cleaned := closedThinkRe.ReplaceAllString(raw, "")
	if openThinkRe.MatchString(cleaned) {
		cleaned = openThinkRe.ReplaceAllString(cleaned, "")
		truncated = true
	}

	for blankRunsRe.MatchString(cleaned) {
		cleaned = blankRunsRe.ReplaceAllString(cleaned, "\n\n")
	}
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return raw, truncated
	}
	return cleaned, truncated
}
