// Package sanitize validates and normalizes listener prompt text before
// it reaches the oracle pipeline.
package sanitize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tomfuertes/murmur/internal/domain"
)

var (
	// ErrInvalidPrompt means the text failed structural validation.
	ErrInvalidPrompt = errors.New("prompt failed validation")
	// ErrDenylisted means the text matched the content denylist.
	ErrDenylisted = errors.New("prompt matched denylist")
)

var (
	scriptPattern = regexp.MustCompile(`(?i)<\s*script|javascript\s*:|on\w+\s*=|<\s*iframe|data\s*:\s*text/html`)
	queryPattern  = regexp.MustCompile(`(?i)\b(union\s+select|insert\s+into|drop\s+table|delete\s+from|update\s+\w+\s+set|select\s+\*\s+from)\b|;\s*--|'\s*or\s+'1'\s*=\s*'1`)
	tagPattern    = regexp.MustCompile(`<[^>]*>`)
)

// Default denylist. Deliberately small; deployments extend it through
// prefilter.extra_patterns so the oracle never sees the obvious cases.
var defaultDenylist = []string{
	`(?i)\bkys\b`,
	`(?i)kill\s+your\s*sel(f|ves)`,
	`(?i)go\s+die\b`,
	`(?i)heil\s+hitler`,
}

// Sanitizer cleans prompt text and screens it against a compiled denylist.
type Sanitizer struct {
	denylist []*regexp.Regexp
}

// New compiles the default denylist plus any extra patterns from config.
func New(extraPatterns []string) (*Sanitizer, error) {
	patterns := append(append([]string(nil), defaultDenylist...), extraPatterns...)

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid denylist pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}

	return &Sanitizer{denylist: compiled}, nil
}

// Clean validates and normalizes raw prompt text. Injection patterns are
// checked against the raw input, then markup tags are stripped, the text
// is trimmed, and the result is truncated to the prompt length cap.
func (s *Sanitizer) Clean(text string) (string, error) {
	if scriptPattern.MatchString(text) || queryPattern.MatchString(text) {
		return "", ErrInvalidPrompt
	}

	cleaned := strings.TrimSpace(tagPattern.ReplaceAllString(text, ""))
	if cleaned == "" {
		return "", ErrInvalidPrompt
	}

	if len(cleaned) > domain.MaxPromptLen {
		cleaned = strings.TrimSpace(cleaned[:domain.MaxPromptLen])
	}
	return cleaned, nil
}

// CheckDenylist screens cleaned text against the denylist. A match
// rejects the prompt before any oracle call is spent on it.
func (s *Sanitizer) CheckDenylist(text string) error {
	for _, re := range s.denylist {
		if re.MatchString(text) {
			return ErrDenylisted
		}
	}
	return nil
}
