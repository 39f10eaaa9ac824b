package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomfuertes/murmur/internal/domain"
)

func newSanitizer(t *testing.T) *Sanitizer {
	t.Helper()
	s, err := New(nil)
	require.NoError(t, err)
	return s
}

func TestCleanAcceptsNormalPrompts(t *testing.T) {
	s := newSanitizer(t)

	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"plain text", "make it rainier", "make it rainier"},
		{"trims whitespace", "  darker, slower  ", "darker, slower"},
		{"strips markup", "make it <b>loud</b>", "make it loud"},
		{"truncates to cap", strings.Repeat("a", 400), strings.Repeat("a", domain.MaxPromptLen)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := s.Clean(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestCleanRejectsInjection(t *testing.T) {
	s := newSanitizer(t)

	tests := []struct {
		name string
		in   string
	}{
		{"script tag", "<script>alert(1)</script>"},
		{"javascript url", "click javascript:alert(1)"},
		{"event handler", `<img onerror=alert(1)>`},
		{"sql union", "x' UNION SELECT password FROM users"},
		{"sql comment", "drop the beat'; --"},
		{"tautology", "' or '1'='1"},
		{"empty after stripping", "<b></b>  "},
		{"only whitespace", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Clean(tt.in)
			assert.ErrorIs(t, err, ErrInvalidPrompt)
		})
	}
}

func TestCheckDenylist(t *testing.T) {
	s := newSanitizer(t)

	assert.NoError(t, s.CheckDenylist("make it dreamy"))
	assert.ErrorIs(t, s.CheckDenylist("everyone should kys"), ErrDenylisted)
	assert.ErrorIs(t, s.CheckDenylist("KILL YOURSELF"), ErrDenylisted)
}

func TestCheckDenylistExtraPatterns(t *testing.T) {
	s, err := New([]string{`(?i)\bbanword\b`})
	require.NoError(t, err)

	assert.ErrorIs(t, s.CheckDenylist("that is a BANWORD here"), ErrDenylisted)
	assert.NoError(t, s.CheckDenylist("banwordy is fine"))
}

func TestNewRejectsBadPattern(t *testing.T) {
	_, err := New([]string{`([`})
	assert.Error(t, err)
}
