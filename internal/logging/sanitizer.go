package logging

import "regexp"

// Sanitizer redacts credentials from log output.
type Sanitizer struct {
	patterns []*regexp.Regexp
	redacted string
}

// NewSanitizer creates a sanitizer with the default credential patterns.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		patterns: defaultPatterns(),
		redacted: "[REDACTED]",
	}
}

func defaultPatterns() []*regexp.Regexp {
	patterns := []string{
		// Gemini / Google AI
		`AIza[a-zA-Z0-9_-]{35}`,
		// OpenAI-compatible keys
		`sk-[A-Za-z0-9_-]{20,}`,
		// Brave subscription token header
		`(?i)x-subscription-token["'\s:=]+[A-Za-z0-9_-]{16,}`,
		// key= query parameter
		`(?i)([?&]key=)[A-Za-z0-9_-]{16,}`,
		`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`,
		`(?i)api[_-]?key["'\s:=]+[a-zA-Z0-9_-]{16,}`,
		`(?i)token["'\s:=]+[a-zA-Z0-9_-]{20,}`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

// Sanitize replaces every credential match in input.
func (s *Sanitizer) Sanitize(input string) string {
	out := input
	for _, p := range s.patterns {
		out = p.ReplaceAllString(out, s.redacted)
	}
	return out
}

// AddPattern registers an extra pattern.
func (s *Sanitizer) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.patterns = append(s.patterns, re)
	return nil
}
