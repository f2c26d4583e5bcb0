package stages

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
)

// Topic bounds in whitespace-delimited tokens.
const (
	MinTopicWords = 2
	MaxTopicWords = 50
	MaxKeywords   = 5
)

var (
	disallowedTopicChars = regexp.MustCompile(`[^a-zA-Z0-9\s-]`)

	stopWords = map[string]struct{}{
		"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {}, "to": {},
		"for": {}, "of": {}, "with": {}, "by": {}, "from": {}, "as": {}, "is": {}, "was": {}, "are": {},
		"were": {}, "write": {}, "about": {}, "blog": {}, "post": {}, "article": {},
	}
)

// Planner validates a raw topic and emits the initial State Record.
type Planner struct {
	opts options
}

// NewPlanner creates a planner.
func NewPlanner(opts ...Option) *Planner {
	return &Planner{opts: buildOptions(opts)}
}

// Plan validates topic and mode and returns a fresh record routed by mode.
// Validation failures are returned as validation DomainErrors and no record
// is produced.
func (p *Planner) Plan(topic string, mode core.Mode) (*core.ContentState, error) {
	if err := ValidateTopic(topic); err != nil {
		return nil, err
	}
	if !core.ValidMode(mode) {
		return nil, core.ErrValidation(core.CodeInvalidMode, "mode must be standard or quick").
			WithDetail("kind", "invalid_mode").
			WithDetail("mode", string(mode))
	}

	normalized := NormalizeTopic(topic)
	keywords := ExtractKeywords(normalized)

	s := core.NewContentState(p.opts.newID(), normalized, mode, p.opts.now())
	s.Status = core.StatusInitialized
	standard := mode == core.ModeStandard
	s.EnableResearch = standard
	s.EnableRevision = standard
	if standard {
		s.NextAction = core.ActionResearch
		s.AssignedAgent = core.AgentResearch
	} else {
		s.NextAction = core.ActionWrite
		s.AssignedAgent = core.AgentWriter
	}

	p.opts.logger.WithProject(s.ProjectID).Info("project planned",
		"topic", normalized,
		"mode", mode,
		"keywords", keywords,
		"next_action", s.NextAction)
	return s, nil
}

// ValidateTopic checks the raw topic before normalization.
func ValidateTopic(topic string) error {
	if topic == "" {
		return topicError(core.CodeTopicEmpty, "empty", "topic cannot be empty")
	}
	words := strings.Fields(topic)
	if len(words) < MinTopicWords {
		return topicError(core.CodeTopicTooShort, "too_short", "topic too short").
			WithDetail("words", len(words))
	}
	if len(words) > MaxTopicWords {
		return topicError(core.CodeTopicTooLong, "too_long", "topic too long").
			WithDetail("words", len(words))
	}
	if !strings.ContainsFunc(topic, isASCIILetter) {
		return topicError(core.CodeTopicNonTextual, "non_textual", "topic must contain words")
	}
	return nil
}

func topicError(code, kind, msg string) *core.DomainError {
	return core.ErrValidation(code, msg).
		WithDetail("kind", kind).
		WithDetail("min_words", MinTopicWords).
		WithDetail("max_words", MaxTopicWords)
}

// NormalizeTopic trims, collapses whitespace, strips characters outside
// letters, digits, spaces and hyphens, then title-cases. Stripping happens
// after collapsing, so a removed symbol between spaces leaves two spaces.
func NormalizeTopic(topic string) string {
	cleaned := strings.Join(strings.Fields(topic), " ")
	cleaned = disallowedTopicChars.ReplaceAllString(cleaned, "")
	return titleCase(cleaned)
}

// titleCase upper-cases the first letter of every letter run and
// lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		letter := unicode.IsLetter(r)
		switch {
		case letter && !prevLetter:
			b.WriteRune(unicode.ToUpper(r))
		case letter:
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
		prevLetter = letter
	}
	return b.String()
}

// ExtractKeywords returns up to MaxKeywords lowercase tokens of topic that
// are not stop words and longer than two characters.
func ExtractKeywords(topic string) []string {
	keywords := make([]string, 0, MaxKeywords)
	for _, w := range strings.Fields(strings.ToLower(topic)) {
		if len(keywords) == MaxKeywords {
			break
		}
		if _, stop := stopWords[w]; stop || len(w) <= 2 {
			continue
		}
		keywords = append(keywords, w)
	}
	return keywords
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
