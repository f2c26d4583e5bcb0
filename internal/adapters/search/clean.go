package search

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// SnippetCleaner turns the HTML fragments search APIs return in titles and
// descriptions (<strong>, entities) into markdown text.
type SnippetCleaner struct {
	converter *md.Converter
}

// NewSnippetCleaner creates a cleaner.
func NewSnippetCleaner() *SnippetCleaner {
	return &SnippetCleaner{converter: md.NewConverter("", true, nil)}
}

// Clean converts s. Plain text passes through unchanged; if conversion
// fails the trimmed input is returned.
func (c *SnippetCleaner) Clean(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !strings.ContainsAny(s, "<&") {
		return s
	}
	out, err := c.converter.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(out), " ")
}
