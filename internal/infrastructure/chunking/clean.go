package chunking

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Clean flattens line breaks and collapses whitespace runs to a single space.
func Clean(text string) string {
	text = strings.NewReplacer("\n", " ", "\r", " ").Replace(text)
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// Splitter is anything that turns cleaned text into chunks.
type Splitter interface {
	Split(text string) []string
}

// CleaningChunker cleans input before delegating to the wrapped splitter.
type CleaningChunker struct {
	inner Splitter
}

func NewCleaningChunker(inner Splitter) *CleaningChunker {
	return &CleaningChunker{inner: inner}
}

func (c *CleaningChunker) Split(text string) []string {
	cleaned := Clean(text)
	if cleaned == "" {
		return nil
	}
	return c.inner.Split(cleaned)
}
