package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/agentic-rag/internal/core/domain"
)

const (
	NoLocalContextMessage   = "No relevant context found in the vector store."
	WebSearchErrorMessage   = "An error occurred during the web search."
	NoWebResultsMessage     = "No relevant information found from web search."
	NoWebSnippetsMessage    = "Web search results did not contain usable content snippets."
	NoFallbackMessage       = "The retrieved documents do not contain enough information to answer this question, and web search fallback is disabled."
	AnswerErrorMessage      = "Sorry, I encountered an error while generating the answer."
	localContextSeparator   = "\n\n---\n\n"
	webContextSeparator     = "\n\n"
	missingContentText      = "Content not available in payload"
	missingSourceText       = "Source not available in payload"
	invalidPayloadContent   = "Payload missing or invalid"
	invalidPayloadSourceTag = "Unknown Source"
)

// FormatLocalContext renders search hits as numbered documents for the prompt.
func FormatLocalContext(chunks []domain.RetrievedChunk) string {
	if len(chunks) == 0 {
		return NoLocalContextMessage
	}
	parts := make([]string, 0, len(chunks))
	for i, c := range chunks {
		content, source := c.Content, c.Source
		switch {
		case !c.HasPayload:
			content, source = invalidPayloadContent, invalidPayloadSourceTag
		default:
			if content == "" {
				content = missingContentText
			}
			if source == "" {
				source = missingSourceText
			}
		}
		parts = append(parts, fmt.Sprintf("Retrieved Document %d (Source: %s, Score: %.4f):\n%s", i+1, source, c.Score, content))
	}
	return strings.Join(parts, localContextSeparator)
}

// FormatWebContext joins result snippets; searchErr replaces the results.
func FormatWebContext(results []domain.WebResult, searchErr error) string {
	if searchErr != nil {
		return WebSearchErrorMessage
	}
	if len(results) == 0 {
		return NoWebResultsMessage
	}
	snippets := make([]string, 0, len(results))
	for _, r := range results {
		if r.Body != "" {
			snippets = append(snippets, r.Body)
		}
	}
	if len(snippets) == 0 {
		return NoWebSnippetsMessage
	}
	return strings.Join(snippets, webContextSeparator)
}
