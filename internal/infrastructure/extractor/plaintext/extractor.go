package plaintext

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads UTF-8 text, replacing invalid sequences.
func (e *Extractor) Extract(_ context.Context, body io.Reader) (string, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read text document: %w", err)
	}
	text := string(raw)
	if !utf8.Valid(raw) {
		text = strings.ToValidUTF8(text, "�")
	}
	return strings.TrimSpace(text), nil
}
