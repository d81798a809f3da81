package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/kirillkom/agentic-rag/internal/core/domain"
	"github.com/kirillkom/agentic-rag/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/agentic-rag/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/agentic-rag/internal/infrastructure/extractor/xlsx"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

type formatExtractor interface {
	Extract(ctx context.Context, body io.Reader) (string, error)
}

type route struct {
	kind      domain.SourceKind
	extractor formatExtractor
}

// Router picks an extractor by file extension.
type Router struct {
	routes map[string]route
}

func NewRouter() *Router {
	text := route{kind: domain.SourceText, extractor: plaintext.NewExtractor()}
	return &Router{
		routes: map[string]route{
			".pdf":  {kind: domain.SourcePDF, extractor: pdf.NewExtractor()},
			".xlsx": {kind: domain.SourceSheet, extractor: xlsx.NewExtractor()},
			".txt":  text,
			".md":   text,
		},
	}
}

func (r *Router) Supports(name string) bool {
	_, ok := r.routes[strings.ToLower(filepath.Ext(name))]
	return ok
}

func (r *Router) Extract(ctx context.Context, name string, body io.Reader) (string, domain.SourceKind, error) {
	ext := strings.ToLower(filepath.Ext(name))
	rt, ok := r.routes[ext]
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	text, err := rt.extractor.Extract(ctx, body)
	if err != nil {
		return "", rt.kind, err
	}
	return text, rt.kind, nil
}
