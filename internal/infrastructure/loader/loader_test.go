package loader

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/kirillkom/agentic-rag/internal/core/domain"
	"github.com/kirillkom/agentic-rag/internal/infrastructure/extractor"
	"github.com/kirillkom/agentic-rag/internal/infrastructure/storage/localfs"
)

func TestFolderLoaderSkipsEmptyBrokenAndUnsupported(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.txt":      "alpha text",
		"b.md":       "   \n  ",
		"c.pdf":      "not really a pdf",
		"d.png":      "binary",
		"e.markdown": "ignored",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	storage, err := localfs.New(dir)
	if err != nil {
		t.Fatalf("localfs.New() error = %v", err)
	}

	l := NewFolderLoader(storage, extractor.NewRouter(), zap.NewNop())
	docs, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d: %+v", len(docs), docs)
	}
	if docs[0].Source != "a.txt" || docs[0].Kind != domain.SourceText || docs[0].Content != "alpha text" {
		t.Fatalf("unexpected document %+v", docs[0])
	}
}

type countingStorage struct {
	*localfs.Storage
	opened []string
}

func (s *countingStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	s.opened = append(s.opened, name)
	return s.Storage.Open(ctx, name)
}

func TestFolderLoaderDoesNotOpenUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"notes.txt", "photo.png", "archive.zip"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("content of "+name), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	base, err := localfs.New(dir)
	if err != nil {
		t.Fatalf("localfs.New() error = %v", err)
	}
	storage := &countingStorage{Storage: base}

	docs, err := NewFolderLoader(storage, extractor.NewRouter(), zap.NewNop()).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(docs) != 1 || docs[0].Source != "notes.txt" {
		t.Fatalf("unexpected documents %+v", docs)
	}
	if len(storage.opened) != 1 || storage.opened[0] != "notes.txt" {
		t.Fatalf("expected only notes.txt opened, got %v", storage.opened)
	}
}

type fetcherFake struct {
	pages map[string]string
	fails map[string]bool
}

func (f *fetcherFake) Fetch(_ context.Context, url string) (string, error) {
	if f.fails[url] {
		return "", errors.New("fetch failed")
	}
	return f.pages[url], nil
}

func TestURLLoaderSkipsFailures(t *testing.T) {
	f := &fetcherFake{
		pages: map[string]string{"https://a": "page a", "https://c": ""},
		fails: map[string]bool{"https://b": true},
	}
	l := NewURLLoader(f, []string{"https://a", "https://b", "https://c"}, zap.NewNop())

	docs, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(docs) != 1 || docs[0].Source != "https://a" || docs[0].Kind != domain.SourceURL {
		t.Fatalf("unexpected documents %+v", docs)
	}
}
