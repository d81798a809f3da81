package extractor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/agentic-rag/internal/core/domain"
)

func TestExtractPlainRepairsInvalidUTF8(t *testing.T) {
	r := NewRouter()
	got, kind, err := r.Extract(context.Background(), "notes.TXT", strings.NewReader("  hello\x80world \n"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if kind != domain.SourceText {
		t.Fatalf("expected text kind, got %s", kind)
	}
	if got != "hello�world" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractSpreadsheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	_ = f.SetCellValue("Sheet1", "A1", "Title")
	_ = f.SetCellValue("Sheet1", "A2", "Value 1")
	_ = f.SetCellValue("Sheet1", "B2", "Value 2")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got, kind, err := NewRouter().Extract(context.Background(), "table.xlsx", &buf)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if kind != domain.SourceSheet {
		t.Fatalf("expected xlsx kind, got %s", kind)
	}
	if got != "Sheet: Sheet1\nTitle\nValue 1\tValue 2" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractRejectsCorruptPDF(t *testing.T) {
	_, kind, err := NewRouter().Extract(context.Background(), "broken.pdf", strings.NewReader("not a pdf"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if kind != domain.SourcePDF {
		t.Fatalf("expected pdf kind on failure, got %s", kind)
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	r := NewRouter()
	if r.Supports("image.png") {
		t.Fatalf("png must not be supported")
	}
	_, _, err := r.Extract(context.Background(), "image.png", strings.NewReader(""))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}
