package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/agentic-rag/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*SourceRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &SourceRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(int64(2026101401)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS sources").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureSchemaRollsBackOnDDLError(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS sources").
		WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	if err := repo.EnsureSchema(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordSourceReportsContentChange(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	ingestedAt := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	rec := domain.SourceRecord{
		Source:        "a.pdf",
		Kind:          domain.SourcePDF,
		ChunkCount:    12,
		ContentSHA256: "new",
		IngestedAt:    ingestedAt,
	}

	mock.ExpectQuery("INSERT INTO sources").
		WithArgs(rec.Source, "pdf", 12, "new", ingestedAt).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("old"))
	mock.ExpectQuery("INSERT INTO sources").
		WithArgs(rec.Source, "pdf", 12, "new", ingestedAt).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("new"))

	changed, err := repo.RecordSource(context.Background(), rec)
	if err != nil {
		t.Fatalf("RecordSource() error = %v", err)
	}
	if !changed {
		t.Fatalf("expected changed content to be reported")
	}

	changed, err = repo.RecordSource(context.Background(), rec)
	if err != nil {
		t.Fatalf("RecordSource() error = %v", err)
	}
	if changed {
		t.Fatalf("expected unchanged content")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordSourceRejectsEmptySource(t *testing.T) {
	repo, _, done := newRepoWithMock(t)
	defer done()

	_, err := repo.RecordSource(context.Background(), domain.SourceRecord{})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestListSources(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT source, kind, chunk_count, content_sha256, ingested_at").
		WillReturnRows(sqlmock.NewRows([]string{"source", "kind", "chunk_count", "content_sha256", "ingested_at"}).
			AddRow("https://example.com", "url", 3, "abc", now).
			AddRow("a.pdf", "pdf", 9, "def", now.Add(-time.Hour)))

	sources, err := repo.ListSources(context.Background())
	if err != nil {
		t.Fatalf("ListSources() error = %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].Kind != domain.SourceURL || sources[1].ChunkCount != 9 {
		t.Fatalf("unexpected sources %+v", sources)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
