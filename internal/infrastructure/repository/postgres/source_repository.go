package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/agentic-rag/internal/core/domain"
)

// SourceRepository records which sources were ingested and with what content.
type SourceRepository struct {
	db *sql.DB
}

func NewSourceRepository(db *sql.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *SourceRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize DDL across concurrent ingest runs.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101401)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS sources (
	source TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	content_sha256 TEXT NOT NULL,
	ingested_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sources_ingested_at ON sources(ingested_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// RecordSource upserts the record and reports whether the content hash changed.
func (r *SourceRepository) RecordSource(ctx context.Context, rec domain.SourceRecord) (bool, error) {
	if rec.Source == "" {
		return false, domain.WrapError(domain.ErrInvalidInput, "record source", fmt.Errorf("source is empty"))
	}
	if rec.IngestedAt.IsZero() {
		rec.IngestedAt = time.Now().UTC()
	}

	row := r.db.QueryRowContext(ctx, `
WITH prev AS (
	SELECT content_sha256 FROM sources WHERE source = $1
)
INSERT INTO sources (source, kind, chunk_count, content_sha256, ingested_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (source) DO UPDATE
SET kind = EXCLUDED.kind,
	chunk_count = EXCLUDED.chunk_count,
	content_sha256 = EXCLUDED.content_sha256,
	ingested_at = EXCLUDED.ingested_at
RETURNING COALESCE((SELECT content_sha256 FROM prev), '')
`, rec.Source, string(rec.Kind), rec.ChunkCount, rec.ContentSHA256, rec.IngestedAt)

	var previous string
	if err := row.Scan(&previous); err != nil {
		return false, fmt.Errorf("upsert source: %w", err)
	}
	return previous != rec.ContentSHA256, nil
}

func (r *SourceRepository) ListSources(ctx context.Context) ([]domain.SourceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT source, kind, chunk_count, content_sha256, ingested_at
FROM sources
ORDER BY ingested_at DESC, source ASC
`)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	out := make([]domain.SourceRecord, 0)
	for rows.Next() {
		var rec domain.SourceRecord
		var kind string
		if err := rows.Scan(&rec.Source, &kind, &rec.ChunkCount, &rec.ContentSHA256, &rec.IngestedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		rec.Kind = domain.SourceKind(kind)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return out, nil
}
