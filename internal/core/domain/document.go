package domain

import "time"

type SourceKind string

const (
	SourcePDF   SourceKind = "pdf"
	SourceURL   SourceKind = "url"
	SourceText  SourceKind = "text"
	SourceSheet SourceKind = "xlsx"
)

// SourceDocument is the raw text of one ingested file or web page.
type SourceDocument struct {
	Source  string     `json:"source"`
	Kind    SourceKind `json:"kind"`
	Content string     `json:"content"`
}

// Chunk is a span of a source document ready to be embedded.
type Chunk struct {
	ID     string     `json:"id"`
	Source string     `json:"source"`
	Kind   SourceKind `json:"kind"`
	Index  int        `json:"chunk_index"`
	Text   string     `json:"content"`
}

// SourceRecord tracks what was ingested from a single source.
type SourceRecord struct {
	Source        string     `json:"source"`
	Kind          SourceKind `json:"kind"`
	ChunkCount    int        `json:"chunk_count"`
	ContentSHA256 string     `json:"content_sha256"`
	IngestedAt    time.Time  `json:"ingested_at"`
}

type IngestReport struct {
	Collection string        `json:"collection"`
	Documents  int           `json:"documents"`
	Skipped    int           `json:"skipped"`
	Chunks     int           `json:"chunks"`
	Upserted   int           `json:"upserted"`
	PointCount int           `json:"point_count"`
	Duration   time.Duration `json:"duration"`
}

// Finished reports whether ingestion stopped early because there was nothing to index.
func (r *IngestReport) Finished() bool {
	return r.Documents == 0 || r.Chunks == 0
}
