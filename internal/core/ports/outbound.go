package ports

import (
	"context"
	"io"

	"github.com/kirillkom/agentic-rag/internal/core/domain"
)

// SourceLoader produces raw documents for ingestion.
type SourceLoader interface {
	Name() string
	Load(ctx context.Context) ([]domain.SourceDocument, error)
}

// FileStorage lists and opens files of the local data folder.
type FileStorage interface {
	List(ctx context.Context) ([]string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Path(name string) string
}

// TextExtractor extracts plain text from a file body.
type TextExtractor interface {
	Supports(name string) bool
	Extract(ctx context.Context, name string, body io.Reader) (string, domain.SourceKind, error)
}

// URLFetcher returns the readable text of a web page.
type URLFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits cleaned text into chunks.
type Chunker interface {
	Split(text string) []string
}

// VectorStore manages the collection and performs semantic search.
type VectorStore interface {
	EnsureCollection(ctx context.Context, vectorSize int) error
	DeleteCollection(ctx context.Context) error
	Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.RetrievedChunk, error)
	Count(ctx context.Context) (int, error)
}

// ChatCompleter runs a single system+user completion.
type ChatCompleter interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (string, error)
}

// WebSearcher returns web results for a free-text query.
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]domain.WebResult, error)
}

// SourceRegistry persists what was ingested per source.
type SourceRegistry interface {
	RecordSource(ctx context.Context, record domain.SourceRecord) (bool, error)
	ListSources(ctx context.Context) ([]domain.SourceRecord, error)
}

// IngestEventPublisher announces finished ingestion runs.
type IngestEventPublisher interface {
	PublishIngestCompleted(ctx context.Context, report domain.IngestReport) error
}

// PipelineObserver receives pipeline telemetry.
type PipelineObserver interface {
	ObserveStage(stage string, seconds float64, err error)
	AddChunks(count int)
	ObserveDecision(decision domain.Decision, origin domain.ContextOrigin)
}
