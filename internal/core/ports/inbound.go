package ports

import (
	"context"

	"github.com/kirillkom/agentic-rag/internal/core/domain"
)

// Ingestor is the inbound contract for the ingestion pipeline.
type Ingestor interface {
	Ingest(ctx context.Context) (*domain.IngestReport, error)
}

// QueryService is the inbound contract for answering a question.
type QueryService interface {
	Answer(ctx context.Context, question string) (*domain.Answer, error)
}

// CollectionAdmin is the inbound contract for collection maintenance.
type CollectionAdmin interface {
	Clear(ctx context.Context) error
}

// SourceLister is the inbound read model for ingested sources.
type SourceLister interface {
	ListSources(ctx context.Context) ([]domain.SourceRecord, error)
}
