package usecase

import (
	"context"

	"github.com/kirillkom/agentic-rag/internal/core/domain"
)

type NopObserver struct{}

func (NopObserver) ObserveStage(string, float64, error)                    {}
func (NopObserver) AddChunks(int)                                          {}
func (NopObserver) ObserveDecision(domain.Decision, domain.ContextOrigin) {}

type NopRegistry struct{}

func (NopRegistry) RecordSource(context.Context, domain.SourceRecord) (bool, error) {
	return true, nil
}

func (NopRegistry) ListSources(context.Context) ([]domain.SourceRecord, error) {
	return nil, nil
}

type NopPublisher struct{}

func (NopPublisher) PublishIngestCompleted(context.Context, domain.IngestReport) error {
	return nil
}
