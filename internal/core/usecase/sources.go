package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/agentic-rag/internal/core/domain"
	"github.com/kirillkom/agentic-rag/internal/core/ports"
)

// SourcesUseCase exposes the source registry read model.
type SourcesUseCase struct {
	registry ports.SourceRegistry
}

func NewSourcesUseCase(registry ports.SourceRegistry) *SourcesUseCase {
	return &SourcesUseCase{registry: registry}
}

func (uc *SourcesUseCase) ListSources(ctx context.Context) ([]domain.SourceRecord, error) {
	if uc.registry == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "list sources", fmt.Errorf("source registry is not configured, set POSTGRES_DSN"))
	}
	sources, err := uc.registry.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return sources, nil
}
