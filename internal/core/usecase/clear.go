package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kirillkom/agentic-rag/internal/core/ports"
)

type ClearUseCase struct {
	vectorDB ports.VectorStore
	logger   *zap.Logger
}

func NewClearUseCase(vectorDB ports.VectorStore, logger *zap.Logger) *ClearUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClearUseCase{vectorDB: vectorDB, logger: logger.Named("clear")}
}

// Clear deletes the collection. A missing collection is not an error.
func (uc *ClearUseCase) Clear(ctx context.Context) error {
	if err := uc.vectorDB.DeleteCollection(ctx); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	uc.logger.Info("collection cleared")
	return nil
}
