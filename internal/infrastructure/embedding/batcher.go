package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kirillkom/agentic-rag/internal/core/ports"
)

// Batcher splits document embedding into fixed-size batches and paces them
// against a per-minute request quota where every text counts as one request.
type Batcher struct {
	inner     ports.Embedder
	batchSize int
	limiter   *rate.Limiter
	logger    *zap.Logger
}

func NewBatcher(inner ports.Embedder, batchSize int, requestsPerMinute float64, logger *zap.Logger) *Batcher {
	if batchSize <= 0 {
		batchSize = 100
	}
	var limiter *rate.Limiter
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerMinute/60), batchSize)
	}
	return &Batcher{
		inner:     inner,
		batchSize: batchSize,
		limiter:   limiter,
		logger:    logger.Named("embedding"),
	}
}

func (b *Batcher) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	total := (len(texts) + b.batchSize - 1) / b.batchSize

	for start, n := 0, 1; start < len(texts); start, n = start+b.batchSize, n+1 {
		batch := texts[start:min(start+b.batchSize, len(texts))]
		if b.limiter != nil {
			if err := b.limiter.WaitN(ctx, len(batch)); err != nil {
				return nil, fmt.Errorf("wait for embedding quota: %w", err)
			}
		}

		b.logger.Debug("embedding batch", zap.Int("batch", n), zap.Int("batches", total), zap.Int("size", len(batch)))
		vectors, err := b.inner.EmbedDocuments(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("embed batch %d/%d: %w", n, total, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embed batch %d/%d: got %d vectors for %d texts", n, total, len(vectors), len(batch))
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (b *Batcher) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for embedding quota: %w", err)
		}
	}
	return b.inner.EmbedQuery(ctx, text)
}
