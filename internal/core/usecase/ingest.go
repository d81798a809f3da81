package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kirillkom/agentic-rag/internal/core/domain"
	"github.com/kirillkom/agentic-rag/internal/core/ports"
)

// IngestOptions carries the optional collaborators of the ingest pipeline.
type IngestOptions struct {
	Registry  ports.SourceRegistry
	Publisher ports.IngestEventPublisher
	Observer  ports.PipelineObserver
	Logger    *zap.Logger
}

type IngestUseCase struct {
	loaders    []ports.SourceLoader
	chunker    ports.Chunker
	embedder   ports.Embedder
	vectorDB   ports.VectorStore
	collection string
	vectorSize int

	registry  ports.SourceRegistry
	publisher ports.IngestEventPublisher
	observer  ports.PipelineObserver
	logger    *zap.Logger
}

func NewIngestUseCase(
	loaders []ports.SourceLoader,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	collection string,
	vectorSize int,
	opts IngestOptions,
) *IngestUseCase {
	uc := &IngestUseCase{
		loaders:    loaders,
		chunker:    chunker,
		embedder:   embedder,
		vectorDB:   vectorDB,
		collection: collection,
		vectorSize: vectorSize,
		registry:   opts.Registry,
		publisher:  opts.Publisher,
		observer:   opts.Observer,
		logger:     opts.Logger,
	}
	if uc.registry == nil {
		uc.registry = NopRegistry{}
	}
	if uc.publisher == nil {
		uc.publisher = NopPublisher{}
	}
	if uc.observer == nil {
		uc.observer = NopObserver{}
	}
	if uc.logger == nil {
		uc.logger = zap.NewNop()
	}
	uc.logger = uc.logger.Named("ingest")
	return uc
}

type sourceChunks struct {
	doc    domain.SourceDocument
	chunks int
}

// Ingest runs load, split, embed and upsert. Having nothing to index is a
// finished run, not an error.
func (uc *IngestUseCase) Ingest(ctx context.Context) (*domain.IngestReport, error) {
	start := time.Now()
	report := &domain.IngestReport{Collection: uc.collection}

	if err := uc.stage("ensure_collection", func() error {
		return uc.vectorDB.EnsureCollection(ctx, uc.vectorSize)
	}); err != nil {
		return nil, fmt.Errorf("ensure collection: %w", err)
	}

	var docs []domain.SourceDocument
	if err := uc.stage("load", func() error {
		for _, loader := range uc.loaders {
			loaded, err := loader.Load(ctx)
			if err != nil {
				return fmt.Errorf("load %s sources: %w", loader.Name(), err)
			}
			uc.logger.Info("loaded sources", zap.String("loader", loader.Name()), zap.Int("documents", len(loaded)))
			docs = append(docs, loaded...)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	report.Documents = len(docs)
	if len(docs) == 0 {
		uc.logger.Info("no documents loaded, ingestion finished")
		report.Duration = time.Since(start)
		return report, nil
	}

	var chunks []domain.Chunk
	perSource := make([]sourceChunks, 0, len(docs))
	splitStart := time.Now()
	for _, doc := range docs {
		pieces := uc.chunker.Split(doc.Content)
		if len(pieces) == 0 {
			uc.logger.Warn("skipping document without content", zap.String("source", doc.Source))
			report.Skipped++
			continue
		}
		for i, text := range pieces {
			chunks = append(chunks, domain.Chunk{
				Source: doc.Source,
				Kind:   doc.Kind,
				Index:  i,
				Text:   text,
			})
		}
		perSource = append(perSource, sourceChunks{doc: doc, chunks: len(pieces)})
	}
	uc.observer.ObserveStage("split", time.Since(splitStart).Seconds(), nil)
	report.Chunks = len(chunks)
	if len(chunks) == 0 {
		uc.logger.Info("no chunks generated, ingestion finished")
		report.Duration = time.Since(start)
		return report, nil
	}
	uc.logger.Info("generated chunks", zap.Int("chunks", len(chunks)))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	var vectors [][]float32
	if err := uc.stage("embed", func() error {
		var err error
		vectors, err = uc.embedder.EmbedDocuments(ctx, texts)
		return err
	}); err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, domain.WrapError(domain.ErrDimensionMismatch, "embed chunks",
			fmt.Errorf("got %d embeddings for %d chunks", len(vectors), len(chunks)))
	}

	if err := uc.stage("upsert", func() error {
		return uc.vectorDB.Upsert(ctx, chunks, vectors)
	}); err != nil {
		return nil, fmt.Errorf("upsert chunks: %w", err)
	}
	report.Upserted = len(chunks)
	uc.observer.AddChunks(len(chunks))

	count, err := uc.vectorDB.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count points: %w", err)
	}
	report.PointCount = count
	report.Duration = time.Since(start)

	uc.recordSources(ctx, perSource)
	if err := uc.publisher.PublishIngestCompleted(ctx, *report); err != nil {
		uc.logger.Warn("publish ingest event failed", zap.Error(err))
	}

	uc.logger.Info("ingestion completed",
		zap.String("collection", uc.collection),
		zap.Int("upserted", report.Upserted),
		zap.Int("point_count", report.PointCount),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func (uc *IngestUseCase) recordSources(ctx context.Context, sources []sourceChunks) {
	now := time.Now().UTC()
	for _, s := range sources {
		sum := sha256.Sum256([]byte(s.doc.Content))
		changed, err := uc.registry.RecordSource(ctx, domain.SourceRecord{
			Source:        s.doc.Source,
			Kind:          s.doc.Kind,
			ChunkCount:    s.chunks,
			ContentSHA256: hex.EncodeToString(sum[:]),
			IngestedAt:    now,
		})
		if err != nil {
			uc.logger.Warn("record source failed", zap.String("source", s.doc.Source), zap.Error(err))
			continue
		}
		if changed {
			uc.logger.Debug("source content changed", zap.String("source", s.doc.Source))
		}
	}
}

func (uc *IngestUseCase) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	uc.observer.ObserveStage(name, time.Since(start).Seconds(), err)
	return err
}
