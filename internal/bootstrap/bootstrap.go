package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kirillkom/agentic-rag/internal/config"
	"github.com/kirillkom/agentic-rag/internal/core/ports"
	"github.com/kirillkom/agentic-rag/internal/core/usecase"
	"github.com/kirillkom/agentic-rag/internal/infrastructure/chunking"
	"github.com/kirillkom/agentic-rag/internal/infrastructure/embedding"
	"github.com/kirillkom/agentic-rag/internal/infrastructure/extractor"
	"github.com/kirillkom/agentic-rag/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/agentic-rag/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/agentic-rag/internal/infrastructure/llm/openaicompat"
	"github.com/kirillkom/agentic-rag/internal/infrastructure/loader"
	"github.com/kirillkom/agentic-rag/internal/infrastructure/queue/nats"
	"github.com/kirillkom/agentic-rag/internal/infrastructure/reader/jina"
	"github.com/kirillkom/agentic-rag/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/agentic-rag/internal/infrastructure/resilience"
	"github.com/kirillkom/agentic-rag/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/agentic-rag/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/agentic-rag/internal/infrastructure/websearch/duckduckgo"
	"github.com/kirillkom/agentic-rag/internal/observability/metrics"
)

const ServiceName = "agentic-rag"

type App struct {
	Config  config.Config
	Logger  *zap.Logger
	Metrics *metrics.PipelineMetrics

	IngestUC  ports.Ingestor
	QueryUC   ports.QueryService
	ClearUC   ports.CollectionAdmin
	SourcesUC ports.SourceLister

	closeFns []func()
}

// New wires the pipeline from cfg. Postgres and NATS are only used when configured.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{Config: cfg, Logger: logger, Metrics: metrics.NewPipelineMetrics(ServiceName)}

	executor := resilience.NewExecutor(resilienceConfig(cfg.Resilience), logger)

	storage, err := localfs.New(cfg.Sources.PDFFolder)
	if err != nil {
		return nil, fmt.Errorf("init data folder: %w", err)
	}

	completer, err := newCompleter(cfg, executor)
	if err != nil {
		return nil, err
	}
	embedder, err := newEmbedder(cfg, executor)
	if err != nil {
		return nil, err
	}
	batched := embedding.NewBatcher(embedder, cfg.Embedding.BatchSize, cfg.Embedding.RequestsPerMinute, logger)

	vectorDB := qdrant.New(cfg.Qdrant.URL, cfg.Qdrant.Collection, qdrant.Options{
		APIKey:             cfg.Qdrant.APIKey,
		ResilienceExecutor: executor,
		Logger:             logger,
	})

	loaders := []ports.SourceLoader{
		loader.NewURLLoader(jina.New(cfg.Sources.ReaderURL, jina.Options{
			Timeout:            cfg.Sources.FetchTimeout,
			MaxBodyBytes:       cfg.Sources.MaxFetchBytes,
			ResilienceExecutor: executor,
		}), cfg.Sources.URLs, logger),
		loader.NewFolderLoader(storage, extractor.NewRouter(), logger),
	}

	ingestOpts := usecase.IngestOptions{Observer: app.Metrics, Logger: logger}
	var registry ports.SourceRegistry
	if cfg.PostgresDSN != "" {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		app.closeFns = append(app.closeFns, func() { _ = db.Close() })
		repo := postgres.NewSourceRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			app.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		registry = repo
		ingestOpts.Registry = repo
	}
	if cfg.NATS.URL != "" {
		publisher, err := nats.New(cfg.NATS.URL, cfg.NATS.Subject, nats.Options{ResilienceExecutor: executor, Logger: logger})
		if err != nil {
			logger.Warn("nats unavailable, ingest events disabled", zap.Error(err))
		} else {
			app.closeFns = append(app.closeFns, publisher.Close)
			ingestOpts.Publisher = publisher
		}
	}

	app.IngestUC = usecase.NewIngestUseCase(
		loaders,
		newChunker(cfg.Chunking, logger),
		batched,
		vectorDB,
		cfg.Qdrant.Collection,
		cfg.Embedding.VectorSize,
		ingestOpts,
	)
	app.QueryUC = usecase.NewQueryUseCase(
		batched,
		vectorDB,
		completer,
		duckduckgo.New(cfg.WebSearch.Endpoint, cfg.WebSearch.Timeout, executor),
		app.Metrics,
		logger,
		queryOptions(cfg),
	)
	app.ClearUC = usecase.NewClearUseCase(vectorDB, logger)
	app.SourcesUC = usecase.NewSourcesUseCase(registry)
	return app, nil
}

func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}

func resilienceConfig(cfg config.ResilienceConfig) resilience.Config {
	out := resilience.DefaultConfig()
	out.Retry.MaxAttempts = cfg.RetryMaxAttempts
	out.Retry.InitialBackoff = cfg.RetryInitialBackoff
	out.Retry.MaxBackoff = cfg.RetryMaxBackoff
	out.Breaker.Enabled = cfg.BreakerEnabled
	return out
}

func newCompleter(cfg config.Config, executor *resilience.Executor) (ports.ChatCompleter, error) {
	switch cfg.LLM.Provider {
	case config.ProviderGoogle, config.ProviderOpenAI:
		return openaicompat.New(openAIBaseURL(cfg.LLM.Provider, cfg.LLM.BaseURL), cfg.APIKeyFor(cfg.LLM.Provider), openaicompat.Options{
			ResilienceExecutor: executor,
		}), nil
	case config.ProviderOllama:
		return ollama.New(cfg.Ollama.URL, executor), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLM.Provider)
	}
}

func newEmbedder(cfg config.Config, executor *resilience.Executor) (ports.Embedder, error) {
	switch cfg.Embedding.Provider {
	case config.ProviderGoogle:
		return gemini.NewEmbedder(cfg.Embedding.BaseURL, cfg.APIKeyFor(cfg.Embedding.Provider), cfg.Embedding.Model, cfg.Embedding.VectorSize, executor), nil
	case config.ProviderOpenAI:
		client := openaicompat.New(openAIBaseURL(cfg.Embedding.Provider, cfg.Embedding.BaseURL), cfg.APIKeyFor(cfg.Embedding.Provider), openaicompat.Options{
			ResilienceExecutor: executor,
		})
		return openaicompat.NewEmbedder(client, cfg.Embedding.Model, cfg.Embedding.VectorSize), nil
	case config.ProviderOllama:
		return ollama.NewEmbedder(ollama.New(cfg.Ollama.URL, executor), cfg.Embedding.Model), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.Embedding.Provider)
	}
}

// openAIBaseURL drops the Google default when the OpenAI provider is selected
// so the SDK falls back to api.openai.com.
func openAIBaseURL(provider, baseURL string) string {
	if provider == config.ProviderOpenAI && strings.Contains(baseURL, "generativelanguage.googleapis.com") {
		return ""
	}
	return baseURL
}

func newChunker(cfg config.ChunkingConfig, logger *zap.Logger) ports.Chunker {
	if cfg.Strategy == config.StrategyWindow {
		return chunking.NewCleaningChunker(chunking.NewWindowSplitter(cfg.Size, cfg.Overlap))
	}
	length := chunking.LazyTokenLength(cfg.TokenizerModel, chunking.ApproxTokenLength, func(err error) {
		logger.Warn("tokenizer unavailable, approximating token counts", zap.String("model", cfg.TokenizerModel), zap.Error(err))
	})
	return chunking.NewCleaningChunker(chunking.NewRecursiveSplitter(cfg.Size, cfg.Overlap, length))
}

func queryOptions(cfg config.Config) usecase.QueryOptions {
	return usecase.QueryOptions{
		TopK:              cfg.RetrievalTopK,
		AllowWebFallback:  cfg.AllowWebSearchFallback,
		WebMaxResults:     cfg.WebSearch.MaxResults,
		DecisionModel:     cfg.LLM.DecisionModel,
		AnswerModel:       cfg.LLM.AnswerModel,
		DecisionMaxTokens: cfg.LLM.DecisionMaxTokens,
		AnswerMaxTokens:   cfg.LLM.MaxTokens,
		Temperature:       cfg.LLM.Temperature,
		Prompts: usecase.PromptTemplates{
			DecisionSystem: cfg.Prompts.DecisionSystem,
			DecisionUser:   cfg.Prompts.DecisionUser,
			AnswerSystem:   cfg.Prompts.AnswerSystem,
			AnswerUser:     cfg.Prompts.AnswerUser,
		},
	}
}
