package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kirillkom/agentic-rag/internal/adapters/cli"
	"github.com/kirillkom/agentic-rag/internal/bootstrap"
	"github.com/kirillkom/agentic-rag/internal/config"
	"github.com/kirillkom/agentic-rag/internal/core/domain"
	"github.com/kirillkom/agentic-rag/internal/core/usecase"
	"github.com/kirillkom/agentic-rag/internal/observability/logging"
)

const examples = `  agentic-rag --ingest                     # Ingest the data folder and INGEST_URLS
  agentic-rag --query "Your question?"     # Ask a question
  agentic-rag --clear                      # Delete the collection
  agentic-rag --clear --ingest             # Clear the collection then ingest data
  agentic-rag --ingest --query "..."       # Ingest then ask`

// pipeline is what the command needs from the wired application.
type pipeline interface {
	Ingest(ctx context.Context) (*domain.IngestReport, error)
	Answer(ctx context.Context, question string) (*domain.Answer, error)
	Clear(ctx context.Context) error
	ListSources(ctx context.Context) ([]domain.SourceRecord, error)
	WriteMetrics(path string) error
	Close()
}

type pipelineFactory func(ctx context.Context, cfg config.Config, logger *zap.Logger) (pipeline, error)

func newRootCommand(factory pipelineFactory) *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:           "agentic-rag",
		Short:         "Agentic RAG: answer questions from local documents with a web search fallback",
		Example:       examples,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, factory)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

func run(cmd *cobra.Command, opts *Options, factory pipelineFactory) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	format, err := cli.ParseOutputFormat(opts.Output)
	if err != nil {
		return err
	}
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	opts.Apply(&cfg)

	if err := os.MkdirAll(cfg.Sources.PDFFolder, 0o755); err != nil {
		return fmt.Errorf("create data directory %s: %w", cfg.Sources.PDFFolder, err)
	}

	if !opts.hasAction() {
		return cmd.Help()
	}

	logger, err := logging.New(bootstrap.ServiceName, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if opts.Ingest || opts.Query != "" {
		if err := cfg.RequireAPIKey(); err != nil {
			return err
		}
	}

	app, err := factory(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()
	if opts.MetricsFile != "" {
		defer func() {
			if err := app.WriteMetrics(opts.MetricsFile); err != nil {
				logger.Warn("write metrics file failed", zap.String("path", opts.MetricsFile), zap.Error(err))
			}
		}()
	}

	if opts.Clear {
		logger.Info("clearing collection", zap.String("collection", cfg.Qdrant.Collection))
		if err := app.Clear(ctx); err != nil {
			return err
		}
		if err := cli.WriteCleared(out, cfg.Qdrant.Collection, format); err != nil {
			return err
		}
	}

	if opts.Ingest {
		report, err := app.Ingest(ctx)
		if err != nil {
			return fmt.Errorf("ingestion failed: %w", err)
		}
		if err := cli.WriteIngestReport(out, report, format); err != nil {
			return err
		}
	}

	if opts.Query != "" {
		answer, err := app.Answer(ctx, opts.Query)
		switch {
		case err != nil && domain.IsKind(err, domain.ErrAnswerGeneration) && answer != nil:
			logger.Error("answer generation failed", zap.Error(err))
			answer.Text = usecase.AnswerErrorMessage
		case err != nil:
			return err
		}
		if err := cli.WriteAnswer(out, answer, format); err != nil {
			return err
		}
	}

	if opts.ListSources {
		sources, err := app.ListSources(ctx)
		if err != nil {
			return err
		}
		if err := cli.WriteSources(out, sources, format); err != nil {
			return err
		}
	}
	return nil
}

// bootstrapPipeline adapts the wired App to the command.
type bootstrapPipeline struct {
	app *bootstrap.App
}

func newBootstrapPipeline(ctx context.Context, cfg config.Config, logger *zap.Logger) (pipeline, error) {
	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &bootstrapPipeline{app: app}, nil
}

func (p *bootstrapPipeline) Ingest(ctx context.Context) (*domain.IngestReport, error) {
	return p.app.IngestUC.Ingest(ctx)
}

func (p *bootstrapPipeline) Answer(ctx context.Context, question string) (*domain.Answer, error) {
	return p.app.QueryUC.Answer(ctx, question)
}

func (p *bootstrapPipeline) Clear(ctx context.Context) error {
	return p.app.ClearUC.Clear(ctx)
}

func (p *bootstrapPipeline) ListSources(ctx context.Context) ([]domain.SourceRecord, error) {
	return p.app.SourcesUC.ListSources(ctx)
}

func (p *bootstrapPipeline) WriteMetrics(path string) error {
	return p.app.Metrics.WriteTextfile(path)
}

func (p *bootstrapPipeline) Close() {
	p.app.Close()
}
