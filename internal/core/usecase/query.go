package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kirillkom/agentic-rag/internal/core/domain"
	"github.com/kirillkom/agentic-rag/internal/core/ports"
)

// PromptTemplates use {context} and {question} placeholders.
type PromptTemplates struct {
	DecisionSystem string
	DecisionUser   string
	AnswerSystem   string
	AnswerUser     string
}

type QueryOptions struct {
	TopK              int
	AllowWebFallback  bool
	WebMaxResults     int
	DecisionModel     string
	AnswerModel       string
	DecisionMaxTokens int
	AnswerMaxTokens   int
	Temperature       float64
	Prompts           PromptTemplates
}

type QueryUseCase struct {
	embedder  ports.Embedder
	vectorDB  ports.VectorStore
	completer ports.ChatCompleter
	web       ports.WebSearcher
	observer  ports.PipelineObserver
	logger    *zap.Logger
	opts      QueryOptions
}

func NewQueryUseCase(
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	completer ports.ChatCompleter,
	web ports.WebSearcher,
	observer ports.PipelineObserver,
	logger *zap.Logger,
	opts QueryOptions,
) *QueryUseCase {
	if observer == nil {
		observer = NopObserver{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.WebMaxResults <= 0 {
		opts.WebMaxResults = 5
	}
	return &QueryUseCase{
		embedder:  embedder,
		vectorDB:  vectorDB,
		completer: completer,
		web:       web,
		observer:  observer,
		logger:    logger.Named("query"),
		opts:      opts,
	}
}

func (uc *QueryUseCase) Answer(ctx context.Context, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", fmt.Errorf("question is empty"))
	}
	start := time.Now()

	var queryVector []float32
	err := uc.stage("embed_query", func() error {
		var err error
		queryVector, err = uc.embedder.EmbedQuery(ctx, question)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var chunks []domain.RetrievedChunk
	err = uc.stage("search", func() error {
		var err error
		chunks, err = uc.vectorDB.Search(ctx, queryVector, uc.opts.TopK)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("search vector db: %w", err)
	}
	uc.logger.Info("retrieved chunks", zap.Int("count", len(chunks)), zap.Int("top_k", uc.opts.TopK))

	localContext := FormatLocalContext(chunks)
	decision, err := uc.decide(ctx, question, localContext)
	if err != nil {
		return nil, fmt.Errorf("decide relevance: %w", err)
	}

	answer := &domain.Answer{
		Question: question,
		Decision: decision,
		Chunks:   chunks,
	}

	switch {
	case decision == domain.DecisionRelevant:
		answer.Origin = domain.OriginLocal
		answer.Context = localContext
	case uc.opts.AllowWebFallback && uc.web != nil:
		uc.logger.Info("local context not relevant, falling back to web search")
		results, searchErr := uc.searchWeb(ctx, question)
		answer.Origin = domain.OriginWeb
		answer.WebResults = results
		answer.Context = FormatWebContext(results, searchErr)
	default:
		uc.logger.Info("local context not relevant and web fallback disabled")
		answer.Origin = domain.OriginNone
		answer.Text = NoFallbackMessage
		uc.observer.ObserveDecision(decision, answer.Origin)
		answer.Elapsed = time.Since(start)
		return answer, nil
	}
	uc.observer.ObserveDecision(decision, answer.Origin)

	text, err := uc.generate(ctx, question, answer.Context)
	if err != nil {
		answer.Elapsed = time.Since(start)
		return answer, domain.WrapError(domain.ErrAnswerGeneration, "generate answer", err)
	}
	answer.Text = text
	answer.Elapsed = time.Since(start)
	return answer, nil
}

func (uc *QueryUseCase) decide(ctx context.Context, question, contextText string) (domain.Decision, error) {
	var reply string
	err := uc.stage("decide", func() error {
		var err error
		reply, err = uc.completer.Complete(ctx, domain.CompletionRequest{
			Model:       uc.opts.DecisionModel,
			System:      renderPrompt(uc.opts.Prompts.DecisionSystem, contextText, question),
			User:        renderPrompt(uc.opts.Prompts.DecisionUser, contextText, question),
			MaxTokens:   uc.opts.DecisionMaxTokens,
			Temperature: uc.opts.Temperature,
		})
		return err
	})
	if err != nil {
		return "", err
	}

	decision, ok := ParseDecision(reply)
	if !ok {
		uc.logger.Warn("decision reply had no 0/1, defaulting to 0", zap.String("reply", reply))
	}
	uc.logger.Info("relevance decision", zap.String("decision", string(decision)))
	return decision, nil
}

// searchWeb treats a failed search as context, not as a fatal error.
func (uc *QueryUseCase) searchWeb(ctx context.Context, question string) ([]domain.WebResult, error) {
	var results []domain.WebResult
	err := uc.stage("web_search", func() error {
		var err error
		results, err = uc.web.Search(ctx, question, uc.opts.WebMaxResults)
		return err
	})
	if err != nil {
		uc.logger.Warn("web search failed", zap.Error(err))
		return nil, err
	}
	uc.logger.Info("web search results", zap.Int("count", len(results)))
	return results, nil
}

func (uc *QueryUseCase) generate(ctx context.Context, question, contextText string) (string, error) {
	var text string
	err := uc.stage("answer", func() error {
		var err error
		text, err = uc.completer.Complete(ctx, domain.CompletionRequest{
			Model:       uc.opts.AnswerModel,
			System:      renderPrompt(uc.opts.Prompts.AnswerSystem, contextText, question),
			User:        renderPrompt(uc.opts.Prompts.AnswerUser, contextText, question),
			MaxTokens:   uc.opts.AnswerMaxTokens,
			Temperature: uc.opts.Temperature,
		})
		return err
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (uc *QueryUseCase) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	uc.observer.ObserveStage(name, time.Since(start).Seconds(), err)
	return err
}

// renderPrompt substitutes placeholders in one pass so context text is never re-expanded.
func renderPrompt(template, contextText, question string) string {
	return strings.NewReplacer("{context}", contextText, "{question}", question).Replace(template)
}
