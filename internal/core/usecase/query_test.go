package usecase

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kirillkom/agentic-rag/internal/core/domain"
)

func testPrompts() PromptTemplates {
	return PromptTemplates{
		DecisionSystem: "Respond ONLY with 0 or 1.\nContext:\n{context}",
		DecisionUser:   "Question: {question}",
		AnswerSystem:   "Answer from context:\n{context}",
		AnswerUser:     "Question: {question}\n\nAnswer:",
	}
}

func newQueryFixture(decision string, fallback bool) (*QueryUseCase, *fakeVectorStore, *fakeCompleter, *fakeWebSearcher, *recordingObserver) {
	store := &fakeVectorStore{results: []domain.RetrievedChunk{
		{Source: "go.pdf", Content: "Go has goroutines.", Score: 0.87654, HasPayload: true},
	}}
	completer := &fakeCompleter{decision: decision, answer: "  final answer \n"}
	web := &fakeWebSearcher{results: []domain.WebResult{{Title: "t", URL: "https://w.example", Body: "web snippet"}}}
	obs := newRecordingObserver()
	uc := NewQueryUseCase(&fakeEmbedder{}, store, completer, web, obs, zap.NewNop(), QueryOptions{
		TopK:              3,
		AllowWebFallback:  fallback,
		DecisionModel:     "decider",
		AnswerModel:       "answerer",
		DecisionMaxTokens: 20,
		AnswerMaxTokens:   800,
		Temperature:       0.3,
		Prompts:           testPrompts(),
	})
	return uc, store, completer, web, obs
}

func TestAnswerUsesLocalContextWhenRelevant(t *testing.T) {
	uc, store, completer, web, obs := newQueryFixture("1", true)

	answer, err := uc.Answer(context.Background(), "  What does Go have? ")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Origin != domain.OriginLocal || answer.Decision != domain.DecisionRelevant {
		t.Fatalf("unexpected origin/decision %s/%s", answer.Origin, answer.Decision)
	}
	if answer.Text != "final answer" {
		t.Fatalf("expected trimmed answer, got %q", answer.Text)
	}
	if store.searchLimit != 3 {
		t.Fatalf("expected top k 3, got %d", store.searchLimit)
	}
	if len(web.queries) != 0 {
		t.Fatalf("expected no web search, got %v", web.queries)
	}
	if len(completer.requests) != 2 {
		t.Fatalf("expected decision and answer calls, got %d", len(completer.requests))
	}

	decide, gen := completer.requests[0], completer.requests[1]
	if decide.Model != "decider" || decide.MaxTokens != 20 || decide.User != "Question: What does Go have?" {
		t.Fatalf("unexpected decision request %+v", decide)
	}
	if !strings.Contains(decide.System, "Retrieved Document 1 (Source: go.pdf, Score: 0.8765):\nGo has goroutines.") {
		t.Fatalf("decision prompt missing local context: %q", decide.System)
	}
	if gen.Model != "answerer" || gen.MaxTokens != 800 || gen.Temperature != 0.3 {
		t.Fatalf("unexpected answer request %+v", gen)
	}
	if !strings.Contains(gen.System, "Go has goroutines.") {
		t.Fatalf("answer prompt missing local context: %q", gen.System)
	}
	if obs.decisions[0] != "1/local" {
		t.Fatalf("unexpected observed decision %v", obs.decisions)
	}
}

func TestAnswerFallsBackToWebSearch(t *testing.T) {
	uc, _, completer, web, obs := newQueryFixture("0", true)

	answer, err := uc.Answer(context.Background(), "latest news?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Origin != domain.OriginWeb {
		t.Fatalf("expected web origin, got %s", answer.Origin)
	}
	if len(web.queries) != 1 || web.queries[0] != "latest news?" {
		t.Fatalf("unexpected web queries %v", web.queries)
	}
	if answer.Context != "web snippet" {
		t.Fatalf("unexpected web context %q", answer.Context)
	}
	if gen := completer.requests[1]; !strings.Contains(gen.System, "web snippet") || strings.Contains(gen.System, "Go has goroutines.") {
		t.Fatalf("expected answer prompt built from web context, got %q", gen.System)
	}
	if obs.stages["web_search"] != 1 {
		t.Fatalf("expected web_search stage observed")
	}
}

func TestAnswerWebSearchErrorBecomesContext(t *testing.T) {
	uc, _, completer, web, _ := newQueryFixture("0", true)
	web.err = errBoom

	answer, err := uc.Answer(context.Background(), "q")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Context != WebSearchErrorMessage {
		t.Fatalf("unexpected context %q", answer.Context)
	}
	if len(completer.requests) != 2 {
		t.Fatalf("expected answer still generated, got %d calls", len(completer.requests))
	}
}

func TestAnswerStopsWhenFallbackDisabled(t *testing.T) {
	uc, _, completer, web, obs := newQueryFixture("0", false)

	answer, err := uc.Answer(context.Background(), "q")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != NoFallbackMessage || answer.Origin != domain.OriginNone {
		t.Fatalf("unexpected answer %+v", answer)
	}
	if len(completer.requests) != 1 {
		t.Fatalf("expected only the decision call, got %d", len(completer.requests))
	}
	if len(web.queries) != 0 {
		t.Fatalf("expected no web search")
	}
	if obs.decisions[0] != "0/none" {
		t.Fatalf("unexpected observed decision %v", obs.decisions)
	}
}

func TestAnswerDefaultsUnparseableDecisionToZero(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	uc, _, completer, _, _ := newQueryFixture("yes", false)
	uc.logger = zap.New(core)

	answer, err := uc.Answer(context.Background(), "q")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Decision != domain.DecisionIrrelevant {
		t.Fatalf("expected default decision 0, got %s", answer.Decision)
	}
	if len(completer.requests) != 1 {
		t.Fatalf("expected no answer call")
	}
	if logs.FilterMessageSnippet("defaulting to 0").Len() != 1 {
		t.Fatalf("expected a warning about the default decision")
	}
}

func TestAnswerPropagatesDecisionError(t *testing.T) {
	uc, _, completer, _, obs := newQueryFixture("1", true)
	completer.decideErr = errBoom

	_, err := uc.Answer(context.Background(), "q")
	if err == nil || !strings.Contains(err.Error(), "decide relevance") {
		t.Fatalf("expected decision error, got %v", err)
	}
	if obs.failed["decide"] != 1 {
		t.Fatalf("expected failed decide stage observed")
	}
}

func TestAnswerMarksGenerationError(t *testing.T) {
	uc, _, completer, _, _ := newQueryFixture("1", true)
	completer.answerErr = errBoom

	answer, err := uc.Answer(context.Background(), "q")
	if !domain.IsKind(err, domain.ErrAnswerGeneration) {
		t.Fatalf("expected ErrAnswerGeneration, got %v", err)
	}
	if answer == nil || answer.Origin != domain.OriginLocal {
		t.Fatalf("expected partial answer with origin, got %+v", answer)
	}
}

func TestAnswerRejectsEmptyQuestion(t *testing.T) {
	uc, _, _, _, _ := newQueryFixture("1", true)
	if _, err := uc.Answer(context.Background(), "   "); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAnswerEmbedErrorIsWrapped(t *testing.T) {
	store := &fakeVectorStore{}
	uc := NewQueryUseCase(&fakeEmbedder{queryErr: errBoom}, store, &fakeCompleter{}, nil, nil, nil, QueryOptions{})

	_, err := uc.Answer(context.Background(), "q")
	if err == nil || !strings.Contains(err.Error(), "embed query: boom") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestRenderPromptDoesNotExpandContext(t *testing.T) {
	got := renderPrompt("C={context} Q={question}", "has {question} inside", "why")
	if got != "C=has {question} inside Q=why" {
		t.Fatalf("unexpected render %q", got)
	}
}
