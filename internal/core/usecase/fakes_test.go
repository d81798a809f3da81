package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/kirillkom/agentic-rag/internal/core/domain"
)

type fakeEmbedder struct {
	queryErr   error
	docsErr    error
	dropVector bool
	queries    []string
	docs       []string
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queries = append(f.queries, text)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return []float32{0.1, 0.2}, nil
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.docs = append(f.docs, texts...)
	if f.docsErr != nil {
		return nil, f.docsErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	if f.dropVector && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

type fakeVectorStore struct {
	ensureErr   error
	ensuredSize int
	results     []domain.RetrievedChunk
	searchLimit int
	upserted    []domain.Chunk
	upsertErr   error
	deleted     bool
	deleteErr   error
	count       int
}

func (f *fakeVectorStore) EnsureCollection(_ context.Context, size int) error {
	f.ensuredSize = size
	return f.ensureErr
}


func (f *fakeVectorStore) DeleteCollection(context.Context) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = true
	return nil
}

func (f *fakeVectorStore) Upsert(_ context.Context, chunks []domain.Chunk, _ [][]float32) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, chunks...)
	f.count += len(chunks)
	return nil
}

func (f *fakeVectorStore) Search(_ context.Context, _ []float32, limit int) ([]domain.RetrievedChunk, error) {
	f.searchLimit = limit
	return f.results, nil
}

func (f *fakeVectorStore) Count(context.Context) (int, error) { return f.count, nil }

// fakeCompleter answers decision prompts with decision and everything else with answer.
type fakeCompleter struct {
	decision  string
	answer    string
	decideErr error
	answerErr error
	requests  []domain.CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req domain.CompletionRequest) (string, error) {
	f.requests = append(f.requests, req)
	if strings.Contains(req.System, "Respond ONLY with 0 or 1") {
		return f.decision, f.decideErr
	}
	return f.answer, f.answerErr
}

type fakeWebSearcher struct {
	results []domain.WebResult
	err     error
	queries []string
}

func (f *fakeWebSearcher) Search(_ context.Context, query string, _ int) ([]domain.WebResult, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

type recordingObserver struct {
	stages    map[string]int
	failed    map[string]int
	chunks    int
	decisions []string
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{stages: map[string]int{}, failed: map[string]int{}}
}

func (o *recordingObserver) ObserveStage(stage string, _ float64, err error) {
	o.stages[stage]++
	if err != nil {
		o.failed[stage]++
	}
}

func (o *recordingObserver) AddChunks(n int) { o.chunks += n }

func (o *recordingObserver) ObserveDecision(d domain.Decision, origin domain.ContextOrigin) {
	o.decisions = append(o.decisions, string(d)+"/"+string(origin))
}

type fakeLoader struct {
	name string
	docs []domain.SourceDocument
	err  error
}

func (f fakeLoader) Name() string { return f.name }

func (f fakeLoader) Load(context.Context) ([]domain.SourceDocument, error) {
	return f.docs, f.err
}

type wordChunker struct{}

// Split emits one chunk per whitespace-separated field.
func (wordChunker) Split(text string) []string { return strings.Fields(text) }

type fakeRegistry struct {
	records []domain.SourceRecord
	err     error
}

func (f *fakeRegistry) RecordSource(_ context.Context, rec domain.SourceRecord) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.records = append(f.records, rec)
	return true, nil
}

func (f *fakeRegistry) ListSources(context.Context) ([]domain.SourceRecord, error) {
	return f.records, f.err
}

type fakePublisher struct {
	reports []domain.IngestReport
	err     error
}

func (f *fakePublisher) PublishIngestCompleted(_ context.Context, report domain.IngestReport) error {
	f.reports = append(f.reports, report)
	return f.err
}

var errBoom = errors.New("boom")
