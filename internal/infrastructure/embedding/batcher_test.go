package embedding

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type recordingEmbedder struct {
	batches [][]string
	short   bool
	err     error
}

func (f *recordingEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, append([]string(nil), texts...))
	n := len(texts)
	if f.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(len(texts[i]))}
	}
	return out, nil
}

func (f *recordingEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{1}, nil
}

func TestBatcherSplitsAndPreservesOrder(t *testing.T) {
	inner := &recordingEmbedder{}
	b := NewBatcher(inner, 2, 0, zap.NewNop())

	vectors, err := b.EmbedDocuments(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	if err != nil {
		t.Fatalf("EmbedDocuments() error = %v", err)
	}
	if len(inner.batches) != 3 || len(inner.batches[2]) != 1 {
		t.Fatalf("unexpected batches %v", inner.batches)
	}
	for i, v := range vectors {
		if v[0] != float32(i+1) {
			t.Fatalf("vector %d out of order: %v", i, vectors)
		}
	}
}

func TestBatcherFailsWholeCallOnBatchError(t *testing.T) {
	b := NewBatcher(&recordingEmbedder{err: errors.New("quota exceeded")}, 2, 0, zap.NewNop())
	_, err := b.EmbedDocuments(context.Background(), []string{"a", "b", "c"})
	if err == nil || !strings.Contains(err.Error(), "embed batch 1/2") {
		t.Fatalf("expected batch error, got %v", err)
	}
}

func TestBatcherDetectsShortBatch(t *testing.T) {
	b := NewBatcher(&recordingEmbedder{short: true}, 10, 0, zap.NewNop())
	if _, err := b.EmbedDocuments(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestBatcherHonoursCanceledContextWhileWaiting(t *testing.T) {
	b := NewBatcher(&recordingEmbedder{}, 2, 1, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.EmbedDocuments(ctx, []string{"a", "b"}); err == nil {
		t.Fatalf("expected context error")
	}
}
