package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/agentic-rag/internal/core/domain"
)

func TestCompleteSendsSystemPromptAndOptions(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"  answer  "}`))
	}))
	defer server.Close()

	got, err := New(server.URL, nil).Complete(context.Background(), domain.CompletionRequest{
		Model:       "llama3.1:8b",
		System:      "context here",
		User:        "question?",
		MaxTokens:   20,
		Temperature: 0.3,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "answer" {
		t.Fatalf("expected trimmed answer, got %q", got)
	}
	if payload["system"] != "context here" || payload["prompt"] != "question?" || payload["stream"] != false {
		t.Fatalf("unexpected payload %v", payload)
	}
	options, _ := payload["options"].(map[string]any)
	if options["num_predict"] != float64(20) || options["temperature"] != 0.3 {
		t.Fatalf("unexpected options %v", options)
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, nil), "nomic-embed-text")
	_, err := embedder.EmbedDocuments(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected 502 to be tagged temporary, got %v", err)
	}
}
