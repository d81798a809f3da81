package domain

import "time"

type RetrievedChunk struct {
	ID         string  `json:"id"`
	Source     string  `json:"source"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	HasPayload bool    `json:"-"`
}

type WebResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Body  string `json:"body"`
}

// Decision is the relevance verdict of the decision model.
type Decision string

const (
	DecisionIrrelevant Decision = "0"
	DecisionRelevant   Decision = "1"
)

type ContextOrigin string

const (
	OriginLocal ContextOrigin = "local"
	OriginWeb   ContextOrigin = "web"
	OriginNone  ContextOrigin = "none"
)

type Answer struct {
	Question   string           `json:"question"`
	Text       string           `json:"answer"`
	Decision   Decision         `json:"decision"`
	Origin     ContextOrigin    `json:"context_origin"`
	Context    string           `json:"-"`
	Chunks     []RetrievedChunk `json:"chunks"`
	WebResults []WebResult      `json:"web_results,omitempty"`
	Elapsed    time.Duration    `json:"elapsed"`
}

// CompletionRequest is a single system+user chat turn.
type CompletionRequest struct {
	Model       string
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// EmbeddingTask tells the embedding provider how the vector will be used.
type EmbeddingTask string

const (
	TaskRetrievalDocument EmbeddingTask = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    EmbeddingTask = "RETRIEVAL_QUERY"
)
