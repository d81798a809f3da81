package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kirillkom/agentic-rag/internal/core/domain"
	"github.com/kirillkom/agentic-rag/internal/infrastructure/resilience"
)

const upsertBatchSize = 128

// pointNamespace seeds deterministic point ids so re-ingesting a source overwrites its points.
var pointNamespace = uuid.MustParse("6f1c1d2e-3b7a-4c55-9a43-2f0f6d1e8b21")

type Client struct {
	baseURL    string
	collection string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
	logger     *zap.Logger

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

type Options struct {
	APIKey             string
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
	Logger             *zap.Logger
}

func New(baseURL, collection string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		apiKey:     options.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
		logger:     logger.Named("qdrant"),
	}
}

// PointID derives the stable id of a chunk from its source and position.
func PointID(source string, index int) string {
	return uuid.NewSHA1(pointNamespace, []byte(fmt.Sprintf("%s#%d", source, index))).String()
}

func (c *Client) CollectionExists(ctx context.Context) (bool, error) {
	_, err := c.collectionVectorSize(ctx)
	if errors.Is(err, domain.ErrCollectionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// EnsureCollection creates the collection when missing and checks the
// vector size of an existing one.
func (c *Client) EnsureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	size, err := c.collectionVectorSize(ctx)
	switch {
	case err == nil:
		if size != vectorSize {
			return domain.WrapError(domain.ErrDimensionMismatch, "qdrant ensure collection",
				fmt.Errorf("collection %q has vector size %d, expected %d", c.collection, size, vectorSize))
		}
		c.logger.Info("collection already exists", zap.String("collection", c.collection), zap.Int("vector_size", size))
	case errors.Is(err, domain.ErrCollectionNotFound):
		if err := c.createCollection(ctx, vectorSize); err != nil {
			return err
		}
		c.logger.Info("collection created", zap.String("collection", c.collection), zap.Int("vector_size", vectorSize))
	default:
		return err
	}

	c.markCollectionEnsured(vectorSize)
	return nil
}

func (c *Client) createCollection(ctx context.Context, vectorSize int) error {
	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	err := c.do(ctx, "ensure collection", http.MethodPut, c.collectionPath(), reqBody, nil)

	// 409 when a concurrent run created it first.
	var statusErr *resilience.HTTPStatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusConflict {
		return nil
	}
	return err
}

// DeleteCollection removes the collection and verifies it is gone.
// Deleting a missing collection succeeds.
func (c *Client) DeleteCollection(ctx context.Context) error {
	exists, err := c.CollectionExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		c.logger.Info("collection does not exist, nothing to delete", zap.String("collection", c.collection))
		return nil
	}

	if err := c.do(ctx, "delete collection", http.MethodDelete, c.collectionPath(), nil, nil); err != nil {
		return err
	}

	exists, err = c.CollectionExists(ctx)
	if err != nil {
		return fmt.Errorf("verify collection deletion: %w", err)
	}
	if exists {
		return fmt.Errorf("collection %q still exists after delete", c.collection)
	}

	c.ensureMu.Lock()
	c.ensuredCollection = false
	c.ensuredVectorSize = 0
	c.ensureMu.Unlock()
	return nil
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (c *Client) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return domain.WrapError(domain.ErrInvalidInput, "qdrant upsert",
			fmt.Errorf("chunks/vectors mismatch: %d/%d", len(chunks), len(vectors)))
	}

	c.ensureMu.Lock()
	expected := c.ensuredVectorSize
	c.ensureMu.Unlock()

	points := make([]point, 0, len(chunks))
	for i, chunk := range chunks {
		if expected > 0 && len(vectors[i]) != expected {
			return domain.WrapError(domain.ErrDimensionMismatch, "qdrant upsert",
				fmt.Errorf("vector %d has size %d, expected %d", i, len(vectors[i]), expected))
		}
		id := chunk.ID
		if id == "" {
			id = PointID(chunk.Source, chunk.Index)
		}
		points = append(points, point{
			ID:     id,
			Vector: vectors[i],
			Payload: map[string]any{
				"source":      chunk.Source,
				"content":     chunk.Text,
				"kind":        string(chunk.Kind),
				"chunk_index": chunk.Index,
			},
		})
	}

	path := c.collectionPath() + "/points?wait=true"
	for start := 0; start < len(points); start += upsertBatchSize {
		batch := points[start:min(start+upsertBatchSize, len(points))]
		if err := c.do(ctx, "upsert", http.MethodPut, path, map[string]any{"points": batch}, nil); err != nil {
			return err
		}
	}
	return nil
}

// Search returns an empty result when the collection does not exist.
func (c *Client) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.RetrievedChunk, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}

	var searchResp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	err := c.do(ctx, "search", http.MethodPost, c.collectionPath()+"/points/search", reqBody, &searchResp)
	if errors.Is(err, domain.ErrCollectionNotFound) {
		c.logger.Warn("search on missing collection", zap.String("collection", c.collection))
		return []domain.RetrievedChunk{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]domain.RetrievedChunk, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.RetrievedChunk{
			ID:         fmt.Sprintf("%v", r.ID),
			Source:     getStringPayload(r.Payload, "source"),
			Content:    getStringPayload(r.Payload, "content"),
			Score:      r.Score,
			HasPayload: r.Payload != nil,
		})
	}
	return out, nil
}

func (c *Client) Count(ctx context.Context) (int, error) {
	var countResp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := c.do(ctx, "count", http.MethodPost, c.collectionPath()+"/points/count", map[string]any{"exact": true}, &countResp); err != nil {
		return 0, err
	}
	return countResp.Result.Count, nil
}

func (c *Client) collectionVectorSize(ctx context.Context) (int, error) {
	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors json.RawMessage `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := c.do(ctx, "get collection", http.MethodGet, c.collectionPath(), nil, &info); err != nil {
		return 0, err
	}

	var single struct {
		Size int `json:"size"`
	}
	if err := json.Unmarshal(info.Result.Config.Params.Vectors, &single); err != nil {
		return 0, fmt.Errorf("decode collection vectors config: %w", err)
	}
	return single.Size, nil
}

func (c *Client) collectionPath() string {
	return "/collections/" + c.collection
}

func (c *Client) markCollectionEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
}

func (c *Client) do(ctx context.Context, operation, method, path string, payload any, out any) error {
	return resilience.Run(ctx, c.executor, "qdrant."+strings.ReplaceAll(operation, " ", "_"), func(ctx context.Context) error {
		var body io.Reader
		if payload != nil {
			raw, err := json.Marshal(payload)
			if err != nil {
				return fmt.Errorf("marshal %s body: %w", operation, err)
			}
			body = bytes.NewReader(raw)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return fmt.Errorf("create %s request: %w", operation, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("api-key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("qdrant %s request: %w", operation, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return domain.WrapError(domain.ErrCollectionNotFound, "qdrant "+operation, resilience.NewHTTPStatusError("qdrant", operation, resp))
		}
		if resp.StatusCode >= 300 {
			return resilience.NewHTTPStatusError("qdrant", operation, resp)
		}
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", operation, err)
		}
		return nil
	}, resilience.ClassifyHTTPError)
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
