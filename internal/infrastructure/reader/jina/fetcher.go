package jina

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/agentic-rag/internal/infrastructure/resilience"
)

const defaultMaxBodyBytes = 8 << 20

// Fetcher reads web pages as text through the r.jina.ai reader proxy.
type Fetcher struct {
	baseURL      string
	maxBodyBytes int64
	httpClient   *http.Client
	executor     *resilience.Executor
}

// Options tune the fetcher. Bodies longer than MaxBodyBytes are truncated.
type Options struct {
	Timeout            time.Duration
	MaxBodyBytes       int64
	ResilienceExecutor *resilience.Executor
}

func New(baseURL string, options Options) *Fetcher {
	if baseURL == "" {
		baseURL = "https://r.jina.ai/"
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxBody := options.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &Fetcher{
		baseURL:      baseURL,
		maxBodyBytes: maxBody,
		httpClient:   &http.Client{Timeout: timeout},
		executor:     options.ResilienceExecutor,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var text string
	err := resilience.Run(ctx, f.executor, "jina.fetch", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+url, nil)
		if err != nil {
			return fmt.Errorf("create fetch request: %w", err)
		}
		resp, err := f.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("jina fetch request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return resilience.NewHTTPStatusError("jina", "fetch", resp)
		}
		raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
		if err != nil {
			return fmt.Errorf("read fetch response: %w", err)
		}
		text = strings.TrimSpace(strings.ToValidUTF8(string(raw), ""))
		return nil
	}, resilience.ClassifyHTTPError)
	if err != nil {
		return "", err
	}
	return text, nil
}
