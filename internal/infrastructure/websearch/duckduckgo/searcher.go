package duckduckgo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/kirillkom/agentic-rag/internal/core/domain"
	"github.com/kirillkom/agentic-rag/internal/infrastructure/resilience"
)

const (
	defaultEndpoint  = "https://html.duckduckgo.com/html/"
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) agentic-rag/1.0"
)

// Searcher scrapes the DuckDuckGo HTML endpoint.
type Searcher struct {
	endpoint   string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(endpoint string, timeout time.Duration, executor *resilience.Executor) *Searcher {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Searcher{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

func (s *Searcher) Search(ctx context.Context, query string, maxResults int) ([]domain.WebResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "duckduckgo search", fmt.Errorf("query is empty"))
	}

	var results []domain.WebResult
	err := resilience.Run(ctx, s.executor, "duckduckgo.search", func(ctx context.Context) error {
		form := url.Values{"q": {query}}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return fmt.Errorf("create search request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", defaultUserAgent)

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("duckduckgo search request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return resilience.NewHTTPStatusError("duckduckgo", "search", resp)
		}
		doc, err := html.Parse(resp.Body)
		if err != nil {
			return fmt.Errorf("parse search results: %w", err)
		}
		results = parseResults(doc, maxResults)
		return nil
	}, resilience.ClassifyHTTPError)
	if err != nil {
		return nil, err
	}
	return results, nil
}

func parseResults(doc *html.Node, maxResults int) []domain.WebResult {
	results := make([]domain.WebResult, 0)
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if maxResults > 0 && len(results) >= maxResults {
			return false
		}
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result") {
			if !hasClass(n, "result--ad") {
				if r, ok := parseResult(n); ok {
					results = append(results, r)
				}
			}
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(doc)
	return results
}

func parseResult(n *html.Node) (domain.WebResult, bool) {
	var r domain.WebResult
	if link := findFirst(n, func(n *html.Node) bool { return n.Data == "a" && hasClass(n, "result__a") }); link != nil {
		r.Title = textContent(link)
		r.URL = resolveHref(attr(link, "href"))
	}
	if snippet := findFirst(n, func(n *html.Node) bool { return hasClass(n, "result__snippet") }); snippet != nil {
		r.Body = textContent(snippet)
	}
	if r.Title == "" && r.URL == "" && r.Body == "" {
		return r, false
	}
	return r, true
}

// resolveHref unwraps the /l/?uddg= redirect links used by the HTML endpoint.
func resolveHref(href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && match(c) {
			return c
		}
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
