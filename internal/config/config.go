package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/agentic-rag/internal/core/domain"
)

const (
	ProviderGoogle = "google"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	StrategyRecursive = "recursive"
	StrategyWindow    = "window"

	DefaultConfigFile = "config.yaml"
)

type Config struct {
	GoogleAPIKey           string `yaml:"google_api_key"`
	OpenAIAPIKey           string `yaml:"openai_api_key"`
	AllowWebSearchFallback bool   `yaml:"allow_web_search_fallback"`
	RetrievalTopK          int    `yaml:"retrieval_top_k"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	LLM        LLMConfig        `yaml:"llm"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Qdrant     QdrantConfig     `yaml:"qdrant"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Sources    SourcesConfig    `yaml:"sources"`
	WebSearch  WebSearchConfig  `yaml:"web_search"`
	Ollama     OllamaConfig     `yaml:"ollama"`
	NATS       NATSConfig       `yaml:"nats"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Prompts    Prompts          `yaml:"prompts"`

	PostgresDSN string `yaml:"postgres_dsn"`
}

type LLMConfig struct {
	Provider          string  `yaml:"provider"`
	BaseURL           string  `yaml:"base_url"`
	APIKey            string  `yaml:"api_key"`
	DecisionModel     string  `yaml:"decision_model"`
	AnswerModel       string  `yaml:"answer_model"`
	MaxTokens         int     `yaml:"max_tokens"`
	DecisionMaxTokens int     `yaml:"decision_max_tokens"`
	Temperature       float64 `yaml:"temperature"`
}

type EmbeddingConfig struct {
	Provider          string  `yaml:"provider"`
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	VectorSize        int     `yaml:"vector_size"`
	BatchSize         int     `yaml:"batch_size"`
	RequestsPerMinute float64 `yaml:"requests_per_minute"`
}

type QdrantConfig struct {
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	Collection string `yaml:"collection"`
}

type ChunkingConfig struct {
	Strategy       string `yaml:"strategy"`
	Size           int    `yaml:"size"`
	Overlap        int    `yaml:"overlap"`
	TokenizerModel string `yaml:"tokenizer_model"`
}

type SourcesConfig struct {
	PDFFolder     string        `yaml:"pdf_folder"`
	URLs          []string      `yaml:"urls"`
	ReaderURL     string        `yaml:"reader_url"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	MaxFetchBytes int64         `yaml:"max_fetch_bytes"`
}

type WebSearchConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	MaxResults int           `yaml:"max_results"`
	Timeout    time.Duration `yaml:"timeout"`
}

type OllamaConfig struct {
	URL string `yaml:"url"`
}

type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type ResilienceConfig struct {
	RetryMaxAttempts    int           `yaml:"retry_max_attempts"`
	RetryInitialBackoff time.Duration `yaml:"retry_initial_backoff"`
	RetryMaxBackoff     time.Duration `yaml:"retry_max_backoff"`
	BreakerEnabled      bool          `yaml:"breaker_enabled"`
}

// Prompts hold templates with {context} and {question} placeholders.
type Prompts struct {
	DecisionSystem string `yaml:"decision_system"`
	DecisionUser   string `yaml:"decision_user"`
	AnswerSystem   string `yaml:"answer_system"`
	AnswerUser     string `yaml:"answer_user"`
}

const defaultDecisionSystemPrompt = `Your job is decide if a given question can be answered with a given context.
If the context contains information that can directly answer the question, return 1.
If the context does not contain information to answer the question, return 0.

Respond ONLY with 0 or 1. Do not provide any explanation, preamble, or justification. Just the single digit.

Context:
{context}
`

const defaultAnswerSystemPrompt = `You are an expert Q&A system. Your task is to answer the question based *only* on the provided context below.
Do not use any external knowledge or information you might have. Focus solely on the text provided in the 'Context'.
If the question cannot be answered using the provided context, respond exactly with: "Based on the provided context, I cannot answer this question."
Do not try to infer or make up information not present in the context.
Your answer should be informative and concise, directly addressing the question using only the context information. Format your response in Markdown.

Context:
{context}
`

const defaultUserPrompt = `
Question: {question}

Answer:`

func Default() Config {
	return Config{
		AllowWebSearchFallback: true,
		RetrievalTopK:          3,

		LogLevel:  "info",
		LogFormat: "console",

		LLM: LLMConfig{
			Provider:          ProviderGoogle,
			BaseURL:           "https://generativelanguage.googleapis.com/v1beta/openai/",
			DecisionModel:     "gemini-1.5-flash-latest",
			AnswerModel:       "gemini-1.5-flash-latest",
			MaxTokens:         800,
			DecisionMaxTokens: 20,
			Temperature:       0.3,
		},
		Embedding: EmbeddingConfig{
			Provider:          ProviderGoogle,
			BaseURL:           "https://generativelanguage.googleapis.com",
			Model:             "models/text-embedding-004",
			VectorSize:        768,
			BatchSize:         100,
			RequestsPerMinute: 1400,
		},
		Qdrant: QdrantConfig{
			URL:        "http://localhost:6333",
			Collection: "agent_rag_index_py_google_emb",
		},
		Chunking: ChunkingConfig{
			Strategy:       StrategyRecursive,
			Size:           150,
			Overlap:        0,
			TokenizerModel: "gpt-4",
		},
		Sources: SourcesConfig{
			PDFFolder:     "./rag_data",
			ReaderURL:     "https://r.jina.ai/",
			FetchTimeout:  30 * time.Second,
			MaxFetchBytes: 8 << 20,
		},
		WebSearch: WebSearchConfig{
			Endpoint:   "https://html.duckduckgo.com/html/",
			MaxResults: 5,
			Timeout:    20 * time.Second,
		},
		Ollama: OllamaConfig{
			URL: "http://localhost:11434",
		},
		NATS: NATSConfig{
			Subject: "rag.ingest.completed",
		},
		Resilience: ResilienceConfig{
			RetryMaxAttempts:    3,
			RetryInitialBackoff: 500 * time.Millisecond,
			RetryMaxBackoff:     4 * time.Second,
			BreakerEnabled:      true,
		},
		Prompts: Prompts{
			DecisionSystem: defaultDecisionSystemPrompt,
			DecisionUser:   defaultUserPrompt,
			AnswerSystem:   defaultAnswerSystemPrompt,
			AnswerUser:     defaultUserPrompt,
		},
	}
}

// Load builds the config from defaults, an optional YAML file and the environment.
// An empty path falls back to config.yaml in the working directory when it exists.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.GoogleAPIKey = mustEnv("GOOGLE_API_KEY", c.GoogleAPIKey)
	c.OpenAIAPIKey = mustEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.AllowWebSearchFallback = mustEnvBool("ALLOW_WEB_SEARCH_FALLBACK", c.AllowWebSearchFallback)
	c.RetrievalTopK = mustEnvInt("RETRIEVAL_TOP_K", c.RetrievalTopK)
	c.LogLevel = mustEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = mustEnv("LOG_FORMAT", c.LogFormat)

	c.LLM.Provider = mustEnv("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.BaseURL = mustEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.APIKey = mustEnv("LLM_API_KEY", c.LLM.APIKey)
	c.LLM.DecisionModel = mustEnv("LLM_DECISION_MODEL", c.LLM.DecisionModel)
	c.LLM.AnswerModel = mustEnv("LLM_ANSWER_MODEL", c.LLM.AnswerModel)
	c.LLM.MaxTokens = mustEnvInt("LLM_MAX_TOKENS", c.LLM.MaxTokens)
	c.LLM.DecisionMaxTokens = mustEnvInt("LLM_DECISION_MAX_TOKENS", c.LLM.DecisionMaxTokens)
	c.LLM.Temperature = mustEnvFloat("LLM_TEMPERATURE", c.LLM.Temperature)

	c.Embedding.Provider = mustEnv("EMBEDDING_PROVIDER", c.Embedding.Provider)
	c.Embedding.BaseURL = mustEnv("EMBEDDING_BASE_URL", c.Embedding.BaseURL)
	c.Embedding.Model = mustEnv("EMBEDDING_MODEL_NAME", c.Embedding.Model)
	c.Embedding.VectorSize = mustEnvInt("VECTOR_SIZE", c.Embedding.VectorSize)
	c.Embedding.BatchSize = mustEnvInt("EMBEDDING_BATCH_SIZE", c.Embedding.BatchSize)
	c.Embedding.RequestsPerMinute = mustEnvFloat("EMBEDDING_REQUESTS_PER_MINUTE", c.Embedding.RequestsPerMinute)

	c.Qdrant.URL = mustEnv("QDRANT_URL", c.Qdrant.URL)
	c.Qdrant.APIKey = mustEnv("QDRANT_API_KEY", c.Qdrant.APIKey)
	c.Qdrant.Collection = mustEnv("COLLECTION_NAME", c.Qdrant.Collection)

	c.Chunking.Strategy = mustEnv("CHUNK_STRATEGY", c.Chunking.Strategy)
	c.Chunking.Size = mustEnvInt("CHUNK_SIZE", c.Chunking.Size)
	c.Chunking.Overlap = mustEnvInt("CHUNK_OVERLAP", c.Chunking.Overlap)
	c.Chunking.TokenizerModel = mustEnv("TEXT_SPLITTER_MODEL", c.Chunking.TokenizerModel)

	c.Sources.PDFFolder = mustEnv("PDF_FOLDER_PATH", c.Sources.PDFFolder)
	c.Sources.URLs = mustEnvList("INGEST_URLS", c.Sources.URLs)
	c.Sources.ReaderURL = mustEnv("URL_READER_BASE", c.Sources.ReaderURL)
	c.Sources.FetchTimeout = mustEnvDuration("URL_FETCH_TIMEOUT", c.Sources.FetchTimeout)
	c.Sources.MaxFetchBytes = mustEnvInt64("URL_FETCH_MAX_BYTES", c.Sources.MaxFetchBytes)

	c.WebSearch.Endpoint = mustEnv("WEB_SEARCH_ENDPOINT", c.WebSearch.Endpoint)
	c.WebSearch.MaxResults = mustEnvInt("WEB_SEARCH_MAX_RESULTS", c.WebSearch.MaxResults)
	c.WebSearch.Timeout = mustEnvDuration("WEB_SEARCH_TIMEOUT", c.WebSearch.Timeout)

	c.Ollama.URL = mustEnv("OLLAMA_URL", c.Ollama.URL)

	c.NATS.URL = mustEnv("NATS_URL", c.NATS.URL)
	c.NATS.Subject = mustEnv("NATS_SUBJECT", c.NATS.Subject)

	c.Resilience.RetryMaxAttempts = mustEnvInt("RETRY_MAX_ATTEMPTS", c.Resilience.RetryMaxAttempts)
	c.Resilience.RetryInitialBackoff = mustEnvDuration("RETRY_INITIAL_BACKOFF", c.Resilience.RetryInitialBackoff)
	c.Resilience.RetryMaxBackoff = mustEnvDuration("RETRY_MAX_BACKOFF", c.Resilience.RetryMaxBackoff)
	c.Resilience.BreakerEnabled = mustEnvBool("BREAKER_ENABLED", c.Resilience.BreakerEnabled)

	c.PostgresDSN = mustEnv("POSTGRES_DSN", c.PostgresDSN)
}

func (c Config) Validate() error {
	var problems []string
	if c.RetrievalTopK <= 0 {
		problems = append(problems, "retrieval_top_k must be positive")
	}
	if c.Embedding.VectorSize <= 0 {
		problems = append(problems, "embedding.vector_size must be positive")
	}
	if c.Embedding.BatchSize <= 0 {
		problems = append(problems, "embedding.batch_size must be positive")
	}
	if c.Chunking.Size <= 0 {
		problems = append(problems, "chunking.size must be positive")
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		problems = append(problems, "chunking.overlap must be in [0, size)")
	}
	if c.Sources.MaxFetchBytes <= 0 {
		problems = append(problems, "sources.max_fetch_bytes must be positive")
	}
	if c.WebSearch.MaxResults <= 0 {
		problems = append(problems, "web_search.max_results must be positive")
	}
	if c.Qdrant.Collection == "" {
		problems = append(problems, "qdrant.collection is required")
	}
	if !validProvider(c.LLM.Provider) {
		problems = append(problems, fmt.Sprintf("unknown llm.provider %q", c.LLM.Provider))
	}
	if !validProvider(c.Embedding.Provider) {
		problems = append(problems, fmt.Sprintf("unknown embedding.provider %q", c.Embedding.Provider))
	}
	switch c.Chunking.Strategy {
	case StrategyRecursive, StrategyWindow:
	default:
		problems = append(problems, fmt.Sprintf("unknown chunking.strategy %q", c.Chunking.Strategy))
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("unknown log_format %q", c.LogFormat))
	}

	if len(problems) > 0 {
		return domain.WrapError(domain.ErrInvalidInput, "validate config", errors.New(strings.Join(problems, "; ")))
	}
	return nil
}

// RequireAPIKey fails when a hosted provider is selected without its key.
func (c Config) RequireAPIKey() error {
	for _, provider := range []string{c.LLM.Provider, c.Embedding.Provider} {
		if provider == ProviderOllama || strings.TrimSpace(c.APIKeyFor(provider)) != "" {
			continue
		}
		name := "GOOGLE_API_KEY"
		if provider == ProviderOpenAI {
			name = "OPENAI_API_KEY"
		}
		return domain.WrapError(domain.ErrUnauthorized, "config", fmt.Errorf("%s is missing for provider %s", name, provider))
	}
	return nil
}

// APIKeyFor returns the key a client of the given provider authenticates with.
// LLM.APIKey overrides OPENAI_API_KEY for OpenAI-compatible endpoints.
func (c Config) APIKeyFor(provider string) string {
	switch provider {
	case ProviderGoogle:
		return c.GoogleAPIKey
	case ProviderOpenAI:
		if c.LLM.APIKey != "" {
			return c.LLM.APIKey
		}
		return c.OpenAIAPIKey
	default:
		return ""
	}
}

func validProvider(p string) bool {
	switch p {
	case ProviderGoogle, ProviderOpenAI, ProviderOllama:
		return true
	default:
		return false
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func mustEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	out := make([]string, 0)
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
