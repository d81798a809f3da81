package main

import (
	"github.com/spf13/pflag"

	"github.com/kirillkom/agentic-rag/internal/config"
)

// Options are the command-line flags of agentic-rag.
type Options struct {
	Clear         bool
	Ingest        bool
	Query         string
	ListSources   bool
	ConfigFile    string
	Output        string
	NoWebFallback bool
	TopK          int
	MetricsFile   string
	LogLevel      string
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Clear, "clear", false, "Delete the existing Qdrant collection before any other action.")
	fs.BoolVar(&o.Ingest, "ingest", false, "Run the data ingestion pipeline.")
	fs.StringVar(&o.Query, "query", "", "Ask a question to the agentic RAG system.")
	fs.BoolVar(&o.ListSources, "list-sources", false, "List ingested sources (requires POSTGRES_DSN).")
	fs.StringVarP(&o.ConfigFile, "config", "c", "", "Path to a YAML config file (default ./"+config.DefaultConfigFile+" when present).")
	fs.StringVarP(&o.Output, "output", "o", "text", "Output format: text or json.")
	fs.BoolVar(&o.NoWebFallback, "no-web-fallback", false, "Disable the web search fallback for this run.")
	fs.IntVar(&o.TopK, "top-k", 0, "Number of chunks to retrieve (overrides RETRIEVAL_TOP_K).")
	fs.StringVar(&o.MetricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file on exit.")
	fs.StringVar(&o.LogLevel, "log-level", "", "Log level: debug, info, warn or error (overrides LOG_LEVEL).")
}

func (o *Options) hasAction() bool {
	return o.Clear || o.Ingest || o.Query != "" || o.ListSources
}

// Apply overlays flag values on the loaded config.
func (o *Options) Apply(cfg *config.Config) {
	if o.TopK > 0 {
		cfg.RetrievalTopK = o.TopK
	}
	if o.NoWebFallback {
		cfg.AllowWebSearchFallback = false
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
}
