package loader

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/kirillkom/agentic-rag/internal/core/domain"
	"github.com/kirillkom/agentic-rag/internal/core/ports"
)

// FolderLoader reads every supported file of the data folder.
type FolderLoader struct {
	storage   ports.FileStorage
	extractor ports.TextExtractor
	logger    *zap.Logger
}

func NewFolderLoader(storage ports.FileStorage, extractor ports.TextExtractor, logger *zap.Logger) *FolderLoader {
	return &FolderLoader{storage: storage, extractor: extractor, logger: logger.Named("folder_loader")}
}

func (l *FolderLoader) Name() string { return "folder" }

// Load skips unreadable or empty files instead of failing the whole run.
func (l *FolderLoader) Load(ctx context.Context) ([]domain.SourceDocument, error) {
	names, err := l.storage.List(ctx)
	if err != nil {
		return nil, err
	}

	docs := make([]domain.SourceDocument, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := l.storage.Path(name)
		if !l.extractor.Supports(name) {
			l.logger.Debug("skipping unsupported file", zap.String("path", path))
			continue
		}
		doc, err := l.loadFile(ctx, name)
		if err != nil {
			l.logger.Warn("failed to read file", zap.String("path", path), zap.Error(err))
			continue
		}
		if doc.Content == "" {
			l.logger.Warn("file has no extractable text", zap.String("path", path))
			continue
		}
		docs = append(docs, doc)
	}
	l.logger.Info("loaded folder documents", zap.Int("documents", len(docs)), zap.Int("files", len(names)))
	return docs, nil
}

// loadFile keys the document by its bare file name.
func (l *FolderLoader) loadFile(ctx context.Context, name string) (domain.SourceDocument, error) {
	body, err := l.storage.Open(ctx, name)
	if err != nil {
		return domain.SourceDocument{}, err
	}
	defer body.Close()

	text, kind, err := l.extractor.Extract(ctx, name, body)
	if err != nil {
		return domain.SourceDocument{}, err
	}
	return domain.SourceDocument{Source: name, Kind: kind, Content: strings.TrimSpace(text)}, nil
}

// URLLoader fetches the configured URLs through a reader service.
type URLLoader struct {
	fetcher ports.URLFetcher
	urls    []string
	logger  *zap.Logger
}

func NewURLLoader(fetcher ports.URLFetcher, urls []string, logger *zap.Logger) *URLLoader {
	return &URLLoader{fetcher: fetcher, urls: urls, logger: logger.Named("url_loader")}
}

func (l *URLLoader) Name() string { return "urls" }

func (l *URLLoader) Load(ctx context.Context) ([]domain.SourceDocument, error) {
	docs := make([]domain.SourceDocument, 0, len(l.urls))
	for _, url := range l.urls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := l.fetcher.Fetch(ctx, url)
		if err != nil {
			l.logger.Warn("failed to fetch url", zap.String("url", url), zap.Error(err))
			continue
		}
		if text == "" {
			l.logger.Warn("url returned no content", zap.String("url", url))
			continue
		}
		docs = append(docs, domain.SourceDocument{Source: url, Kind: domain.SourceURL, Content: text})
	}
	return docs, nil
}
