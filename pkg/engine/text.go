package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xhad/ragflow/internal/types"
	"github.com/xhad/ragflow/pkg/cache"
)

// TextFetcher returns the extracted text of an uploaded document, consulting
// the text cache first.
type TextFetcher struct {
	files     types.FileStore
	extractor types.TextExtractor
	cache     types.TextCache
	log       *zap.Logger
}

func NewTextFetcher(files types.FileStore, extractor types.TextExtractor, textCache types.TextCache, logger *zap.Logger) *TextFetcher {
	if textCache == nil {
		textCache = cache.Noop{}
	}
	return &TextFetcher{
		files:     files,
		extractor: extractor,
		cache:     textCache,
		log:       logger.Named("text"),
	}
}

// Text returns ErrDocumentNotFound when the file is absent and a StageError
// wrapping ErrExtraction when the extractor fails.
func (f *TextFetcher) Text(ctx context.Context, filename string) (string, error) {
	return f.fetch(ctx, filename, true)
}

// Refresh extracts the file unconditionally and primes the cache.
func (f *TextFetcher) Refresh(ctx context.Context, filename string) (string, error) {
	return f.fetch(ctx, filename, false)
}

func (f *TextFetcher) fetch(ctx context.Context, filename string, useCache bool) (string, error) {
	info, ok, err := f.files.Stat(filename)
	if err != nil {
		return "", &StageError{Stage: ErrExtraction, Err: err}
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrDocumentNotFound, filename)
	}

	key := cache.Key(info)
	if useCache {
		if text, hit := f.cache.Get(ctx, key); hit {
			f.log.Debug("Text cache hit", zap.String("filename", filename))
			return text, nil
		}
	}

	text, err := f.extractor.Extract(ctx, filename)
	if err != nil {
		return "", &StageError{Stage: ErrExtraction, Err: err}
	}

	f.cache.Set(ctx, key, text)
	return text, nil
}
