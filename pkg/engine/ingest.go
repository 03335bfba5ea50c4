package engine

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/xhad/ragflow/internal/models"
	"github.com/xhad/ragflow/internal/types"
	"github.com/xhad/ragflow/pkg/metrics"
)

const previewLen = 5

// Pipeline ingests one uploaded document: save, extract, embed, index,
// record. Each stage aborts the ones after it, except a missing embedding
// which only skips indexing.
type Pipeline struct {
	files    types.FileStore
	texts    *TextFetcher
	embedder types.Embedder
	index    types.VectorIndex
	docs     types.DocumentStore
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewPipeline(
	files types.FileStore,
	texts *TextFetcher,
	embedder types.Embedder,
	index types.VectorIndex,
	docs types.DocumentStore,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		files:    files,
		texts:    texts,
		embedder: embedder,
		index:    index,
		docs:     docs,
		metrics:  m,
		log:      logger.Named("ingest"),
	}
}

func (p *Pipeline) Ingest(ctx context.Context, filename string, r io.Reader) (*models.IngestResult, error) {
	log := p.log.With(zap.String("filename", filename))

	if err := p.files.Save(filename, r); err != nil {
		return nil, p.fail(log, ErrStorage, err)
	}

	text, err := p.texts.Refresh(ctx, filename)
	if err != nil {
		return nil, p.fail(log, ErrExtraction, err)
	}

	embedding := p.embed(ctx, log, text)
	outcome := "success"

	if embedding != nil {
		n, err := p.index.Index(ctx, filename, text)
		if err != nil {
			return nil, p.fail(log, ErrIndex, err)
		}
		log.Debug("Chunks indexed", zap.Int("chunks", n))
	} else {
		outcome = "degraded"
	}

	rec, err := p.docs.Create(ctx, filename)
	if err != nil {
		return nil, p.fail(log, ErrMetadata, err)
	}

	p.metrics.IngestionsTotal.WithLabelValues(outcome).Inc()
	log.Info("Document ingested", zap.Int64("document_id", rec.ID), zap.Bool("indexed", embedding != nil))

	result := &models.IngestResult{DocumentID: rec.ID}
	if embedding != nil {
		result.EmbeddingPreview = embedding[:min(previewLen, len(embedding))]
	}
	return result, nil
}

// embed returns nil when no usable embedding could be computed.
func (p *Pipeline) embed(ctx context.Context, log *zap.Logger, text string) []float32 {
	embedding, err := p.embedder.Embed(ctx, text)
	if err == nil && len(embedding) == 0 {
		err = ErrEmbeddingUnavailable
	}
	if err != nil {
		p.metrics.EmbeddingsDegraded.Inc()
		log.Warn("Embedding unavailable, skipping vector index", zap.Error(err))
		return nil
	}
	return embedding
}

func (p *Pipeline) fail(log *zap.Logger, stage, err error) error {
	// Extraction failures already arrive as StageErrors from the fetcher.
	var se *StageError
	if errors.As(err, &se) && se.Stage == stage {
		err = se.Err
	}
	p.metrics.IngestionsTotal.WithLabelValues(stageOutcome(stage)).Inc()
	log.Error("Ingestion failed", zap.String("stage", stageOutcome(stage)), zap.Error(err))
	return &StageError{Stage: stage, Err: err}
}

func stageOutcome(stage error) string {
	switch stage {
	case ErrStorage:
		return "storage"
	case ErrExtraction:
		return "extraction"
	case ErrIndex:
		return "index"
	case ErrMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}
