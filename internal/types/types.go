package types

import (
	"context"
	"io"
	"time"

	"github.com/xhad/ragflow/internal/models"
)

// Core interfaces
type DocumentStore interface {
	Create(ctx context.Context, filename string) (models.DocumentRecord, error)
	List(ctx context.Context) ([]models.DocumentRecord, error)
}

type VectorIndex interface {
	Index(ctx context.Context, source, text string) (int, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type TextExtractor interface {
	Extract(ctx context.Context, filename string) (string, error)
}

// FileInfo is the subset of upload directory metadata the engine reads.
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

type FileStore interface {
	Save(filename string, r io.Reader) error
	Stat(filename string) (FileInfo, bool, error)
	ListPDFs() ([]FileInfo, error)
}

type TextCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, text string)
}

// GenerateRequest is a single model call as seen by the gateway.
type GenerateRequest struct {
	Prompt    string
	Context   string
	Backend   string
	APIKey    string
	ModelName string
}

type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}
