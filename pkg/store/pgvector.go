package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/xhad/ragflow/internal/types"
)

// Chunker splits extracted text into indexable pieces.
type Chunker interface {
	Chunk(text string) []string
}

type VectorStoreConfig struct {
	TableName string
	VectorDim int
	BatchSize int
}

// VectorStore writes chunk embeddings to a pgvector table. Rows are keyed
// back to their source filename; nothing reads them yet.
type VectorStore struct {
	config   VectorStoreConfig
	pool     DBPool
	chunker  Chunker
	embedder types.Embedder
	log      *zap.Logger
}

func NewVectorStore(pool DBPool, config VectorStoreConfig, chunker Chunker, embedder types.Embedder, logger *zap.Logger) *VectorStore {
	if config.TableName == "" {
		config.TableName = "document_chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768 // nomic-embed-text
	}
	if config.BatchSize == 0 {
		config.BatchSize = 32
	}

	return &VectorStore{
		config:   config,
		pool:     pool,
		chunker:  chunker,
		embedder: embedder,
		log:      logger.Named("vectors"),
	}
}

func (vs *VectorStore) EnsureSchema(ctx context.Context) error {
	// Enable pgvector extension
	if _, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d),
			created_at TIMESTAMPTZ DEFAULT now()
		)`, vs.config.TableName, vs.config.VectorDim)

	if _, err := vs.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_source_idx
		ON %s (source)`,
		vs.config.TableName, vs.config.TableName)

	if _, err := vs.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// Index chunks text, embeds every chunk and replaces the rows stored for
// source in one transaction. It returns the number of chunks written.
func (vs *VectorStore) Index(ctx context.Context, source, text string) (int, error) {
	chunks := vs.chunker.Chunk(text)
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += vs.config.BatchSize {
		end := min(start+vs.config.BatchSize, len(chunks))
		batch, err := vs.embedder.EmbedBatch(ctx, chunks[start:end])
		if err != nil {
			return 0, fmt.Errorf("failed to create embeddings: %w", err)
		}
		vectors = append(vectors, batch...)
	}

	for i, v := range vectors {
		if len(v) != vs.config.VectorDim {
			return 0, fmt.Errorf("chunk %d: embedding has %d dimensions, table expects %d", i, len(v), vs.config.VectorDim)
		}
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, tx, vs.log)

	// The upload directory overwrites same-named files, so do the rows.
	del := fmt.Sprintf(`DELETE FROM %s WHERE source = $1`, vs.config.TableName)
	if _, err := tx.Exec(ctx, del, source); err != nil {
		return 0, fmt.Errorf("failed to clear previous chunks: %w", err)
	}

	insert := fmt.Sprintf(`
		INSERT INTO %s (id, source, chunk_index, content, embedding)
		VALUES ($1, $2, $3, $4, $5)`,
		vs.config.TableName)

	for i, chunk := range chunks {
		_, err := tx.Exec(ctx, insert,
			uuid.NewString(),
			source,
			i,
			chunk,
			pgvector.NewVector(vectors[i]),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	vs.log.Info("Indexed document", zap.String("source", source), zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}
