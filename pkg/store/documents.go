package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/xhad/ragflow/internal/models"
)

type DocumentStoreConfig struct {
	TableName string
}

// Documents records one metadata row per successful upload. Rows are never
// updated; re-uploading a filename appends another row.
type Documents struct {
	config DocumentStoreConfig
	pool   DBPool
	log    *zap.Logger
}

func NewDocuments(ctx context.Context, pool DBPool, config DocumentStoreConfig, logger *zap.Logger) (*Documents, error) {
	if config.TableName == "" {
		config.TableName = "documents"
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Documents{
		config: config,
		pool:   pool,
		log:    logger.Named("documents"),
	}, nil
}

func (s *Documents) EnsureSchema(ctx context.Context) error {
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			filename TEXT NOT NULL,
			upload_time TIMESTAMPTZ DEFAULT now(),
			description TEXT
		)`, s.config.TableName)

	if _, err := s.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Create inserts a record inside its own transaction and returns it with the
// store-assigned id and upload time.
func (s *Documents) Create(ctx context.Context, filename string) (models.DocumentRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.DocumentRecord{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, tx, s.log)

	insert := fmt.Sprintf(`INSERT INTO %s (filename) VALUES ($1) RETURNING id, upload_time`, s.config.TableName)

	var (
		id       int64
		uploaded pgtype.Timestamptz
	)
	if err := tx.QueryRow(ctx, insert, filename).Scan(&id, &uploaded); err != nil {
		return models.DocumentRecord{}, fmt.Errorf("failed to insert document: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.DocumentRecord{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	rec := models.DocumentRecord{ID: id, Filename: filename}
	if uploaded.Valid {
		t := uploaded.Time
		rec.UploadTime = &t
	}
	s.log.Debug("Document recorded", zap.Int64("id", id), zap.String("filename", filename))
	return rec, nil
}

func (s *Documents) List(ctx context.Context) ([]models.DocumentRecord, error) {
	query := fmt.Sprintf(`SELECT id, filename, upload_time, description FROM %s ORDER BY id`, s.config.TableName)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := []models.DocumentRecord{}
	for rows.Next() {
		var (
			rec         models.DocumentRecord
			uploaded    pgtype.Timestamptz
			description pgtype.Text
		)
		if err := rows.Scan(&rec.ID, &rec.Filename, &uploaded, &description); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if uploaded.Valid {
			t := uploaded.Time
			rec.UploadTime = &t
		}
		if description.Valid {
			d := description.String
			rec.Description = &d
		}
		docs = append(docs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}

	return docs, nil
}
