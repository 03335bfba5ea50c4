package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// flexibleSQLMatcher makes expectations insensitive to whitespace.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

const (
	sqlInsertDocument = `INSERT INTO documents (filename) VALUES ($1) RETURNING id, upload_time`
	sqlListDocuments  = `SELECT id, filename, upload_time, description FROM documents ORDER BY id`
	sqlDeleteChunks   = `DELETE FROM document_chunks WHERE source = $1`
	sqlInsertChunk    = `INSERT INTO document_chunks (id, source, chunk_index, content, embedding) VALUES ($1, $2, $3, $4, $5)`
)

func newDocuments(t *testing.T, logger *zap.Logger) (*Documents, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	mockPool.ExpectPing()
	docs, err := NewDocuments(context.Background(), mockPool, DocumentStoreConfig{}, logger)
	require.NoError(t, err)
	return docs, mockPool
}

func TestNewDocuments_PingFails(t *testing.T) {
	mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockPool.Close()

	pingErr := errors.New("database unavailable")
	mockPool.ExpectPing().WillReturnError(pingErr)

	_, err = NewDocuments(context.Background(), mockPool, DocumentStoreConfig{}, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, pingErr)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestDocuments_Create(t *testing.T) {
	ctx := context.Background()
	uploaded := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("commits and returns the assigned id", func(t *testing.T) {
		core, logs := observer.New(zapcore.ErrorLevel)
		docs, mockPool := newDocuments(t, zap.New(core))

		mockPool.ExpectBegin()
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlInsertDocument)).
			WithArgs("report.pdf").
			WillReturnRows(pgxmock.NewRows([]string{"id", "upload_time"}).
				AddRow(int64(7), pgtype.Timestamptz{Time: uploaded, Valid: true}))
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		rec, err := docs.Create(ctx, "report.pdf")
		require.NoError(t, err)
		assert.Equal(t, int64(7), rec.ID)
		assert.Equal(t, "report.pdf", rec.Filename)
		require.NotNil(t, rec.UploadTime)
		assert.True(t, uploaded.Equal(*rec.UploadTime))
		assert.Nil(t, rec.Description)

		assert.NoError(t, mockPool.ExpectationsWereMet())
		assert.Empty(t, logs.All(), "no rollback error after commit")
	})

	t.Run("rolls back when the insert fails", func(t *testing.T) {
		docs, mockPool := newDocuments(t, zap.NewNop())

		mockPool.ExpectBegin()
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlInsertDocument)).
			WithArgs("report.pdf").
			WillReturnError(errors.New("disk full"))
		mockPool.ExpectRollback()

		_, err := docs.Create(ctx, "report.pdf")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to insert document: disk full")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("same filename appends a second row", func(t *testing.T) {
		docs, mockPool := newDocuments(t, zap.NewNop())

		for _, id := range []int64{1, 2} {
			mockPool.ExpectBegin()
			mockPool.ExpectQuery(flexibleSQLMatcher(sqlInsertDocument)).
				WithArgs("same.pdf").
				WillReturnRows(pgxmock.NewRows([]string{"id", "upload_time"}).
					AddRow(id, pgtype.Timestamptz{Time: uploaded, Valid: true}))
			mockPool.ExpectCommit()
			mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)
		}

		first, err := docs.Create(ctx, "same.pdf")
		require.NoError(t, err)
		second, err := docs.Create(ctx, "same.pdf")
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestDocuments_List(t *testing.T) {
	docs, mockPool := newDocuments(t, zap.NewNop())
	uploaded := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{"id", "filename", "upload_time", "description"}).
		AddRow(int64(1), "a.pdf", pgtype.Timestamptz{Time: uploaded, Valid: true}, pgtype.Text{String: "quarterly", Valid: true}).
		AddRow(int64(2), "b.pdf", pgtype.Timestamptz{}, pgtype.Text{})
	mockPool.ExpectQuery(flexibleSQLMatcher(sqlListDocuments)).WillReturnRows(rows)

	list, err := docs.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, int64(1), list[0].ID)
	require.NotNil(t, list[0].UploadTime)
	require.NotNil(t, list[0].Description)
	assert.Equal(t, "quarterly", *list[0].Description)

	assert.Equal(t, "b.pdf", list[1].Filename)
	assert.Nil(t, list[1].UploadTime)
	assert.Nil(t, list[1].Description)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestDocuments_ListEmpty(t *testing.T) {
	docs, mockPool := newDocuments(t, zap.NewNop())
	mockPool.ExpectQuery(flexibleSQLMatcher(sqlListDocuments)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "filename", "upload_time", "description"}))

	list, err := docs.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

type splitChunker struct{}

func (splitChunker) Chunk(text string) []string {
	return strings.Fields(text)
}

type stubEmbedder struct {
	dim   int
	err   error
	calls int
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return make([]float32, s.dim), s.err
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, s.dim)
	}
	return out, nil
}

func TestVectorStore_Index(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces rows for the source", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		emb := &stubEmbedder{dim: 3}
		vs := NewVectorStore(mockPool, VectorStoreConfig{VectorDim: 3, BatchSize: 2}, splitChunker{}, emb, zap.NewNop())

		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(sqlDeleteChunks)).
			WithArgs("notes.pdf").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		for i, word := range []string{"alpha", "beta", "gamma"} {
			mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertChunk)).
				WithArgs(pgxmock.AnyArg(), "notes.pdf", i, word, pgxmock.AnyArg()).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
		}
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		n, err := vs.Index(ctx, "notes.pdf", "alpha beta gamma")
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, 2, emb.calls, "chunks are embedded in batches")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("empty text writes nothing", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		vs := NewVectorStore(mockPool, VectorStoreConfig{VectorDim: 3}, splitChunker{}, &stubEmbedder{dim: 3}, zap.NewNop())
		n, err := vs.Index(ctx, "empty.pdf", "   ")
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("embedding failure never opens a transaction", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		vs := NewVectorStore(mockPool, VectorStoreConfig{VectorDim: 3}, splitChunker{}, &stubEmbedder{err: errors.New("ollama down")}, zap.NewNop())
		_, err = vs.Index(ctx, "notes.pdf", "alpha")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ollama down")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		vs := NewVectorStore(mockPool, VectorStoreConfig{VectorDim: 768}, splitChunker{}, &stubEmbedder{dim: 3}, zap.NewNop())
		_, err = vs.Index(ctx, "notes.pdf", "alpha")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "table expects 768")
	})

	t.Run("insert failure rolls back", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		vs := NewVectorStore(mockPool, VectorStoreConfig{VectorDim: 3}, splitChunker{}, &stubEmbedder{dim: 3}, zap.NewNop())

		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(sqlDeleteChunks)).
			WithArgs("notes.pdf").
			WillReturnResult(pgxmock.NewResult("DELETE", 2))
		mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertChunk)).
			WillReturnError(errors.New("constraint violation"))
		mockPool.ExpectRollback()

		_, err = vs.Index(ctx, "notes.pdf", "alpha")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to insert chunk 0")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestEnsureSchema(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectPing()
	docs, err := NewDocuments(context.Background(), mockPool, DocumentStoreConfig{}, zap.NewNop())
	require.NoError(t, err)
	vs := NewVectorStore(mockPool, VectorStoreConfig{}, splitChunker{}, &stubEmbedder{}, zap.NewNop())

	mockPool.ExpectExec("CREATE TABLE IF NOT EXISTS documents").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mockPool.ExpectExec("CREATE EXTENSION IF NOT EXISTS vector").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mockPool.ExpectExec(`vector\(768\)`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mockPool.ExpectExec("CREATE INDEX IF NOT EXISTS document_chunks_source_idx").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, docs.EnsureSchema(context.Background()))
	require.NoError(t, vs.EnsureSchema(context.Background()))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
