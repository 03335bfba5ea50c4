package engine_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"github.com/xhad/ragflow/internal/models"
	"github.com/xhad/ragflow/internal/types"
	"github.com/xhad/ragflow/pkg/files"
)

var base = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func writeFile(t *testing.T, fs afero.Fs, name, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	require.NoError(t, fs.Chtimes(name, mtime, mtime))
}

func newFiles() (*files.Store, afero.Fs) {
	fs := afero.NewMemMapFs()
	return files.New(fs), fs
}

// brokenFiles fails every directory listing.
type brokenFiles struct {
	types.FileStore
}

func (brokenFiles) ListPDFs() ([]types.FileInfo, error) {
	return nil, errors.New("permission denied")
}

type fakeExtractor struct {
	mu    sync.Mutex
	texts map[string]string
	err   error
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, filename string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.texts[filename], nil
}

// fsExtractor reads the stored bytes back as text.
type fsExtractor struct {
	fs afero.Fs
}

func (f fsExtractor) Extract(_ context.Context, filename string) (string, error) {
	b, err := afero.ReadFile(f.fs, filename)
	return string(b), err
}

type mapCache struct {
	m map[string]string
}

func (c *mapCache) Get(_ context.Context, key string) (string, bool) {
	v, ok := c.m[key]
	return v, ok
}

func (c *mapCache) Set(_ context.Context, key, text string) {
	c.m[key] = text
}

type fakeGenerator struct {
	reply string
	err   error
	reqs  []types.GenerateRequest
}

func (g *fakeGenerator) Generate(_ context.Context, req types.GenerateRequest) (string, error) {
	g.reqs = append(g.reqs, req)
	return g.reply, g.err
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (e *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return e.vec, e.err
}

func (e *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = e.vec
	}
	return out, e.err
}

type fakeIndex struct {
	sources []string
	err     error
}

func (f *fakeIndex) Index(_ context.Context, source, _ string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.sources = append(f.sources, source)
	return 1, nil
}

type fakeDocs struct {
	records []models.DocumentRecord
	err     error
}

func (f *fakeDocs) Create(_ context.Context, filename string) (models.DocumentRecord, error) {
	if f.err != nil {
		return models.DocumentRecord{}, f.err
	}
	now := time.Now()
	rec := models.DocumentRecord{ID: int64(len(f.records) + 1), Filename: filename, UploadTime: &now}
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeDocs) List(context.Context) ([]models.DocumentRecord, error) {
	return f.records, f.err
}

// blockingModel never answers until its context ends.
type blockingModel struct{}

func (blockingModel) GenerateContent(ctx context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (m blockingModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func nopLogger() *zap.Logger { return zap.NewNop() }

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

var _ io.Reader = failingReader{}

