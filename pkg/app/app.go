package app

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xhad/ragflow/internal/types"
	"github.com/xhad/ragflow/pkg/cache"
	"github.com/xhad/ragflow/pkg/config"
	"github.com/xhad/ragflow/pkg/engine"
	"github.com/xhad/ragflow/pkg/extractor"
	"github.com/xhad/ragflow/pkg/files"
	"github.com/xhad/ragflow/pkg/llm"
	"github.com/xhad/ragflow/pkg/metrics"
	"github.com/xhad/ragflow/pkg/processor"
	"github.com/xhad/ragflow/pkg/store"
)

// App owns every long-lived collaborator. It is built once at startup and
// handed to the server and CLI commands.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	Files     *files.Store
	Texts     *engine.TextFetcher
	Gateway   *llm.Gateway
	Documents *store.Documents
	Vectors   *store.VectorStore
	Pipeline  *engine.Pipeline
	Executor  *engine.Executor

	pool  *pgxpool.Pool
	redis *redis.Client
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
	}

	uploads, err := files.NewOnDisk(cfg.Server.UploadDir)
	if err != nil {
		return nil, err
	}
	a.Files = uploads

	a.Texts = engine.NewTextFetcher(uploads, extractor.New(uploads.Fs()), a.textCache(ctx), logger)

	gateway, err := newGateway(cfg.LLM, logger, a.Metrics)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize gateway: %w", err)
	}
	a.Gateway = gateway

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   cfg.Embedder.Model,
		BaseURL: cfg.Embedder.BaseURL,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.pool = pool

	a.Documents, err = store.NewDocuments(ctx, pool, store.DocumentStoreConfig{
		TableName: cfg.Database.TableName,
	}, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	chunker := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:      cfg.Processor.ChunkSize,
		ChunkOverlap:   cfg.Processor.ChunkOverlap,
		MinChunkLength: cfg.Processor.MinChunkLength,
	})
	a.Vectors = store.NewVectorStore(pool, store.VectorStoreConfig{
		TableName: cfg.Database.ChunkTable,
		VectorDim: cfg.Database.VectorDim,
	}, chunker, embedder, logger)

	if err := a.Documents.EnsureSchema(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.Vectors.EnsureSchema(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.Pipeline = engine.NewPipeline(uploads, a.Texts, embedder, a.Vectors, a.Documents, a.Metrics, logger)
	a.Executor = engine.NewExecutor(engine.NewResolver(uploads), a.Texts, gateway, a.Metrics, logger)

	logger.Info("Application initialized",
		zap.String("upload_dir", cfg.Server.UploadDir),
		zap.String("backend", cfg.LLM.Backend),
		zap.Bool("text_cache", a.redis != nil),
	)
	return a, nil
}

// textCache connects to Redis when configured. The service runs without a
// cache if Redis is absent or unreachable.
func (a *App) textCache(ctx context.Context) types.TextCache {
	if a.Config.Cache.RedisURL == "" {
		return cache.Noop{}
	}
	client, err := cache.Connect(ctx, a.Config.Cache)
	if err != nil {
		a.Logger.Warn("Text cache disabled", zap.Error(err))
		return cache.Noop{}
	}
	a.redis = client
	return cache.NewRedis(client, a.Config.Cache.TTL(), a.Logger)
}

func newGateway(cfg config.LLMConfig, logger *zap.Logger, m *metrics.Metrics) (*llm.Gateway, error) {
	geminiModel, openaiModel := cfg.GeminiModel, cfg.OpenAIModel
	// An explicit model name applies to the default backend.
	if cfg.Model != "" {
		switch cfg.Backend {
		case llm.BackendOpenAI:
			openaiModel = cfg.Model
		default:
			geminiModel = cfg.Model
		}
	}

	return llm.NewWithConfig(llm.GatewayConfig{
		DefaultBackend: cfg.Backend,
		Timeout:        cfg.Timeout(),
		Temperature:    cfg.Temperature,
	}, logger, m,
		llm.NewGeminiProvider(cfg.GeminiAPIKey, geminiModel),
		llm.NewOpenAIProvider(cfg.OpenAIAPIKey, openaiModel),
	)
}

func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
}
