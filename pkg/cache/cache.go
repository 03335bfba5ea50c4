package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/xhad/ragflow/internal/types"
	"github.com/xhad/ragflow/pkg/config"
)

const keyPrefix = "ragflow:text:"

// Key identifies one version of a file's extracted text. An overwritten file
// gets a new modification time and therefore a new key.
func Key(info types.FileInfo) string {
	return fmt.Sprintf("%s%s:%d:%d", keyPrefix, info.Name, info.ModTime.UnixNano(), info.Size)
}

// Redis caches extracted document text. Cache failures are logged and
// treated as misses.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedis(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, log: logger.Named("cache")}
}

// Connect dials Redis and verifies the connection. The caller owns the
// returned client.
func Connect(ctx context.Context, cfg config.CacheConfig) (*redis.Client, error) {
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := client.Ping(pingCtx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Options accepts either a redis:// or rediss:// URL or a bare host:port.
// Password and DB from the config fill in what the URL leaves out.
func Options(cfg config.CacheConfig) (*redis.Options, error) {
	if !strings.Contains(cfg.RedisURL, "://") {
		return &redis.Options{
			Addr:     cfg.RedisURL,
			Password: cfg.Password,
			DB:       cfg.DB,
		}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if opts.Password == "" {
		opts.Password = cfg.Password
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	return opts, nil
}

func (c *Redis) Get(ctx context.Context, key string) (string, bool) {
	text, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		c.log.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return text, true
}

func (c *Redis) Set(ctx context.Context, key, text string) {
	if err := c.client.Set(ctx, key, text, c.ttl).Err(); err != nil {
		c.log.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Noop is used when no Redis is configured.
type Noop struct{}

func (Noop) Get(context.Context, string) (string, bool) { return "", false }

func (Noop) Set(context.Context, string, string) {}
