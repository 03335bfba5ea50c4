package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port      string  `yaml:"port"`
	UploadDir string  `yaml:"upload_dir"`
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

type DatabaseConfig struct {
	URL        string `yaml:"url"`
	TableName  string `yaml:"table_name"`
	ChunkTable string `yaml:"chunk_table"`
	VectorDim  int    `yaml:"vector_dim"`
}

type LLMConfig struct {
	Backend      string  `yaml:"backend"`
	GeminiAPIKey string  `yaml:"gemini_api_key"`
	GeminiModel  string  `yaml:"gemini_model"`
	OpenAIAPIKey string  `yaml:"openai_api_key"`
	OpenAIModel  string  `yaml:"openai_model"`
	Model        string  `yaml:"model"`
	Temperature  float64 `yaml:"temperature"`
	TimeoutSecs  int     `yaml:"timeout_secs"`
}

// Timeout is the hard deadline for a single model call.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

type EmbedderConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type ProcessorConfig struct {
	ChunkSize      int `yaml:"chunk_size"`
	ChunkOverlap   int `yaml:"chunk_overlap"`
	MinChunkLength int `yaml:"min_chunk_length"`
}

type CacheConfig struct {
	RedisURL string `yaml:"redis_url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTLSecs  int    `yaml:"ttl_secs"`
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSecs) * time.Second
}

type LoggerConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Processor ProcessorConfig `yaml:"processor"`
	Cache     CacheConfig     `yaml:"cache"`
	Logger    LoggerConfig    `yaml:"logger"`
}

func LoadConfig(path string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/ragflow/config.yaml"),
			"/etc/ragflow/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() *Config {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config
}

func applyDefaults(config *Config) {
	if config.Server.Port == "" {
		config.Server.Port = "8000"
	}
	if config.Server.UploadDir == "" {
		config.Server.UploadDir = "uploads"
	}
	if config.Server.RateLimit == 0 {
		config.Server.RateLimit = 5
	}
	if config.Server.RateBurst == 0 {
		config.Server.RateBurst = 10
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "documents"
	}
	if config.Database.ChunkTable == "" {
		config.Database.ChunkTable = "document_chunks"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}

	if config.LLM.Backend == "" {
		config.LLM.Backend = "gemini"
	}
	if config.LLM.GeminiModel == "" {
		config.LLM.GeminiModel = "gemini-1.5-pro-latest"
	}
	if config.LLM.OpenAIModel == "" {
		config.LLM.OpenAIModel = "gpt-4o"
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.75
	}
	if config.LLM.TimeoutSecs == 0 {
		config.LLM.TimeoutSecs = 30
	}

	if config.Embedder.BaseURL == "" {
		config.Embedder.BaseURL = "http://localhost:11434"
	}
	if config.Embedder.Model == "" {
		config.Embedder.Model = "nomic-embed-text:latest"
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 1000
	}
	if config.Processor.ChunkOverlap == 0 {
		config.Processor.ChunkOverlap = 200
	}
	if config.Processor.MinChunkLength == 0 {
		config.Processor.MinChunkLength = 1
	}

	if config.Cache.TTLSecs == 0 {
		config.Cache.TTLSecs = 3600
	}

	if config.Logger.Level == "" {
		config.Logger.Level = "info"
	}
	if config.Logger.Format == "" {
		config.Logger.Format = "console"
	}
	if config.Logger.MaxSize == 0 {
		config.Logger.MaxSize = 100
	}
}

func mergeWithEnv(config *Config) {
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.LLM.GeminiAPIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.LLM.OpenAIAPIKey = key
	}
	if model := os.Getenv("LLM_MODEL"); model != "" {
		config.LLM.Model = model
	}
	if backend := os.Getenv("LLM_BACKEND"); backend != "" {
		config.LLM.Backend = backend
	}
	if secs := os.Getenv("LLM_TIMEOUT_SECS"); secs != "" {
		if n, err := strconv.Atoi(secs); err == nil {
			config.LLM.TimeoutSecs = n
		}
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.Embedder.BaseURL = baseURL
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.Cache.RedisURL = redisURL
	}
	if dir := os.Getenv("UPLOAD_DIR"); dir != "" {
		config.Server.UploadDir = dir
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logger.Level = level
	}
}
