// Package config loads rizz-engine settings from an optional YAML file,
// a .env file and the process environment, in that order of precedence
// (environment wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider names accepted for completion and embedding backends.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Config is the full runtime configuration.
type Config struct {
	DataDir   string          `yaml:"data_dir" validate:"required"`
	LogLevel  string          `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogStore  LogStoreConfig  `yaml:"log_store"`
	Chunk     ChunkConfig     `yaml:"chunk"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Whisper   WhisperConfig   `yaml:"whisper"`
	Diarizer  DiarizerConfig  `yaml:"diarizer"`
	Download  DownloadConfig  `yaml:"download"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Redis     RedisConfig     `yaml:"redis"`
	Neo4j     Neo4jConfig     `yaml:"neo4j"`
	NATS      NATSConfig      `yaml:"nats"`
	Minio     MinioConfig     `yaml:"minio"`
	HTTP      HTTPConfig      `yaml:"http"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// LogStoreConfig selects the processing log backend. An empty Path means
// <data_dir>/log_transcript.json (or .db for sqlite).
type LogStoreConfig struct {
	Kind string `yaml:"kind" validate:"oneof=json sqlite"`
	Path string `yaml:"path"`
}

// ChunkConfig is the sliding window geometry.
type ChunkConfig struct {
	Size    int `yaml:"size" validate:"gt=0"`
	Overlap int `yaml:"overlap" validate:"gte=0,ltfield=Size"`
}

// LLMConfig configures the completion model used for chunking and tagging.
// An OpenAI-compatible BaseURL points the openai provider at DeepSeek or
// any other compatible endpoint.
type LLMConfig struct {
	Provider         string        `yaml:"provider" validate:"oneof=openai gemini ollama"`
	APIKey           string        `yaml:"api_key"`
	BaseURL          string        `yaml:"base_url"`
	Model            string        `yaml:"model"`
	Temperature      float32       `yaml:"temperature" validate:"gte=0,lte=2"`
	Timeout          time.Duration `yaml:"timeout" validate:"gt=0"`
	TagTimeout       time.Duration `yaml:"tag_timeout" validate:"gt=0"`
	Delay            time.Duration `yaml:"delay" validate:"gte=0"`
	Retries          int           `yaml:"retries" validate:"gte=0"`
	BreakerThreshold int           `yaml:"breaker_threshold" validate:"gte=0"`
}

// EmbeddingConfig configures the embedding model and its optional cache.
type EmbeddingConfig struct {
	Provider string        `yaml:"provider" validate:"oneof=openai gemini ollama"`
	APIKey   string        `yaml:"api_key"`
	BaseURL  string        `yaml:"base_url"`
	Model    string        `yaml:"model"`
	Dims     int           `yaml:"dims" validate:"gt=0"`
	CacheTTL time.Duration `yaml:"cache_ttl" validate:"gte=0"`
}

// WhisperConfig configures speech-to-text.
type WhisperConfig struct {
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
}

// DiarizerConfig addresses the diarization service.
type DiarizerConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Token    string        `yaml:"token"`
	Timeout  time.Duration `yaml:"timeout" validate:"gte=0"`
}

// DownloadConfig configures yt-dlp.
type DownloadConfig struct {
	Binary    string   `yaml:"binary"`
	ExtraArgs []string `yaml:"extra_args"`
}

// QdrantConfig addresses the vector store.
type QdrantConfig struct {
	Addr       string `yaml:"addr" validate:"required"`
	Collection string `yaml:"collection" validate:"required"`
	BatchSize  int    `yaml:"batch_size" validate:"gt=0"`
}

// RetrievalConfig tunes the retriever.
type RetrievalConfig struct {
	TopN          int           `yaml:"top_n" validate:"gt=0"`
	HistoryTurns  int           `yaml:"history_turns" validate:"gt=0"`
	SearchTimeout time.Duration `yaml:"search_timeout" validate:"gt=0"`
}

// RedisConfig enables the embedding cache and ingest dedup when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"gte=0"`
	DedupTTL time.Duration `yaml:"dedup_ttl" validate:"gte=0"`
}

// Neo4jConfig enables the tag graph when URL is set.
type Neo4jConfig struct {
	URL  string `yaml:"url"`
	User string `yaml:"user"`
	Pass string `yaml:"pass"`
}

// NATSConfig configures the ingest worker.
type NATSConfig struct {
	URL        string        `yaml:"url" validate:"required"`
	Queue      string        `yaml:"queue"`
	MaxRetries int           `yaml:"max_retries" validate:"gte=0"`
	JobTimeout time.Duration `yaml:"job_timeout" validate:"gte=0"`
}

// MinioConfig enables the artifact mirror when Endpoint is set.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket" validate:"required_with=Endpoint"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// HTTPConfig configures cmd/api.
type HTTPConfig struct {
	Port       string `yaml:"port" validate:"required,numeric"`
	CORSOrigin string `yaml:"cors_origin"`
}

// MetricsConfig sets the Prometheus listen address; empty disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:  "data",
		LogLevel: "info",
		LogStore: LogStoreConfig{Kind: "json"},
		Chunk:    ChunkConfig{Size: 100, Overlap: 20},
		LLM: LLMConfig{
			Provider:         ProviderOpenAI,
			Timeout:          60 * time.Second,
			TagTimeout:       120 * time.Second,
			Delay:            5 * time.Second,
			Retries:          2,
			BreakerThreshold: 5,
		},
		Embedding: EmbeddingConfig{
			Provider: ProviderOpenAI,
			Model:    "text-embedding-ada-002",
			Dims:     1536,
			CacheTTL: 24 * time.Hour,
		},
		Whisper:   WhisperConfig{Model: "whisper-1"},
		Diarizer:  DiarizerConfig{Timeout: 10 * time.Minute},
		Download:  DownloadConfig{Binary: "yt-dlp"},
		Qdrant:    QdrantConfig{Addr: "localhost:6334", Collection: "transcript_blocks", BatchSize: 100},
		Retrieval: RetrievalConfig{TopN: 5, HistoryTurns: 3, SearchTimeout: 5 * time.Second},
		Redis:     RedisConfig{DedupTTL: 30 * 24 * time.Hour},
		Neo4j:     Neo4jConfig{User: "neo4j"},
		NATS:      NATSConfig{URL: "nats://localhost:4222", Queue: "rizz-ingest", MaxRetries: 3, JobTimeout: 2 * time.Hour},
		Minio:     MinioConfig{Prefix: "rizz/"},
		HTTP:      HTTPConfig{Port: "8080", CORSOrigin: "*"},
		Metrics:   MetricsConfig{Addr: ":9091"},
	}
}

// Load reads .env (if present), then the YAML file at path (if non-empty),
// then environment overrides, and validates the result.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("config: invalid: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.DataDir = envOr("RIZZ_DATA_DIR", c.DataDir)
	c.LogLevel = envOr("RIZZ_LOG_LEVEL", c.LogLevel)
	c.LogStore.Kind = envOr("RIZZ_LOG_STORE", c.LogStore.Kind)

	c.LLM.Provider = envOr("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.APIKey = envOr("LLM_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = envOr("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Model = envOr("LLM_MODEL", c.LLM.Model)
	c.Embedding.Provider = envOr("EMBEDDING_PROVIDER", c.Embedding.Provider)
	c.Embedding.Model = envOr("EMBEDDING_MODEL", c.Embedding.Model)
	c.Embedding.BaseURL = envOr("EMBEDDING_BASE_URL", c.Embedding.BaseURL)

	// DeepSeek is OpenAI-compatible; a key alone selects its endpoint.
	if key := os.Getenv("DEEPSEEK_API_KEY"); key != "" && c.LLM.APIKey == "" && c.LLM.Provider == ProviderOpenAI {
		c.LLM.APIKey = key
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = "https://api.deepseek.com/v1"
			if c.LLM.Model == "" {
				c.LLM.Model = "deepseek-chat"
			}
		}
	}
	fillKey := func(provider string, dst *string) {
		if *dst != "" {
			return
		}
		switch provider {
		case ProviderOpenAI:
			*dst = os.Getenv("OPENAI_API_KEY")
		case ProviderGemini:
			*dst = os.Getenv("GEMINI_API_KEY")
		}
	}
	fillKey(c.LLM.Provider, &c.LLM.APIKey)
	fillKey(c.Embedding.Provider, &c.Embedding.APIKey)
	fillKey(ProviderOpenAI, &c.Whisper.APIKey)

	c.Diarizer.Endpoint = envOr("DIARIZER_URL", c.Diarizer.Endpoint)
	c.Diarizer.Token = envOr("DIARIZER_TOKEN", c.Diarizer.Token)
	c.Qdrant.Addr = envOr("QDRANT_URL", c.Qdrant.Addr)
	c.Qdrant.Collection = envOr("QDRANT_COLLECTION", c.Qdrant.Collection)
	c.Redis.Addr = envOr("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = envOr("REDIS_PASSWORD", c.Redis.Password)
	c.Neo4j.URL = envOr("NEO4J_URL", c.Neo4j.URL)
	c.Neo4j.User = envOr("NEO4J_USER", c.Neo4j.User)
	c.Neo4j.Pass = envOr("NEO4J_PASS", c.Neo4j.Pass)
	c.NATS.URL = envOr("NATS_URL", c.NATS.URL)
	c.Minio.Endpoint = envOr("MINIO_ENDPOINT", c.Minio.Endpoint)
	c.Minio.AccessKey = envOr("MINIO_ACCESS_KEY", c.Minio.AccessKey)
	c.Minio.SecretKey = envOr("MINIO_SECRET_KEY", c.Minio.SecretKey)
	c.Minio.Bucket = envOr("MINIO_BUCKET", c.Minio.Bucket)
	c.HTTP.Port = envOr("PORT", c.HTTP.Port)
	c.HTTP.CORSOrigin = envOr("CORS_ORIGIN", c.HTTP.CORSOrigin)
	c.Metrics.Addr = envOr("METRICS_ADDR", c.Metrics.Addr)

	var err error
	if c.Chunk.Size, err = envInt("CHUNK_SIZE", c.Chunk.Size); err != nil {
		return err
	}
	if c.Chunk.Overlap, err = envInt("CHUNK_OVERLAP", c.Chunk.Overlap); err != nil {
		return err
	}
	if c.Qdrant.BatchSize, err = envInt("BATCH_SIZE", c.Qdrant.BatchSize); err != nil {
		return err
	}
	if c.Retrieval.TopN, err = envInt("TOP_N", c.Retrieval.TopN); err != nil {
		return err
	}
	if c.LLM.Delay, err = envDuration("LLM_DELAY", c.LLM.Delay); err != nil {
		return err
	}
	if c.LLM.Timeout, err = envDuration("LLM_TIMEOUT", c.LLM.Timeout); err != nil {
		return err
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

// LogStorePath resolves the processing log location.
func (c Config) LogStorePath() string {
	if c.LogStore.Path != "" {
		return c.LogStore.Path
	}
	if c.LogStore.Kind == "sqlite" {
		return filepath.Join(c.DataDir, "log_transcript.db")
	}
	return filepath.Join(c.DataDir, "log_transcript.json")
}
