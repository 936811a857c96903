// Package app builds the pipeline components from a config.Config. The
// binaries under cmd/ share it so that every entry point wires the same
// backends the same way.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/WessleyAI/rizz-engine/engine/acquire"
	"github.com/WessleyAI/rizz-engine/engine/chunker"
	"github.com/WessleyAI/rizz-engine/engine/domain"
	"github.com/WessleyAI/rizz-engine/engine/graph"
	"github.com/WessleyAI/rizz-engine/engine/ingest"
	"github.com/WessleyAI/rizz-engine/engine/rag"
	"github.com/WessleyAI/rizz-engine/engine/semantic"
	"github.com/WessleyAI/rizz-engine/engine/tagger"
	"github.com/WessleyAI/rizz-engine/pkg/config"
	"github.com/WessleyAI/rizz-engine/pkg/embed"
	"github.com/WessleyAI/rizz-engine/pkg/fn"
	"github.com/WessleyAI/rizz-engine/pkg/gemini"
	"github.com/WessleyAI/rizz-engine/pkg/llm"
	"github.com/WessleyAI/rizz-engine/pkg/metrics"
	"github.com/WessleyAI/rizz-engine/pkg/ollama"
	"github.com/WessleyAI/rizz-engine/pkg/openai"
	"github.com/WessleyAI/rizz-engine/pkg/resilience"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/redis/go-redis/v9"
)

const defaultOllamaURL = "http://localhost:11434"

// LogStore is a processing log that can also be listed.
type LogStore interface {
	acquire.LogStore
	List(ctx context.Context) ([]domain.ProcessingLogEntry, error)
}

// App lazily constructs and caches shared clients. It is not safe for
// concurrent construction; build what you need before serving.
type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.Registry

	redis    *redis.Client
	vectors  *semantic.VectorStore
	graph    *graph.GraphStore
	logStore LogStore
	embedder embed.Embedder
	closers  []func()
}

// New creates an App. A nil logger uses slog.Default.
func New(cfg config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{Config: cfg, Logger: logger, Metrics: metrics.New("rizz")}
}

// NewLogger returns a JSON logger at the named level.
func NewLogger(level string, w io.Writer) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: l}))
}

// Close releases every client the App opened, in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) onClose(f func()) { a.closers = append(a.closers, f) }

// --- Models ---

// BaseCompleter returns the unpaced completion backend.
func (a *App) BaseCompleter(ctx context.Context) (llm.Completer, error) {
	c := a.Config.LLM
	switch c.Provider {
	case config.ProviderOpenAI:
		oc := openai.Config{APIKey: c.APIKey, BaseURL: c.BaseURL, ChatModel: c.Model, Temperature: c.Temperature}
		return openai.NewCompleter(openai.NewClient(oc), oc), nil
	case config.ProviderGemini:
		gc, err := gemini.New(ctx, gemini.Config{APIKey: c.APIKey, BaseURL: c.BaseURL, ChatModel: c.Model})
		if err != nil {
			return nil, err
		}
		return gc, nil
	case config.ProviderOllama:
		return ollama.NewClient(orDefault(c.BaseURL, defaultOllamaURL), orDefault(c.Model, "llama3"), ""), nil
	}
	return nil, fmt.Errorf("app: unknown llm provider %q", c.Provider)
}

// Completer returns the completion backend wrapped with pacing, the given
// per-call timeout, transport retries and a circuit breaker.
func (a *App) Completer(ctx context.Context, timeout time.Duration) (llm.Completer, error) {
	base, err := a.BaseCompleter(ctx)
	if err != nil {
		return nil, err
	}
	c := a.Config.LLM
	opts := llm.PacedOpts{
		Delay:   c.Delay,
		Timeout: timeout,
		Retries: c.Retries,
	}
	if c.BreakerThreshold > 0 {
		opts.Breaker = resilience.NewBreaker(resilience.BreakerOpts{
			FailThreshold: c.BreakerThreshold,
			Counts:        llm.CountsTowardBreaker,
			OnStateChange: func(from, to resilience.State) {
				a.Logger.Warn("llm breaker state change", "from", from.String(), "to", to.String())
			},
		})
	}
	return llm.NewPaced(base, opts, a.Logger), nil
}

// Embedder returns the embedding backend, cached in Redis when configured.
func (a *App) Embedder(ctx context.Context) (embed.Embedder, error) {
	if a.embedder != nil {
		return a.embedder, nil
	}
	c := a.Config.Embedding
	var base embed.Embedder
	switch c.Provider {
	case config.ProviderOpenAI:
		oc := openai.Config{APIKey: c.APIKey, BaseURL: c.BaseURL, EmbeddingModel: c.Model}
		base = openai.NewEmbedder(openai.NewClient(oc), oc)
	case config.ProviderGemini:
		gc, err := gemini.New(ctx, gemini.Config{APIKey: c.APIKey, BaseURL: c.BaseURL, EmbeddingModel: c.Model})
		if err != nil {
			return nil, err
		}
		base = gc
	case config.ProviderOllama:
		base = ollama.NewClient(orDefault(c.BaseURL, defaultOllamaURL), "", orDefault(c.Model, "nomic-embed-text"))
	default:
		return nil, fmt.Errorf("app: unknown embedding provider %q", c.Provider)
	}

	rc, err := a.Redis(ctx)
	if err != nil {
		a.Logger.Warn("embedding cache disabled", "error", err)
	}
	if rc != nil && c.CacheTTL > 0 {
		base = embed.NewCached(base, embed.RedisStore{Client: rc}, c.Provider+":"+c.Model, c.CacheTTL, a.Logger)
	}
	a.embedder = base
	return base, nil
}

// --- Stores ---

// Redis returns the shared client, or nil when no address is configured.
func (a *App) Redis(ctx context.Context) (*redis.Client, error) {
	if a.redis != nil || a.Config.Redis.Addr == "" {
		return a.redis, nil
	}
	rc := redis.NewClient(&redis.Options{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})
	if err := rc.Ping(ctx).Err(); err != nil {
		rc.Close()
		return nil, fmt.Errorf("app: redis ping %s: %w", a.Config.Redis.Addr, err)
	}
	a.redis = rc
	a.onClose(func() { rc.Close() })
	return rc, nil
}

// LogStore opens the processing log.
func (a *App) LogStore(ctx context.Context) (LogStore, error) {
	if a.logStore != nil {
		return a.logStore, nil
	}
	path := a.Config.LogStorePath()
	switch a.Config.LogStore.Kind {
	case "sqlite":
		s, err := acquire.OpenSQLiteLogStore(ctx, path)
		if err != nil {
			return nil, err
		}
		a.onClose(func() { s.Close() })
		a.logStore = s
	default:
		a.logStore = acquire.NewJSONLogStore(path)
	}
	return a.logStore, nil
}

// VectorStore connects to Qdrant and makes sure the collection exists.
func (a *App) VectorStore(ctx context.Context) (*semantic.VectorStore, error) {
	if a.vectors != nil {
		return a.vectors, nil
	}
	vs, err := semantic.New(a.Config.Qdrant.Addr, a.Config.Qdrant.Collection)
	if err != nil {
		return nil, err
	}
	if err := vs.EnsureCollection(ctx, a.Config.Embedding.Dims); err != nil {
		vs.Close()
		return nil, err
	}
	a.vectors = vs
	a.onClose(func() { vs.Close() })
	return vs, nil
}

// Graph returns the tag graph, or nil when Neo4j is not configured.
func (a *App) Graph(ctx context.Context) (*graph.GraphStore, error) {
	if a.graph != nil || a.Config.Neo4j.URL == "" {
		return a.graph, nil
	}
	c := a.Config.Neo4j
	driver, err := neo4j.NewDriverWithContext(c.URL, neo4j.BasicAuth(c.User, c.Pass, ""))
	if err != nil {
		return nil, fmt.Errorf("app: neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("app: neo4j verify: %w", err)
	}
	a.graph = graph.New(driver)
	a.onClose(func() { driver.Close(context.Background()) })
	return a.graph, nil
}

// --- Stages ---

// Acquirer builds the download, transcription and diarization stage.
func (a *App) Acquirer(ctx context.Context) (*acquire.Acquirer, error) {
	logs, err := a.LogStore(ctx)
	if err != nil {
		return nil, err
	}
	c := a.Config
	whisper := openai.NewClient(openai.Config{APIKey: c.Whisper.APIKey, BaseURL: c.Whisper.BaseURL})
	opts := acquire.Options{DataDir: c.DataDir, Logger: a.Logger}
	if c.Minio.Endpoint != "" {
		sink, err := acquire.NewMinioSink(ctx, acquire.MinioConfig{
			Endpoint:  c.Minio.Endpoint,
			AccessKey: c.Minio.AccessKey,
			SecretKey: c.Minio.SecretKey,
			Bucket:    c.Minio.Bucket,
			Prefix:    c.Minio.Prefix,
			UseSSL:    c.Minio.UseSSL,
		})
		if err != nil {
			a.Logger.Warn("artifact mirror disabled", "error", err)
		} else {
			opts.Sink = sink
		}
	}
	return acquire.New(
		logs,
		acquire.YTDLPDownloader{Binary: c.Download.Binary, ExtraArgs: c.Download.ExtraArgs},
		acquire.WhisperTranscriber{Client: whisper, Model: c.Whisper.Model, Language: c.Whisper.Language},
		acquire.HTTPDiarizer{Endpoint: c.Diarizer.Endpoint, Token: c.Diarizer.Token, Client: &http.Client{Timeout: c.Diarizer.Timeout}},
		opts,
	), nil
}

// Chunker builds the segmentation stage.
func (a *App) Chunker(ctx context.Context) (*chunker.Chunker, error) {
	model, err := a.Completer(ctx, a.Config.LLM.Timeout)
	if err != nil {
		return nil, err
	}
	return chunker.New(model, chunker.Options{
		Size:    a.Config.Chunk.Size,
		Overlap: a.Config.Chunk.Overlap,
		Logger:  a.Logger,
	}), nil
}

// Tagger builds the tagging stage.
func (a *App) Tagger(ctx context.Context) (*tagger.Tagger, error) {
	model, err := a.Completer(ctx, a.Config.LLM.TagTimeout)
	if err != nil {
		return nil, err
	}
	return tagger.New(model, tagger.Options{Logger: a.Logger}), nil
}

// Indexer builds the embed-and-upsert stage.
func (a *App) Indexer(ctx context.Context, m *ingest.Metrics) (*ingest.Indexer, error) {
	emb, err := a.Embedder(ctx)
	if err != nil {
		return nil, err
	}
	vs, err := a.VectorStore(ctx)
	if err != nil {
		return nil, err
	}
	return ingest.NewIndexer(vs, emb, ingest.IndexerOpts{
		BatchSize: a.Config.Qdrant.BatchSize,
		Logger:    a.Logger,
		Metrics:   m,
	}), nil
}

// Pipeline wires every stage into one URL-to-index stage. The tag graph is
// attached when Neo4j is configured and reachable.
func (a *App) Pipeline(ctx context.Context, m *ingest.Metrics) (fn.Stage[ingest.Job, ingest.Done], error) {
	acq, err := a.Acquirer(ctx)
	if err != nil {
		return nil, err
	}
	seg, err := a.Chunker(ctx)
	if err != nil {
		return nil, err
	}
	lab, err := a.Tagger(ctx)
	if err != nil {
		return nil, err
	}
	ix, err := a.Indexer(ctx, m)
	if err != nil {
		return nil, err
	}
	deps := ingest.Deps{
		Acquirer:  acq,
		Segmenter: seg,
		Labeler:   lab,
		Indexer:   ix,
		Logger:    a.Logger,
		Metrics:   m,
	}
	if g, err := a.Graph(ctx); err != nil {
		a.Logger.Warn("tag graph disabled", "error", err)
	} else if g != nil {
		deps.Graph = g
	}
	return ingest.NewPipeline(deps), nil
}

// Retriever builds the retriever. A vector store that cannot be reached
// leaves the retriever uninitialized rather than failing.
func (a *App) Retriever(ctx context.Context) (*rag.Retriever, error) {
	emb, err := a.Embedder(ctx)
	if err != nil {
		return nil, err
	}
	opts := rag.Options{
		TopN:          a.Config.Retrieval.TopN,
		HistoryTurns:  a.Config.Retrieval.HistoryTurns,
		SearchTimeout: a.Config.Retrieval.SearchTimeout,
	}
	var search rag.Searcher
	if vs, err := a.VectorStore(ctx); err != nil {
		a.Logger.Error("vector store unavailable", "error", err)
	} else {
		search = vs
	}
	return rag.New(emb, search, opts, a.Logger), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
