// Package main implements the rizz retrieval API server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/WessleyAI/rizz-engine/engine/app"
	"github.com/WessleyAI/rizz-engine/engine/domain"
	"github.com/WessleyAI/rizz-engine/engine/graph"
	"github.com/WessleyAI/rizz-engine/engine/rag"
	"github.com/WessleyAI/rizz-engine/pkg/config"
	"github.com/WessleyAI/rizz-engine/pkg/metrics"
	"github.com/WessleyAI/rizz-engine/pkg/mid"
)

const maxBodyBytes = 1 << 20

func main() {
	cfg, err := config.Load(os.Getenv("RIZZ_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.LogLevel, os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg, logger)
	defer a.Close()

	// --- Retriever (Qdrant + embeddings) ---
	retriever, err := a.Retriever(ctx)
	if err != nil {
		return fmt.Errorf("build retriever: %w", err)
	}

	// --- Tag graph (optional) ---
	var tags tagIndex
	if g, err := a.Graph(ctx); err != nil {
		logger.Warn("tag graph disabled", "error", err)
	} else if g != nil {
		tags = g
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      newHandler(retriever, tags, a.Metrics, cfg.HTTP.CORSOrigin, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.HTTP.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// retriever is the part of rag.Retriever the API uses.
type retriever interface {
	Retrieve(ctx context.Context, req rag.Request) []rag.Match
}

// tagIndex is the part of graph.GraphStore the API uses.
type tagIndex interface {
	TagValues(ctx context.Context, key string, limit int) ([]graph.TagCount, error)
	ExchangesWithTag(ctx context.Context, tag graph.Tag, limit int) ([]graph.Exchange, error)
}

func newHandler(r retriever, tags tagIndex, reg *metrics.Registry, corsOrigin string, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/retrieve", handleRetrieve(r, logger))
	mux.HandleFunc("GET /api/tags/{key}", handleTagValues(tags, logger))
	mux.HandleFunc("GET /api/exchanges", handleExchanges(tags, logger))
	mux.Handle("GET /metrics", reg.Handler())

	return mid.Chain(mux,
		mid.Recover(logger),
		mid.RequestID(),
		mid.Logger(logger),
		mid.Metrics(mid.NewHTTPMetrics(reg.Prometheus(), "rizz_api")),
		mid.CORS(corsOrigin),
		mid.MaxBody(maxBodyBytes),
		mid.OTel("rizz-api"),
	)
}

// --- Handlers ---

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RetrieveResponse is the JSON response for POST /api/retrieve.
type RetrieveResponse struct {
	Matches []rag.Match `json:"matches"`
}

func handleRetrieve(r retriever, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body rag.Request
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.Input == "" {
			writeError(w, http.StatusBadRequest, "input is required")
			return
		}
		if body.TopN < 0 {
			writeError(w, http.StatusBadRequest, "top_n must not be negative")
			return
		}
		if err := domain.ValidateScenario(body.Scenario); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		matches := r.Retrieve(req.Context(), body)
		logger.Debug("retrieve", "input_len", len(body.Input), "matches", len(matches))
		writeJSON(w, http.StatusOK, RetrieveResponse{Matches: matches})
	}
}

func handleTagValues(tags tagIndex, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if tags == nil {
			writeError(w, http.StatusServiceUnavailable, "tag graph not configured")
			return
		}
		limit, ok := parseLimit(w, req)
		if !ok {
			return
		}
		values, err := tags.TagValues(req.Context(), req.PathValue("key"), limit)
		if err != nil {
			logger.Error("tag values failed", "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"key": req.PathValue("key"), "values": values})
	}
}

func handleExchanges(tags tagIndex, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if tags == nil {
			writeError(w, http.StatusServiceUnavailable, "tag graph not configured")
			return
		}
		tag := graph.Tag{Key: req.URL.Query().Get("key"), Value: req.URL.Query().Get("value")}
		if tag.Key == "" || tag.Value == "" {
			writeError(w, http.StatusBadRequest, "key and value are required")
			return
		}
		limit, ok := parseLimit(w, req)
		if !ok {
			return
		}
		exchanges, err := tags.ExchangesWithTag(req.Context(), tag, limit)
		if err != nil {
			logger.Error("exchanges by tag failed", "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"exchanges": exchanges})
	}
}

func parseLimit(w http.ResponseWriter, req *http.Request) (int, bool) {
	raw := req.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
