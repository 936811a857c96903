// Package rag retrieves historical exchanges relevant to the current turn of
// a conversation. The query text fuses the user's input, the recent turns
// and the active scenario; the scenario also becomes a metadata filter.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/WessleyAI/rizz-engine/engine/domain"
	"github.com/WessleyAI/rizz-engine/engine/semantic"
	"github.com/WessleyAI/rizz-engine/pkg/embed"
	"github.com/WessleyAI/rizz-engine/pkg/fn"
)

// Searcher abstracts Qdrant vector search.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, topK int, filter *semantic.Filter) ([]semantic.SearchResult, error)
}

// Options configures retrieval.
type Options struct {
	TopN          int
	HistoryTurns  int
	SearchTimeout time.Duration
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		TopN:          5,
		HistoryTurns:  3,
		SearchTimeout: 5 * time.Second,
	}
}

// Turn is one message of the conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one retrieval call. A zero TopN uses the configured default.
type Request struct {
	Input    string                    `json:"input"`
	History  []Turn                    `json:"history,omitempty"`
	Scenario domain.ScenarioDescriptor `json:"scenario"`
	TopN     int                       `json:"top_n,omitempty"`
}

// Match is one retrieved exchange.
type Match struct {
	ID       string         `json:"id"`
	Score    float32        `json:"score"`
	Document string         `json:"document"`
	Metadata map[string]any `json:"metadata"`
}

// Retriever answers retrieval requests.
type Retriever struct {
	embedder embed.Embedder
	search   Searcher
	opts     Options
	logger   *slog.Logger
}

// New creates a Retriever. A nil search stands for a vector store that
// could not be initialized; every request then returns no matches.
func New(embedder embed.Embedder, search Searcher, opts Options, logger *slog.Logger) *Retriever {
	def := DefaultOptions()
	if opts.TopN <= 0 {
		opts.TopN = def.TopN
	}
	if opts.HistoryTurns <= 0 {
		opts.HistoryTurns = def.HistoryTurns
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = def.SearchTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: embedder, search: search, opts: opts, logger: logger}
}

// Retrieve returns up to TopN exchanges nearest to the request. Failures
// are logged and yield an empty, non-nil result.
func (r *Retriever) Retrieve(ctx context.Context, req Request) []Match {
	matches := []Match{}
	if r.search == nil {
		r.logger.Error("rag: vector store not initialized", "error", domain.ErrStoreUnavailable)
		return matches
	}

	topN := req.TopN
	if topN <= 0 {
		topN = r.opts.TopN
	}

	query := BuildQuery(req, r.opts.HistoryTurns)
	vec, err := r.embedder.Embed(ctx, query)
	if err == nil && len(vec) == 0 {
		err = embed.ErrEmptyVector
	}
	if err != nil {
		r.logger.Error("rag: embed query failed", "error", err)
		return matches
	}

	filter := ScenarioFilter(req.Scenario)
	if filter == nil {
		r.logger.Info("rag: no scenario filters applied")
	}

	searchCtx, cancel := context.WithTimeout(ctx, r.opts.SearchTimeout)
	defer cancel()

	results, err := r.search.Search(searchCtx, vec, topN, filter)
	if err != nil {
		r.logger.Error("rag: search failed", "error", err)
		return matches
	}
	matches = fn.Map(results, func(res semantic.SearchResult) Match {
		return Match{ID: res.ID, Score: res.Score, Document: res.Document, Metadata: res.Metadata}
	})
	r.logger.Info("rag: retrieved", "matches", len(matches), "top_n", topN)
	return matches
}

// BuildQuery renders the text that is embedded for a request:
//
//	{input} [History: {last turns}] [Scenario: k:v k:v]
func BuildQuery(req Request, turns int) string {
	parts := fn.Map(fn.Last(req.History, turns), func(t Turn) string { return t.Content })
	return fmt.Sprintf("%s [History: %s] [Scenario: %s]", req.Input, strings.Join(parts, " "), req.Scenario.Render())
}

// ScenarioFilter matches any one of the scenario's non-empty fields. It
// returns nil when the scenario is empty.
func ScenarioFilter(s domain.ScenarioDescriptor) *semantic.Filter {
	fields := s.Fields()
	if len(fields) == 0 {
		return nil
	}
	return &semantic.Filter{Should: fn.Map(fields, func(f domain.ScenarioField) semantic.Condition {
		return semantic.Condition{Key: f.Key, Value: f.Value}
	})}
}
