// Package embed defines the embedding contract shared by the indexer and the
// retriever, plus a Redis-backed cache for repeated texts.
package embed

import (
	"context"
	"errors"
)

// Embedder turns text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Func adapts a function to Embedder.
type Func func(ctx context.Context, text string) ([]float32, error)

// Embed implements Embedder.
func (f Func) Embed(ctx context.Context, text string) ([]float32, error) { return f(ctx, text) }

// ErrEmptyVector is returned by providers that answer with no values.
var ErrEmptyVector = errors.New("embed: empty vector")
