// Package openai adapts OpenAI-compatible APIs (OpenAI, DeepSeek, local
// gateways) to the llm.Completer and embed.Embedder contracts.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/WessleyAI/rizz-engine/pkg/embed"
	"github.com/WessleyAI/rizz-engine/pkg/llm"
	goopenai "github.com/sashabaranov/go-openai"
)

// Config selects the endpoint and models.
type Config struct {
	APIKey         string
	BaseURL        string // empty for api.openai.com
	ChatModel      string
	EmbeddingModel string
	Temperature    float32
}

// NewClient builds a go-openai client honoring BaseURL.
func NewClient(cfg Config) *goopenai.Client {
	cc := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		cc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return goopenai.NewClientWithConfig(cc)
}

// Completer implements llm.Completer with a single user message.
type Completer struct {
	client      *goopenai.Client
	model       string
	temperature float32
}

// NewCompleter creates a chat completer.
func NewCompleter(client *goopenai.Client, cfg Config) *Completer {
	model := cfg.ChatModel
	if model == "" {
		model = goopenai.GPT4oMini
	}
	return &Completer{client: client, model: model, temperature: cfg.Temperature}
}

// Complete implements llm.Completer.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", classify("chat", err)
	}
	if len(resp.Choices) == 0 {
		return "", llm.ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// Embedder implements embed.Embedder.
type Embedder struct {
	client *goopenai.Client
	model  goopenai.EmbeddingModel
}

// NewEmbedder creates an embedder.
func NewEmbedder(client *goopenai.Client, cfg Config) *Embedder {
	model := goopenai.EmbeddingModel(cfg.EmbeddingModel)
	if model == "" {
		model = goopenai.SmallEmbedding3
	}
	return &Embedder{client: client, model: model}
}

// Embed implements embed.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Model: e.model,
		Input: []string{text},
	})
	if err != nil {
		return nil, classify("embed", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, embed.ErrEmptyVector
	}
	return resp.Data[0].Embedding, nil
}

// classify marks rate limiting and server errors as retryable.
func classify(op string, err error) error {
	wrapped := fmt.Errorf("openai: %s: %w", op, err)
	if retryableStatus(statusCode(err)) {
		return llm.Retryable(wrapped)
	}
	return wrapped
}

func statusCode(err error) int {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
