// Package gemini adapts the Google Gemini API to the llm.Completer and
// embed.Embedder contracts.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/WessleyAI/rizz-engine/pkg/embed"
	"github.com/WessleyAI/rizz-engine/pkg/llm"
	"google.golang.org/genai"
)

// Config selects models and, for tests and proxies, the endpoint.
type Config struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	// TaskType is sent with embedding requests, e.g. RETRIEVAL_DOCUMENT.
	TaskType string
}

const (
	defaultChatModel  = "gemini-2.0-flash"
	defaultEmbedModel = "text-embedding-004"
)

// Client serves both completion and embedding from one genai client.
type Client struct {
	genai *genai.Client
	cfg   Config
}

// New creates a Gemini API client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	cc := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = defaultChatModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = defaultEmbedModel
	}
	return &Client{genai: gc, cfg: cfg}, nil
}

// Complete implements llm.Completer.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.genai.Models.GenerateContent(ctx, c.cfg.ChatModel, genai.Text(prompt), nil)
	if err != nil {
		return "", classify("generate", err)
	}
	text := resp.Text()
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

// Embed implements embed.Embedder.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var conf *genai.EmbedContentConfig
	if c.cfg.TaskType != "" {
		conf = &genai.EmbedContentConfig{TaskType: c.cfg.TaskType}
	}
	resp, err := c.genai.Models.EmbedContent(ctx, c.cfg.EmbeddingModel, genai.Text(text), conf)
	if err != nil {
		return nil, classify("embed", err)
	}
	if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, embed.ErrEmptyVector
	}
	return resp.Embeddings[0].Values, nil
}

func classify(op string, err error) error {
	wrapped := fmt.Errorf("gemini: %s: %w", op, err)
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	}
	if code == http.StatusTooManyRequests || code >= http.StatusInternalServerError {
		return llm.Retryable(wrapped)
	}
	return wrapped
}
