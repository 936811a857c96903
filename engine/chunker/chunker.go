// Package chunker splits a speaker transcript into overlapping windows and
// asks a completion model to segment each window into blocks.
package chunker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/WessleyAI/rizz-engine/engine/domain"
	"github.com/WessleyAI/rizz-engine/pkg/llm"
)

// Defaults for window geometry.
const (
	DefaultSize    = 100
	DefaultOverlap = 20
)

// Options configures a Chunker.
type Options struct {
	Size    int
	Overlap int
	// Prompt builds the model prompt from window text. Defaults to
	// ChunkingPrompt.
	Prompt func(text string) (string, error)
	Logger *slog.Logger
}

// Chunker runs the segmentation stage. Model calls are sequential; pacing
// and per-call timeouts belong to the Completer (see llm.Paced).
type Chunker struct {
	model  llm.Completer
	opts   Options
	logger *slog.Logger
}

// New creates a Chunker.
func New(model llm.Completer, opts Options) *Chunker {
	if opts.Size == 0 && opts.Overlap == 0 {
		opts.Size, opts.Overlap = DefaultSize, DefaultOverlap
	}
	if opts.Prompt == nil {
		opts.Prompt = ChunkingPrompt
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Chunker{model: model, opts: opts, logger: logger}
}

// Run segments lines. Per-window failures are recorded on the chunk and
// the run continues; only invalid geometry, an empty transcript or a
// cancelled context abort it.
func (c *Chunker) Run(ctx context.Context, lines []string) ([]domain.Chunk, error) {
	if len(lines) == 0 {
		return nil, domain.ErrEmptyTranscript
	}
	windows, err := Windows(len(lines), c.opts.Size, c.opts.Overlap)
	if err != nil {
		return nil, err
	}

	chunks := make([]domain.Chunk, 0, len(windows))
	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			return chunks, err
		}
		chunk := c.segment(ctx, w, lines[w.Start:w.End])
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func (c *Chunker) segment(ctx context.Context, w Window, lines []string) domain.Chunk {
	chunk := domain.Chunk{Number: w.Number, StartLine: w.StartLine(), EndLine: w.EndLine()}
	log := c.logger.With("chunk_num", w.Number, "start_line", chunk.StartLine, "end_line", chunk.EndLine)

	prompt, err := c.opts.Prompt(strings.Join(lines, "\n"))
	if err != nil {
		chunk.Error = "prompt construction error: " + err.Error()
		log.Error("chunker: prompt", "error", err)
		return chunk
	}

	start := time.Now()
	raw, err := c.model.Complete(ctx, prompt)
	if err != nil {
		chunk.Error = llm.RequestFailure(err)
		log.Error("chunker: model call failed", "error", err)
		return chunk
	}

	blocks, err := ParseBlocks(raw)
	if err != nil {
		chunk.Error = "cleaning failed: " + err.Error()
		chunk.RawResponse = raw
		log.Warn("chunker: cleaning failed", "error", err)
		return chunk
	}
	chunk.Blocks = blocks
	log.Info("chunker: segmented", "blocks", len(blocks), "duration", time.Since(start))
	return chunk
}

// ErrNoBlocks is returned when cleaned output holds no blocks.
var ErrNoBlocks = errors.New("no blocks in model output")

// ParseBlocks cleans model output into blocks. It accepts a JSON array of
// blocks or an object with a "blocks" array.
func ParseBlocks(raw string) ([]domain.Block, error) {
	var body json.RawMessage
	if err := llm.CleanInto(raw, &body); err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)

	var blocks []domain.Block
	switch {
	case len(body) > 0 && body[0] == '[':
		if err := json.Unmarshal(body, &blocks); err != nil {
			return nil, fmt.Errorf("decode blocks: %w", err)
		}
	case len(body) > 0 && body[0] == '{':
		var wrapped struct {
			Blocks []domain.Block `json:"blocks"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, fmt.Errorf("decode blocks: %w", err)
		}
		blocks = wrapped.Blocks
	default:
		return nil, fmt.Errorf("unexpected JSON value %.20q", body)
	}
	if len(blocks) == 0 {
		return nil, ErrNoBlocks
	}
	return blocks, nil
}
