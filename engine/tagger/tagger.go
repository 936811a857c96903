// Package tagger annotates every block of a segmented transcript with
// structured scenario metadata produced by a completion model.
package tagger

import (
	"context"
	"log/slog"

	"github.com/WessleyAI/rizz-engine/engine/domain"
	"github.com/WessleyAI/rizz-engine/pkg/llm"
)

// Options configures a Tagger.
type Options struct {
	// Prompt builds the tagging prompt for a block. Defaults to TaggingPrompt.
	Prompt func(domain.Block) (string, error)
	Logger *slog.Logger
}

// Tagger runs the tagging stage. Pacing and per-call timeouts belong to the
// Completer (see llm.Paced).
type Tagger struct {
	model  llm.Completer
	opts   Options
	logger *slog.Logger
}

// New creates a Tagger.
func New(model llm.Completer, opts Options) *Tagger {
	if opts.Prompt == nil {
		opts.Prompt = TaggingPrompt
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Tagger{model: model, opts: opts, logger: logger}
}

// Stats summarizes a tagging run.
type Stats struct {
	Tagged  int `json:"tagged"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"` // chunks that failed segmentation
}

// Run tags every block of every successfully segmented chunk. Failures are
// recorded on the block (or carried over from the chunk) and never stop
// the run; only a cancelled context does.
func (t *Tagger) Run(ctx context.Context, chunks []domain.Chunk) ([]domain.TaggedChunk, Stats, error) {
	var stats Stats
	out := make([]domain.TaggedChunk, 0, len(chunks))
	for _, c := range chunks {
		tc := domain.TaggedChunk{Number: c.Number, StartLine: c.StartLine, EndLine: c.EndLine, Blocks: []domain.Block{}}
		if c.Failed() {
			tc.Error = c.Error
			stats.Skipped++
			t.logger.Warn("tagger: skipping failed chunk", "chunk_num", c.Number, "error", c.Error)
			out = append(out, tc)
			continue
		}
		for i, b := range c.Blocks {
			if err := ctx.Err(); err != nil {
				return out, stats, err
			}
			tagged := t.tag(ctx, c.Number, i, b)
			if tagged.TaggingError != "" {
				stats.Failed++
			} else {
				stats.Tagged++
			}
			tc.Blocks = append(tc.Blocks, tagged)
		}
		out = append(out, tc)
	}
	return out, stats, nil
}

func (t *Tagger) tag(ctx context.Context, chunkNum, index int, b domain.Block) domain.Block {
	log := t.logger.With("chunk_num", chunkNum, "block_id", b.Identifier(index))

	if len(b.Lines) == 0 {
		b.TaggingError = domain.ErrMissingLines.Error()
		log.Warn("tagger: block has no lines")
		return b
	}

	prompt, err := t.opts.Prompt(b)
	if err != nil {
		b.TaggingError = "prompt construction error: " + err.Error()
		log.Error("tagger: prompt", "error", err)
		return b
	}

	raw, err := t.model.Complete(ctx, prompt)
	if err != nil {
		b.TaggingError = llm.RequestFailure(err)
		log.Error("tagger: model call failed", "error", err)
		return b
	}

	result, err := llm.Clean(raw)
	if err == nil && isEmpty(result) {
		err = &llm.ParseError{Reason: "empty result", Raw: raw}
	}
	if err != nil {
		b.TaggingError = "tag cleaning failed"
		b.RawTaggingResponse = raw
		log.Warn("tagger: cleaning failed", "error", err)
		return b
	}
	b.TaggingResult = result
	log.Debug("tagger: tagged")
	return b
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(x) == 0
	case []any:
		return len(x) == 0
	}
	return false
}
