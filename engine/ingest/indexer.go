package ingest

import (
	"context"
	"log/slog"

	"github.com/WessleyAI/rizz-engine/engine/domain"
	"github.com/WessleyAI/rizz-engine/engine/semantic"
	"github.com/WessleyAI/rizz-engine/pkg/embed"
)

// DefaultBatchSize is how many records are buffered before an upsert.
const DefaultBatchSize = 100

// IndexerOpts configures an Indexer.
type IndexerOpts struct {
	BatchSize int
	Logger    *slog.Logger
	Metrics   *Metrics
}

// Indexer embeds tagged blocks and writes them to the vector store in
// batches.
type Indexer struct {
	store     VectorWriter
	embedder  embed.Embedder
	batchSize int
	log       *slog.Logger
	metrics   *Metrics
}

// NewIndexer creates an Indexer.
func NewIndexer(store VectorWriter, embedder embed.Embedder, opts IndexerOpts) *Indexer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Indexer{
		store:     store,
		embedder:  embedder,
		batchSize: opts.BatchSize,
		log:       opts.Logger,
		metrics:   opts.Metrics,
	}
}

// Index embeds every usable block and upserts it. A block is skipped and
// counted as an error when its lines are missing, its tagging failed, or
// its embedding fails. A failed upsert counts every record of that batch
// as an error. Nothing here aborts the run except a cancelled context,
// after which the remaining blocks are not visited.
func (ix *Indexer) Index(ctx context.Context, chunks []domain.TaggedChunk) Counts {
	var counts Counts
	batch := make([]semantic.VectorRecord, 0, ix.batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := ix.store.Upsert(ctx, batch); err != nil {
			ix.log.Error("index: batch upsert failed", "records", len(batch), "error", err)
			counts.Errors += len(batch)
			ix.metrics.batch("failed")
			ix.metrics.record("error", len(batch))
		} else {
			ix.log.Info("index: batch upserted", "records", len(batch))
			counts.Processed += len(batch)
			ix.metrics.batch("ok")
			ix.metrics.record("indexed", len(batch))
		}
		batch = batch[:0]
	}

	skip := func(recordID, reason string, err error) {
		counts.Errors++
		ix.metrics.record("error", 1)
		ix.log.Warn("index: skipping block", "record_id", recordID, "reason", reason, "error", err)
	}

chunks:
	for ci, chunk := range chunks {
		num := chunk.Number
		if num == 0 {
			num = ci + 1
		}
		for bi, b := range chunk.Blocks {
			if ctx.Err() != nil {
				break chunks
			}
			blockID := b.Identifier(bi)
			recordID := domain.RecordID(num, blockID)

			if len(b.Lines) == 0 {
				skip(recordID, "missing lines", domain.ErrMissingLines)
				continue
			}
			if b.TaggingError != "" {
				skip(recordID, "tagging failed", nil)
				continue
			}

			text := BlockText(b.Lines)
			vec, err := ix.embedder.Embed(ctx, text)
			if err == nil && len(vec) == 0 {
				err = embed.ErrEmptyVector
			}
			if err != nil {
				skip(recordID, "embedding failed", err)
				continue
			}

			batch = append(batch, semantic.VectorRecord{
				ID:        recordID,
				Embedding: vec,
				Document:  text,
				Metadata:  BlockMetadata(num, blockID, b),
			})
			if len(batch) >= ix.batchSize {
				flush()
			}
		}
	}
	flush()

	ix.log.Info("index: complete", "processed", counts.Processed, "errors", counts.Errors)
	return counts
}
