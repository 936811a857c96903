// Package ingest runs a video URL through the whole pipeline: acquisition,
// segmentation, tagging and vector indexing. It also hosts the NATS worker
// that drives the pipeline from queued jobs.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/WessleyAI/rizz-engine/engine/chunker"
	"github.com/WessleyAI/rizz-engine/engine/domain"
	"github.com/WessleyAI/rizz-engine/engine/tagger"
	"github.com/WessleyAI/rizz-engine/pkg/fn"
)

// Deps holds the external dependencies for the ingestion pipeline.
type Deps struct {
	Acquirer  Acquirer
	Segmenter Segmenter
	Labeler   Labeler
	Indexer   *Indexer
	Graph     TagRecorder // optional
	Logger    *slog.Logger
	Metrics   *Metrics
}

// --- Pipeline Stages ---

// NewAcquire wraps an Acquirer as a stage.
func NewAcquire(a Acquirer) fn.Stage[Job, Transcribed] {
	return func(ctx context.Context, job Job) fn.Result[Transcribed] {
		r := a.Process(ctx, job.URL)
		if r.IsErr() {
			return fn.Propagate[Transcribed](r)
		}
		path, _ := r.Unwrap()
		return fn.Ok(Transcribed{Job: job, TranscriptPath: path})
	}
}

// NewSegment reads the transcript, chunks it and writes the chunked file
// next to it. A window configuration error is fatal; it fails every job.
func NewSegment(s Segmenter) fn.Stage[Transcribed, Chunked] {
	return func(ctx context.Context, t Transcribed) fn.Result[Chunked] {
		lines, err := chunker.ReadTranscript(t.TranscriptPath)
		if err != nil {
			return fn.Err[Chunked](err)
		}
		chunks, err := s.Run(ctx, lines)
		if errors.Is(err, domain.ErrInvalidWindow) {
			return fn.Fatal[Chunked](err)
		}
		if err != nil {
			return fn.Err[Chunked](err)
		}
		out := chunker.OutputPath(t.TranscriptPath)
		if err := chunker.WriteChunks(out, chunks); err != nil {
			return fn.Err[Chunked](fmt.Errorf("ingest: write chunks: %w", err))
		}
		return fn.Ok(Chunked{Transcribed: t, ChunkedPath: out, Chunks: chunks})
	}
}

// NewTag tags the chunks and writes the tagged file. When graph is not nil
// the tagged blocks are mirrored into it; graph failures are logged only.
func NewTag(l Labeler, graph TagRecorder, log *slog.Logger) fn.Stage[Chunked, Tagged] {
	return func(ctx context.Context, c Chunked) fn.Result[Tagged] {
		tagged, stats, err := l.Run(ctx, c.Chunks)
		if err != nil {
			return fn.Err[Tagged](err)
		}
		out := tagger.OutputPath(c.ChunkedPath)
		if err := tagger.WriteTagged(out, tagged); err != nil {
			return fn.Err[Tagged](fmt.Errorf("ingest: write tagged: %w", err))
		}
		if graph != nil {
			if n, err := graph.SaveTagged(ctx, c.URL, tagged); err != nil {
				log.Warn("ingest: tag graph", "url", c.URL, "error", err)
			} else {
				log.Info("ingest: tag graph updated", "url", c.URL, "exchanges", n)
			}
		}
		return fn.Ok(Tagged{Chunked: c, TaggedPath: out, Tagged: tagged, Stats: stats})
	}
}

// NewIndex runs the indexer. Per-record failures are reported in the
// counts, not as a stage error.
func NewIndex(ix *Indexer) fn.Stage[Tagged, Done] {
	return func(ctx context.Context, t Tagged) fn.Result[Done] {
		counts := ix.Index(ctx, t.Tagged)
		if err := ctx.Err(); err != nil {
			return fn.Err[Done](err)
		}
		return fn.Ok(Done{
			URL:            t.URL,
			TranscriptPath: t.TranscriptPath,
			ChunkedPath:    t.ChunkedPath,
			TaggedPath:     t.TaggedPath,
			Chunks:         len(t.Chunks),
			Tagging:        t.Stats,
			Index:          counts,
		})
	}
}

// LoggedTap returns a stage that logs entry with the stage name.
func LoggedTap[T any](name string, log *slog.Logger) fn.Stage[T, T] {
	return fn.TapStage(func(_ context.Context, _ T) {
		log.Info("stage.enter", "stage", name)
	})
}

// timed wraps a stage with exit logging, a span and a duration metric.
func timed[In, Out any](name string, log *slog.Logger, m *Metrics, stage fn.Stage[In, Out]) fn.Stage[In, Out] {
	traced := fn.TracedStage("ingest."+name, stage)
	return func(ctx context.Context, in In) fn.Result[Out] {
		start := time.Now()
		r := traced(ctx, in)
		m.stage(name, start)
		if r.IsErr() {
			log.Warn("stage.exit", "stage", name, "duration", time.Since(start), "error", r.Error(), "fatal", r.IsFatal())
		} else {
			log.Info("stage.exit", "stage", name, "duration", time.Since(start))
		}
		return r
	}
}

// NewPipeline constructs the full ingestion pipeline with all stages wired.
func NewPipeline(deps Deps) fn.Stage[Job, Done] {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	m := deps.Metrics

	// Acquire → Segment → Tag → Index, with logging taps between stages.
	acquired := fn.Then(LoggedTap[Job]("acquire", log), timed("acquire", log, m, NewAcquire(deps.Acquirer)))
	segmented := fn.Then(acquired, fn.Then(LoggedTap[Transcribed]("segment", log), timed("segment", log, m, NewSegment(deps.Segmenter))))
	tagged := fn.Then(segmented, fn.Then(LoggedTap[Chunked]("tag", log), timed("tag", log, m, NewTag(deps.Labeler, deps.Graph, log))))
	indexed := fn.Then(tagged, fn.Then(LoggedTap[Tagged]("index", log), timed("index", log, m, NewIndex(deps.Indexer))))

	return indexed
}
