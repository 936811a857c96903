package ingest

import (
	"context"

	"github.com/WessleyAI/rizz-engine/engine/domain"
	"github.com/WessleyAI/rizz-engine/engine/semantic"
	"github.com/WessleyAI/rizz-engine/engine/tagger"
	"github.com/WessleyAI/rizz-engine/pkg/fn"
)

// VectorWriter is the part of the vector store the indexer writes to.
type VectorWriter interface {
	Upsert(ctx context.Context, records []semantic.VectorRecord) error
}

// Acquirer turns a video URL into a speaker-attributed transcript file.
type Acquirer interface {
	Process(ctx context.Context, url string) fn.Result[string]
}

// Segmenter splits transcript lines into chunks of blocks.
type Segmenter interface {
	Run(ctx context.Context, lines []string) ([]domain.Chunk, error)
}

// Labeler tags every block of every chunk.
type Labeler interface {
	Run(ctx context.Context, chunks []domain.Chunk) ([]domain.TaggedChunk, tagger.Stats, error)
}

// TagRecorder mirrors tagged chunks into the tag graph.
type TagRecorder interface {
	SaveTagged(ctx context.Context, url string, chunks []domain.TaggedChunk) (int, error)
}

// Counts is the outcome of one Index call. Processed counts records that
// reached the vector store.
type Counts struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
}

// Job asks the pipeline to take one URL all the way into the index.
type Job struct {
	URL string `json:"url"`
}

// Transcribed is a Job whose transcript exists on disk.
type Transcribed struct {
	Job
	TranscriptPath string
}

// Chunked carries the segmentation output.
type Chunked struct {
	Transcribed
	ChunkedPath string
	Chunks      []domain.Chunk
}

// Tagged carries the tagging output.
type Tagged struct {
	Chunked
	TaggedPath string
	Tagged     []domain.TaggedChunk
	Stats      tagger.Stats
}

// Done is published on DoneSubject when a job finishes, successfully or not.
type Done struct {
	URL            string       `json:"url"`
	TranscriptPath string       `json:"transcript_path,omitempty"`
	ChunkedPath    string       `json:"chunked_path,omitempty"`
	TaggedPath     string       `json:"tagged_path,omitempty"`
	Chunks         int          `json:"chunks"`
	Tagging        tagger.Stats `json:"tagging"`
	Exchanges      int          `json:"exchanges,omitempty"`
	Index          Counts       `json:"index"`
	Error          string       `json:"error,omitempty"`
	Retries        int          `json:"retries,omitempty"`
}
