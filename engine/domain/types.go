// Package domain defines the core types shared by every pipeline stage and
// the validation gate at the pipeline entry point.
package domain

import (
	"fmt"
	"time"
)

// Status is the processing state of a URL in the processing log.
type Status string

const (
	StatusPending     Status = "pending"
	StatusTranscribed Status = "transcribed"
	StatusFailed      Status = "failed"
)

// ProcessingLogEntry records the latest acquisition attempt for one URL.
type ProcessingLogEntry struct {
	URL        string    `json:"-"`
	Timestamp  time.Time `json:"timestamp"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Retries    int       `json:"retries"`
	OutputPath string    `json:"output_path,omitempty"`
}

// Segment is a time-coded piece of text returned by the transcription model.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// SpeakerTurn is an interval attributed to one speaker by the diarization model.
type SpeakerTurn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// UnknownSpeaker labels segments no diarization turn fully contains.
const UnknownSpeaker = "UNKNOWN"

// TranscriptLine is one speaker-attributed segment of the final transcript.
type TranscriptLine struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
}

// String renders the line as "[start --> end] [speaker] text".
func (l TranscriptLine) String() string {
	return fmt.Sprintf("[%s --> %s] [%s] %s", FormatTimestamp(l.Start), FormatTimestamp(l.End), l.Speaker, l.Text)
}

// FormatTimestamp renders seconds as HH:MM:SS.mmm, rounding to the nearest
// millisecond. Negative input is clamped to zero.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(seconds*1000 + 0.5)

	hours := ms / 3_600_000
	ms %= 3_600_000
	minutes := ms / 60_000
	ms %= 60_000
	secs := ms / 1_000
	ms %= 1_000

	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, secs, ms)
}

// Chunk is one overlapping line window after segmentation into blocks.
// Line numbers are 1-based and inclusive.
type Chunk struct {
	Number      int     `json:"chunk_num"`
	StartLine   int     `json:"start_line"`
	EndLine     int     `json:"end_line"`
	Blocks      []Block `json:"cleaned_data,omitempty"`
	Error       string  `json:"error,omitempty"`
	RawResponse string  `json:"raw_response,omitempty"`
}

// Failed reports whether segmentation of this chunk failed.
func (c Chunk) Failed() bool { return c.Error != "" }

// TaggedChunk is a Chunk after the tagging stage.
type TaggedChunk struct {
	Number    int     `json:"chunk_num"`
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
	Blocks    []Block `json:"processed_blocks"`
	Error     string  `json:"error,omitempty"`
}

// Block is a semantically coherent sub-segment of a chunk: the unit of
// tagging and embedding.
type Block struct {
	ID                 BlockID `json:"block_id"`
	Lines              Lines   `json:"lines"`
	Summary            string  `json:"summary,omitempty"`
	StartLine          int     `json:"start_line,omitempty"`
	EndLine            int     `json:"end_line,omitempty"`
	TaggingResult      any     `json:"tagging_result,omitempty"`
	TaggingError       string  `json:"tagging_error,omitempty"`
	RawTaggingResponse string  `json:"raw_tagging_response,omitempty"`
}

// Identifier returns the block ID, or a positional fallback ("idx_<n>",
// 1-based) when the model did not provide one.
func (b Block) Identifier(index int) string {
	if b.ID != "" {
		return string(b.ID)
	}
	return fmt.Sprintf("idx_%d", index+1)
}

// RecordID is the vector record ID of a block. It is a pure function of
// its inputs so re-indexing overwrites instead of duplicating.
func RecordID(chunkNumber int, blockID string) string {
	return fmt.Sprintf("chunk_%d_block_%s", chunkNumber, blockID)
}

// TagObject returns the tag mapping inside a tagging result: the result
// itself when it is an object, or its first element when it is a list whose
// first element is an object. Anything else yields nil.
func TagObject(v any) map[string]any {
	switch x := v.(type) {
	case map[string]any:
		return x
	case []any:
		if len(x) > 0 {
			if m, ok := x[0].(map[string]any); ok {
				return m
			}
		}
	}
	return nil
}
