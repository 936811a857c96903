package chunker

import (
	"strings"
	"text/template"
)

var chunkingTemplate = template.Must(template.New("chunking").Parse(`You are segmenting a transcript of a social interaction video.
Each line has the form "[start --> end] [speaker] text".

Split the transcript below into blocks. A block is a run of consecutive lines that forms one
coherent exchange (an opener, a callback, a rejection, a recovery). Do not drop, reorder or
rewrite lines. Every line belongs to exactly one block.

Answer with a JSON array and nothing else:
[{"block_id": 1, "summary": "<one sentence>", "lines": ["<line>", "..."]}]

Transcript:
{{.}}
`))

// ChunkingPrompt wraps a window of transcript text in the segmentation
// instructions.
func ChunkingPrompt(text string) (string, error) {
	var b strings.Builder
	if err := chunkingTemplate.Execute(&b, text); err != nil {
		return "", err
	}
	return b.String(), nil
}
