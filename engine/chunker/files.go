package chunker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/WessleyAI/rizz-engine/engine/domain"
)

// ReadTranscript returns the lines of a speaker transcript. A trailing
// newline does not produce an extra empty line.
func ReadTranscript(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chunker: read transcript: %w", err)
	}
	text := strings.TrimSuffix(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("chunker: %s: %w", path, domain.ErrEmptyTranscript)
	}
	return strings.Split(text, "\n"), nil
}

// OutputPath derives the chunked output file from a transcript path.
func OutputPath(transcriptPath string) string {
	return strings.TrimSuffix(transcriptPath, filepath.Ext(transcriptPath)) + "_chunked.json"
}

// WriteChunks writes chunks as an indented JSON list.
func WriteChunks(path string, chunks []domain.Chunk) error {
	return writeJSON(path, chunks)
}

// ReadChunks loads a chunked output file.
func ReadChunks(path string) ([]domain.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chunker: read chunks: %w", err)
	}
	var chunks []domain.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("chunker: decode %s: %w", path, err)
	}
	for i := range chunks {
		if chunks[i].Number == 0 {
			chunks[i].Number = i + 1
		}
	}
	return chunks, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("chunker: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("chunker: create dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("chunker: write %s: %w", path, err)
	}
	return nil
}
