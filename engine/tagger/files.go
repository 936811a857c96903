package tagger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/WessleyAI/rizz-engine/engine/domain"
)

// OutputPath derives the tagged output file from a chunked file path.
func OutputPath(chunkedPath string) string {
	base := strings.TrimSuffix(chunkedPath, "_chunked.json")
	if base == chunkedPath {
		base = strings.TrimSuffix(chunkedPath, filepath.Ext(chunkedPath))
	}
	return base + "_tagged.json"
}

// WriteTagged writes tagged chunks as an indented JSON list.
func WriteTagged(path string, chunks []domain.TaggedChunk) error {
	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("tagger: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("tagger: create dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("tagger: write %s: %w", path, err)
	}
	return nil
}

// ReadTagged loads a tagged output file.
func ReadTagged(path string) ([]domain.TaggedChunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tagger: read tagged: %w", err)
	}
	var chunks []domain.TaggedChunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("tagger: decode %s: %w", path, err)
	}
	return chunks, nil
}
