package tagger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/WessleyAI/rizz-engine/engine/domain"
)

// ScenarioChunk carries hand-curated scenario fields for the blocks of one
// chunk.
type ScenarioChunk struct {
	Number int             `json:"chunk_num"`
	Blocks []ScenarioBlock `json:"blocks"`
}

// ScenarioBlock holds the fields to overlay on one block's tagging result.
type ScenarioBlock struct {
	ID     domain.BlockID `json:"block_id"`
	Fields map[string]any `json:"fields"`
}

// MergeCounts reports what MergeScenarios did.
type MergeCounts struct {
	Merged  int
	Missing int // blocks with no scenario entry
	Invalid int // blocks whose tagging result cannot take fields
}

// MergeScenarios overlays scenario fields onto tagging results in place,
// matching on (chunk_num, block_id). Fields land in the tagging result
// object, or in its first element when it is a list of objects. Entries
// without a block ID or with empty fields are ignored.
func MergeScenarios(tagged []domain.TaggedChunk, scenarios []ScenarioChunk, logger *slog.Logger) MergeCounts {
	if logger == nil {
		logger = slog.Default()
	}
	lookup := make(map[int]map[domain.BlockID]map[string]any, len(scenarios))
	for _, sc := range scenarios {
		blocks := lookup[sc.Number]
		if blocks == nil {
			blocks = map[domain.BlockID]map[string]any{}
			lookup[sc.Number] = blocks
		}
		for _, b := range sc.Blocks {
			if b.ID == "" || len(b.Fields) == 0 {
				logger.Warn("tagger: ignoring scenario block", "chunk_num", sc.Number, "block_id", b.ID)
				continue
			}
			blocks[b.ID] = b.Fields
		}
	}

	var counts MergeCounts
	for ci := range tagged {
		chunk := &tagged[ci]
		blocks, ok := lookup[chunk.Number]
		if !ok {
			counts.Missing += len(chunk.Blocks)
			continue
		}
		for bi := range chunk.Blocks {
			b := &chunk.Blocks[bi]
			if b.ID == "" {
				continue
			}
			fields, ok := blocks[b.ID]
			if !ok {
				counts.Missing++
				continue
			}
			target := domain.TagObject(b.TaggingResult)
			if target == nil {
				counts.Invalid++
				logger.Warn("tagger: tagging result cannot take scenario fields", "chunk_num", chunk.Number, "block_id", b.ID)
				continue
			}
			for k, v := range fields {
				target[k] = v
			}
			counts.Merged++
		}
	}
	return counts
}

// ReadScenarios loads a scenario file.
func ReadScenarios(path string) ([]ScenarioChunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tagger: read scenarios: %w", err)
	}
	var out []ScenarioChunk
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("tagger: decode scenarios %s: %w", path, err)
	}
	return out, nil
}
