package ingest

import (
	"encoding/json"
	"strings"

	"github.com/WessleyAI/rizz-engine/engine/domain"
)

// BlockText is the text embedded for a block.
func BlockText(lines []string) string {
	return strings.Join(lines, "\n")
}

// BlockMetadata builds the payload stored next to a block's vector: the
// fixed positional fields, then the flattened tags. Tags win on key
// collisions. Null values are dropped because the store rejects them.
func BlockMetadata(chunkNumber int, blockID string, b domain.Block) map[string]any {
	meta := map[string]any{
		"chunk_number": chunkNumber,
		"block_id":     blockID,
		"summary":      b.Summary,
	}
	if b.StartLine != 0 {
		meta["start_line"] = b.StartLine
	}
	if b.EndLine != 0 {
		meta["end_line"] = b.EndLine
	}
	for k, v := range FlattenTags(b.TaggingResult) {
		meta[k] = v
	}
	return meta
}

// FlattenTags turns a tagging result into flat payload fields. Lists and
// objects become JSON strings; nulls are dropped. A result without a tag
// object yields nil.
func FlattenTags(result any) map[string]any {
	obj := domain.TagObject(result)
	if obj == nil {
		return nil
	}
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		switch v.(type) {
		case nil:
			continue
		case []any, map[string]any:
			data, err := json.Marshal(v)
			if err != nil {
				continue
			}
			out[k] = string(data)
		default:
			out[k] = v
		}
	}
	return out
}
