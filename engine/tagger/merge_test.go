package tagger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/WessleyAI/rizz-engine/engine/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeScenarios(t *testing.T) {
	listResult := []any{map[string]any{"type": "dating"}}
	tagged := []domain.TaggedChunk{
		{Number: 1, Blocks: []domain.Block{
			{ID: "1", TaggingResult: map[string]any{"type": "dating"}},
			{ID: "2", TaggingResult: listResult},
			{ID: "3", TaggingResult: []any{"not an object"}},
			{ID: "4", TaggingError: "tag cleaning failed"},
			{ID: "5", TaggingResult: map[string]any{}},
		}},
		{Number: 2, Blocks: []domain.Block{{ID: "1"}, {ID: "2"}}},
	}
	scenarios := []ScenarioChunk{{Number: 1, Blocks: []ScenarioBlock{
		{ID: "1", Fields: map[string]any{"setting": "bar", "roast_level": float64(4)}},
		{ID: "2", Fields: map[string]any{"goal": "get_number"}},
		{ID: "3", Fields: map[string]any{"goal": "x"}},
		{ID: "4", Fields: map[string]any{"goal": "x"}},
		{ID: "", Fields: map[string]any{"goal": "ignored"}},
	}}}

	counts := MergeScenarios(tagged, scenarios, nil)
	assert.Equal(t, MergeCounts{Merged: 2, Missing: 3, Invalid: 2}, counts)

	assert.Equal(t, map[string]any{"type": "dating", "setting": "bar", "roast_level": float64(4)}, tagged[0].Blocks[0].TaggingResult)
	assert.Equal(t, "get_number", listResult[0].(map[string]any)["goal"])
	assert.Nil(t, tagged[0].Blocks[3].TaggingResult)
}

func TestReadScenarios(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"chunk_num": 1, "blocks": [{"block_id": 2, "fields": {"type": "party"}}]}]`), 0o644))

	got, err := ReadScenarios(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.BlockID("2"), got[0].Blocks[0].ID)
	assert.Equal(t, "party", got[0].Blocks[0].Fields["type"])

	require.NoError(t, os.WriteFile(path, []byte(`{"not": "a list"}`), 0o644))
	_, err = ReadScenarios(path)
	assert.Error(t, err)
}
