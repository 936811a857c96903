package chunker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/WessleyAI/rizz-engine/engine/domain"
	"github.com/WessleyAI/rizz-engine/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scripted struct {
	replies []string
	errs    []error
	prompts []string
}

func (s *scripted) Complete(_ context.Context, prompt string) (string, error) {
	i := len(s.prompts)
	s.prompts = append(s.prompts, prompt)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return `[{"block_id": 1, "lines": ["x"]}]`, nil
}

func transcript(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("[00:00:%02d.000 --> 00:00:%02d.500] [SPEAKER_%02d] line %d", i%60, i%60, i%2, i+1)
	}
	return lines
}

func TestRunRecordsLineRanges(t *testing.T) {
	model := &scripted{replies: []string{
		"```json\n[{\"block_id\": 1, \"summary\": \"opener\", \"lines\": [\"a\", \"b\"]}, {\"block_id\": 2, \"lines\": [\"c\"]}]\n```",
		`{"blocks": [{"block_id": "x", "lines": ["d"]}]}`,
	}}
	chunks, err := New(model, Options{}).Run(context.Background(), transcript(130))
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, 1, chunks[0].Number)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 100, chunks[0].EndLine)
	require.Len(t, chunks[0].Blocks, 2)
	assert.Equal(t, domain.BlockID("1"), chunks[0].Blocks[0].ID)
	assert.Equal(t, "opener", chunks[0].Blocks[0].Summary)
	assert.Equal(t, domain.Lines{"a", "b"}, chunks[0].Blocks[0].Lines)

	assert.Equal(t, 2, chunks[1].Number)
	assert.Equal(t, 81, chunks[1].StartLine)
	assert.Equal(t, 130, chunks[1].EndLine)
	assert.Equal(t, domain.BlockID("x"), chunks[1].Blocks[0].ID)

	require.Len(t, model.prompts, 2)
	assert.Contains(t, model.prompts[0], "line 1\n")
	assert.Contains(t, model.prompts[0], "line 100")
	assert.NotContains(t, model.prompts[0], "line 101")
	assert.Contains(t, model.prompts[1], "line 81\n")
	assert.NotContains(t, model.prompts[1], "line 80\n")
}

func TestRunContinuesPastFailures(t *testing.T) {
	model := &scripted{
		errs:    []error{nil, context.DeadlineExceeded, errors.New("connection reset")},
		replies: []string{"not json at all", "", "", `[]`},
	}
	chunks, err := New(model, Options{Size: 10, Overlap: 2}).Run(context.Background(), transcript(30))
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	assert.True(t, chunks[0].Failed())
	assert.Contains(t, chunks[0].Error, "cleaning failed")
	assert.Equal(t, "not json at all", chunks[0].RawResponse)

	assert.Equal(t, "request timeout", chunks[1].Error)
	assert.Equal(t, "request error: connection reset", chunks[2].Error)

	assert.True(t, chunks[3].Failed())
	assert.Contains(t, chunks[3].Error, ErrNoBlocks.Error())
}

func TestRunPromptError(t *testing.T) {
	model := &scripted{}
	c := New(model, Options{Prompt: func(string) (string, error) { return "", errors.New("template broke") }})
	chunks, err := c.Run(context.Background(), transcript(5))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "prompt construction error: template broke", chunks[0].Error)
	assert.Empty(t, model.prompts)
}

func TestRunRejectsBadInput(t *testing.T) {
	_, err := New(&scripted{}, Options{}).Run(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrEmptyTranscript)

	_, err = New(&scripted{}, Options{Size: 5, Overlap: 5}).Run(context.Background(), transcript(3))
	assert.ErrorIs(t, err, domain.ErrInvalidWindow)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	model := llm.CompleterFunc(func(context.Context, string) (string, error) {
		cancel()
		return `[{"block_id":1,"lines":["a"]}]`, nil
	})
	chunks, err := New(model, Options{Size: 2, Overlap: 0}).Run(ctx, transcript(6))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, chunks, 1)
}

func TestParseBlocks(t *testing.T) {
	blocks, err := ParseBlocks("Here you go:\n[{\"block_id\": 3, \"lines\": [\"a\"], \"summary\": \"s\"}]")
	require.NoError(t, err)
	assert.Equal(t, domain.BlockID("3"), blocks[0].ID)

	_, err = ParseBlocks(`"just a string"`)
	assert.Error(t, err)

	_, err = ParseBlocks(`{"other": []}`)
	assert.ErrorIs(t, err, ErrNoBlocks)

	_, err = ParseBlocks("")
	var pe *llm.ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestChunkingPromptIncludesText(t *testing.T) {
	p, err := ChunkingPrompt("[00:00:01.000 --> 00:00:02.000] [A] hey")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(p), "[A] hey"))
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	tp := filepath.Join(dir, "abc.txt")
	require.NoError(t, os.WriteFile(tp, []byte("one\r\ntwo\nthree\n"), 0o644))

	lines, err := ReadTranscript(tp)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, lines)

	out := OutputPath(tp)
	assert.Equal(t, filepath.Join(dir, "abc_chunked.json"), out)

	in := []domain.Chunk{
		{Number: 1, StartLine: 1, EndLine: 3, Blocks: []domain.Block{{ID: "1", Lines: domain.Lines{"one"}}}},
		{Number: 2, StartLine: 2, EndLine: 3, Error: "request timeout"},
	}
	require.NoError(t, WriteChunks(out, in))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"cleaned_data"`)
	assert.Contains(t, string(raw), `"chunk_num": 2`)

	got, err := ReadChunks(out)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestWriteChunksKeepsPaddedBlockIDs(t *testing.T) {
	blocks, err := ParseBlocks(`[{"block_id":"01","lines":["a"]},{"block_id":"+2","lines":["b"]},{"block_id":"idx_1","lines":["c"]}]`)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "x_chunked.json")
	require.NoError(t, WriteChunks(out, []domain.Chunk{{Number: 1, StartLine: 1, EndLine: 3, Blocks: blocks}}))

	got, err := ReadChunks(out)
	require.NoError(t, err)
	require.Len(t, got, 1)
	ids := []domain.BlockID{got[0].Blocks[0].ID, got[0].Blocks[1].ID, got[0].Blocks[2].ID}
	assert.Equal(t, []domain.BlockID{"01", "+2", "idx_1"}, ids)
}

func TestReadTranscriptEmpty(t *testing.T) {
	tp := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(tp, []byte("\n"), 0o644))
	_, err := ReadTranscript(tp)
	assert.ErrorIs(t, err, domain.ErrEmptyTranscript)
}
