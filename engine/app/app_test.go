package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/WessleyAI/rizz-engine/engine/acquire"
	"github.com/WessleyAI/rizz-engine/engine/domain"
	"github.com/WessleyAI/rizz-engine/pkg/config"
	"github.com/WessleyAI/rizz-engine/pkg/gemini"
	"github.com/WessleyAI/rizz-engine/pkg/llm"
	"github.com/WessleyAI/rizz-engine/pkg/ollama"
	"github.com/WessleyAI/rizz-engine/pkg/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.LLM.APIKey = "test"
	cfg.Embedding.APIKey = "test"
	a := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(a.Close)
	return a
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("warn", &buf)
	log.Info("hidden")
	log.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"k":"v"`)

	assert.True(t, NewLogger("bogus", io.Discard).Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, NewLogger("debug", io.Discard).Enabled(context.Background(), slog.LevelDebug))
}

func TestBaseCompleterProviders(t *testing.T) {
	ctx := context.Background()
	a := testApp(t)

	c, err := a.BaseCompleter(ctx)
	require.NoError(t, err)
	assert.IsType(t, &openai.Completer{}, c)

	a.Config.LLM.Provider = config.ProviderOllama
	c, err = a.BaseCompleter(ctx)
	require.NoError(t, err)
	assert.IsType(t, &ollama.Client{}, c)

	a.Config.LLM.Provider = config.ProviderGemini
	c, err = a.BaseCompleter(ctx)
	require.NoError(t, err)
	assert.IsType(t, &gemini.Client{}, c)

	a.Config.LLM.Provider = "nope"
	_, err = a.BaseCompleter(ctx)
	require.Error(t, err)
}

func TestCompleterIsPaced(t *testing.T) {
	a := testApp(t)
	c, err := a.Completer(context.Background(), time.Second)
	require.NoError(t, err)
	assert.IsType(t, &llm.Paced{}, c)
}

func TestEmbedderWithoutRedisIsUncached(t *testing.T) {
	a := testApp(t)
	e, err := a.Embedder(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &openai.Embedder{}, e)

	again, err := a.Embedder(context.Background())
	require.NoError(t, err)
	assert.Same(t, e, again)
}

func TestEmbedderUnknownProvider(t *testing.T) {
	a := testApp(t)
	a.Config.Embedding.Provider = "nope"
	_, err := a.Embedder(context.Background())
	require.Error(t, err)
}

func TestOptionalBackendsDisabled(t *testing.T) {
	a := testApp(t)
	rc, err := a.Redis(context.Background())
	require.NoError(t, err)
	assert.Nil(t, rc)

	g, err := a.Graph(context.Background())
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestLogStoreKinds(t *testing.T) {
	ctx := context.Background()

	a := testApp(t)
	s, err := a.LogStore(ctx)
	require.NoError(t, err)
	require.IsType(t, &acquire.JSONLogStore{}, s)
	assert.Equal(t, filepath.Join(a.Config.DataDir, "log_transcript.json"), s.(*acquire.JSONLogStore).Path())

	b := testApp(t)
	b.Config.LogStore.Kind = "sqlite"
	s, err = b.LogStore(ctx)
	require.NoError(t, err)
	require.IsType(t, &acquire.SQLiteLogStore{}, s)

	entry := domain.ProcessingLogEntry{URL: "https://youtu.be/abcdefghijk", Status: domain.StatusPending}
	require.NoError(t, s.Put(ctx, entry))
	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestAcquirerBuilds(t *testing.T) {
	a := testApp(t)
	acq, err := a.Acquirer(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, acq)
}

func TestStagesBuild(t *testing.T) {
	a := testApp(t)
	ch, err := a.Chunker(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, ch)
	tg, err := a.Tagger(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tg)
}

func TestCloseRunsInReverse(t *testing.T) {
	a := testApp(t)
	var order []int
	a.onClose(func() { order = append(order, 1) })
	a.onClose(func() { order = append(order, 2) })
	a.Close()
	assert.Equal(t, []int{2, 1}, order)
	a.Close()
	assert.Equal(t, []int{2, 1}, order)
}
