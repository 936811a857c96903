package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100, cfg.Chunk.Size)
	assert.Equal(t, 20, cfg.Chunk.Overlap)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 120*time.Second, cfg.LLM.TagTimeout)
	assert.Equal(t, 5*time.Second, cfg.LLM.Delay)
	assert.Equal(t, 100, cfg.Qdrant.BatchSize)
	assert.Equal(t, "transcript_blocks", cfg.Qdrant.Collection)
	assert.Equal(t, 5, cfg.Retrieval.TopN)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "rizz.yaml", `
data_dir: /srv/rizz
chunk:
  size: 50
  overlap: 10
llm:
  provider: gemini
  delay: 2s
qdrant:
  collection: clips
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/rizz", cfg.DataDir)
	assert.Equal(t, 50, cfg.Chunk.Size)
	assert.Equal(t, 10, cfg.Chunk.Overlap)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, 2*time.Second, cfg.LLM.Delay)
	assert.Equal(t, "clips", cfg.Qdrant.Collection)
	// untouched keys keep their defaults
	assert.Equal(t, 100, cfg.Qdrant.BatchSize)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "rizz.yaml", "qdrant:\n  collection: from_file\n")
	t.Setenv("QDRANT_COLLECTION", "from_env")
	t.Setenv("CHUNK_SIZE", "40")
	t.Setenv("CHUNK_OVERLAP", "5")
	t.Setenv("LLM_DELAY", "250ms")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from_env", cfg.Qdrant.Collection)
	assert.Equal(t, 40, cfg.Chunk.Size)
	assert.Equal(t, 5, cfg.Chunk.Overlap)
	assert.Equal(t, 250*time.Millisecond, cfg.LLM.Delay)
}

func TestBadEnvNumber(t *testing.T) {
	t.Setenv("TOP_N", "five")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOP_N")
}

func TestOverlapMustBeBelowSize(t *testing.T) {
	cfg := Default()
	cfg.Chunk.Overlap = cfg.Chunk.Size
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Overlap")
}

func TestProviderEnum(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Provider = "cohere"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oneof")
}

func TestBatchSizePositive(t *testing.T) {
	cfg := Default()
	cfg.Qdrant.BatchSize = 0
	require.Error(t, cfg.Validate())
}

func TestMinioBucketRequiredWithEndpoint(t *testing.T) {
	cfg := Default()
	cfg.Minio.Endpoint = "localhost:9000"
	require.Error(t, cfg.Validate())
	cfg.Minio.Bucket = "artifacts"
	require.NoError(t, cfg.Validate())
}

func TestDeepSeekKeySelectsEndpoint(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("LLM_BASE_URL", "")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("DEEPSEEK_API_KEY", "ds-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ds-key", cfg.LLM.APIKey)
	assert.Equal(t, "https://api.deepseek.com/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "deepseek-chat", cfg.LLM.Model)
}

func TestProviderKeysFromEnv(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("OPENAI_API_KEY", "o-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "g-key", cfg.LLM.APIKey)
	assert.Equal(t, "o-key", cfg.Embedding.APIKey)
	assert.Equal(t, "o-key", cfg.Whisper.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeFile(t, "bad.yaml", "chunk: [")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLogStorePath(t *testing.T) {
	cfg := Default()
	assert.Equal(t, filepath.Join("data", "log_transcript.json"), cfg.LogStorePath())
	cfg.LogStore.Kind = "sqlite"
	assert.Equal(t, filepath.Join("data", "log_transcript.db"), cfg.LogStorePath())
	cfg.LogStore.Path = "/tmp/x.db"
	assert.Equal(t, "/tmp/x.db", cfg.LogStorePath())
}
