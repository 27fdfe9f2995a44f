package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "tfidf", cfg.Embedder.Type)
	assert.Equal(t, ChunkerConfig{ChunkSize: 1000, Overlap: 20}, cfg.Chunker)
	assert.Equal(t, "memory", cfg.VectorStore.Type)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Zero(t, cfg.Retrieval.ScoreThreshold)

	require.NotNil(t, cfg.LLM.OpenAI)
	assert.Equal(t, "gpt-3.5-turbo", cfg.LLM.OpenAI.Model)
	assert.InDelta(t, 0.3, cfg.LLM.OpenAI.Temperature, 1e-9)
	assert.Equal(t, 120, cfg.LLM.OpenAI.TimeoutSecs)
	assert.Equal(t, 3, cfg.LLM.OpenAI.MaxRetries)
	assert.Equal(t, "OPENAI_API_KEY", cfg.LLM.OpenAI.APIKeyEnv)
	assert.Equal(t, "pdfchat.log", cfg.Log.File)
}

func TestLoad_FillsSelectedProviderDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
embedder:
  type: openai
  cache:
    redis_url: redis://localhost:6379/0
vector_store:
  type: qdrant
llm:
  type: ollama
  ollama:
    model: mistral
    temperature: 0.7
retrieval:
  top_k: 5
  score_threshold: 0.2
chunker:
  chunk_size: 500
  overlap: 50
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, 4, cfg.Embedder.OpenAI.Concurrency)
	assert.Equal(t, "pdfchat:emb:", cfg.Embedder.Cache.Prefix)

	require.NotNil(t, cfg.VectorStore.Qdrant)
	assert.Equal(t, "http://localhost:6333", cfg.VectorStore.Qdrant.URL)
	assert.Equal(t, "pdfchat", cfg.VectorStore.Qdrant.CollectionPrefix)

	require.NotNil(t, cfg.LLM.Ollama)
	assert.Nil(t, cfg.LLM.OpenAI)
	assert.Equal(t, "mistral", cfg.LLM.Ollama.Model)
	assert.InDelta(t, 0.7, cfg.LLM.Ollama.Temperature, 1e-9)
	assert.Equal(t, "http://localhost:11434", cfg.LLM.Ollama.BaseURL)

	assert.Equal(t, RetrievalConfig{TopK: 5, ScoreThreshold: 0.2}, cfg.Retrieval)
	assert.Equal(t, ChunkerConfig{ChunkSize: 500, Overlap: 50}, cfg.Chunker)
}

func TestLoad_DefaultsEachMissingField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
chunker:
  chunk_size: 500
llm:
  type: openai
  openai:
    model: gpt-4o-mini
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ChunkerConfig{ChunkSize: 500, Overlap: 20}, cfg.Chunker)
	require.NotNil(t, cfg.LLM.OpenAI)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.OpenAI.Model)
	assert.InDelta(t, 0.3, cfg.LLM.OpenAI.Temperature, 1e-9)
	assert.Equal(t, 120, cfg.LLM.OpenAI.TimeoutSecs)
	assert.Nil(t, cfg.LLM.Ollama)
	assert.Nil(t, cfg.Embedder.OpenAI)
	assert.Nil(t, cfg.VectorStore.Qdrant)
}

func TestLoad_ExplicitZerosAreKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
chunker:
  chunk_size: 200
  overlap: 0
llm:
  type: ollama
  ollama:
    temperature: 0
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ChunkerConfig{ChunkSize: 200, Overlap: 0}, cfg.Chunker)
	require.NotNil(t, cfg.LLM.Ollama)
	assert.Zero(t, cfg.LLM.Ollama.Temperature)
	assert.Equal(t, "llama3", cfg.LLM.Ollama.Model)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedder: [nope"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Uploads.WatchDir = "/tmp/uploads"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadDefault_WritesUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "pdfchat", "config.yaml"), path)
	assert.FileExists(t, path)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestAPIKey_FromEnv(t *testing.T) {
	t.Setenv("PDFCHAT_TEST_KEY", "sk-123")
	assert.Equal(t, "sk-123", (&OpenAIChatConfig{APIKeyEnv: "PDFCHAT_TEST_KEY"}).APIKey())
	assert.Equal(t, "sk-123", (&OpenAIEmbedderConfig{APIKeyEnv: "PDFCHAT_TEST_KEY"}).APIKey())
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LogConfig{Level: "debug"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, LogConfig{Level: "WARN"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LogConfig{Level: "loud"}.SlogLevel())
}
