package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
	Concurrency int    `yaml:"concurrency"`
}

// APIKey reads the credential from the configured environment variable.
func (c *OpenAIEmbedderConfig) APIKey() string { return os.Getenv(c.APIKeyEnv) }

// CacheConfig enables the Redis embedding cache when RedisURL is set.
type CacheConfig struct {
	RedisURL string `yaml:"redis_url"`
	TTLSecs  int    `yaml:"ttl_secs"`
	Prefix   string `yaml:"prefix"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
	Cache  *CacheConfig          `yaml:"cache,omitempty"`
}

// ChunkerConfig configures how extracted text is split into chunks.
type ChunkerConfig struct {
	ChunkSize int `yaml:"chunk_size"`
	Overlap   int `yaml:"overlap"`
}

// VectorStoreConfig selects and configures the vector index backend.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant server.
type QdrantConfig struct {
	URL              string `yaml:"url"`
	APIKey           string `yaml:"api_key"`
	CollectionPrefix string `yaml:"collection_prefix"`
	TimeoutSecs      int    `yaml:"timeout_secs"`
}

// OpenAIChatConfig configures the OpenAI chat completions provider.
type OpenAIChatConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries"`
}

// APIKey reads the credential from the configured environment variable.
func (c *OpenAIChatConfig) APIKey() string { return os.Getenv(c.APIKeyEnv) }

// OllamaChatConfig configures a local Ollama server.
type OllamaChatConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries"`
}

// LLMConfig selects and configures the language model provider.
type LLMConfig struct {
	Type   string            `yaml:"type"`
	OpenAI *OpenAIChatConfig `yaml:"openai,omitempty"`
	Ollama *OllamaChatConfig `yaml:"ollama,omitempty"`
}

// RetrievalConfig tunes how many chunks back each answer.
type RetrievalConfig struct {
	TopK           int     `yaml:"top_k"`
	ScoreThreshold float64 `yaml:"score_threshold"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// UploadsConfig configures the optional upload directory watcher.
type UploadsConfig struct {
	WatchDir string `yaml:"watch_dir"`
}

// LogConfig configures the slog output.
type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// SlogLevel parses Level, falling back to info.
func (c LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.Level))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	LLM         LLMConfig         `yaml:"llm"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	Uploads     UploadsConfig     `yaml:"uploads"`
	Log         LogConfig         `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	// Decode over a fully populated config so keys missing from the file keep
	// their defaults while explicit zeros (overlap: 0, temperature: 0) survive.
	cfg := baseConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	pruneUnselected(cfg)
	applyConfigDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/pdfchat/config.yaml.
// If neither exists, it writes defaults to ~/.config/pdfchat/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pdfchat", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := baseConfig()
	pruneUnselected(cfg)
	applyConfigDefaults(cfg)
	return cfg
}

// baseConfig holds every default, including blocks for providers that are not selected.
func baseConfig() *AppConfig {
	return &AppConfig{
		Embedder: EmbedderConfig{
			Type: "tfidf",
			OpenAI: &OpenAIEmbedderConfig{
				BaseURL:     "https://api.openai.com/v1",
				APIKeyEnv:   "OPENAI_API_KEY",
				Model:       "text-embedding-3-small",
				TimeoutSecs: 30,
				MaxRetries:  3,
				Concurrency: 4,
			},
		},
		Chunker: ChunkerConfig{ChunkSize: 1000, Overlap: 20},
		VectorStore: VectorStoreConfig{
			Type:   "memory",
			Qdrant: &QdrantConfig{URL: "http://localhost:6333", CollectionPrefix: "pdfchat", TimeoutSecs: 15},
		},
		LLM: LLMConfig{
			Type: "openai",
			OpenAI: &OpenAIChatConfig{
				BaseURL:     "https://api.openai.com/v1",
				APIKeyEnv:   "OPENAI_API_KEY",
				Model:       "gpt-3.5-turbo",
				Temperature: 0.3,
				TimeoutSecs: 120,
				MaxRetries:  3,
			},
			Ollama: &OllamaChatConfig{
				BaseURL:     "http://localhost:11434",
				Model:       "llama3",
				Temperature: 0.3,
				TimeoutSecs: 120,
				MaxRetries:  3,
			},
		},
		Retrieval:  RetrievalConfig{TopK: 3},
		Summarizer: SummarizerConfig{Type: "frequency", MaxSentences: 3},
		Log:        LogConfig{File: "pdfchat.log", Level: "info"},
	}
}

// pruneUnselected drops provider blocks the selected types do not use.
func pruneUnselected(cfg *AppConfig) {
	if cfg.Embedder.Type != "openai" {
		cfg.Embedder.OpenAI = nil
	}
	if cfg.VectorStore.Type != "qdrant" {
		cfg.VectorStore.Qdrant = nil
	}
	if cfg.LLM.Type != "openai" {
		cfg.LLM.OpenAI = nil
	}
	if cfg.LLM.Type != "ollama" {
		cfg.LLM.Ollama = nil
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "tfidf"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		o := cfg.Embedder.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-3-small"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
		if o.MaxRetries == 0 {
			o.MaxRetries = 3
		}
		if o.Concurrency == 0 {
			o.Concurrency = 4
		}
	}
	if c := cfg.Embedder.Cache; c != nil && c.Prefix == "" {
		c.Prefix = "pdfchat:emb:"
	}

	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 1000
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.VectorStore.Type == "qdrant" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		q := cfg.VectorStore.Qdrant
		if q.URL == "" {
			q.URL = "http://localhost:6333"
		}
		if q.CollectionPrefix == "" {
			q.CollectionPrefix = "pdfchat"
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 15
		}
	}

	if cfg.LLM.Type == "" {
		cfg.LLM.Type = "openai"
	}
	switch cfg.LLM.Type {
	case "openai":
		if cfg.LLM.OpenAI == nil {
			cfg.LLM.OpenAI = &OpenAIChatConfig{Temperature: 0.3}
		}
		o := cfg.LLM.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "gpt-3.5-turbo"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 120
		}
		if o.MaxRetries == 0 {
			o.MaxRetries = 3
		}
	case "ollama":
		if cfg.LLM.Ollama == nil {
			cfg.LLM.Ollama = &OllamaChatConfig{Temperature: 0.3}
		}
		o := cfg.LLM.Ollama
		if o.BaseURL == "" {
			o.BaseURL = "http://localhost:11434"
		}
		if o.Model == "" {
			o.Model = "llama3"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 120
		}
		if o.MaxRetries == 0 {
			o.MaxRetries = 3
		}
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = "frequency"
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 3
	}
	if cfg.Log.File == "" {
		cfg.Log.File = "pdfchat.log"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
