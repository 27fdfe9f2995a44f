package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"pdfchat/internal/chunker"
	"pdfchat/internal/config"
	"pdfchat/internal/domain"
	"pdfchat/internal/embedding"
	"pdfchat/internal/embedding/cache"
	"pdfchat/internal/embedding/openai"
	"pdfchat/internal/embedding/tfidf"
	"pdfchat/internal/llm"
	"pdfchat/internal/llm/ollama"
	openaichat "pdfchat/internal/llm/openai"
	"pdfchat/internal/summarizer"
	"pdfchat/internal/vectorstore"
	"pdfchat/internal/vectorstore/memory"
	"pdfchat/internal/vectorstore/qdrant"
)

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

// unavailableEmbedder reports why the configured embedder could not be built,
// so processing fails with a message instead of the program exiting.
type unavailableEmbedder struct{ err error }

func (u unavailableEmbedder) Name() string { return "unavailable" }

func (u unavailableEmbedder) Embed(context.Context, string) ([]float64, error) { return nil, u.err }

func newEmbedder(cfg config.EmbedderConfig, logger *slog.Logger) (embedding.Embedder, func(), error) {
	noop := func() {}
	switch cfg.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(), noop, nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, nil, errors.New("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKey:     cfg.OpenAI.APIKey(),
			Model:      cfg.OpenAI.Model,
			Timeout:    secs(cfg.OpenAI.TimeoutSecs),
			MaxRetries: cfg.OpenAI.MaxRetries,
		})
		if errors.Is(err, domain.ErrConfiguration) {
			logger.Warn("embeddings credential missing; processing will fail until it is set", "env", cfg.OpenAI.APIKeyEnv)
			return unavailableEmbedder{err: err}, noop, nil
		}
		if err != nil {
			return nil, nil, err
		}
		if cfg.Cache == nil || cfg.Cache.RedisURL == "" {
			return client, noop, nil
		}
		opts, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		logger.Info("embedding cache enabled", "addr", opts.Addr)
		return cache.New(client, rdb, cfg.Cache.Prefix, secs(cfg.Cache.TTLSecs), logger), func() { _ = rdb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

func newIndexBuilder(cfg config.VectorStoreConfig, logger *slog.Logger) (vectorstore.Builder, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.NewBuilder(), nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, errors.New("qdrant config missing")
		}
		return qdrant.NewBuilder(qdrant.Config{
			URL:              cfg.Qdrant.URL,
			APIKey:           cfg.Qdrant.APIKey,
			CollectionPrefix: cfg.Qdrant.CollectionPrefix,
			Timeout:          secs(cfg.Qdrant.TimeoutSecs),
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

// newChatModel returns a nil model when the provider's credential is missing.
func newChatModel(cfg config.LLMConfig) (llm.ChatModel, error) {
	switch cfg.Type {
	case "openai", "":
		if cfg.OpenAI == nil {
			return nil, errors.New("openai llm config missing")
		}
		client, err := openaichat.NewClient(openaichat.Config{
			BaseURL:     cfg.OpenAI.BaseURL,
			APIKey:      cfg.OpenAI.APIKey(),
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.OpenAI.Temperature,
			Timeout:     secs(cfg.OpenAI.TimeoutSecs),
			MaxRetries:  cfg.OpenAI.MaxRetries,
		})
		if errors.Is(err, domain.ErrConfiguration) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return client, nil
	case "ollama":
		if cfg.Ollama == nil {
			return nil, errors.New("ollama llm config missing")
		}
		return ollama.NewClient(ollama.Config{
			BaseURL:     cfg.Ollama.BaseURL,
			Model:       cfg.Ollama.Model,
			Temperature: cfg.Ollama.Temperature,
			Timeout:     secs(cfg.Ollama.TimeoutSecs),
			MaxRetries:  cfg.Ollama.MaxRetries,
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm: %s", cfg.Type)
	}
}

func newChunker(cfg config.ChunkerConfig) (*chunker.Chunker, error) {
	return chunker.New(cfg.ChunkSize, cfg.Overlap)
}

func newSummarizer(cfg config.SummarizerConfig) (summarizer.Summarizer, error) {
	switch cfg.Type {
	case "frequency", "":
		return summarizer.NewFrequency(cfg.MaxSentences), nil
	case "none":
		return summarizer.None{}, nil
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", cfg.Type)
	}
}
