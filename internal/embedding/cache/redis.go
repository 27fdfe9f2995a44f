package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"pdfchat/internal/embedding"
)

// Verify interface compliance
var _ embedding.Embedder = (*Embedder)(nil)

// DefaultPrefix is used when no key prefix is configured.
const DefaultPrefix = "pdfchat:emb:"

// Embedder caches vectors of a wrapped Embedder in Redis.
// Redis failures are logged and the wrapped embedder is called instead.
type Embedder struct {
	next   embedding.Embedder
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// New wraps next with a Redis cache. A zero ttl keeps entries forever.
func New(next embedding.Embedder, client *redis.Client, prefix string, ttl time.Duration, logger *slog.Logger) *Embedder {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedder{next: next, client: client, prefix: prefix, ttl: ttl, logger: logger}
}

// Name returns the wrapped embedder's name.
func (e *Embedder) Name() string { return e.next.Name() }

// Embed returns the cached vector for text, computing and storing it on a miss.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	key := e.key(text)

	data, err := e.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var vec []float64
		if jerr := json.Unmarshal(data, &vec); jerr == nil && len(vec) > 0 {
			return vec, nil
		}
		e.logger.Warn("discarding malformed cached embedding", "key", key)
	case !errors.Is(err, redis.Nil):
		e.logger.Warn("embedding cache read failed", "error", err)
	}

	vec, err := e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(vec)
	if err != nil {
		return vec, nil
	}
	if err := e.client.Set(ctx, key, data, e.ttl).Err(); err != nil {
		e.logger.Warn("embedding cache write failed", "error", err)
	}
	return vec, nil
}

func (e *Embedder) key(text string) string {
	sum := sha1.Sum([]byte(text))
	return e.prefix + e.next.Name() + ":" + hex.EncodeToString(sum[:])
}
