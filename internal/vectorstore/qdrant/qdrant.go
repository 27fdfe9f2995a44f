package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"pdfchat/internal/domain"
	"pdfchat/internal/vectorstore"
)

// Verify interface compliance
var (
	_ vectorstore.Builder = (*Builder)(nil)
	_ vectorstore.Index   = (*Index)(nil)
)

// DefaultCollectionPrefix names collections when no prefix is configured.
const DefaultCollectionPrefix = "pdfchat"

// Config configures the Qdrant REST client.
type Config struct {
	URL              string
	APIKey           string
	CollectionPrefix string
	Timeout          time.Duration
}

// Builder creates one fresh cosine collection per Build.
type Builder struct {
	url    string
	apiKey string
	prefix string
	client *http.Client
	logger *slog.Logger
}

// NewBuilder returns a Qdrant-backed Builder.
func NewBuilder(cfg Config, logger *slog.Logger) *Builder {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	prefix := cfg.CollectionPrefix
	if prefix == "" {
		prefix = DefaultCollectionPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		prefix: prefix,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Build creates the collection, upserts every chunk and returns the Index.
// On any failure the collection is dropped.
func (b *Builder) Build(ctx context.Context, chunks []domain.Chunk, vectors [][]float64) (vectorstore.Index, error) {
	if len(chunks) != len(vectors) {
		return nil, errors.New("chunks and vectors length mismatch")
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, errors.New("nothing to index")
	}
	idx := &Index{
		builder:    b,
		collection: fmt.Sprintf("%s-%s", b.prefix, uuid.NewString()),
		dimension:  len(vectors[0]),
		size:       len(chunks),
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     idx.dimension,
			"distance": "Cosine",
		},
	}
	if err := b.do(ctx, http.MethodPut, idx.path(""), body, nil); err != nil {
		return nil, err
	}

	points := make([]map[string]any, len(chunks))
	for i := range chunks {
		if len(vectors[i]) != idx.dimension {
			idx.drop()
			return nil, errors.New("vector dimension mismatch")
		}
		points[i] = map[string]any{
			"id":     chunks[i].Index,
			"vector": vectors[i],
			"payload": map[string]any{
				"index": chunks[i].Index,
				"text":  chunks[i].Text,
			},
		}
	}
	if err := b.do(ctx, http.MethodPut, idx.path("/points?wait=true"), map[string]any{"points": points}, nil); err != nil {
		idx.drop()
		return nil, err
	}
	b.logger.Debug("qdrant collection built", "collection", idx.collection, "points", len(points))
	return idx, nil
}

// Index is a single Qdrant collection owned by one knowledge base.
type Index struct {
	builder    *Builder
	collection string
	dimension  int
	size       int
}

// Len returns the number of upserted points.
func (x *Index) Len() int { return x.size }

// Search queries the collection and orders hits by score, then chunk index.
func (x *Index) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if len(vector) != x.dimension {
		return nil, errors.New("vector dimension mismatch")
	}
	if topK <= 0 {
		return nil, nil
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload struct {
				Index int    `json:"index"`
				Text  string `json:"text"`
			} `json:"payload"`
		} `json:"result"`
	}
	if err := x.builder.do(ctx, http.MethodPost, x.path("/points/search"), req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.SearchResult{
			Chunk:    domain.Chunk{Text: r.Payload.Text, Index: r.Payload.Index},
			Distance: 1 - r.Score,
		})
	}
	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Distance != results[b].Distance {
			return results[a].Distance < results[b].Distance
		}
		return results[a].Chunk.Index < results[b].Chunk.Index
	})
	return results, nil
}

// Close deletes the collection.
func (x *Index) Close() error {
	return x.builder.do(context.Background(), http.MethodDelete, x.path(""), nil, nil)
}

func (x *Index) drop() {
	if err := x.Close(); err != nil {
		x.builder.logger.Warn("failed to drop qdrant collection", "collection", x.collection, "error", err)
	}
}

func (x *Index) path(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", x.builder.url, x.collection, suffix)
}

func (b *Builder) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.apiKey != "" {
		req.Header.Set("api-key", b.apiKey)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
