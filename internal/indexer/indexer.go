package indexer

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"pdfchat/internal/domain"
	"pdfchat/internal/embedding"
	"pdfchat/internal/vectorstore"
)

// DefaultConcurrency bounds parallel embedding calls.
const DefaultConcurrency = 4

// Indexer turns chunks into a searchable KnowledgeBase.
type Indexer struct {
	embedder    embedding.Embedder
	builder     vectorstore.Builder
	concurrency int
	logger      *slog.Logger
}

// New creates an Indexer. If embedder also implements embedding.Fitter it is
// fitted on each Build's corpus first.
func New(embedder embedding.Embedder, builder vectorstore.Builder, concurrency int, logger *slog.Logger) *Indexer {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{embedder: embedder, builder: builder, concurrency: concurrency, logger: logger}
}

// Build embeds every chunk and builds a new index over them.
func (ix *Indexer) Build(ctx context.Context, chunks []domain.Chunk) (*KnowledgeBase, error) {
	if len(chunks) == 0 {
		return nil, domain.ErrNoContent
	}

	emb := ix.embedder
	if f, ok := emb.(embedding.Fitter); ok {
		corpus := make([]string, len(chunks))
		for i, c := range chunks {
			corpus[i] = c.Text
		}
		fitted, err := f.Fit(corpus)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
		}
		emb = fitted
	}

	vectors := make([][]float64, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.concurrency)
	for i := range chunks {
		g.Go(func() error {
			vec, err := emb.Embed(gctx, chunks[i].Text)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", chunks[i].Index, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		ix.logger.Error("embedding chunks failed", "embedder", emb.Name(), "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
	}

	index, err := ix.builder.Build(ctx, chunks, vectors)
	if err != nil {
		ix.logger.Error("building index failed", "error", err)
		return nil, fmt.Errorf("%w: build index: %w", domain.ErrEmbedding, err)
	}
	ix.logger.Info("knowledge base built", "chunks", len(chunks), "embedder", emb.Name())
	return &KnowledgeBase{embedder: emb, index: index}, nil
}

// KnowledgeBase pairs an index with the embedder that produced its vectors,
// so questions are embedded the same way as the chunks.
type KnowledgeBase struct {
	embedder embedding.Embedder
	index    vectorstore.Index
}

// Len returns the number of indexed chunks.
func (kb *KnowledgeBase) Len() int { return kb.index.Len() }

// Retrieve returns up to k chunks closest to question.
func (kb *KnowledgeBase) Retrieve(ctx context.Context, question string, k int) ([]domain.SearchResult, error) {
	vec, err := kb.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embed question: %w", domain.ErrRetrieval, err)
	}
	results, err := kb.index.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRetrieval, err)
	}
	return results, nil
}

// Close releases the index backend.
func (kb *KnowledgeBase) Close() error { return kb.index.Close() }
