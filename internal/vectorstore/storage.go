package vectorstore

import (
	"context"

	"pdfchat/internal/domain"
)

// Builder creates a new, fully populated Index from chunks and their vectors.
// vectors[i] belongs to chunks[i]. A failed Build leaves nothing behind.
type Builder interface {
	Build(ctx context.Context, chunks []domain.Chunk, vectors [][]float64) (Index, error)
}

// Index answers nearest-neighbour queries over one immutable set of chunks.
// Search returns up to topK results by ascending distance, ties broken by chunk index.
type Index interface {
	Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error)
	Len() int
	Close() error
}
