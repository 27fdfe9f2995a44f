package memory

import (
	"context"
	"errors"
	"math"
	"sort"

	"pdfchat/internal/domain"
	"pdfchat/internal/vectorstore"
)

// Verify interface compliance
var (
	_ vectorstore.Builder = Builder{}
	_ vectorstore.Index   = (*Index)(nil)
)

// Builder builds in-memory indexes.
type Builder struct{}

// NewBuilder returns a Builder for in-memory brute-force indexes.
func NewBuilder() Builder { return Builder{} }

// Build copies chunks and vectors into a new Index.
func (Builder) Build(_ context.Context, chunks []domain.Chunk, vectors [][]float64) (vectorstore.Index, error) {
	if len(chunks) != len(vectors) {
		return nil, errors.New("chunks and vectors length mismatch")
	}
	if len(vectors) == 0 {
		return nil, errors.New("nothing to index")
	}
	dimension := len(vectors[0])
	if dimension == 0 {
		return nil, errors.New("invalid dimension")
	}
	idx := &Index{
		dimension: dimension,
		chunks:    make([]domain.Chunk, len(chunks)),
		vectors:   make([][]float64, len(vectors)),
		norms:     make([]float64, len(vectors)),
	}
	copy(idx.chunks, chunks)
	for i, v := range vectors {
		if len(v) != dimension {
			return nil, errors.New("vector dimension mismatch")
		}
		idx.vectors[i] = append([]float64(nil), v...)
		idx.norms[i] = norm(v)
	}
	return idx, nil
}

// Index is an immutable brute-force cosine index. Safe for concurrent Search.
type Index struct {
	dimension int
	chunks    []domain.Chunk
	vectors   [][]float64
	norms     []float64
}

// Len returns the number of indexed chunks.
func (s *Index) Len() int { return len(s.chunks) }

// Search scans every vector and returns the topK closest by cosine distance.
func (s *Index) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if len(vector) != s.dimension {
		return nil, errors.New("vector dimension mismatch")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, nil
	}
	qn := norm(vector)
	results := make([]domain.SearchResult, len(s.vectors))
	for i := range s.vectors {
		results[i] = domain.SearchResult{
			Chunk:    s.chunks[i],
			Distance: distance(s.vectors[i], s.norms[i], vector, qn),
		}
	}
	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Distance != results[b].Distance {
			return results[a].Distance < results[b].Distance
		}
		return results[a].Chunk.Index < results[b].Chunk.Index
	})
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

// Close drops the stored vectors.
func (s *Index) Close() error {
	s.chunks = nil
	s.vectors = nil
	s.norms = nil
	return nil
}

// distance is 1 - cosine similarity; a zero vector is at distance 1 from everything.
func distance(a []float64, an float64, b []float64, bn float64) float64 {
	if an == 0 || bn == 0 {
		return 1
	}
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return 1 - sum/(an*bn)
}

func norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
