package chunker

import (
	"fmt"

	"pdfchat/internal/domain"
)

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 20
)

// Chunker splits text into fixed-size, overlapping character chunks.
// Sizes are counted in runes so multi-byte characters are never cut.
type Chunker struct {
	chunkSize int
	overlap   int
}

// New validates the size/overlap pair and returns a Chunker.
func New(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrChunking, chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must not be negative, got %d", domain.ErrChunking, overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", domain.ErrChunking, overlap, chunkSize)
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// ChunkSize returns the maximum number of runes per chunk.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns how many runes each chunk shares with its predecessor.
func (c *Chunker) Overlap() int { return c.overlap }

// Split returns the chunks covering text in order. Every chunk after the first
// starts Overlap runes before the end of the previous one; the last chunk may
// be shorter than ChunkSize.
func (c *Chunker) Split(text string) []domain.Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	step := c.chunkSize - c.overlap
	var chunks []domain.Chunk
	for start, idx := 0, 0; ; start, idx = start+step, idx+1 {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, domain.Chunk{Text: string(runes[start:end]), Index: idx})
		if end == len(runes) {
			break
		}
	}
	return chunks
}
