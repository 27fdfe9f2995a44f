package embedding

import "context"

// Embedder converts free text into a numeric vector representation.
// The same instance must embed both the indexed chunks and the questions.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Fitter is implemented by embedders whose vector space is derived from the
// corpus being indexed. Fit must not modify the receiver.
type Fitter interface {
	Fit(corpus []string) (Embedder, error)
}
