package domain

import "errors"

// Domain errors - wrapped with %w by the layer that hits them
var (
	// ErrExtraction indicates a document could not be opened or parsed
	ErrExtraction = errors.New("extraction failed")

	// ErrChunking indicates an invalid chunk size / overlap configuration
	ErrChunking = errors.New("invalid chunking configuration")

	// ErrEmbedding indicates the embedding provider or index build failed
	ErrEmbedding = errors.New("embedding failed")

	// ErrRetrieval indicates the question could not be matched against the index
	ErrRetrieval = errors.New("retrieval failed")

	// ErrGeneration indicates the language model call failed
	ErrGeneration = errors.New("generation failed")

	// ErrConfiguration indicates a missing credential or unknown provider
	ErrConfiguration = errors.New("configuration error")

	// ErrNoDocuments indicates the process action was triggered without any PDF
	ErrNoDocuments = errors.New("no documents")

	// ErrNoContent indicates the documents yielded no extractable text
	ErrNoContent = errors.New("no extractable text")
)
