// Package embedder provides interfaces and implementations for text embedding.
package embedder

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned when the embedding service responds
// with a vector whose dimension differs from the store's. The check
// runs in the client, before any vector reaches retrieval.
var ErrDimensionMismatch = errors.New("embedder: embedding dimension mismatch")

// Embedder defines the interface for text embedding services.
type Embedder interface {
	// Embed generates an embedding vector for a single text input.
	// Implementations apply a bounded timeout and never fall back to
	// an empty vector; callers decide whether to retry.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the dimensionality the vectors must have.
	Dimension() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string
}
