// Package vector provides the embedding provider boundary, the batching
// and retry layer in front of it, and utilities for vector operations
// within the ContentVault service.
package vector

import (
	"context"
	"errors"
)

const (
	// DefaultEmbeddingDimensions defines the standard size of embedding vectors.
	// 1536 is a common size for modern embedding models.
	DefaultEmbeddingDimensions = 1536

	// DefaultBatchSize defines how many chunks are processed per group
	// before the batcher inserts the inter-group pacing delay.
	DefaultBatchSize = 25
)

// ErrRateLimited marks a transient embedding failure caused by provider
// throttling. Providers wrap it so the batcher can retry with backoff;
// every other provider error is fatal for the current call.
var ErrRateLimited = errors.New("embedding provider rate limited")

// Embedder defines the interface for creating vector embeddings from text.
type Embedder interface {
	// CreateEmbedding converts text into a vector representation. A
	// rate-limited failure is reported by wrapping ErrRateLimited.
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)

	// Initialize sets up the embedder with any required configuration.
	Initialize() error
}

// IsRateLimited reports whether err was caused by provider throttling.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
