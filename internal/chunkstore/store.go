// Package chunkstore provides storage interfaces and implementations for
// the chunk embeddings persisted by the ContentVault pipeline.
package chunkstore

import (
	"context"
	"time"

	"github.com/localrivet/contentvault/internal/vector"
)

const (
	// DefaultSubBatchSize is the number of rows written per transaction.
	DefaultSubBatchSize = 25

	// DefaultSubBatchDelay is the pacing delay between sub-batches.
	DefaultSubBatchDelay = 100 * time.Millisecond

	// DefaultSimilarityThreshold is the similarity a stored chunk must
	// exceed to count as a retrieval match.
	DefaultSimilarityThreshold = 0.3

	// DefaultTopK is the maximum number of retrieval matches returned.
	DefaultTopK = 4
)

// SearchResult is one retrieval match: a stored chunk and its cosine
// similarity to the query vector. Results are computed per query and
// never persisted.
type SearchResult struct {
	ContentID  string
	Index      int
	Text       string
	Similarity float64
}

// ChunkStore defines the interface for storing and retrieving chunk
// embeddings.
type ChunkStore interface {
	// Initialize initializes the store with configuration options.
	Initialize(dbPath string) error

	// Close closes the store and releases any resources.
	Close() error

	// StoreChunks persists the ordered embeddings under the given content
	// identifier. Writes happen in bounded sub-batches; on failure,
	// already committed sub-batches are NOT rolled back, so callers must
	// treat the content as partially applied and recover by deleting and
	// re-ingesting.
	StoreChunks(ctx context.Context, contentID string, embeddings []vector.Embedding) error

	// Search scans all stored vectors, keeps those whose similarity
	// strictly exceeds the threshold, and returns at most topK results
	// ordered by descending similarity.
	Search(ctx context.Context, queryEmbedding []float32, threshold float64, topK int) ([]SearchResult, error)

	// DeleteContent removes every chunk belonging to the content identifier.
	DeleteContent(ctx context.Context, contentID string) error

	// Clear removes all stored chunks.
	Clear(ctx context.Context) error

	// Count returns the number of stored chunk rows.
	Count(ctx context.Context) (int64, error)
}
