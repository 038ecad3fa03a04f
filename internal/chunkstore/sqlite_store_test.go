package chunkstore

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/localrivet/contentvault/internal/telemetry"
	"github.com/localrivet/contentvault/internal/vector"
)

// newTestStore opens a store against a throwaway database file with
// sub-batch pacing disabled so tests run fast.
func newTestStore(t *testing.T) *SQLiteChunkStore {
	t.Helper()

	store := NewSQLiteChunkStore()
	store.SetSubBatch(DefaultSubBatchSize, 0)

	dbPath := filepath.Join(t.TempDir(), "chunks.db")
	if err := store.Initialize(dbPath); err != nil {
		t.Fatalf("Initialize(%q) error = %v", dbPath, err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func TestStoreAndSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	embeddings := []vector.Embedding{
		{Text: "exact match chunk", Vector: []float32{1, 0, 0, 0}},
		{Text: "orthogonal chunk", Vector: []float32{0, 1, 0, 0}},
		{Text: "near match chunk", Vector: []float32{0.9, 0.1, 0, 0}},
	}

	if err := store.StoreChunks(ctx, "content-1", embeddings); err != nil {
		t.Fatalf("StoreChunks() error = %v", err)
	}

	// Query identical to a stored vector must rank first with similarity
	// of about 1.0; the orthogonal vector falls below the threshold.
	results, err := store.Search(ctx, []float32{1, 0, 0, 0}, DefaultSimilarityThreshold, DefaultTopK)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d: %+v", len(results), results)
	}
	if results[0].Text != "exact match chunk" {
		t.Errorf("Expected exact match first, got %q", results[0].Text)
	}
	if math.Abs(results[0].Similarity-1.0) > 1e-6 {
		t.Errorf("Expected similarity ~1.0 for identical vectors, got %f", results[0].Similarity)
	}
	if results[1].Text != "near match chunk" {
		t.Errorf("Expected near match second, got %q", results[1].Text)
	}
	if results[0].Similarity < results[1].Similarity {
		t.Errorf("Results not ordered by descending similarity: %+v", results)
	}
}

func TestSearchTopK(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Six chunks with progressively weaker alignment to the query axis.
	var embeddings []vector.Embedding
	for i := 0; i < 6; i++ {
		embeddings = append(embeddings, vector.Embedding{
			Text:   fmt.Sprintf("chunk %d", i),
			Vector: []float32{1, float32(i) * 0.3, 0, 0},
		})
	}

	if err := store.StoreChunks(ctx, "content-1", embeddings); err != nil {
		t.Fatalf("StoreChunks() error = %v", err)
	}

	results, err := store.Search(ctx, []float32{1, 0, 0, 0}, 0.3, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("Expected topK to cap results at 2, got %d", len(results))
	}
	if results[0].Text != "chunk 0" {
		t.Errorf("Expected best-aligned chunk first, got %q", results[0].Text)
	}
	if results[0].Similarity < results[1].Similarity {
		t.Errorf("Results not ordered by descending similarity: %+v", results)
	}
}

func TestSearchThresholdFiltersAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.StoreChunks(ctx, "content-1", []vector.Embedding{
		{Text: "unrelated", Vector: []float32{0, 1, 0, 0}},
	})
	if err != nil {
		t.Fatalf("StoreChunks() error = %v", err)
	}

	results, err := store.Search(ctx, []float32{1, 0, 0, 0}, 0.3, 4)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected no results above threshold, got %+v", results)
	}
}

func TestSearchThresholdIsExclusive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.StoreChunks(ctx, "content-1", []vector.Embedding{
		{Text: "aligned", Vector: []float32{1, 0, 0, 0}},
		{Text: "orthogonal", Vector: []float32{0, 1, 0, 0}},
	})
	if err != nil {
		t.Fatalf("StoreChunks() error = %v", err)
	}

	// The orthogonal chunk scores exactly 0; a score equal to the
	// threshold must not be returned.
	results, err := store.Search(ctx, []float32{1, 0, 0, 0}, 0.0, 4)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].Text != "aligned" {
		t.Errorf("Expected only the aligned chunk above threshold 0, got %+v", results)
	}

	// The aligned chunk scores exactly 1 against an identical query and
	// must be excluded when the threshold is 1.
	results, err = store.Search(ctx, []float32{1, 0, 0, 0}, 1.0, 4)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected no results at threshold 1, got %+v", results)
	}
}

func TestStoreChunksSubBatching(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	embeddings := make([]vector.Embedding, 60)
	for i := range embeddings {
		embeddings[i] = vector.Embedding{
			Text:   fmt.Sprintf("chunk %d", i),
			Vector: []float32{float32(i + 1), 1, 0, 0},
		}
	}

	if err := store.StoreChunks(ctx, "content-1", embeddings); err != nil {
		t.Fatalf("StoreChunks() error = %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 60 {
		t.Errorf("Expected 60 rows, got %d", count)
	}

	// 60 rows with a sub-batch size of 25 means 3 transactions.
	metrics := store.Metrics()
	if got := metrics.GetCounter(telemetry.MetricStoreBatches); got != 3 {
		t.Errorf("Expected 3 sub-batches, got %d", got)
	}
	if got := metrics.GetCounter(telemetry.MetricStoreRows); got != 60 {
		t.Errorf("Expected 60 rows written, got %d", got)
	}
}

func TestStoreChunksReingestReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := []vector.Embedding{
		{Text: "original text", Vector: []float32{1, 0, 0, 0}},
	}
	if err := store.StoreChunks(ctx, "content-1", first); err != nil {
		t.Fatalf("StoreChunks() first error = %v", err)
	}

	second := []vector.Embedding{
		{Text: "replacement text", Vector: []float32{1, 0, 0, 0}},
	}
	if err := store.StoreChunks(ctx, "content-1", second); err != nil {
		t.Fatalf("StoreChunks() second error = %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 row after re-ingest, got %d", count)
	}

	results, err := store.Search(ctx, []float32{1, 0, 0, 0}, 0.3, 4)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].Text != "replacement text" {
		t.Errorf("Expected replacement text, got %+v", results)
	}
}

func TestDeleteContent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, contentID := range []string{"content-1", "content-2"} {
		err := store.StoreChunks(ctx, contentID, []vector.Embedding{
			{Text: "chunk for " + contentID, Vector: []float32{1, 0, 0, 0}},
		})
		if err != nil {
			t.Fatalf("StoreChunks(%q) error = %v", contentID, err)
		}
	}

	if err := store.DeleteContent(ctx, "content-1"); err != nil {
		t.Fatalf("DeleteContent() error = %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 row after delete, got %d", count)
	}

	results, err := store.Search(ctx, []float32{1, 0, 0, 0}, 0.3, 4)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].ContentID != "content-2" {
		t.Errorf("Expected only content-2 to remain, got %+v", results)
	}
}

func TestClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.StoreChunks(ctx, "content-1", []vector.Embedding{
		{Text: "a chunk", Vector: []float32{1, 0, 0, 0}},
	})
	if err != nil {
		t.Fatalf("StoreChunks() error = %v", err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Expected empty store after Clear, got %d rows", count)
	}
}

func TestStoreChunksValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.StoreChunks(ctx, "", []vector.Embedding{
		{Text: "a chunk", Vector: []float32{1, 0, 0, 0}},
	})
	if err == nil {
		t.Error("Expected error for empty content id, got nil")
	}

	// Storing zero embeddings is a no-op, not an error.
	if err := store.StoreChunks(ctx, "content-1", nil); err != nil {
		t.Errorf("StoreChunks() with no embeddings error = %v", err)
	}
}
