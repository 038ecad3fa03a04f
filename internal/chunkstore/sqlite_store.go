package chunkstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"crawshaw.io/sqlite"
	"github.com/localrivet/contentvault/internal/telemetry"
	"github.com/localrivet/contentvault/internal/vector"
)

// SQLiteChunkStore is an implementation of ChunkStore that uses SQLite.
// A single connection is shared, so all operations serialize on an
// internal mutex; concurrent ingestions for different content identifiers
// interleave at sub-batch granularity.
type SQLiteChunkStore struct {
	conn   *sqlite.Conn
	dbPath string

	subBatchSize  int
	subBatchDelay time.Duration

	metrics *telemetry.MetricsCollector
	mu      sync.Mutex
}

// NewSQLiteChunkStore creates a new SQLiteChunkStore instance with the
// default sub-batch settings.
func NewSQLiteChunkStore() *SQLiteChunkStore {
	return &SQLiteChunkStore{
		subBatchSize:  DefaultSubBatchSize,
		subBatchDelay: DefaultSubBatchDelay,
		metrics:       telemetry.NewMetricsCollector(),
	}
}

// SetSubBatch overrides the sub-batch size and pacing delay. Zero or
// negative values keep the current settings.
func (s *SQLiteChunkStore) SetSubBatch(size int, delay time.Duration) {
	if size > 0 {
		s.subBatchSize = size
	}
	if delay >= 0 {
		s.subBatchDelay = delay
	}
}

// Metrics returns the metrics collector for this store.
func (s *SQLiteChunkStore) Metrics() *telemetry.MetricsCollector {
	return s.metrics
}

// Initialize initializes the store with the given database path.
func (s *SQLiteChunkStore) Initialize(dbPath string) error {
	s.dbPath = dbPath

	// Open the SQLite database
	conn, err := sqlite.OpenConn(dbPath, sqlite.SQLITE_OPEN_CREATE|sqlite.SQLITE_OPEN_READWRITE)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}
	s.conn = conn

	// Create the table if it doesn't exist
	err = s.createTable()
	if err != nil {
		// Close the connection on error
		s.conn.Close()
		return fmt.Errorf("failed to create table: %w", err)
	}

	return nil
}

// createTable creates the content_chunks table if it doesn't exist.
func (s *SQLiteChunkStore) createTable() error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS content_chunks (
		content_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		chunk_text TEXT NOT NULL,
		embedding BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (content_id, chunk_index)
	);`

	return s.exec(createTableSQL)
}

// exec prepares and runs a statement that takes no bind parameters.
func (s *SQLiteChunkStore) exec(sql string) error {
	stmt, err := s.conn.Prepare(sql)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Reset()

	_, err = stmt.Step()
	if err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}

	return nil
}

// Close closes the store and releases any resources.
func (s *SQLiteChunkStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// StoreChunks persists the ordered embeddings for a content item in
// sub-batches of subBatchSize rows, one transaction per sub-batch, with
// a pacing delay between sub-batches. A failed sub-batch aborts the
// whole write; sub-batches committed before it stay committed.
func (s *SQLiteChunkStore) StoreChunks(ctx context.Context, contentID string, embeddings []vector.Embedding) error {
	if contentID == "" {
		return fmt.Errorf("content id must not be empty")
	}
	if len(embeddings) == 0 {
		return nil
	}

	now := time.Now().Unix()

	for start := 0; start < len(embeddings); start += s.subBatchSize {
		end := start + s.subBatchSize
		if end > len(embeddings) {
			end = len(embeddings)
		}

		if err := s.writeSubBatch(contentID, embeddings[start:end], start, now); err != nil {
			return fmt.Errorf("sub-batch starting at chunk %d failed (%d rows already committed): %w",
				start, start, err)
		}

		s.metrics.IncrementCounter(telemetry.MetricStoreBatches, 1)
		s.metrics.IncrementCounter(telemetry.MetricStoreRows, int64(end-start))

		// Pace sub-batches so bulk ingestion does not monopolize the store.
		if end < len(embeddings) && s.subBatchDelay > 0 {
			timer := time.NewTimer(s.subBatchDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	return nil
}

// writeSubBatch inserts one sub-batch of rows inside a single transaction.
func (s *SQLiteChunkStore) writeSubBatch(contentID string, embeddings []vector.Embedding, indexOffset int, createdAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.exec("BEGIN IMMEDIATE;"); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	insertSQL := `
	INSERT OR REPLACE INTO content_chunks (content_id, chunk_index, chunk_text, embedding, created_at)
	VALUES (?, ?, ?, ?, ?);`

	for i, embedding := range embeddings {
		embeddingBytes, err := vector.Float32SliceToBytes(embedding.Vector)
		if err != nil {
			s.exec("ROLLBACK;")
			return fmt.Errorf("failed to encode embedding: %w", err)
		}

		stmt, err := s.conn.Prepare(insertSQL)
		if err != nil {
			s.exec("ROLLBACK;")
			return fmt.Errorf("failed to prepare insert statement: %w", err)
		}

		// Bind parameters - indices in sqlite are 1-based
		stmt.BindText(1, contentID)
		stmt.BindInt64(2, int64(indexOffset+i))
		stmt.BindText(3, embedding.Text)
		stmt.BindBytes(4, embeddingBytes)
		stmt.BindInt64(5, createdAt)

		_, err = stmt.Step()
		stmt.Reset()
		if err != nil {
			s.exec("ROLLBACK;")
			return fmt.Errorf("failed to insert chunk row: %w", err)
		}
	}

	if err := s.exec("COMMIT;"); err != nil {
		s.exec("ROLLBACK;")
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Search scans every stored vector, computes cosine similarity against
// the query, drops rows at or below the threshold, and returns the topK
// best matches in descending similarity order.
func (s *SQLiteChunkStore) Search(ctx context.Context, queryEmbedding []float32, threshold float64, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	queryStart := time.Now()
	s.metrics.IncrementCounter(telemetry.MetricRetrievalQueries, 1)

	s.mu.Lock()
	defer s.mu.Unlock()

	selectSQL := `
	SELECT content_id, chunk_index, chunk_text, embedding FROM content_chunks
	ORDER BY content_id, chunk_index;`

	stmt, err := s.conn.Prepare(selectSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Reset()

	var results []SearchResult

	// Execute the query and process results
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		hasRow, err := stmt.Step()
		if err != nil {
			return nil, fmt.Errorf("failed to execute select statement: %w", err)
		}
		if !hasRow {
			break // No more rows
		}

		// Column indices are 0-based
		contentID := stmt.ColumnText(0)
		chunkIndex := int(stmt.ColumnInt64(1))
		chunkText := stmt.ColumnText(2)

		// For binary data, we need to create a buffer and use ColumnBytes to fill it
		embeddingBytesLen := stmt.ColumnLen(3)
		embeddingBytes := make([]byte, embeddingBytesLen)
		stmt.ColumnBytes(3, embeddingBytes)

		storedEmbedding, err := vector.BytesToFloat32Slice(embeddingBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to decode embedding for %s[%d]: %w", contentID, chunkIndex, err)
		}

		similarity, err := vector.CosineSimilarity(queryEmbedding, storedEmbedding)
		if err != nil {
			return nil, fmt.Errorf("failed to calculate similarity for %s[%d]: %w", contentID, chunkIndex, err)
		}

		// The threshold is exclusive: a score equal to it is not a match.
		if similarity <= threshold {
			continue
		}

		results = append(results, SearchResult{
			ContentID:  contentID,
			Index:      chunkIndex,
			Text:       chunkText,
			Similarity: similarity,
		})
	}

	// Sort by similarity (highest first); the stable sort keeps the scan
	// order for equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > topK {
		results = results[:topK]
	}

	s.metrics.IncrementCounter(telemetry.MetricRetrievalResults, int64(len(results)))
	s.metrics.RecordTimer(telemetry.MetricRetrievalTime, time.Since(queryStart))

	return results, nil
}

// DeleteContent removes every chunk belonging to the content identifier.
func (s *SQLiteChunkStore) DeleteContent(ctx context.Context, contentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deleteSQL := `DELETE FROM content_chunks WHERE content_id = ?;`

	stmt, err := s.conn.Prepare(deleteSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}
	defer stmt.Reset()

	stmt.BindText(1, contentID)

	_, err = stmt.Step()
	if err != nil {
		return fmt.Errorf("failed to delete content chunks: %w", err)
	}

	return nil
}

// Clear removes all stored chunks.
func (s *SQLiteChunkStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.exec("DELETE FROM content_chunks;")
}

// Count returns the number of stored chunk rows.
func (s *SQLiteChunkStore) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, err := s.conn.Prepare("SELECT COUNT(*) FROM content_chunks;")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare count statement: %w", err)
	}
	defer stmt.Reset()

	hasRow, err := stmt.Step()
	if err != nil {
		return 0, fmt.Errorf("failed to execute count statement: %w", err)
	}
	if !hasRow {
		return 0, nil
	}

	return stmt.ColumnInt64(0), nil
}
