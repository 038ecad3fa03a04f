// Package contentvault provides a text ingestion and retrieval service:
// raw content is split into sentence-bounded chunks, embedded through a
// rate-limit-aware batcher, and persisted in a SQLite-backed vector store
// that answers cosine-similarity queries.
package contentvault

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/localrivet/contentvault/internal/chunker"
	"github.com/localrivet/contentvault/internal/chunkstore"
	"github.com/localrivet/contentvault/internal/config"
	"github.com/localrivet/contentvault/internal/errortypes"
	"github.com/localrivet/contentvault/internal/server"
	"github.com/localrivet/contentvault/internal/vector"
	"github.com/localrivet/contentvault/internal/vector/providers"
)

// Config represents the configuration for the ContentVault service.
type Config = config.Config

// Result is one retrieval match returned by RetrieveContent.
type Result = chunkstore.SearchResult

// Server represents the ContentVault service.
type Server struct {
	config     *config.Config
	store      chunkstore.ChunkStore
	chunker    *chunker.Chunker
	batcher    *vector.Batcher
	toolServer server.ContentToolServer
	logger     *slog.Logger // Logger for this Server instance
}

// ServerOptions defines the options for creating a new Server.
type ServerOptions struct {
	Config     *Config      // Pre-filled config. If nil, ConfigPath is used.
	ConfigPath string       // Path to config file. Used if Config is nil. If both are empty, DefaultConfig() is used.
	Logger     *slog.Logger // External logger. If nil, slog.Default() is used.
}

// NewServer creates a new ContentVault Server with the given options.
// If opts.Config is provided, it will be used directly.
// Otherwise, if opts.ConfigPath is provided, configuration will be loaded from that path.
// If neither is provided, DefaultConfig() will be used.
// If opts.Logger is nil, slog.Default() will be used.
func NewServer(opts ServerOptions) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var cfg *Config
	var err error

	if opts.Config != nil {
		cfg = opts.Config
		logger.Info("Using provided Config object for server initialization")
	} else if opts.ConfigPath != "" {
		logger.Info("Loading configuration for server initialization", "path", opts.ConfigPath)
		cfg, err = config.LoadConfigWithPath(opts.ConfigPath)
		if err != nil {
			logger.Error("Failed to load configuration from path", "path", opts.ConfigPath, "error", err)
			return nil, errortypes.ConfigError(err, "Failed to load configuration from path: "+opts.ConfigPath)
		}
	} else {
		logger.Warn("No Config object or ConfigPath provided, using default configuration for server initialization")
		cfg = DefaultConfig()
	}

	store, splitter, batcher, err := CreateComponents(cfg, logger)
	if err != nil {
		// CreateComponents already logs the specific error
		logger.Error("Failed to create components during server initialization", "error", err)
		return nil, err
	}

	logger.Info("Initializing content tool server component")
	mcpServer := server.NewContentToolServer(store, splitter, batcher)
	err = mcpServer.Initialize() // Note: mcpServer.Initialize still uses global slog internally
	if err != nil {
		logger.Error("Failed to initialize MCP content tool server component", "error", err)
		return nil, errortypes.ConfigError(err, "Failed to initialize MCP content tool server component")
	}

	logger.Info("ContentVault server successfully initialized")
	return &Server{
		config:     cfg,
		store:      store,
		chunker:    splitter,
		batcher:    batcher,
		toolServer: mcpServer,
		logger:     logger, // Store the resolved logger
	}, nil
}

// DefaultConfig returns the default configuration for the ContentVault service.
func DefaultConfig() *Config {
	return config.NewConfig()
}

// SaveConfig renders the configuration as pretty-printed JSON.
func SaveConfig(config *Config) ([]byte, error) {
	content, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return nil, errortypes.ConfigError(err, "failed to marshal configuration")
	}

	return content, nil
}

// Start starts the ContentVault service.
func (s *Server) Start() error {
	s.logger.Info("Starting ContentVault service")
	return s.toolServer.Start()
}

// Stop stops the ContentVault service.
func (s *Server) Stop() error {
	s.logger.Info("Stopping ContentVault service")
	err := s.toolServer.Stop()
	if err != nil {
		s.logger.Error("Error stopping tool server", "error", err)
		return err
	}

	// Close the store
	s.logger.Info("Closing store")
	err = s.store.Close()
	if err != nil {
		s.logger.Error("Failed to close store", "error", err)
		return err
	}

	s.logger.Info("ContentVault service stopped")
	return nil
}

// IngestContent runs the full pipeline on the given text: segmenting,
// chunk assembly, batched embedding, and persistence. It returns the
// identifier assigned to the content and the number of chunks stored.
// The context bounds the whole call including retry backoff sleeps.
func (s *Server) IngestContent(ctx context.Context, text string) (string, int, error) {
	contentID := uuid.New().String()
	count, err := s.ingest(ctx, contentID, text)
	if err != nil {
		return "", 0, err
	}
	return contentID, count, nil
}

// ReingestContent replaces the stored chunks of an existing content item
// with a fresh ingestion of the given text. Existing rows are deleted
// first, so a previous partial write cannot leave stale rows behind.
func (s *Server) ReingestContent(ctx context.Context, contentID, text string) (int, error) {
	if contentID == "" {
		return 0, errortypes.ValidationError(errors.New("content id must not be empty"), "invalid re-ingestion request")
	}

	s.logger.Debug("Deleting existing chunks before re-ingestion", "content_id", contentID)
	if err := s.store.DeleteContent(ctx, contentID); err != nil {
		s.logger.Error("Failed to delete existing chunks", "content_id", contentID, "error", err)
		return 0, errortypes.DatabaseError(err, "failed to delete existing chunks")
	}

	return s.ingest(ctx, contentID, text)
}

// ingest chunks, embeds, and stores one content item.
func (s *Server) ingest(ctx context.Context, contentID, text string) (int, error) {
	s.logger.Debug("Chunking content", "content_id", contentID, "length", len(text))
	chunks := s.chunker.Split(text)
	if len(chunks) == 0 {
		s.logger.Info("Content produced no chunks, nothing to store", "content_id", contentID)
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	s.logger.Debug("Embedding chunks", "content_id", contentID, "chunk_count", len(texts))
	embeddings, err := s.batcher.EmbedChunks(ctx, texts)
	if err != nil {
		s.logger.Error("Failed to embed chunks", "content_id", contentID, "error", err)
		return 0, err
	}

	s.logger.Debug("Storing chunk embeddings", "content_id", contentID, "chunk_count", len(embeddings))
	if err := s.store.StoreChunks(ctx, contentID, embeddings); err != nil {
		s.logger.Error("Failed to store chunk embeddings", "content_id", contentID, "error", err)
		return 0, err
	}

	s.logger.Info("Successfully ingested content", "content_id", contentID, "chunk_count", len(chunks))
	return len(chunks), nil
}

// RetrieveContent embeds the query and returns the stored chunks whose
// similarity exceeds the configured threshold, best match first. Zero
// topK or threshold values fall back to the configured defaults.
func (s *Server) RetrieveContent(ctx context.Context, query string, topK int, threshold float64) ([]Result, error) {
	if topK <= 0 {
		topK = s.config.Retrieval.TopK
	}
	if threshold <= 0 {
		threshold = s.config.Retrieval.Threshold
	}

	s.logger.Debug("Creating embedding for query", "query", query)
	queryEmbedding, err := s.batcher.EmbedQuery(ctx, query)
	if err != nil {
		s.logger.Error("Failed to create embedding for query", "query", query, "error", err)
		return nil, err
	}

	s.logger.Debug("Searching for similar chunks", "top_k", topK, "threshold", threshold)
	results, err := s.store.Search(ctx, queryEmbedding, threshold, topK)
	if err != nil {
		s.logger.Error("Failed to search chunk store", "top_k", topK, "error", err)
		return nil, err
	}

	s.logger.Info("Retrieved chunks", "count", len(results))
	return results, nil
}

// DeleteContent removes every stored chunk of the given content item.
func (s *Server) DeleteContent(ctx context.Context, contentID string) error {
	s.logger.Debug("Deleting content", "content_id", contentID)
	return s.store.DeleteContent(ctx, contentID)
}

// ClearAll removes all stored chunks.
func (s *Server) ClearAll(ctx context.Context) error {
	s.logger.Warn("Clearing all stored content")
	return s.store.Clear(ctx)
}

// GetStore returns the chunk store instance used by the server.
func (s *Server) GetStore() chunkstore.ChunkStore {
	return s.store
}

// GetChunker returns the chunker instance used by the server.
func (s *Server) GetChunker() *chunker.Chunker {
	return s.chunker
}

// GetBatcher returns the embedding batcher instance used by the server.
func (s *Server) GetBatcher() *vector.Batcher {
	return s.batcher
}

// CreateComponents creates and initializes the components of the
// ContentVault service without creating a server instance. This is
// useful for callers that need direct access to the store, chunker,
// and batcher.
func CreateComponents(cfg *Config, logger *slog.Logger) (chunkstore.ChunkStore, *chunker.Chunker, *vector.Batcher, error) {
	if logger == nil {
		// Public function, so keep a fallback even though NewServer
		// always resolves a logger first.
		logger = slog.Default()
		logger.Debug("CreateComponents called with nil logger, defaulting to slog.Default()")
	}

	// Initialize SQLite chunk store
	logger.Info("Initializing SQLite chunk store for CreateComponents", "path", cfg.Store.SQLitePath)
	store := chunkstore.NewSQLiteChunkStore()
	err := store.Initialize(cfg.Store.SQLitePath)
	if err != nil {
		logger.Error("Failed to initialize SQLite chunk store in CreateComponents", "path", cfg.Store.SQLitePath, "error", err)
		return nil, nil, nil, errortypes.DatabaseError(err, "Failed to initialize SQLite chunk store")
	}

	// The batch size bounds both the embedding groups and the writer's
	// sub-batches, so the configured value governs the store too.
	store.SetSubBatch(cfg.Batcher.BatchSize, chunkstore.DefaultSubBatchDelay)

	// Initialize chunker
	logger.Info("Initializing chunker for CreateComponents",
		"min_words", cfg.Chunker.MinWordsPerChunk, "max_words", cfg.Chunker.MaxWordsPerChunk)
	splitter := chunker.New(chunker.Options{
		MinChunkLength:   cfg.Chunker.MinChunkLength,
		MinWordsPerChunk: cfg.Chunker.MinWordsPerChunk,
		MaxWordsPerChunk: cfg.Chunker.MaxWordsPerChunk,
	})

	// Initialize embedder
	logger.Info("Initializing embedder for CreateComponents", "provider", cfg.Embedder.Provider, "dimensions", cfg.Embedder.Dimensions)
	emb, err := providers.ForName(cfg.Embedder.Provider, providers.Config{
		APIKey:     cfg.Embedder.ApiKey,
		ModelID:    cfg.Embedder.Model,
		Dimensions: cfg.Embedder.Dimensions,
	})
	if err != nil {
		logger.Warn("Unknown embedder provider in CreateComponents, using mock embedder", "provider", cfg.Embedder.Provider)
		emb = vector.NewMockEmbedder(cfg.Embedder.Dimensions)
	}

	if err := emb.Initialize(); err != nil {
		logger.Error("Failed to initialize embedder in CreateComponents", "error", err)
		return nil, nil, nil, errortypes.ConfigError(err, "Failed to initialize embedder")
	}

	// Wrap the embedder in the pacing batcher
	batcher := vector.NewBatcher(emb, vector.BatcherConfig{
		BatchSize:    cfg.Batcher.BatchSize,
		MinBackoff:   time.Duration(cfg.Batcher.MinBackoffMs) * time.Millisecond,
		MaxBackoff:   time.Duration(cfg.Batcher.MaxBackoffMs) * time.Millisecond,
		RequestDelay: time.Duration(cfg.Batcher.RequestDelayMs) * time.Millisecond,
		BatchDelay:   time.Duration(cfg.Batcher.BatchDelayMs) * time.Millisecond,
	})

	logger.Info("Components successfully initialized via CreateComponents")
	return store, splitter, batcher, nil
}
