package server

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/localrivet/contentvault/internal/chunker"
	"github.com/localrivet/contentvault/internal/chunkstore"
	"github.com/localrivet/contentvault/internal/errortypes"
	"github.com/localrivet/contentvault/internal/telemetry"
	"github.com/localrivet/contentvault/internal/tools"
	"github.com/localrivet/contentvault/internal/vector"
	"github.com/localrivet/gomcp/server"
)

// Common server error types
var (
	ErrServerNotInitialized = errors.New("server not initialized")
	ErrMissingDependencies  = errors.New("one or more required dependencies are nil")
)

// MCPContentToolServer implements the ContentToolServer interface
// for handling MCP tool calls related to content ingestion and retrieval.
type MCPContentToolServer struct {
	store     chunkstore.ChunkStore
	chunker   *chunker.Chunker
	batcher   Embedder
	metrics   *telemetry.MetricsCollector
	mcpServer server.Server

	// baseCtx bounds pipeline work started by tool handlers. The gomcp
	// handler context is not a context.Context, so cancellation is tied
	// to the server lifecycle: Stop cancels in-flight work, including
	// backoff sleeps in the batcher.
	baseCtx context.Context
	cancel  context.CancelFunc
}

// Embedder is the slice of the embedding batcher the server depends on.
type Embedder interface {
	// EmbedChunks converts ordered chunk texts into (text, vector) pairs.
	EmbedChunks(ctx context.Context, texts []string) ([]vector.Embedding, error)

	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// NewContentToolServer creates a new MCPContentToolServer instance.
func NewContentToolServer(store chunkstore.ChunkStore, chunker *chunker.Chunker, batcher Embedder) *MCPContentToolServer {
	baseCtx, cancel := context.WithCancel(context.Background())
	return &MCPContentToolServer{
		store:   store,
		chunker: chunker,
		batcher: batcher,
		metrics: telemetry.NewMetricsCollector(),
		baseCtx: baseCtx,
		cancel:  cancel,
	}
}

// Metrics returns the metrics collector for this server.
func (s *MCPContentToolServer) Metrics() *telemetry.MetricsCollector {
	return s.metrics
}

// Initialize initializes the server with dependencies and configurations.
func (s *MCPContentToolServer) Initialize() error {
	slog.Info("Initializing MCP Content Tool Server")

	if s.store == nil || s.chunker == nil || s.batcher == nil {
		return errortypes.ConfigError(errors.New("missing dependencies"), "server initialization failed")
	}

	// Create the MCP server
	srv := server.NewServer("contentvault")

	// Register ingest_content tool
	srv = srv.Tool(tools.ToolIngestContent, "Chunk, embed, and store a piece of content",
		s.handleIngestContent)

	// Register retrieve_content tool
	srv = srv.Tool(tools.ToolRetrieveContent, "Retrieve stored chunks relevant to a query",
		s.handleRetrieveContent)

	// Register delete_content tool
	srv = srv.Tool(tools.ToolDeleteContent, "Delete all chunks of a content item by ID",
		s.handleDeleteContent)

	// Register reingest_content tool
	srv = srv.Tool(tools.ToolReingestContent, "Replace an existing content item with new text",
		s.handleReingestContent)

	// Register clear_all_content tool
	srv = srv.Tool(tools.ToolClearAllContent, "Clear all content from the store",
		s.handleClearAllContent)

	s.mcpServer = srv
	slog.Info("MCP Content Tool Server initialized successfully", "tool_count", 5)
	return nil
}

// Start starts the MCP server on the specified transport.
func (s *MCPContentToolServer) Start() error {
	if s.mcpServer == nil {
		return errortypes.ConfigError(errors.New("server not initialized"), "cannot start server")
	}

	slog.Info("Starting MCP Content Tool Server")

	// Start the server using stdio transport
	stdioServer := s.mcpServer.AsStdio()
	return stdioServer.Run()
}

// Stop gracefully shuts down the MCP server. In-flight pipeline work is
// canceled so handlers blocked in backoff sleeps return promptly.
func (s *MCPContentToolServer) Stop() error {
	slog.Info("Stopping MCP Content Tool Server")
	if s.cancel != nil {
		s.cancel()
	}
	// The server will exit when stdin is closed
	return nil
}

// ingest runs the full pipeline for one content item: segment and
// assemble the text into chunks, embed them, and persist the rows.
func (s *MCPContentToolServer) ingest(ctx context.Context, contentID, text string) (int, error) {
	chunks := s.chunker.Split(text)
	if len(chunks) == 0 {
		slog.Info("Content produced no chunks, nothing to store", "content_id", contentID)
		return 0, nil
	}
	s.metrics.IncrementCounter(telemetry.MetricChunksProduced, int64(len(chunks)))

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	slog.Debug("Embedding chunks", "content_id", contentID, "chunk_count", len(texts))
	embeddings, err := s.batcher.EmbedChunks(ctx, texts)
	if err != nil {
		return 0, errortypes.APIError(err, "failed to embed chunks").
			WithField("content_id", contentID).
			WithField("chunk_count", len(texts))
	}

	slog.Debug("Storing chunk embeddings", "content_id", contentID, "chunk_count", len(embeddings))
	if err := s.store.StoreChunks(ctx, contentID, embeddings); err != nil {
		return 0, errortypes.DatabaseError(err, "failed to store chunk embeddings").
			WithField("content_id", contentID)
	}

	s.metrics.IncrementCounter(telemetry.MetricContentIngested, 1)
	return len(chunks), nil
}

// handleIngestContent handles the ingest_content MCP tool call.
func (s *MCPContentToolServer) handleIngestContent(ctx *server.Context, req tools.IngestContentRequest) (tools.IngestContentResponse, error) {
	slog.Info("Processing ingest_content request", "text_length", len(req.ContentText))

	response := tools.IngestContentResponse{
		Status: "success",
	}

	contentID := req.ContentID
	if contentID == "" {
		contentID = uuid.New().String()
		slog.Debug("Generated content id for ingest_content", "content_id", contentID)
	}

	chunkCount, err := s.ingest(s.baseCtx, contentID, req.ContentText)
	if err != nil {
		logToolError(tools.ToolIngestContent, err)
		s.metrics.IncrementCounter(telemetry.MetricIngestFailures, 1)

		response.Status = "error"
		response.Error = err.Error()
		return response, nil
	}

	response.ContentID = contentID
	response.ChunkCount = chunkCount
	slog.Info("Successfully ingested content", "content_id", contentID, "chunk_count", chunkCount)

	return response, nil
}

// handleRetrieveContent handles the retrieve_content MCP tool call.
func (s *MCPContentToolServer) handleRetrieveContent(ctx *server.Context, req tools.RetrieveContentRequest) (tools.RetrieveContentResponse, error) {
	slog.Info("Processing retrieve_content request", "query", req.Query, "top_k", req.TopK)

	response := tools.RetrieveContentResponse{
		Status: "success",
	}

	// Apply retrieval defaults for unset options
	topK := req.TopK
	if topK <= 0 {
		topK = tools.DefaultRetrieveTopK
		slog.Debug("Using default top_k for retrieve_content", "top_k", topK)
	}
	threshold := req.Threshold
	if threshold <= 0 {
		threshold = tools.DefaultRetrieveThreshold
		slog.Debug("Using default threshold for retrieve_content", "threshold", threshold)
	}

	// Create embedding for query
	slog.Debug("Creating embedding for query in retrieve_content")
	queryEmbedding, err := s.batcher.EmbedQuery(s.baseCtx, req.Query)
	if err != nil {
		err = errortypes.APIError(err, "failed to create embedding for query").
			WithField("query", req.Query)
		logToolError(tools.ToolRetrieveContent, err)

		response.Status = "error"
		response.Error = err.Error()
		return response, nil
	}

	// Search chunk store
	slog.Debug("Searching chunk store for retrieve_content")
	results, err := s.store.Search(s.baseCtx, queryEmbedding, threshold, topK)
	if err != nil {
		err = errortypes.DatabaseError(err, "failed to search chunk store").
			WithField("top_k", topK)
		logToolError(tools.ToolRetrieveContent, err)

		response.Status = "error"
		response.Error = err.Error()
		return response, nil
	}

	response.Results = make([]tools.RetrievedChunk, len(results))
	for i, result := range results {
		response.Results[i] = tools.RetrievedChunk{
			Text:       result.Text,
			Similarity: result.Similarity,
			ContentID:  result.ContentID,
		}
	}
	slog.Info("Successfully retrieved content results", "count", len(results))

	return response, nil
}

// handleDeleteContent handles the delete_content MCP tool call.
func (s *MCPContentToolServer) handleDeleteContent(ctx *server.Context, req tools.DeleteContentRequest) (tools.DeleteContentResponse, error) {
	slog.Info("Processing delete_content request", "content_id", req.ContentID)

	response := tools.DeleteContentResponse{
		Status: "success",
	}

	if req.ContentID == "" {
		err := errortypes.ValidationError(errors.New("content_id cannot be empty for delete_content"), "invalid delete_content request")
		logToolError(tools.ToolDeleteContent, err)
		response.Status = "error"
		response.Error = err.Error()
		return response, nil
	}

	err := s.store.DeleteContent(s.baseCtx, req.ContentID)
	if err != nil {
		err = errortypes.DatabaseError(err, "failed to delete content").
			WithField("content_id", req.ContentID)
		logToolError(tools.ToolDeleteContent, err)

		response.Status = "error"
		response.Error = err.Error()
		return response, nil
	}

	slog.Info("Successfully deleted content", "content_id", req.ContentID)

	return response, nil
}

// handleReingestContent handles the reingest_content MCP tool call.
// Existing chunks are deleted first so a previous partial write cannot
// leave stale rows behind.
func (s *MCPContentToolServer) handleReingestContent(ctx *server.Context, req tools.ReingestContentRequest) (tools.ReingestContentResponse, error) {
	slog.Info("Processing reingest_content request", "content_id", req.ContentID, "new_text_length", len(req.ContentText))

	response := tools.ReingestContentResponse{
		Status: "success",
	}

	if req.ContentID == "" {
		err := errortypes.ValidationError(errors.New("content_id cannot be empty for reingest_content"), "invalid reingest_content request")
		logToolError(tools.ToolReingestContent, err)
		response.Status = "error"
		response.Error = err.Error()
		return response, nil
	}

	if err := s.store.DeleteContent(s.baseCtx, req.ContentID); err != nil {
		err = errortypes.DatabaseError(err, "failed to delete existing content for reingest_content").
			WithField("content_id", req.ContentID)
		logToolError(tools.ToolReingestContent, err)

		response.Status = "error"
		response.Error = err.Error()
		return response, nil
	}

	chunkCount, err := s.ingest(s.baseCtx, req.ContentID, req.ContentText)
	if err != nil {
		logToolError(tools.ToolReingestContent, err)
		s.metrics.IncrementCounter(telemetry.MetricIngestFailures, 1)

		response.Status = "error"
		response.Error = err.Error()
		return response, nil
	}

	response.ContentID = req.ContentID
	response.ChunkCount = chunkCount
	slog.Info("Successfully reingested content", "content_id", req.ContentID, "chunk_count", chunkCount)

	return response, nil
}

// handleClearAllContent handles the clear_all_content MCP tool call.
func (s *MCPContentToolServer) handleClearAllContent(ctx *server.Context, req tools.ClearAllContentRequest) (tools.ClearAllContentResponse, error) {
	slog.Info("Processing clear_all_content request")

	response := tools.ClearAllContentResponse{
		Status: "success",
	}

	// Check confirmation string
	if req.Confirmation != "confirm" {
		response.Status = "error"
		response.Error = "Confirmation required. Set confirmation to 'confirm' to proceed with clearing all content"
		slog.Warn("Clear all content operation rejected: missing confirmation")
		return response, nil
	}

	if err := s.store.Clear(s.baseCtx); err != nil {
		err = errortypes.DatabaseError(err, "failed to clear chunk store")
		logToolError(tools.ToolClearAllContent, err)

		response.Status = "error"
		response.Error = err.Error()
		return response, nil
	}

	slog.Info("Successfully cleared all content")

	return response, nil
}
