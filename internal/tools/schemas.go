// Package tools defines the interfaces and data structures
// for the ContentVault service.
package tools

const (
	// ToolIngestContent is the name of the ingest_content MCP tool
	ToolIngestContent = "ingest_content"

	// ToolRetrieveContent is the name of the retrieve_content MCP tool
	ToolRetrieveContent = "retrieve_content"

	// ToolDeleteContent is the name of the delete_content MCP tool
	ToolDeleteContent = "delete_content"

	// ToolReingestContent is the name of the reingest_content MCP tool
	ToolReingestContent = "reingest_content"

	// ToolClearAllContent is the name of the clear_all_content MCP tool
	ToolClearAllContent = "clear_all_content"

	// DefaultRetrieveTopK is the default number of results to return
	// when no top_k is specified in a retrieve_content request
	DefaultRetrieveTopK = 4

	// DefaultRetrieveThreshold is the default minimum similarity score
	// for a stored chunk to appear in retrieve_content results
	DefaultRetrieveThreshold = 0.3
)

// RetrievedChunk is one retrieval match returned by retrieve_content
type RetrievedChunk struct {
	// Text is the stored chunk text
	Text string `json:"text"`

	// Similarity is the cosine similarity between the chunk and the query
	Similarity float64 `json:"similarity"`

	// ContentID identifies the content item the chunk belongs to
	ContentID string `json:"content_id"`
}

// IngestContentRequest defines the input schema for ingest_content tool
type IngestContentRequest struct {
	// ContentText is the raw text to chunk, embed, and store
	ContentText string `json:"content_text"`

	// ContentID optionally names the content item; a new identifier is
	// generated when omitted
	ContentID string `json:"content_id,omitempty"`
}

// IngestContentResponse defines the output schema for ingest_content tool
type IngestContentResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// ContentID is the identifier assigned to the ingested content
	ContentID string `json:"content_id"`

	// ChunkCount is the number of chunks stored for the content
	ChunkCount int `json:"chunk_count"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`
}

// RetrieveContentRequest defines the input schema for retrieve_content tool
type RetrieveContentRequest struct {
	// Query is the text to search for in the content store
	Query string `json:"query"`

	// TopK is the maximum number of results to return
	// If not specified, DefaultRetrieveTopK will be used
	TopK int `json:"top_k,omitempty"`

	// Threshold is the minimum similarity score for a match
	// If not specified, DefaultRetrieveThreshold will be used
	Threshold float64 `json:"threshold,omitempty"`
}

// RetrieveContentResponse defines the output schema for retrieve_content tool
type RetrieveContentResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// Results contains the matching chunks, best match first
	Results []RetrievedChunk `json:"results"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`
}

// DeleteContentRequest defines the input schema for delete_content tool
type DeleteContentRequest struct {
	// ContentID is the identifier of the content item to delete
	ContentID string `json:"content_id"`
}

// DeleteContentResponse defines the output schema for delete_content tool
type DeleteContentResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`
}

// ReingestContentRequest defines the input schema for reingest_content tool
type ReingestContentRequest struct {
	// ContentID is the identifier of the content item to replace
	ContentID string `json:"content_id"`

	// ContentText is the new text to chunk, embed, and store
	ContentText string `json:"content_text"`
}

// ReingestContentResponse defines the output schema for reingest_content tool
type ReingestContentResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// ContentID is the identifier of the replaced content
	ContentID string `json:"content_id"`

	// ChunkCount is the number of chunks stored for the new text
	ChunkCount int `json:"chunk_count"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`
}

// ClearAllContentRequest defines the input schema for clear_all_content tool
type ClearAllContentRequest struct {
	// Confirmation is a required field to confirm the operation
	// Must be set to "confirm" to prevent accidental clearing
	Confirmation string `json:"confirmation"`
}

// ClearAllContentResponse defines the output schema for clear_all_content tool
type ClearAllContentResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`
}
