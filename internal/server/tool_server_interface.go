// Package server provides the MCP server implementation for the ContentVault service.
package server

// ContentToolServer defines the interface for the MCP server that handles
// content ingestion and retrieval tool calls from MCP clients.
type ContentToolServer interface {
	// Initialize initializes the server with dependencies and configurations.
	Initialize() error

	// Start starts the MCP server on the specified transport.
	Start() error

	// Stop gracefully shuts down the MCP server.
	Stop() error
}
