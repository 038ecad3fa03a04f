package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/localrivet/contentvault/internal/chunkstore"
	"github.com/localrivet/contentvault/internal/config"
	"github.com/localrivet/contentvault/internal/errortypes"
	"github.com/localrivet/contentvault/internal/logger"
	"github.com/localrivet/contentvault/internal/server"

	contentvault "github.com/localrivet/contentvault"
)

func main() {
	// Initialize logging first thing
	appLogger := setupLogging()

	appLogger.Info("ContentVault MCP Server - Starting...")

	// Load configuration through the provider chain: defaults, then the
	// .contentvaultconfig file, then CONTENTVAULT_* environment variables.
	cfg, err := config.InitGlobal(config.DefaultConfigFilename)
	if err != nil {
		errortypes.LogError(nil, errortypes.ConfigError(err, "Failed to load configuration"))
		appLogger.Fatal("Failed to load configuration")
	}

	// Configure logging based on config
	if cfg.Logging.Level != "" {
		appLogger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
		appLogger.Info("Log level set to %s", cfg.Logging.Level)
	}

	if cfg.Logging.Format == "json" {
		appLogger.SetFormat(logger.JSON)
		appLogger.Info("Log format set to JSON")
	}

	// Build the pipeline components: chunk store, chunker, and batcher
	store, splitter, batcher, err := contentvault.CreateComponents(cfg, nil)
	if err != nil {
		errortypes.LogError(nil, err)
		appLogger.Fatal("Failed to create pipeline components")
	}
	defer store.Close()
	appLogger.WithContext("store").Info("SQLite chunk store initialized at %s", cfg.Store.SQLitePath)
	appLogger.WithContext("chunker").Info("Chunker initialized")
	appLogger.WithContext("batcher").Info("Embedding batcher initialized with provider %s", cfg.Embedder.Provider)

	// Initialize the MCP server
	srv := server.NewContentToolServer(store, splitter, batcher)
	srvLogger := appLogger.WithContext("server")

	err = srv.Initialize()
	if err != nil {
		errortypes.LogError(nil, errortypes.ConfigError(err, "Failed to initialize MCP server"))
		appLogger.Fatal("Failed to initialize MCP server")
	}
	srvLogger.Info("MCP server initialized")

	// Handle graceful shutdown
	setupSignalHandler(store, appLogger)

	// Start the MCP server (this will block until server is terminated)
	srvLogger.Info("Starting MCP server...")
	if err := srv.Start(); err != nil {
		errortypes.LogError(nil, errortypes.APIError(err, "MCP server failed"))
		appLogger.Fatal("Failed to start MCP server")
	}
}

// setupLogging configures and returns the application logger
func setupLogging() *logger.Logger {
	// Create default configuration
	config := logger.DefaultConfig()

	// Try to get log level from environment variable
	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		config.Level = logger.ParseLevel(levelStr)
	}

	// Create and return logger
	appLogger := logger.New(config)
	logger.SetDefaultLogger(appLogger)

	return appLogger
}

// setupSignalHandler sets up a signal handler for graceful shutdown.
func setupSignalHandler(store chunkstore.ChunkStore, log *logger.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("Received shutdown signal, terminating gracefully...")

		// Close the store to ensure all data is saved
		if err := store.Close(); err != nil {
			errortypes.LogError(nil, errortypes.DatabaseError(err, "Error closing store during shutdown"))
		} else {
			log.Info("Database closed successfully")
		}

		log.Info("Shutdown complete")
		os.Exit(0)
	}()
}
