package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/localrivet/configurator"
	"github.com/localrivet/gomcp/logx"
)

// Global configuration instance
var (
	// Global is the global configuration instance
	Global *Config
	// initOnce ensures initialization happens only once
	initOnce sync.Once
)

// InitGlobal initializes the global configuration
func InitGlobal(configPath string) (*Config, error) {
	var err error
	initOnce.Do(func() {
		Global, err = LoadConfigWithPath(configPath)
	})
	return Global, err
}

// Config represents the ContentVault configuration
type Config struct {
	// Store contains storage-related configuration.
	Store struct {
		// SQLitePath is the path to the SQLite database file.
		SQLitePath string `json:"sqlite_path" env:"SQLITE_PATH" validate:"required"`
	} `json:"store"`

	// Embedder contains embedding-related configuration.
	Embedder struct {
		// Provider is the name of the embedding provider to use.
		Provider string `json:"provider" env:"EMBEDDER_PROVIDER"`

		// Model is the embedding model identifier, provider-specific.
		Model string `json:"model" env:"EMBEDDER_MODEL"`

		// Dimensions is the number of dimensions for the embeddings.
		Dimensions int `json:"dimensions" env:"EMBEDDER_DIMENSIONS" validate:"min:1"`

		// ApiKey is the API key for the embedding provider.
		ApiKey string `json:"api_key" env:"EMBEDDER_API_KEY"`
	} `json:"embedder"`

	// Chunker contains text segmentation configuration.
	Chunker struct {
		// MinChunkLength is the minimum character length of a kept sentence.
		MinChunkLength int `json:"min_chunk_length" env:"MIN_CHUNK_LENGTH"`

		// MinWordsPerChunk is the minimum word count of an emitted chunk.
		MinWordsPerChunk int `json:"min_words_per_chunk" env:"MIN_WORDS_PER_CHUNK"`

		// MaxWordsPerChunk is the maximum word count of an emitted chunk.
		MaxWordsPerChunk int `json:"max_words_per_chunk" env:"MAX_WORDS_PER_CHUNK"`
	} `json:"chunker"`

	// Batcher contains embedding batch pacing configuration.
	Batcher struct {
		// BatchSize is the number of chunks per embedding group.
		BatchSize int `json:"batch_size" env:"BATCH_SIZE"`

		// MinBackoffMs is the base backoff after a rate-limited call.
		MinBackoffMs int `json:"min_backoff_ms" env:"MIN_BACKOFF_MS"`

		// MaxBackoffMs caps the exponential backoff growth.
		MaxBackoffMs int `json:"max_backoff_ms" env:"MAX_BACKOFF_MS"`

		// RequestDelayMs is the delay between calls within a group.
		RequestDelayMs int `json:"request_delay_ms" env:"REQUEST_DELAY_MS"`

		// BatchDelayMs is the delay between groups.
		BatchDelayMs int `json:"batch_delay_ms" env:"BATCH_DELAY_MS"`
	} `json:"batcher"`

	// Retrieval contains similarity search configuration.
	Retrieval struct {
		// Threshold is the minimum similarity score for a match.
		Threshold float64 `json:"threshold" env:"RETRIEVAL_THRESHOLD"`

		// TopK is the maximum number of matches returned per query.
		TopK int `json:"top_k" env:"RETRIEVAL_TOP_K"`
	} `json:"retrieval"`

	// Logging contains logging-related configuration.
	Logging struct {
		// Level is the minimum log level to display ("debug", "info", "warn", "error").
		Level string `json:"level" env:"LOG_LEVEL" validate:"required"`

		// Format is the log format to use ("text", "json").
		Format string `json:"format" env:"LOG_FORMAT"`
	} `json:"logging"`

	// Internal state (not saved to config file)
	configPath     string       `json:"-"`
	mutex          sync.RWMutex `json:"-"`
	lastModifiedAt time.Time    `json:"-"`
}

// Default configuration values
const (
	DefaultConfigFilename = ".contentvaultconfig"
	DefaultSQLitePath     = ".contentvault.db"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// NewConfig creates a new Config instance with default values
func NewConfig() *Config {
	config := &Config{}
	config.Store.SQLitePath = DefaultSQLitePath
	config.Embedder.Provider = "mock"
	config.Embedder.Dimensions = 1536
	config.Chunker.MinChunkLength = 3
	config.Chunker.MinWordsPerChunk = 5
	config.Chunker.MaxWordsPerChunk = 50
	config.Batcher.BatchSize = 25
	config.Batcher.MinBackoffMs = 1000
	config.Batcher.MaxBackoffMs = 300000
	config.Batcher.RequestDelayMs = 50
	config.Batcher.BatchDelayMs = 2000
	config.Retrieval.Threshold = 0.3
	config.Retrieval.TopK = 4
	config.Logging.Level = DefaultLogLevel
	config.Logging.Format = DefaultLogFormat
	return config
}

// LoadConfig loads the configuration from the default path
func LoadConfig() (*Config, error) {
	return LoadConfigWithPath(DefaultConfigFilename)
}

// LoadConfigWithPath loads the configuration from a specific path
func LoadConfigWithPath(configPath string) (*Config, error) {
	// Create a default logger for configuration loading
	stdLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Create default configuration
	cfg := NewConfig()

	// Try to find config file if path is default
	if configPath == DefaultConfigFilename {
		foundPath, err := configurator.FindConfigFile(configPath)
		if err == nil {
			configPath = foundPath
			stdLogger.Debug("Found config file at " + foundPath)
		}
	}

	// Check if the file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// File doesn't exist, return default config
		stdLogger.Info("Config file not found, using default configuration", "path", configPath)
		cfg.configPath = configPath
		cfg.lastModifiedAt = time.Now()
		return cfg, nil
	}

	stdLogger.Info("Loading configuration", "path", configPath)

	// Create configurator instance
	config := configurator.New(stdLogger).
		WithProvider(configurator.NewDefaultProvider()).
		WithProvider(configurator.NewFileProvider(configPath)).
		WithProvider(configurator.NewEnvProvider("CONTENTVAULT")).
		WithValidator(configurator.NewDefaultValidator())

	// Load configuration
	ctx := context.Background()
	if err := config.Load(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Store the config path for future operations
	cfg.configPath = configPath
	cfg.lastModifiedAt = time.Now()

	return cfg, nil
}

// SaveToFile saves the configuration to the specified file
func (c *Config) SaveToFile(path string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	// Create directory if needed
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Save using configurator's SaveToFile function
	if err := configurator.SaveToFile(c, path, configurator.FormatJSON); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	// Update internal state
	c.configPath = path
	c.lastModifiedAt = time.Now()

	return nil
}

// Save saves the configuration to the last used file path
func (c *Config) Save() error {
	if c.configPath == "" {
		c.configPath = DefaultConfigFilename
	}
	return c.SaveToFile(c.configPath)
}

// GetConfigPath returns the path of the currently loaded configuration file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// GetLoggerFromConfig creates a gomcp logx.Logger based on the configuration
func GetLoggerFromConfig(cfg *Config) logx.Logger {
	return logx.NewLogger(cfg.Logging.Level)
}
