// Package providers contains implementations of embedding service
// providers used by the ContentVault pipeline.
package providers

import (
	"time"
)

const (
	// Provider constants
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"

	// Default settings
	DefaultTimeout = 30 * time.Second
)

// Config holds common configuration for embedding providers.
type Config struct {
	// APIKey authenticates against the provider.
	APIKey string

	// ModelID selects the embedding model; empty picks the provider default.
	ModelID string

	// BaseURL overrides the provider endpoint, mainly for tests.
	BaseURL string

	// Dimensions is the expected vector size; used by the mock provider
	// and validated against provider responses when positive.
	Dimensions int
}
