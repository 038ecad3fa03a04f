package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/localrivet/contentvault/internal/vector"
)

// MockResponseConfig holds configuration for mock API responses.
type MockResponseConfig struct {
	StatusCode   int
	ResponseBody interface{}
	Headers      map[string]string
}

// MockServer creates a test server that returns the configured response.
func MockServer(t *testing.T, config MockResponseConfig) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range config.Headers {
			w.Header().Set(k, v)
		}

		if _, exists := config.Headers["Content-Type"]; !exists {
			w.Header().Set("Content-Type", "application/json")
		}

		w.WriteHeader(config.StatusCode)

		if config.ResponseBody != nil {
			var respBytes []byte
			var err error

			switch body := config.ResponseBody.(type) {
			case string:
				respBytes = []byte(body)
			case []byte:
				respBytes = body
			default:
				respBytes, err = json.Marshal(body)
				if err != nil {
					t.Fatalf("Failed to marshal mock response: %v", err)
				}
			}

			if _, err := w.Write(respBytes); err != nil {
				t.Fatalf("Failed to write response body: %v", err)
			}
		}
	}))
}

// FlakyEmbedder is an Embedder that fails with a rate-limit error a fixed
// number of times before succeeding. It records every call so tests can
// assert on retry behavior.
type FlakyEmbedder struct {
	dimensions  int
	failures    int
	calls       int
	failedCalls int
	mu          sync.Mutex
}

// NewFlakyEmbedder creates a FlakyEmbedder that rate-limits the first
// `failures` calls and then behaves like a deterministic mock embedder.
func NewFlakyEmbedder(dimensions, failures int) *FlakyEmbedder {
	if dimensions <= 0 {
		dimensions = 8
	}
	return &FlakyEmbedder{
		dimensions: dimensions,
		failures:   failures,
	}
}

// Initialize sets up the embedder.
func (e *FlakyEmbedder) Initialize() error {
	return nil
}

// CreateEmbedding fails with vector.ErrRateLimited until the configured
// failure count is exhausted, then delegates to a mock embedding.
func (e *FlakyEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	shouldFail := e.failedCalls < e.failures
	if shouldFail {
		e.failedCalls++
	}
	e.mu.Unlock()

	if shouldFail {
		return nil, fmt.Errorf("%w: simulated throttle", vector.ErrRateLimited)
	}

	return vector.NewMockEmbedder(e.dimensions).CreateEmbedding(ctx, text)
}

// Calls returns the total number of CreateEmbedding invocations.
func (e *FlakyEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// FailingEmbedder is an Embedder that always fails with the configured
// error, used to exercise fatal-error propagation.
type FailingEmbedder struct {
	Err error
}

// Initialize sets up the embedder.
func (e *FailingEmbedder) Initialize() error {
	return nil
}

// CreateEmbedding always returns the configured error.
func (e *FailingEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, e.Err
}
