package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/localrivet/contentvault/internal/vector"
)

const (
	openaiEmbeddingsURL = "https://api.openai.com/v1/embeddings"

	// DefaultOpenAIModel is the embedding model used when none is configured.
	DefaultOpenAIModel = "text-embedding-ada-002"
)

// OpenAIEmbedder implements the vector.Embedder interface against
// OpenAI's embeddings API.
type OpenAIEmbedder struct {
	Config
	httpClient *http.Client
}

// OpenAIEmbeddingRequest represents a request to the embeddings endpoint.
type OpenAIEmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// OpenAIEmbeddingResponse represents a response from the embeddings endpoint.
type OpenAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// NewOpenAIEmbedder creates a new instance of the OpenAI embedding provider.
func NewOpenAIEmbedder(config Config) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		Config: config,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// Initialize validates the provider configuration.
func (p *OpenAIEmbedder) Initialize() error {
	if p.APIKey == "" {
		return fmt.Errorf("OpenAI API key not provided")
	}
	return nil
}

// CreateEmbedding converts one text into a vector via the embeddings API.
// HTTP 429 and rate-limit error bodies are reported as vector.ErrRateLimited
// so the batcher retries them; any other failure is fatal for the call.
func (p *OpenAIEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if p.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not provided")
	}

	model := p.ModelID
	if model == "" {
		model = DefaultOpenAIModel
	}

	url := p.BaseURL
	if url == "" {
		url = openaiEmbeddingsURL
	}

	reqBody := OpenAIEmbeddingRequest{
		Model: model,
		Input: text,
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(reqJSON)))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.APIKey))

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request to OpenAI API: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %v", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: HTTP 429: %s", vector.ErrRateLimited, strings.TrimSpace(string(respBody)))
	}

	var embeddingResponse OpenAIEmbeddingResponse
	if err := json.Unmarshal(respBody, &embeddingResponse); err != nil {
		return nil, fmt.Errorf("error unmarshaling response: %v", err)
	}

	if embeddingResponse.Error != nil {
		// Some gateways signal throttling in the body rather than the status.
		if strings.Contains(strings.ToLower(embeddingResponse.Error.Message), "rate limit") {
			return nil, fmt.Errorf("%w: %s", vector.ErrRateLimited, embeddingResponse.Error.Message)
		}
		return nil, fmt.Errorf("OpenAI API error: %s: %s",
			embeddingResponse.Error.Type, embeddingResponse.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAI API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if len(embeddingResponse.Data) == 0 || len(embeddingResponse.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding in OpenAI API response")
	}

	embedding := embeddingResponse.Data[0].Embedding
	if p.Dimensions > 0 && len(embedding) != p.Dimensions {
		return nil, fmt.Errorf("unexpected embedding dimensions: got %d, want %d",
			len(embedding), p.Dimensions)
	}

	return embedding, nil
}
