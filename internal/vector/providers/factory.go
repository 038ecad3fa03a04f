package providers

import (
	"fmt"

	"github.com/localrivet/contentvault/internal/vector"
)

// ForName creates an embedder for the given provider name. The empty name
// resolves to the mock provider so the pipeline can run without credentials.
func ForName(name string, config Config) (vector.Embedder, error) {
	switch name {
	case ProviderOpenAI:
		return NewOpenAIEmbedder(config), nil
	case ProviderMock, "":
		dimensions := config.Dimensions
		if dimensions <= 0 {
			dimensions = vector.DefaultEmbeddingDimensions
		}
		return vector.NewMockEmbedder(dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", name)
	}
}
