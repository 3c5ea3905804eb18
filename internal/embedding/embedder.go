// Package embedding provides text embedding via the OpenAI API, with
// caching and a deterministic mock for tests.
package embedding

import (
	"context"
	"fmt"
)

// Embedder produces fixed-dimension vector embeddings for text.
// Batch order is preserved 1:1 with the input.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// NewEmbedder creates an embedder of the given provider type.
// Supported providers: "openai" (default), "mock".
func NewEmbedder(provider, model string, dimensions, cacheSize int) (Embedder, error) {
	switch provider {
	case "openai", "":
		return NewOpenAIEmbedder(model, dimensions, cacheSize)
	case "mock":
		return NewMockEmbedder(dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, mock)", provider)
	}
}
