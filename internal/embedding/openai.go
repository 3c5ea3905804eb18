package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder produces embeddings via the OpenAI embeddings API.
// The client is safe for concurrent use and constructed once per process.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
	cache      *Cache
}

// NewOpenAIEmbedder creates an embedder for the given model. The API key is
// read from the OPENAI_API_KEY environment variable.
func NewOpenAIEmbedder(model string, dimensions, cacheSize int) (*OpenAIEmbedder, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}
	e := &OpenAIEmbedder{
		client:     openai.NewClient(key),
		model:      model,
		dimensions: dimensions,
	}
	if cacheSize > 0 {
		e.cache = NewCache(cacheSize)
	}
	return e, nil
}

// Embed returns the embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.cache != nil {
		if v, ok := e.cache.Get(text); ok {
			return v, nil
		}
	}
	vecs, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(text, vecs[0])
	}
	return vecs[0], nil
}

// EmbedBatch returns embeddings for texts in one API call, order preserved.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.embed(ctx, texts)
}

func (e *OpenAIEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d texts", len(resp.Data), len(texts))
	}
	vecs := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		v := make([]float32, len(item.Embedding))
		for j := range item.Embedding {
			v[j] = float32(item.Embedding[j])
		}
		vecs[i] = v
	}
	return vecs, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for OpenAIEmbedder.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
