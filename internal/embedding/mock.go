package embedding

import (
	"context"
	"math"
	"strings"
)

// MockEmbedder is a deterministic embedder for tests. Each word is hashed
// into a bucket, so texts that share words get similar embeddings and the
// same text always gets the same unit vector.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder that produces deterministic
// embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a normalized bag-of-words hash embedding.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	emb := make([]float32, e.dimensions)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		emb[hashString(word)%e.dimensions]++
	}
	var sum float64
	for _, v := range emb {
		sum += float64(v * v)
	}
	if sum > 0 {
		norm := float32(1.0 / math.Sqrt(sum))
		for i := range emb {
			emb[i] *= norm
		}
	}
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}

// hashString returns a deterministic non-negative hash of s.
func hashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
