package index

import (
	"context"
	"fmt"

	"github.com/kotaehq/kotae/internal/embedding"
	"github.com/kotaehq/kotae/internal/models"
	"github.com/kotaehq/kotae/pkg/utils"
)

// Build embeds texts in fixed-size batches, L2-normalizes every vector,
// and constructs a flat inner-product index over them. Index position i
// corresponds to texts[i]. Embedding failures surface as UpstreamError
// without retry.
func Build(ctx context.Context, embedder embedding.Embedder, texts []string, batchSize int) (*FlatIndex, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	ix, err := NewFlatIndex(embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, models.NewUpstreamError(models.StageEmbed, err)
		}
		if len(vecs) != end-start {
			return nil, models.NewUpstreamError(models.StageEmbed,
				fmt.Errorf("batch %d-%d: got %d vectors for %d texts", start, end, len(vecs), end-start))
		}
		for _, v := range vecs {
			utils.NormalizeL2(v)
		}
		if err := ix.Add(vecs); err != nil {
			return nil, err
		}
	}
	return ix, nil
}
