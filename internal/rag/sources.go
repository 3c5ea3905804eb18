package rag

import (
	"github.com/kotaehq/kotae/internal/models"
	"github.com/kotaehq/kotae/pkg/utils"
)

// BuildSources converts retrieval hits into citation entries, keeping
// the first hit per URL in score order and capping the list at
// maxSources. Snippets are truncated to snippetLength.
func BuildSources(hits []models.RetrievalHit, maxSources, snippetLength int) []models.Source {
	seen := make(map[string]struct{}, len(hits))
	sources := make([]models.Source, 0, maxSources)
	for _, h := range hits {
		if _, ok := seen[h.Meta.URL]; ok {
			continue
		}
		seen[h.Meta.URL] = struct{}{}
		sources = append(sources, models.Source{
			URL:          h.Meta.URL,
			SectionTitle: h.Meta.SectionTitle,
			Snippet:      utils.Snippet(h.Meta.Text, snippetLength),
		})
		if len(sources) >= maxSources {
			break
		}
	}
	return sources
}
