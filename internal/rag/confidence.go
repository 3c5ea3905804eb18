package rag

import (
	"strings"

	"github.com/kotaehq/kotae/internal/models"
)

// ConfidenceLevel grades an answer from its retrieval evidence. Low when
// nothing was retrieved or the model declined with the not-found phrase.
// High needs a top score at or above high AND at least two hits; medium
// needs the top score at or above medium. Anything else is low.
func ConfidenceLevel(hits []models.RetrievalHit, answer string, high, medium float64) models.Confidence {
	if len(hits) == 0 || strings.Contains(answer, NotFoundAnswer) {
		return models.ConfidenceLow
	}
	top := hits[0].Score
	if top >= high && len(hits) >= 2 {
		return models.ConfidenceHigh
	}
	if top >= medium {
		return models.ConfidenceMedium
	}
	return models.ConfidenceLow
}
