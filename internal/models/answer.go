package models

// Confidence is a coarse classification of answer reliability derived
// from retrieval scores.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// RetrievalHit pairs a chunk's metadata with its similarity score.
type RetrievalHit struct {
	Meta  *ChunkMeta `json:"meta"`
	Score float64    `json:"score"`
}

// Source is one cited source in an answer: a distinct URL with a bounded
// snippet of its highest-scoring chunk.
type Source struct {
	URL          string `json:"url"`
	SectionTitle string `json:"section_title"`
	Snippet      string `json:"snippet"`
}

// AnswerResult is the unit returned to the caller for one question.
// Constructed fresh per request, never cached.
type AnswerResult struct {
	Answer     string     `json:"answer"`
	Sources    []Source   `json:"sources"`
	Confidence Confidence `json:"confidence"`
}
