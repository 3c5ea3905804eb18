// Package models defines core data structures for sections, chunks, and answers.
package models

// Section is one titled region of the source corpus, produced by the
// document parser. Sections are consumed once by the chunker during
// ingest and not retained.
type Section struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	FullText string `json:"full_text"`
}

// ChunkMeta is the provenance record for one indexed chunk. Entry i of the
// metadata artifact corresponds to vector i of the index blob; the two are
// always written and loaded together.
type ChunkMeta struct {
	Text         string `json:"text"`
	SectionTitle string `json:"section_title"`
	URL          string `json:"url"`
	ChunkIndex   int    `json:"chunk_index"`
	DocID        string `json:"doc_id"`
}
