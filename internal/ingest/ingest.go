// Package ingest rebuilds the vector index and chunk metadata from a
// corpus document.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kotaehq/kotae/internal/chunker"
	"github.com/kotaehq/kotae/internal/config"
	"github.com/kotaehq/kotae/internal/embedding"
	"github.com/kotaehq/kotae/internal/index"
	"github.com/kotaehq/kotae/internal/models"
	"github.com/kotaehq/kotae/internal/parser"
	"github.com/kotaehq/kotae/internal/storage"
)

var (
	// ErrNoSections means the corpus document contained no recognizable
	// section headers.
	ErrNoSections = errors.New("no sections found in document")
	// ErrNoChunks means sections were found but none produced a chunk.
	ErrNoChunks = errors.New("no chunks produced from document")
)

// Result reports what a rebuild produced.
type Result struct {
	Sections   int    `json:"sections"`
	Chunks     int    `json:"chunks"`
	Generation string `json:"generation"`
}

// Ingestor parses a corpus document, chunks and embeds it, and writes
// the index artifacts.
type Ingestor struct {
	extractor *parser.Extractor
	embedder  embedding.Embedder
	meta      *storage.MetaStore
	cache     *index.Cache
	cfg       *config.Config
	logger    *zap.Logger // optional; when set, logs rebuild progress
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithLogger sets a logger for rebuild progress output.
func WithLogger(l *zap.Logger) Option {
	return func(ing *Ingestor) { ing.logger = l }
}

// NewIngestor creates an ingestor with the given dependencies.
func NewIngestor(cfg *config.Config, embedder embedding.Embedder, meta *storage.MetaStore, cache *index.Cache, opts ...Option) *Ingestor {
	ing := &Ingestor{
		extractor: parser.NewExtractor(),
		embedder:  embedder,
		meta:      meta,
		cache:     cache,
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// Rebuild replaces both index artifacts from the document at path.
// Input problems (no sections, no chunks) surface before any embedding
// call is made. On success the snapshot cache is invalidated so the
// next query sees the new generation.
func (ing *Ingestor) Rebuild(ctx context.Context, path string) (*Result, error) {
	sections, err := ing.extractor.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSections, path)
	}

	texts, metas := ing.chunkSections(sections)
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoChunks, path)
	}
	if ing.logger != nil {
		ing.logger.Info("corpus parsed",
			zap.Int("sections", len(sections)),
			zap.Int("chunks", len(texts)))
	}

	ix, err := index.Build(ctx, ing.embedder, texts, ing.cfg.Embedding.BatchSize)
	if err != nil {
		return nil, err
	}

	root := ing.cfg.Storage.Root
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	if err := ix.Save(index.IndexPath(root)); err != nil {
		return nil, fmt.Errorf("save vector index: %w", err)
	}

	generation := uuid.New().String()
	if err := ing.meta.Replace(ctx, generation, metas); err != nil {
		return nil, fmt.Errorf("save chunk metadata: %w", err)
	}
	ing.cache.Invalidate()

	if ing.logger != nil {
		ing.logger.Info("index rebuilt",
			zap.String("generation", generation),
			zap.Int("vectors", ix.Size()))
	}
	return &Result{
		Sections:   len(sections),
		Chunks:     len(texts),
		Generation: generation,
	}, nil
}

// chunkSections splits every section into chunks and builds the
// position-parallel metadata rows.
func (ing *Ingestor) chunkSections(sections []models.Section) ([]string, []*models.ChunkMeta) {
	var texts []string
	var metas []*models.ChunkMeta
	for _, sec := range sections {
		chunks := chunker.Chunk(sec.FullText, ing.cfg.Search.ChunkSize, ing.cfg.Search.ChunkOverlap)
		for i, text := range chunks {
			texts = append(texts, text)
			metas = append(metas, &models.ChunkMeta{
				Text:         text,
				SectionTitle: sec.Title,
				URL:          sec.URL,
				ChunkIndex:   i,
				DocID:        ing.cfg.Corpus.DocID,
			})
		}
	}
	return texts, metas
}
