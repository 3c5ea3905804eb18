// Package rag answers questions over the indexed corpus: retrieve,
// prompt, complete, grade.
package rag

import (
	"context"

	"go.uber.org/zap"

	"github.com/kotaehq/kotae/internal/config"
	"github.com/kotaehq/kotae/internal/embedding"
	"github.com/kotaehq/kotae/internal/expand"
	"github.com/kotaehq/kotae/internal/index"
	"github.com/kotaehq/kotae/internal/llm"
	"github.com/kotaehq/kotae/internal/models"
)

// Engine wires retrieval and answer synthesis together.
type Engine struct {
	embedder embedding.Embedder
	cache    *index.Cache
	chat     llm.Client
	cfg      *config.Config
	logger   *zap.Logger // optional; when set, logs retrieval and answer events
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a logger for retrieval and answer debug output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an answer engine with the given dependencies.
func NewEngine(cfg *config.Config, embedder embedding.Embedder, cache *index.Cache, chat llm.Client, opts ...Option) *Engine {
	e := &Engine{
		embedder: embedder,
		cache:    cache,
		chat:     chat,
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Retrieve expands the question, embeds it, and returns the top-k
// chunks by similarity. Fails with index.ErrNotInitialized when no
// index has been built yet.
func (e *Engine) Retrieve(ctx context.Context, question string) ([]models.RetrievalHit, error) {
	snap, err := e.cache.Get(ctx)
	if err != nil {
		return nil, err
	}

	expanded := expand.Expand(question)
	vec, err := e.embedder.Embed(ctx, expanded)
	if err != nil {
		return nil, models.NewUpstreamError(models.StageEmbed, err)
	}

	hits, err := snap.Search(vec, e.cfg.Search.TopK)
	if err != nil {
		return nil, err
	}
	if e.logger != nil {
		top := 0.0
		if len(hits) > 0 {
			top = hits[0].Score
		}
		e.logger.Debug("retrieved chunks",
			zap.String("expanded_query", expanded),
			zap.Int("hits", len(hits)),
			zap.Float64("top_score", top))
	}
	return hits, nil
}

// Answer runs the full pipeline for one question: retrieve, build the
// grounded prompt, call the chat model, and grade the result.
func (e *Engine) Answer(ctx context.Context, question string) (*models.AnswerResult, error) {
	hits, err := e.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	answer, err := e.chat.Complete(ctx, BuildSystemPrompt(hits), question)
	if err != nil {
		return nil, models.NewUpstreamError(models.StageChat, err)
	}

	result := &models.AnswerResult{
		Answer:  answer,
		Sources: BuildSources(hits, e.cfg.Search.MaxSources, e.cfg.Search.SnippetLength),
		Confidence: ConfidenceLevel(hits, answer,
			e.cfg.Search.HighThreshold, e.cfg.Search.MediumThreshold),
	}
	if e.logger != nil {
		e.logger.Info("question answered",
			zap.Int("sources", len(result.Sources)),
			zap.String("confidence", string(result.Confidence)))
	}
	return result, nil
}
