package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/kotaehq/kotae/internal/index"
	"github.com/kotaehq/kotae/internal/ingest"
	"github.com/kotaehq/kotae/internal/models"
	"github.com/kotaehq/kotae/internal/storage"
)

const maxQuestionLength = 512

type chatRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		s.respondError(w, http.StatusBadRequest, "question must not be blank")
		return
	}
	if len(question) > maxQuestionLength {
		question = question[:maxQuestionLength]
	}
	s.logger.Debug("chat request", zap.String("question", question))

	result, err := s.engine.Answer(r.Context(), question)
	if err != nil {
		var upstream *models.UpstreamError
		switch {
		case errors.Is(err, index.ErrNotInitialized):
			s.respondError(w, http.StatusServiceUnavailable,
				"knowledge base not initialized; call POST /api/ingest first")
		case errors.As(err, &upstream):
			s.logger.Error("upstream failure", zap.String("stage", upstream.Stage), zap.Error(err))
			s.respondError(w, http.StatusBadGateway, err.Error())
		default:
			s.logger.Error("answer failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

type ingestRequest struct {
	Path string `json:"path,omitempty"`
}

type ingestResponse struct {
	Status string `json:"status"`
	ingest.Result
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	path := s.config.Corpus.Path
	if r.Body != nil && r.ContentLength != 0 {
		var req ingestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Path != "" {
			path = req.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "no corpus path configured")
		return
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "corpus document not found: "+path)
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("ingest started", zap.String("path", path))

	result, err := s.ingestor.Rebuild(r.Context(), path)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrNoSections), errors.Is(err, ingest.ErrNoChunks):
			s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			s.logger.Error("ingest failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.logger.Info("ingest complete",
		zap.Int("sections", result.Sections),
		zap.Int("chunks", result.Chunks),
		zap.String("generation", result.Generation))
	s.respondJSON(w, http.StatusOK, ingestResponse{Status: "success", Result: *result})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	chunks, err := s.meta.Count(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	generation, createdAt, err := s.meta.Generation(ctx)
	if err != nil {
		s.logger.Error("status: load generation failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	_, statErr := os.Stat(index.IndexPath(s.config.Storage.Root))
	resp := map[string]interface{}{
		"initialized":       statErr == nil,
		"chunks":            chunks,
		"vector_index_size": s.cache.Size(),
		"generation":        generation,
	}
	if !createdAt.IsZero() {
		resp["generation_created_at"] = createdAt
	}
	if diskBytes, err := storage.DiskUsageBytes(s.config.Storage.Root); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = map[string]interface{}{
		"embedding_model":      s.config.Embedding.Model,
		"embedding_dimensions": s.config.Embedding.Dimensions,
		"chunk_size":           s.config.Search.ChunkSize,
		"chunk_overlap":        s.config.Search.ChunkOverlap,
		"top_k":                s.config.Search.TopK,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
