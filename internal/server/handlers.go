package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/wadai/internal/ingest"
	"github.com/hyperjump/wadai/internal/keyword"
	"github.com/hyperjump/wadai/internal/models"
	"github.com/hyperjump/wadai/internal/storage"
)

const (
	defaultSearchLimit = 20
	defaultInputsLimit = 50
	maxLimit           = 500
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"time": s.now().Format(time.RFC3339),
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingest.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Debug("ingest: undecodable body", zap.Error(err))
		s.respondError(w, http.StatusBadRequest, ingest.ErrEmptyText.Error())
		return
	}
	in, err := s.ingester.Ingest(r.Context(), req)
	switch {
	case errors.Is(err, ingest.ErrEmptyText):
		s.respondError(w, http.StatusBadRequest, ingest.ErrEmptyText.Error())
		return
	case errors.Is(err, ingest.ErrInvalidRequest):
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, storage.ErrAlreadyExists):
		s.respondError(w, http.StatusConflict, "input already exists")
		return
	case err != nil:
		s.logger.Error("ingest failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.respondJSON(w, http.StatusCreated, in)
}

func (s *Server) handleListTopics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, err := parseLimit(r.URL.Query().Get("limit"), 0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		topics, err := s.storage.ListTopics(ctx)
		if err != nil {
			s.logger.Error("list topics failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if limit > 0 && len(topics) > limit {
			topics = topics[:limit]
		}
		s.logger.Debug("list topics", zap.Int("count", len(topics)))
		s.respondJSON(w, http.StatusOK, topics)
		return
	}

	if s.search == nil {
		s.respondError(w, http.StatusNotImplemented, "topic search not enabled")
		return
	}
	if limit == 0 {
		limit = defaultSearchLimit
	}
	hits, err := s.search.Search(ctx, q, limit, &keyword.SearchOptions{TitleBoost: 2, Fuzziness: 1})
	if err != nil {
		s.logger.Error("topic search failed", zap.String("query", q), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	topics := make([]*models.Topic, 0, len(hits))
	for _, h := range hits {
		t, err := s.storage.GetTopic(ctx, h.ID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			s.logger.Error("get topic failed", zap.String("id", h.ID), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "internal error")
			return
		}
		topics = append(topics, t)
	}
	s.logger.Debug("search topics", zap.String("query", q), zap.Int("count", len(topics)))
	s.respondJSON(w, http.StatusOK, topics)
}

func (s *Server) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, err := s.storage.GetTopic(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "topic not found")
		return
	}
	if err != nil {
		s.logger.Error("get topic failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.respondJSON(w, http.StatusOK, t)
}

func (s *Server) handleListInputs(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"), defaultInputsLimit)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			s.respondError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
	}
	inputs, err := s.storage.ListInputs(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list inputs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.respondJSON(w, http.StatusOK, inputs)
}

func (s *Server) handleGetInput(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in, err := s.storage.GetInput(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "input not found")
		return
	}
	if err != nil {
		s.logger.Error("get input failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.respondJSON(w, http.StatusOK, in)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	topics, err := s.storage.CountTopics(ctx)
	if err != nil {
		s.logger.Error("status: count topics failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	inputs, err := s.storage.CountInputs(ctx)
	if err != nil {
		s.logger.Error("status: count inputs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	resp := map[string]any{
		"topics": topics,
		"inputs": inputs,
	}
	if s.config != nil {
		cfg := s.config
		info := map[string]any{
			"storage_backend":      cfg.Storage.Backend,
			"embedding_provider":   cfg.Embedding.Provider,
			"embedding_dimensions": cfg.Embedding.Dimensions,
			"classifier":           cfg.Classifier.Provider,
			"chat_model":           cfg.OpenAI.ChatModel,
			"similarity_threshold": cfg.Topics.SimilarityThreshold,
			"matcher":              cfg.Topics.Matcher,
			"keyword_index_path":   cfg.Storage.KeywordIndexPath,
		}
		paths := []string{cfg.Storage.KeywordIndexPath}
		if cfg.Storage.Backend != "jsonserver" {
			info["database_path"] = cfg.Storage.DatabasePath
			paths = append(paths, cfg.Storage.DatabasePath)
		} else {
			info["json_server_url"] = cfg.Storage.JSONServerURL
		}
		if s.inbox != nil {
			info["inbox_directories"] = s.inbox.Directories()
		}
		if diskBytes, err := storage.DiskUsageBytes(paths...); err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
		resp["config"] = info
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func parseLimit(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}
	return min(n, maxLimit), nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
