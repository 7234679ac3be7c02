package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/tsukihi/ruiji/internal/collection"
	"github.com/tsukihi/ruiji/internal/milvus"
	"github.com/tsukihi/ruiji/internal/models"
)

type insertRequest struct {
	Records []models.Record `json:"records,omitempty"`
	Texts   []string        `json:"texts,omitempty"`
	Source  string          `json:"source,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("text", query.Text), zap.Int("limit", query.Limit))
	response, err := s.handler.Search(r.Context(), &query)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	var req insertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Records) > 0 && len(req.Texts) > 0 {
		s.respondError(w, http.StatusBadRequest, "provide records or texts, not both")
		return
	}
	if len(req.Records) == 0 && len(req.Texts) == 0 {
		s.respondError(w, http.StatusBadRequest, "records or texts required")
		return
	}
	var (
		result *models.InsertResult
		err    error
	)
	if len(req.Texts) > 0 {
		result, err = s.handler.InsertTexts(r.Context(), req.Texts, req.Source)
	} else {
		result, err = s.handler.Insert(r.Context(), req.Records)
	}
	if err != nil {
		s.logger.Error("insert failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleEnsure(w http.ResponseWriter, r *http.Request) {
	if err := s.handler.Ensure(r.Context()); err != nil {
		s.logger.Error("ensure collection failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"collection": s.handler.Schema().Name,
		"status":     "ready",
	})
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	if err := s.handler.Drop(r.Context()); err != nil {
		s.logger.Error("drop collection failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"collection": s.handler.Schema().Name,
		"status":     "dropped",
	})
}

func (s *Server) handleRemoveSource(w http.ResponseWriter, r *http.Request) {
	if s.ingestor == nil {
		s.respondError(w, http.StatusNotImplemented, "ingest not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	s.logger.Debug("remove source request", zap.String("path", path))
	if err := s.ingestor.RemoveSource(r.Context(), path); err != nil {
		s.logger.Error("remove source failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"path": path, "status": "removed"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.handler.Status(r.Context())
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, collection.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, collection.ErrSchemaConflict):
		return http.StatusConflict
	case errors.Is(err, milvus.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
