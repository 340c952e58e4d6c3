// Package server exposes the analysis and catalog operations over a
// JSON HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/everstacklabs/reviewd/internal/catalog"
	"github.com/everstacklabs/reviewd/internal/orchestrator"
	"github.com/everstacklabs/reviewd/internal/prompt"
)

// Server handles the HTTP API. AuthToken, when set, requires a bearer
// token on every /api/ route. MaxCodeBytes bounds request code size.
type Server struct {
	orch         *orchestrator.Service
	catalog      *catalog.Service
	authToken    string
	maxCodeBytes int
}

// New builds a Server over the orchestrator and catalog.
func New(orch *orchestrator.Service, cat *catalog.Service, authToken string, maxCodeBytes int) *Server {
	if maxCodeBytes <= 0 {
		maxCodeBytes = 262144
	}
	return &Server{orch: orch, catalog: cat, authToken: authToken, maxCodeBytes: maxCodeBytes}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/analyze", s.auth(s.handleAnalyze))
	mux.HandleFunc("GET /api/models", s.auth(s.handleListModels))
	mux.HandleFunc("POST /api/models", s.auth(s.handleAddModel))
	mux.HandleFunc("PUT /api/models/{id}", s.auth(s.handleUpdateModel))
	mux.HandleFunc("DELETE /api/models/{id}", s.auth(s.handleDeleteModel))
	mux.HandleFunc("POST /api/models/{id}/default", s.auth(s.handleSetDefault))
	mux.HandleFunc("POST /api/cache/clear", s.auth(s.handleCacheClear))
	mux.HandleFunc("GET /api/cache/stats", s.auth(s.handleCacheStats))
	return mux
}

func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	if s.authToken == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if got != s.authToken {
			writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type analyzeRequest struct {
	Code             string  `json:"code"`
	Language         string  `json:"language"`
	Model            string  `json:"model"`
	ResponseLanguage string  `json:"response_language"`
	MaxTokens        int     `json:"max_tokens"`
	Temperature      float64 `json:"temperature"`
}

type analyzeResponse struct {
	Result   string `json:"result"`
	Model    string `json:"model"`
	Adapter  string `json:"adapter"`
	Cached   bool   `json:"cached"`
	Fallback bool   `json:"fallback"`
	Warning  string `json:"warning,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeBody(r, s.maxCodeBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}
	if req.ResponseLanguage != "" && !prompt.ResponseLanguage(req.ResponseLanguage).Valid() {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("response_language %q must be native, english, or bilingual", req.ResponseLanguage))
		return
	}

	res := s.orch.Analyze(r.Context(), orchestrator.Request{
		ModelID:          req.Model,
		Code:             req.Code,
		Language:         req.Language,
		ResponseLanguage: prompt.ResponseLanguage(req.ResponseLanguage),
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
	})
	writeJSON(w, http.StatusOK, analyzeResponse{
		Result:   res.Text,
		Model:    res.ModelID,
		Adapter:  res.Adapter,
		Cached:   res.Cached,
		Fallback: res.Fallback,
		Warning:  res.Warning,
	})
}

func (s *Server) handleListModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"models":  s.catalog.List(),
		"default": s.catalog.DefaultID(),
	})
}

func (s *Server) handleAddModel(w http.ResponseWriter, r *http.Request) {
	var d catalog.Descriptor
	if err := decodeBody(r, s.maxCodeBytes, &d); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.catalog.Add(d); err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleUpdateModel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var u catalog.Update
	if err := decodeBody(r, s.maxCodeBytes, &u); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.catalog.Update(id, u); err != nil {
		writeCatalogError(w, err)
		return
	}
	d, err := s.catalog.Get(id)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Delete(r.PathValue("id")); err != nil {
		writeCatalogError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetDefault(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.catalog.SetDefault(id); err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"default": id})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, _ *http.Request) {
	n, err := s.orch.ClearCache()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	stats, err := s.orch.CacheStats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func decodeBody(r *http.Request, limit int, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, int64(limit)+1))
	if err != nil {
		return fmt.Errorf("reading request body: %w", err)
	}
	if len(body) > limit {
		return fmt.Errorf("request body exceeds %d bytes", limit)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func writeCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrDuplicateModel), errors.Is(err, catalog.ErrCannotDeleteDefault):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writing response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
