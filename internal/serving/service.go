package serving

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/corpusgen/internal/store"
)

// Generator produces a command string for a natural-language query.
// Implementations wrap the trained sequence model; the service never
// touches model state directly.
type Generator interface {
	Generate(ctx context.Context, query string, temperature float64) (string, error)
}

// Service exposes the inference HTTP surface. It is constructed
// explicitly with its generator injected; there is no package-level
// model state.
type Service struct {
	generator Generator
	logger    *zap.Logger
}

func New(generator Generator, logger *zap.Logger) (*Service, error) {
	if generator == nil {
		return nil, errors.New("generator required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{generator: generator, logger: logger}, nil
}

func (s *Service) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/generate", s.handleGenerate)
	mux.HandleFunc("/", s.handleNotFound)
	return s.logMiddleware(mux)
}

type generateRequest struct {
	Query       string  `json:"query"`
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Script  string `json:"script"`
	IsCloud bool   `json:"is_cloud"`
	Query   string `json:"query"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}

	var request generateRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	if request.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing 'query' field"})
		return
	}

	script, generateErr := s.generator.Generate(r.Context(), request.Query, request.Temperature)
	if generateErr != nil {
		s.logger.Error("generation failed", zap.Error(generateErr))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: generateErr.Error()})
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{
		Script:  script,
		IsCloud: script == store.OutOfScopeSentinel,
		Query:   request.Query,
	})
}

func (s *Service) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
}

func (s *Service) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
