// Package api serves the test catalog and suite runs over HTTP.
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"demounit/app"
	"demounit/domain/core"
	"demounit/domain/run"
	"demounit/internal"
	apperrors "demounit/internal/errors"
	"demounit/internal/validation"
	"demounit/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

// Server routes API requests to the suite service.
type Server struct {
	router  *chi.Mux
	suite   *app.SuiteService
	catalog ports.ModelCatalog
	log     *internal.Logger
}

// NewServer creates the API around suite. Runs use models from catalog.
func NewServer(suite *app.SuiteService, catalog ports.ModelCatalog) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		suite:   suite,
		catalog: catalog,
		log:     internal.DefaultLogger.With("api"),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/tests", s.handleListTests)
		r.Get("/models", s.handleListModels)
		r.Get("/runs", s.handleListRuns)
		r.Post("/runs", s.handleCreateRun)
		r.Get("/runs/{id}", s.handleGetRun)
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type runResponse struct {
	*run.Run
	Summary run.Summary `json:"summary"`
}

func newRunResponse(vr *run.Run) runResponse {
	return runResponse{Run: vr, Summary: vr.Summarize()}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTests(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, validation.Catalog())
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.catalog.Names())
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, apperrors.InvalidInput("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	runs, err := s.suite.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]runResponse, len(runs))
	for i, vr := range runs {
		out[i] = newRunResponse(vr)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req app.RunRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, apperrors.InvalidInput("request body must be a JSON object with observations and models: "+err.Error()))
		return
	}

	vr, err := s.suite.RunNamed(r.Context(), req, s.catalog)
	if vr == nil {
		s.writeError(w, err)
		return
	}
	if err != nil {
		// scored but not stored
		s.log.Error("%v", err)
	}
	s.writeJSON(w, http.StatusCreated, newRunResponse(vr))
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, apperrors.InvalidInput(err.Error()))
		return
	}
	vr, err := s.suite.GetRun(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newRunResponse(vr))
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := apperrors.Classify(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.log.Error("%v", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error(), "code": code})
}

func statusFor(code string) int {
	switch code {
	case apperrors.CodeInvalidInput, apperrors.CodeValidationError:
		return http.StatusBadRequest
	case apperrors.CodeCapabilityMissing:
		return http.StatusUnprocessableEntity
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("encode response: %v", err)
	}
}
