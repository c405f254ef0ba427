package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/terra-clan/roi-insights/internal/storage"
	"github.com/terra-clan/roi-insights/internal/survey"
	"github.com/terra-clan/roi-insights/internal/wizard"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondServiceError maps service errors onto the envelope. Unexpected
// errors are logged here, once.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	status, code, message := classifyError(err)
	if status == http.StatusInternalServerError {
		slog.Error("failed to "+action, "error", err, "request_id", middleware.GetReqID(r.Context()))
		message = "failed to " + action
	}
	respondError(w, status, code, message)
}

func classifyError(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, survey.ErrSurveyNotFound),
		errors.Is(err, survey.ErrReportNotFound),
		errors.Is(err, survey.ErrWizardNotFound):
		return http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, survey.ErrInvalidName),
		errors.Is(err, survey.ErrNoAnswers),
		errors.Is(err, wizard.ErrUnknownQuestion),
		errors.Is(err, wizard.ErrSectionOutOfRange):
		return http.StatusBadRequest, "validation_error", err.Error()
	case errors.Is(err, storage.ErrVersionConflict):
		return http.StatusConflict, "conflict", "a concurrent analysis claimed the same report version"
	case errors.Is(err, survey.ErrAnalysisFailed):
		return http.StatusBadGateway, "analysis_failed", err.Error()
	}
	return http.StatusInternalServerError, "internal_error", ""
}

// decodeOptionalJSON decodes a request body into v; an empty body is allowed
func decodeOptionalJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// surveyName returns the decoded {name} path parameter. chi routes on
// RawPath when it is set, so only then is the parameter still escaped.
func surveyName(r *http.Request) string {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return name
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.surveys.Ping(r.Context()); err != nil {
		slog.Warn("readiness check failed", "error", err)
		respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// Taxonomy handler

func (s *Server) handleGetTaxonomy(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.surveys.Taxonomy())
}
