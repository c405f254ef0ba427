package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/roi-insights/internal/models"
)

// Survey handlers

func (s *Server) handleListSurveys(w http.ResponseWriter, r *http.Request) {
	names, err := s.surveys.ListSurveys(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "list surveys")
		return
	}

	respondJSON(w, http.StatusOK, models.SurveyList{
		Surveys: names,
		Total:   len(names),
	})
}

func (s *Server) handleGetSurvey(w http.ResponseWriter, r *http.Request) {
	sv, err := s.surveys.GetSurvey(r.Context(), surveyName(r))
	if err != nil {
		respondServiceError(w, r, err, "get survey")
		return
	}

	respondJSON(w, http.StatusOK, sv)
}

func (s *Server) handleSaveSurvey(w http.ResponseWriter, r *http.Request) {
	var req models.SaveSurveyRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Responses == nil {
		req.Responses = models.AnswerSet{}
	}

	sv, err := s.surveys.SaveSurvey(r.Context(), surveyName(r), req.Responses)
	if err != nil {
		respondServiceError(w, r, err, "save survey")
		return
	}

	respondJSON(w, http.StatusOK, sv)
}

func (s *Server) handleDeleteSurvey(w http.ResponseWriter, r *http.Request) {
	if err := s.surveys.DeleteSurvey(r.Context(), surveyName(r)); err != nil {
		respondServiceError(w, r, err, "delete survey")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "survey deleted",
	})
}

func (s *Server) handleDuplicateSurvey(w http.ResponseWriter, r *http.Request) {
	sv, err := s.surveys.DuplicateSurvey(r.Context(), surveyName(r))
	if err != nil {
		respondServiceError(w, r, err, "duplicate survey")
		return
	}

	respondJSON(w, http.StatusCreated, sv)
}

func (s *Server) handleGetWaterfall(w http.ResponseWriter, r *http.Request) {
	wf, err := s.surveys.Waterfall(r.Context(), surveyName(r))
	if err != nil {
		respondServiceError(w, r, err, "build waterfall")
		return
	}

	respondJSON(w, http.StatusOK, wf)
}

// Analysis and report handlers

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	resp, err := s.surveys.Analyze(r.Context(), surveyName(r), req.Responses, nil)
	if err != nil {
		respondServiceError(w, r, err, "analyze survey")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	versions, err := s.surveys.ListReports(r.Context(), surveyName(r))
	if err != nil {
		respondServiceError(w, r, err, "list reports")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"reports": versions,
		"total":   len(versions),
	})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	version, ok := reportVersion(w, r)
	if !ok {
		return
	}

	rep, err := s.surveys.GetReport(r.Context(), surveyName(r), version)
	if err != nil {
		respondServiceError(w, r, err, "get report")
		return
	}

	respondJSON(w, http.StatusOK, rep)
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	version, ok := reportVersion(w, r)
	if !ok {
		return
	}

	name := surveyName(r)
	pdf, err := s.surveys.ReportPDF(r.Context(), name, version)
	if err != nil {
		respondServiceError(w, r, err, "render report pdf")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(reportFilename(name, version)))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

func (s *Server) handleReportHTML(w http.ResponseWriter, r *http.Request) {
	version, ok := reportVersion(w, r)
	if !ok {
		return
	}

	page, err := s.surveys.ReportHTML(r.Context(), surveyName(r), version)
	if err != nil {
		respondServiceError(w, r, err, "render report html")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(page))
}

func reportVersion(w http.ResponseWriter, r *http.Request) (int, bool) {
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || version < 1 {
		respondError(w, http.StatusBadRequest, "validation_error", "version must be a positive integer")
		return 0, false
	}
	return version, true
}

// reportFilename keeps letters, digits, dashes and underscores of the survey name
func reportFilename(name string, version int) string {
	safe := make([]rune, 0, len(name))
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			safe = append(safe, c)
		case c == ' ':
			safe = append(safe, '_')
		}
	}
	if len(safe) == 0 {
		safe = []rune("report")
	}
	return string(safe) + "-v" + strconv.Itoa(version) + ".pdf"
}
