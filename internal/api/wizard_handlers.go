package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/roi-insights/internal/models"
)

// Wizard handlers. Validation failures come back as 200 with field_errors
// set and valid=false.

func (s *Server) handleStartWizard(w http.ResponseWriter, r *http.Request) {
	var req models.StartWizardRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	view, err := s.surveys.StartWizard(r.Context(), req.SurveyName)
	if err != nil {
		respondServiceError(w, r, err, "start wizard")
		return
	}

	respondJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGetWizard(w http.ResponseWriter, r *http.Request) {
	view, err := s.surveys.GetWizard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err, "get wizard")
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleDiscardWizard(w http.ResponseWriter, r *http.Request) {
	if err := s.surveys.DiscardWizard(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err, "discard wizard")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "wizard discarded",
	})
}

func (s *Server) handleSetWizardAnswer(w http.ResponseWriter, r *http.Request) {
	var req models.SetAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	view, err := s.surveys.SetWizardAnswer(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "questionId"), req.Value)
	if err != nil {
		respondServiceError(w, r, err, "set wizard answer")
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleAdvanceWizard(w http.ResponseWriter, r *http.Request) {
	view, err := s.surveys.AdvanceWizard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err, "advance wizard")
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleRetreatWizard(w http.ResponseWriter, r *http.Request) {
	view, err := s.surveys.RetreatWizard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err, "retreat wizard")
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleJumpWizard(w http.ResponseWriter, r *http.Request) {
	var req models.JumpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	view, err := s.surveys.JumpWizard(r.Context(), chi.URLParam(r, "id"), req.Section)
	if err != nil {
		respondServiceError(w, r, err, "jump wizard")
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleFinalizeWizard(w http.ResponseWriter, r *http.Request) {
	var req models.CommitWizardRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	view, err := s.surveys.FinalizeWizard(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		respondServiceError(w, r, err, "finalize wizard")
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleSaveWizard(w http.ResponseWriter, r *http.Request) {
	var req models.CommitWizardRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	view, err := s.surveys.SaveWizardProgress(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		respondServiceError(w, r, err, "save wizard")
		return
	}

	respondJSON(w, http.StatusOK, view)
}
