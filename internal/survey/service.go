// Package survey hosts the survey records, their analyses and the
// server-side wizard sessions that edit them.
package survey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/roi-insights/internal/analysis"
	"github.com/terra-clan/roi-insights/internal/models"
	"github.com/terra-clan/roi-insights/internal/report"
	"github.com/terra-clan/roi-insights/internal/storage"
	"github.com/terra-clan/roi-insights/internal/waterfall"
	"github.com/terra-clan/roi-insights/internal/wizard"
)

// Common errors
var (
	ErrSurveyNotFound = errors.New("survey not found")
	ErrReportNotFound = errors.New("report not found")
	ErrWizardNotFound = errors.New("wizard session not found")
	ErrInvalidName    = errors.New("invalid survey name")
	ErrAnalysisFailed = errors.New("analysis failed")
	ErrNoAnswers      = errors.New("survey has no answered questions")
)

const maxNameLength = 255

// ProgressFunc receives analysis status updates
type ProgressFunc func(models.AnalysisProgress)

// Manager defines the survey operations exposed over the API
type Manager interface {
	Taxonomy() *models.Taxonomy

	ListSurveys(ctx context.Context) ([]string, error)
	GetSurvey(ctx context.Context, name string) (*models.Survey, error)
	SaveSurvey(ctx context.Context, name string, responses models.AnswerSet) (*models.Survey, error)
	DeleteSurvey(ctx context.Context, name string) error
	DuplicateSurvey(ctx context.Context, name string) (*models.Survey, error)
	Waterfall(ctx context.Context, name string) (models.WaterfallResult, error)

	Analyze(ctx context.Context, name string, answers models.AnswerSet, progress ProgressFunc) (*models.AnalyzeResponse, error)
	ListReports(ctx context.Context, name string) ([]models.ReportVersion, error)
	GetReport(ctx context.Context, name string, version int) (*models.Report, error)
	ReportPDF(ctx context.Context, name string, version int) ([]byte, error)
	ReportHTML(ctx context.Context, name string, version int) (string, error)
	PruneReports(ctx context.Context, before time.Time, keep int) (int64, error)

	StartWizard(ctx context.Context, surveyName string) (*models.WizardView, error)
	GetWizard(ctx context.Context, id string) (*models.WizardView, error)
	SetWizardAnswer(ctx context.Context, id, questionID string, value models.Answer) (*models.WizardView, error)
	AdvanceWizard(ctx context.Context, id string) (*models.WizardView, error)
	RetreatWizard(ctx context.Context, id string) (*models.WizardView, error)
	JumpWizard(ctx context.Context, id string, section int) (*models.WizardView, error)
	FinalizeWizard(ctx context.Context, id, name string) (*models.WizardView, error)
	SaveWizardProgress(ctx context.Context, id, name string) (*models.WizardView, error)
	DiscardWizard(ctx context.Context, id string) error

	Ping(ctx context.Context) error
}

// Options holds optional service settings
type Options struct {
	// PublicURL prefixes the analysis links handed back to clients
	PublicURL string
	// Now overrides the clock in tests
	Now func() time.Time
}

// Service implements Manager
type Service struct {
	repo      storage.Repository
	taxonomy  *models.Taxonomy
	analyzer  analysis.Analyzer
	drafts    wizard.Store
	publicURL string
	now       func() time.Time

	mu    sync.Mutex
	locks map[string]*wizardLock
}

// wizardLock serializes updates to one wizard session. refs counts holders
// and waiters; the entry is removed when it drops to zero.
type wizardLock struct {
	mu   sync.Mutex
	refs int
}

// Ensure interface compliance
var _ Manager = (*Service)(nil)

// NewService creates the survey service
func NewService(
	repo storage.Repository,
	taxonomy *models.Taxonomy,
	analyzer analysis.Analyzer,
	drafts wizard.Store,
	opts Options,
) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:      repo,
		taxonomy:  taxonomy,
		analyzer:  analyzer,
		drafts:    drafts,
		publicURL: strings.TrimSuffix(opts.PublicURL, "/"),
		now:       now,
		locks:     make(map[string]*wizardLock),
	}
}

// Taxonomy returns the survey taxonomy
func (s *Service) Taxonomy() *models.Taxonomy {
	return s.taxonomy
}

// Ping checks the database and the draft store
func (s *Service) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := s.drafts.Ping(ctx); err != nil {
		return fmt.Errorf("draft store ping failed: %w", err)
	}
	return nil
}

// NormalizeName trims a survey name and checks it can be used as a key
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", fmt.Errorf("%w: name is required", ErrInvalidName)
	case len(name) > maxNameLength:
		return "", fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	case strings.ContainsAny(name, "/\\"):
		return "", fmt.Errorf("%w: name must not contain slashes", ErrInvalidName)
	}
	return name, nil
}

// --- Surveys ---

// ListSurveys returns saved survey names
func (s *Service) ListSurveys(ctx context.Context) ([]string, error) {
	return s.repo.ListSurveyNames(ctx)
}

// GetSurvey returns a saved survey
func (s *Service) GetSurvey(ctx context.Context, name string) (*models.Survey, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}

	survey, err := s.repo.GetSurveyByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if survey == nil {
		return nil, ErrSurveyNotFound
	}
	return survey, nil
}

// SaveSurvey creates the survey on first save and updates it in place afterwards
func (s *Service) SaveSurvey(ctx context.Context, name string, responses models.AnswerSet) (*models.Survey, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	survey := &models.Survey{
		ID:           uuid.New().String(),
		Name:         name,
		Responses:    responses.Clone(),
		DateCreated:  now,
		DateModified: now,
	}
	if err := s.repo.SaveSurvey(ctx, survey); err != nil {
		return nil, err
	}

	slog.Info("survey saved", "survey", name, "answered", responses.AnsweredCount())
	return survey, nil
}

// DeleteSurvey removes a survey and its reports
func (s *Service) DeleteSurvey(ctx context.Context, name string) error {
	name, err := NormalizeName(name)
	if err != nil {
		return err
	}

	deleted, err := s.repo.DeleteSurvey(ctx, name)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrSurveyNotFound
	}

	slog.Info("survey deleted", "survey", name)
	return nil
}

// DuplicateSurvey copies a survey under "<name> (Copy)", numbering the copy
// when that name is taken.
func (s *Service) DuplicateSurvey(ctx context.Context, name string) (*models.Survey, error) {
	source, err := s.GetSurvey(ctx, name)
	if err != nil {
		return nil, err
	}

	base := source.Name + " (Copy)"
	candidate := base
	for n := 2; ; n++ {
		existing, err := s.repo.GetSurveyByName(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			break
		}
		candidate = fmt.Sprintf("%s %d", base, n)
	}

	return s.SaveSurvey(ctx, candidate, source.Responses)
}

// Waterfall transforms the stored responses of a survey
func (s *Service) Waterfall(ctx context.Context, name string) (models.WaterfallResult, error) {
	survey, err := s.GetSurvey(ctx, name)
	if err != nil {
		return models.WaterfallResult{}, err
	}
	return waterfall.Transform(survey.Responses, s.taxonomy), nil
}

// --- Analysis and reports ---

// Analyze runs the analysis for a survey and stores it as a new report
// version. When answers is nil the stored responses are used.
func (s *Service) Analyze(ctx context.Context, name string, answers models.AnswerSet, progress ProgressFunc) (*models.AnalyzeResponse, error) {
	if progress == nil {
		progress = func(models.AnalysisProgress) {}
	}

	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}

	progress(models.AnalysisProgress{Stage: models.StageCollecting, Message: "collecting responses"})
	if answers == nil {
		survey, err := s.GetSurvey(ctx, name)
		if err != nil {
			return nil, err
		}
		answers = survey.Responses
	}

	forms := analysis.BuildForms(s.taxonomy, answers)
	if len(forms) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAnswers, name)
	}

	progress(models.AnalysisProgress{Stage: models.StageGenerating, Message: "generating analysis with " + s.analyzer.Name()})
	start := s.now()
	result, err := s.analyzer.Analyze(ctx, forms)
	if err != nil {
		slog.Error("analysis failed", "survey", name, "provider", s.analyzer.Name(), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	progress(models.AnalysisProgress{Stage: models.StageStoring, Message: "storing report"})
	rep := &models.Report{
		ID:         uuid.New().String(),
		SurveyName: name,
		Analysis:   result.Analysis,
		Summary:    result.Summary,
		Forms:      forms,
		Provider:   result.Provider,
		Model:      result.Model,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.createReport(ctx, rep); err != nil {
		return nil, err
	}

	slog.Info("analysis stored",
		"survey", name,
		"version", rep.Version,
		"provider", rep.Provider,
		"duration_ms", s.now().Sub(start).Milliseconds(),
	)
	progress(models.AnalysisProgress{Stage: models.StageDone, Message: fmt.Sprintf("report version %d ready", rep.Version)})

	return &models.AnalyzeResponse{
		Analysis:     rep.Analysis,
		Summary:      rep.Summary,
		AnalysisLink: s.reportLink(name, rep.Version),
		Version:      rep.Version,
		Waterfall:    waterfall.Transform(answers, s.taxonomy),
	}, nil
}

// createReport retries once when a concurrent analysis took the same version
func (s *Service) createReport(ctx context.Context, rep *models.Report) error {
	err := s.repo.CreateReport(ctx, rep)
	if errors.Is(err, storage.ErrVersionConflict) {
		err = s.repo.CreateReport(ctx, rep)
	}
	return err
}

func (s *Service) reportLink(name string, version int) string {
	return fmt.Sprintf("%s/api/v1/surveys/%s/reports/%d/html", s.publicURL, url.PathEscape(name), version)
}

// ListReports returns the report versions of a survey, newest first
func (s *Service) ListReports(ctx context.Context, name string) ([]models.ReportVersion, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	return s.repo.ListReportVersions(ctx, name)
}

// GetReport returns one report version
func (s *Service) GetReport(ctx context.Context, name string, version int) (*models.Report, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}

	rep, err := s.repo.GetReportVersion(ctx, name, version)
	if err != nil {
		return nil, err
	}
	if rep == nil {
		return nil, ErrReportNotFound
	}
	return rep, nil
}

// ReportPDF renders a report version as PDF
func (s *Service) ReportPDF(ctx context.Context, name string, version int) ([]byte, error) {
	rep, err := s.GetReport(ctx, name, version)
	if err != nil {
		return nil, err
	}
	return report.PDF(rep, s.reportWaterfall(rep))
}

// ReportHTML renders a report version as an HTML page
func (s *Service) ReportHTML(ctx context.Context, name string, version int) (string, error) {
	rep, err := s.GetReport(ctx, name, version)
	if err != nil {
		return "", err
	}
	return report.HTML(rep, s.reportWaterfall(rep))
}

// reportWaterfall rebuilds the chart from the answers the report was made from
func (s *Service) reportWaterfall(rep *models.Report) models.WaterfallResult {
	return waterfall.Transform(analysis.AnswersFromForms(rep.Forms), s.taxonomy)
}

// PruneReports applies report retention
func (s *Service) PruneReports(ctx context.Context, before time.Time, keep int) (int64, error) {
	return s.repo.PruneReports(ctx, before, keep)
}
