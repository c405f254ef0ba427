package storage

import (
	"context"
	"errors"
	"time"

	"github.com/terra-clan/roi-insights/internal/models"
)

// ErrVersionConflict is returned when two reports race for the same version
var ErrVersionConflict = errors.New("report version already exists")

// Repository defines the interface for survey persistence
type Repository interface {
	// Surveys
	ListSurveyNames(ctx context.Context) ([]string, error)
	GetSurveyByName(ctx context.Context, name string) (*models.Survey, error)
	// SaveSurvey inserts the survey or, when the name exists, replaces its
	// responses and modification date. ID and DateCreated are set from the
	// stored row.
	SaveSurvey(ctx context.Context, s *models.Survey) error
	// DeleteSurvey removes the survey and its reports; false when absent
	DeleteSurvey(ctx context.Context, name string) (bool, error)

	// Reports
	// CreateReport stores the report under the next version for its survey
	// and sets r.Version.
	CreateReport(ctx context.Context, r *models.Report) error
	ListReportVersions(ctx context.Context, surveyName string) ([]models.ReportVersion, error)
	GetReportVersion(ctx context.Context, surveyName string, version int) (*models.Report, error)
	// PruneReports deletes reports created before the cutoff, always keeping
	// the newest keep versions of every survey. Returns the number deleted.
	PruneReports(ctx context.Context, before time.Time, keep int) (int64, error)

	// API Clients
	CreateClient(ctx context.Context, c *models.ApiClient) error
	GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error)
	UpdateClientLastUsed(ctx context.Context, apiKey string) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}
