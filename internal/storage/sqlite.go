package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/terra-clan/roi-insights/internal/models"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

// Times are stored as fixed-width UTC text so they sort lexically
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteRepository implements Repository on an embedded SQLite database
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at path.
// ":memory:" gives a private in-memory database.
func NewSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writers; one connection also keeps :memory: consistent
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Ping checks database connectivity
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// --- Surveys ---

// ListSurveyNames returns all survey names, most recently modified first
func (r *SQLiteRepository) ListSurveyNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM surveys ORDER BY date_modified DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list surveys: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan survey name: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

// GetSurveyByName retrieves a survey by its unique name
func (r *SQLiteRepository) GetSurveyByName(ctx context.Context, name string) (*models.Survey, error) {
	query := `
		SELECT id, name, responses, date_created, date_modified
		FROM surveys
		WHERE name = ?
	`

	var s models.Survey
	var responses, created, modified string

	err := r.db.QueryRowContext(ctx, query, name).Scan(&s.ID, &s.Name, &responses, &created, &modified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get survey: %w", err)
	}

	if s.DateCreated, err = parseTime(created); err != nil {
		return nil, err
	}
	if s.DateModified, err = parseTime(modified); err != nil {
		return nil, err
	}
	if err := decodeResponses([]byte(responses), &s); err != nil {
		return nil, err
	}

	return &s, nil
}

// SaveSurvey upserts a survey by name
func (r *SQLiteRepository) SaveSurvey(ctx context.Context, s *models.Survey) error {
	responsesJSON, err := encodeResponses(s.Responses)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO surveys (id, name, responses, date_created, date_modified)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE
		SET responses = excluded.responses, date_modified = excluded.date_modified
		RETURNING id, date_created
	`

	var created string
	err = r.db.QueryRowContext(ctx, query,
		s.ID,
		s.Name,
		string(responsesJSON),
		formatTime(s.DateCreated),
		formatTime(s.DateModified),
	).Scan(&s.ID, &created)
	if err != nil {
		return fmt.Errorf("failed to save survey: %w", err)
	}

	s.DateCreated, err = parseTime(created)
	return err
}

// DeleteSurvey deletes a survey and its reports
func (r *SQLiteRepository) DeleteSurvey(ctx context.Context, name string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE survey_name = ?`, name); err != nil {
		return false, fmt.Errorf("failed to delete reports: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM surveys WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("failed to delete survey: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit delete: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// --- Reports ---

// CreateReport stores a report as the next version of its survey
func (r *SQLiteRepository) CreateReport(ctx context.Context, rep *models.Report) error {
	analysisJSON, formsJSON, err := encodeReport(rep)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO reports (id, survey_name, version, analysis, summary, forms, provider, model, created_at)
		SELECT ?, ?, COALESCE(MAX(version), 0) + 1, ?, ?, ?, ?, ?, ?
		FROM reports
		WHERE survey_name = ?
		RETURNING version
	`

	err = r.db.QueryRowContext(ctx, query,
		rep.ID,
		rep.SurveyName,
		string(analysisJSON),
		rep.Summary,
		string(formsJSON),
		rep.Provider,
		nullString(rep.Model),
		formatTime(rep.CreatedAt),
		rep.SurveyName,
	).Scan(&rep.Version)

	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrVersionConflict
		}
		return fmt.Errorf("failed to create report: %w", err)
	}

	return nil
}

// ListReportVersions returns the stored versions of a survey, newest first
func (r *SQLiteRepository) ListReportVersions(ctx context.Context, surveyName string) ([]models.ReportVersion, error) {
	query := `
		SELECT version, created_at
		FROM reports
		WHERE survey_name = ?
		ORDER BY version DESC
	`

	rows, err := r.db.QueryContext(ctx, query, surveyName)
	if err != nil {
		return nil, fmt.Errorf("failed to list report versions: %w", err)
	}
	defer rows.Close()

	versions := []models.ReportVersion{}
	for rows.Next() {
		var v models.ReportVersion
		var created string
		if err := rows.Scan(&v.Version, &created); err != nil {
			return nil, fmt.Errorf("failed to scan report version: %w", err)
		}
		if v.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}

	return versions, rows.Err()
}

// GetReportVersion retrieves one report version
func (r *SQLiteRepository) GetReportVersion(ctx context.Context, surveyName string, version int) (*models.Report, error) {
	query := `
		SELECT id, survey_name, version, analysis, summary, forms, provider, model, created_at
		FROM reports
		WHERE survey_name = ? AND version = ?
	`

	var rep models.Report
	var model sql.NullString
	var analysisJSON, formsJSON, created string

	err := r.db.QueryRowContext(ctx, query, surveyName, version).Scan(
		&rep.ID,
		&rep.SurveyName,
		&rep.Version,
		&analysisJSON,
		&rep.Summary,
		&formsJSON,
		&rep.Provider,
		&model,
		&created,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	rep.Model = model.String
	if rep.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if err := decodeReport([]byte(analysisJSON), []byte(formsJSON), &rep); err != nil {
		return nil, err
	}

	return &rep, nil
}

// PruneReports deletes expired reports beyond the newest keep per survey
func (r *SQLiteRepository) PruneReports(ctx context.Context, before time.Time, keep int) (int64, error) {
	result, err := r.db.ExecContext(ctx, pruneReportsQuery("?", "?"), formatTime(before), keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune reports: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// --- API Clients ---

// CreateClient registers an API client
func (r *SQLiteRepository) CreateClient(ctx context.Context, c *models.ApiClient) error {
	permissionsJSON, metadataJSON, err := encodeClient(c)
	if err != nil {
		return err
	}

	var metadata sql.NullString
	if metadataJSON != nil {
		metadata = sql.NullString{String: string(metadataJSON), Valid: true}
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO api_clients (name, api_key, is_active, created_at, permissions, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.Name, c.ApiKey, c.IsActive, formatTime(c.CreatedAt), string(permissionsJSON), metadata)
	if err != nil {
		return fmt.Errorf("failed to create api client: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read api client id: %w", err)
	}
	c.ID = int(id)
	return nil
}

// GetClientByApiKey retrieves an API client by its key
func (r *SQLiteRepository) GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error) {
	query := `
		SELECT id, name, api_key, is_active, created_at, last_used_at, permissions, metadata
		FROM api_clients
		WHERE api_key = ?
	`

	var client models.ApiClient
	var created, permissions string
	var lastUsedAt, metadata sql.NullString

	err := r.db.QueryRowContext(ctx, query, apiKey).Scan(
		&client.ID,
		&client.Name,
		&client.ApiKey,
		&client.IsActive,
		&created,
		&lastUsedAt,
		&permissions,
		&metadata,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get api client: %w", err)
	}

	if client.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if lastUsedAt.Valid {
		t, err := parseTime(lastUsedAt.String)
		if err != nil {
			return nil, err
		}
		client.LastUsedAt = &t
	}

	var metadataJSON []byte
	if metadata.Valid {
		metadataJSON = []byte(metadata.String)
	}
	if err := decodeClient([]byte(permissions), metadataJSON, &client); err != nil {
		return nil, err
	}

	return &client, nil
}

// UpdateClientLastUsed updates the last_used_at timestamp for a client
func (r *SQLiteRepository) UpdateClientLastUsed(ctx context.Context, apiKey string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE api_clients SET last_used_at = ? WHERE api_key = ?`,
		formatTime(time.Now()), apiKey)
	if err != nil {
		return fmt.Errorf("failed to update client last_used_at: %w", err)
	}

	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored time %q: %w", s, err)
	}
	return t, nil
}
