package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/roi-insights/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	// Set pool configuration
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25 // default
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 2
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// --- Surveys ---

// ListSurveyNames returns all survey names, most recently modified first
func (r *PostgresRepository) ListSurveyNames(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT name FROM surveys ORDER BY date_modified DESC, name`)
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
func (r *PostgresRepository) GetSurveyByName(ctx context.Context, name string) (*models.Survey, error) {
	query := `
		SELECT id, name, responses, date_created, date_modified
		FROM surveys
		WHERE name = $1
	`

	var s models.Survey
	var responsesJSON []byte

	err := r.pool.QueryRow(ctx, query, name).Scan(
		&s.ID,
		&s.Name,
		&responsesJSON,
		&s.DateCreated,
		&s.DateModified,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get survey: %w", err)
	}

	if err := decodeResponses(responsesJSON, &s); err != nil {
		return nil, err
	}

	return &s, nil
}

// SaveSurvey upserts a survey by name
func (r *PostgresRepository) SaveSurvey(ctx context.Context, s *models.Survey) error {
	responsesJSON, err := encodeResponses(s.Responses)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO surveys (id, name, responses, date_created, date_modified)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE
		SET responses = EXCLUDED.responses, date_modified = EXCLUDED.date_modified
		RETURNING id, date_created
	`

	err = r.pool.QueryRow(ctx, query,
		s.ID,
		s.Name,
		responsesJSON,
		s.DateCreated,
		s.DateModified,
	).Scan(&s.ID, &s.DateCreated)

	if err != nil {
		return fmt.Errorf("failed to save survey: %w", err)
	}

	return nil
}

// DeleteSurvey deletes a survey and its reports
func (r *PostgresRepository) DeleteSurvey(ctx context.Context, name string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM reports WHERE survey_name = $1`, name); err != nil {
		return false, fmt.Errorf("failed to delete reports: %w", err)
	}

	result, err := tx.Exec(ctx, `DELETE FROM surveys WHERE name = $1`, name)
	if err != nil {
		return false, fmt.Errorf("failed to delete survey: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit delete: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// --- Reports ---

// CreateReport stores a report as the next version of its survey
func (r *PostgresRepository) CreateReport(ctx context.Context, rep *models.Report) error {
	analysisJSON, formsJSON, err := encodeReport(rep)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO reports (id, survey_name, version, analysis, summary, forms, provider, model, created_at)
		SELECT $1::uuid, $2::varchar, COALESCE(MAX(version), 0) + 1, $3::jsonb, $4::text, $5::jsonb, $6::varchar, $7::varchar, $8::timestamptz
		FROM reports
		WHERE survey_name = $2::varchar
		RETURNING version
	`

	err = r.pool.QueryRow(ctx, query,
		rep.ID,
		rep.SurveyName,
		analysisJSON,
		rep.Summary,
		formsJSON,
		rep.Provider,
		nullString(rep.Model),
		rep.CreatedAt,
	).Scan(&rep.Version)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrVersionConflict
		}
		return fmt.Errorf("failed to create report: %w", err)
	}

	return nil
}

// ListReportVersions returns the stored versions of a survey, newest first
func (r *PostgresRepository) ListReportVersions(ctx context.Context, surveyName string) ([]models.ReportVersion, error) {
	query := `
		SELECT version, created_at
		FROM reports
		WHERE survey_name = $1
		ORDER BY version DESC
	`

	rows, err := r.pool.Query(ctx, query, surveyName)
	if err != nil {
		return nil, fmt.Errorf("failed to list report versions: %w", err)
	}
	defer rows.Close()

	versions := []models.ReportVersion{}
	for rows.Next() {
		var v models.ReportVersion
		if err := rows.Scan(&v.Version, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report version: %w", err)
		}
		versions = append(versions, v)
	}

	return versions, rows.Err()
}

// GetReportVersion retrieves one report version
func (r *PostgresRepository) GetReportVersion(ctx context.Context, surveyName string, version int) (*models.Report, error) {
	query := `
		SELECT id, survey_name, version, analysis, summary, forms, provider, model, created_at
		FROM reports
		WHERE survey_name = $1 AND version = $2
	`

	var rep models.Report
	var model sql.NullString
	var analysisJSON, formsJSON []byte

	err := r.pool.QueryRow(ctx, query, surveyName, version).Scan(
		&rep.ID,
		&rep.SurveyName,
		&rep.Version,
		&analysisJSON,
		&rep.Summary,
		&formsJSON,
		&rep.Provider,
		&model,
		&rep.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	rep.Model = model.String
	if err := decodeReport(analysisJSON, formsJSON, &rep); err != nil {
		return nil, err
	}

	return &rep, nil
}

// PruneReports deletes expired reports beyond the newest keep per survey
func (r *PostgresRepository) PruneReports(ctx context.Context, before time.Time, keep int) (int64, error) {
	result, err := r.pool.Exec(ctx, pruneReportsQuery("$1", "$2"), before, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune reports: %w", err)
	}

	return result.RowsAffected(), nil
}

// --- API Clients ---

// CreateClient registers an API client
func (r *PostgresRepository) CreateClient(ctx context.Context, c *models.ApiClient) error {
	permissionsJSON, metadataJSON, err := encodeClient(c)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO api_clients (name, api_key, is_active, created_at, permissions, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err = r.pool.QueryRow(ctx, query,
		c.Name,
		c.ApiKey,
		c.IsActive,
		c.CreatedAt,
		permissionsJSON,
		metadataJSON,
	).Scan(&c.ID)

	if err != nil {
		return fmt.Errorf("failed to create api client: %w", err)
	}

	return nil
}

// GetClientByApiKey retrieves an API client by its key
func (r *PostgresRepository) GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error) {
	query := `
		SELECT id, name, api_key, is_active, created_at, last_used_at, permissions, metadata
		FROM api_clients
		WHERE api_key = $1
	`

	var client models.ApiClient
	var lastUsedAt sql.NullTime
	var permissionsJSON, metadataJSON []byte

	err := r.pool.QueryRow(ctx, query, apiKey).Scan(
		&client.ID,
		&client.Name,
		&client.ApiKey,
		&client.IsActive,
		&client.CreatedAt,
		&lastUsedAt,
		&permissionsJSON,
		&metadataJSON,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get api client: %w", err)
	}

	if lastUsedAt.Valid {
		client.LastUsedAt = &lastUsedAt.Time
	}

	if err := decodeClient(permissionsJSON, metadataJSON, &client); err != nil {
		return nil, err
	}

	return &client, nil
}

// UpdateClientLastUsed updates the last_used_at timestamp for a client
func (r *PostgresRepository) UpdateClientLastUsed(ctx context.Context, apiKey string) error {
	query := `UPDATE api_clients SET last_used_at = NOW() WHERE api_key = $1`

	_, err := r.pool.Exec(ctx, query, apiKey)
	if err != nil {
		return fmt.Errorf("failed to update client last_used_at: %w", err)
	}

	return nil
}

// Helper functions for nullable values

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
