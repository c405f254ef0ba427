package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options selects and configures a backend
type Options struct {
	Driver        string
	DSN           string
	MigrationsDir string
	MaxOpenConns  int
	MaxIdleConns  int
}

// Open connects to the configured backend and brings its schema up to date
func Open(ctx context.Context, opts Options) (Repository, error) {
	switch opts.Driver {
	case DriverPostgres, "":
		if opts.MigrationsDir != "" {
			slog.Info("running database migrations", "dir", opts.MigrationsDir)
			if err := MigrateFromDSN(ctx, opts.DSN, opts.MigrationsDir); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		return NewPostgresRepository(ctx, PostgresConfig{
			DSN:          opts.DSN,
			MaxOpenConns: int32(opts.MaxOpenConns),
			MaxIdleConns: int32(opts.MaxIdleConns),
		})
	case DriverSQLite:
		return NewSQLiteRepository(ctx, opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", opts.Driver)
	}
}
