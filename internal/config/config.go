package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for roi-insights
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Taxonomy TaxonomyConfig
	Wizard   WizardConfig
	Analysis AnalysisConfig
	Reports  ReportsConfig
	Auth     AuthConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string
	Port int
	// PublicURL is the externally visible base URL used in analysis links
	PublicURL      string
	RequestTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver        string
	DSN           string
	MigrationsDir string
	MaxOpenConns  int
	MaxIdleConns  int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// TaxonomyConfig holds survey taxonomy configuration
type TaxonomyConfig struct {
	// Path to a YAML taxonomy; empty uses the built-in one
	Path string
}

// WizardConfig holds wizard session configuration
type WizardConfig struct {
	DraftTTL time.Duration
}

// AnalysisConfig holds analysis provider configuration
type AnalysisConfig struct {
	Provider       string
	Model          string
	APIKey         string
	Timeout        time.Duration
	Retries        int
	InitialBackoff time.Duration
}

// ReportsConfig holds report retention configuration
type ReportsConfig struct {
	Retention     time.Duration
	KeepVersions  int
	PruneInterval time.Duration
}

// AuthConfig holds API authentication configuration
type AuthConfig struct {
	// BootstrapKey, when set, is registered as an all-permission client on startup
	BootstrapKey  string
	BootstrapName string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// Load loads configuration from environment variables, reading a .env file
// first when one exists
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	port := getEnvAsInt("SERVER_PORT", 8080)
	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			PublicURL:      getEnv("PUBLIC_URL", fmt.Sprintf("http://localhost:%d", port)),
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 120*time.Second),
		},
		Database: DatabaseConfig{
			Driver:        getEnv("DATABASE_DRIVER", "sqlite"),
			DSN:           getEnv("DATABASE_DSN", "./data/roi.db"),
			MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),
			MaxOpenConns:  getEnvAsInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:  getEnvAsInt("DATABASE_MAX_IDLE_CONNS", 2),
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Taxonomy: TaxonomyConfig{
			Path: getEnv("TAXONOMY_PATH", ""),
		},
		Wizard: WizardConfig{
			DraftTTL: getEnvAsDuration("WIZARD_DRAFT_TTL", 24*time.Hour),
		},
		Analysis: AnalysisConfig{
			Provider:       getEnv("ANALYSIS_PROVIDER", "gemini"),
			Model:          getEnv("ANALYSIS_MODEL", "gemini-2.0-flash"),
			APIKey:         getEnv("GEMINI_API_KEY", ""),
			Timeout:        getEnvAsDuration("ANALYSIS_TIMEOUT", 90*time.Second),
			Retries:        getEnvAsInt("ANALYSIS_RETRIES", 3),
			InitialBackoff: getEnvAsDuration("ANALYSIS_INITIAL_BACKOFF", time.Second),
		},
		Reports: ReportsConfig{
			Retention:     getEnvAsDuration("REPORT_RETENTION", 90*24*time.Hour),
			KeepVersions:  getEnvAsInt("REPORT_KEEP_VERSIONS", 5),
			PruneInterval: getEnvAsDuration("REPORT_PRUNE_INTERVAL", time.Hour),
		},
		Auth: AuthConfig{
			BootstrapKey:  getEnv("API_BOOTSTRAP_KEY", ""),
			BootstrapName: getEnv("API_BOOTSTRAP_NAME", "bootstrap"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}

	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}

	switch c.Analysis.Provider {
	case "gemini":
		if c.Analysis.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
	case "static":
	default:
		return fmt.Errorf("unsupported analysis provider: %q", c.Analysis.Provider)
	}

	if c.Analysis.Retries < 1 {
		return fmt.Errorf("analysis retries must be at least 1")
	}

	if c.Reports.KeepVersions < 1 {
		return fmt.Errorf("report keep versions must be at least 1")
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}

// ParseLevel maps a LOG_LEVEL value to a slog level
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level: %q", level)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
