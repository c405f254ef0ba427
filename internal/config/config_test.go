package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ANALYSIS_PROVIDER", "static")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://localhost:8080", cfg.Server.PublicURL)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Wizard.DraftTTL)
	assert.Equal(t, 3, cfg.Analysis.Retries)
	assert.Equal(t, 5, cfg.Reports.KeepVersions)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "postgres://roi@localhost/roi")
	t.Setenv("ANALYSIS_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("WIZARD_DRAFT_TTL", "2h")
	t.Setenv("REPORT_KEEP_VERSIONS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "http://localhost:9090", cfg.Server.PublicURL)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 2*time.Hour, cfg.Wizard.DraftTTL)
	// unparsable values fall back to defaults
	assert.Equal(t, 5, cfg.Reports.KeepVersions)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("ANALYSIS_PROVIDER=static\nTAXONOMY_PATH=/etc/roi/taxonomy.yaml\n"), 0o644))

	// registered with t.Setenv so the values godotenv sets are restored afterwards
	t.Setenv("ANALYSIS_PROVIDER", "")
	os.Unsetenv("ANALYSIS_PROVIDER")
	t.Setenv("TAXONOMY_PATH", "")
	os.Unsetenv("TAXONOMY_PATH")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "static", cfg.Analysis.Provider)
	assert.Equal(t, "/etc/roi/taxonomy.yaml", cfg.Taxonomy.Path)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Driver: "sqlite", DSN: ":memory:"},
			Analysis: AnalysisConfig{Provider: "static", Retries: 1},
			Reports:  ReportsConfig{KeepVersions: 1},
			Log:      LogConfig{Level: "info"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }},
		{"gemini without key", func(c *Config) { c.Analysis.Provider = "gemini" }},
		{"unknown provider", func(c *Config) { c.Analysis.Provider = "openai" }},
		{"no retries", func(c *Config) { c.Analysis.Retries = 0 }},
		{"keep zero", func(c *Config) { c.Reports.KeepVersions = 0 }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
