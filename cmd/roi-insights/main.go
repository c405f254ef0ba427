package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/terra-clan/roi-insights/internal/analysis"
	"github.com/terra-clan/roi-insights/internal/api"
	"github.com/terra-clan/roi-insights/internal/cleanup"
	"github.com/terra-clan/roi-insights/internal/config"
	"github.com/terra-clan/roi-insights/internal/models"
	"github.com/terra-clan/roi-insights/internal/storage"
	"github.com/terra-clan/roi-insights/internal/survey"
	"github.com/terra-clan/roi-insights/internal/taxonomy"
	"github.com/terra-clan/roi-insights/internal/wizard"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	level, _ := config.ParseLevel(cfg.Log.Level)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	slog.Info("starting roi-insights",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"database", cfg.Database.Driver,
		"analysis_provider", cfg.Analysis.Provider,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Initialize database repository (runs migrations for postgres)
	repo, err := storage.Open(initCtx, storage.Options{
		Driver:        cfg.Database.Driver,
		DSN:           cfg.Database.DSN,
		MigrationsDir: cfg.Database.MigrationsDir,
		MaxOpenConns:  cfg.Database.MaxOpenConns,
		MaxIdleConns:  cfg.Database.MaxIdleConns,
	})
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("database connected successfully")

	if err := bootstrapClient(initCtx, repo, cfg.Auth); err != nil {
		slog.Error("failed to register bootstrap api client", "error", err)
		os.Exit(1)
	}

	// Wizard drafts live in Redis
	rdb, err := wizard.NewRedisClient(initCtx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Load taxonomy
	loader := taxonomy.NewLoader()
	if err := loader.Load(cfg.Taxonomy.Path); err != nil {
		slog.Error("failed to load taxonomy", "path", cfg.Taxonomy.Path, "error", err)
		os.Exit(1)
	}
	tax := loader.Taxonomy()
	slog.Info("taxonomy loaded", "source", loader.Source(), "sections", tax.SectionCount())

	analyzer, err := analysis.New(initCtx, analysis.Config{
		Provider:       cfg.Analysis.Provider,
		Model:          cfg.Analysis.Model,
		APIKey:         cfg.Analysis.APIKey,
		Timeout:        cfg.Analysis.Timeout,
		Retries:        cfg.Analysis.Retries,
		InitialBackoff: cfg.Analysis.InitialBackoff,
	}, tax)
	if err != nil {
		slog.Error("failed to create analyzer", "error", err)
		os.Exit(1)
	}

	svc := survey.NewService(repo, tax, analyzer, wizard.NewRedisStore(rdb, cfg.Wizard.DraftTTL), survey.Options{
		PublicURL: cfg.Server.PublicURL,
	})

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start report retention worker
	cleaner := cleanup.NewCleaner(svc, cleanup.Policy{
		Retention: cfg.Reports.Retention,
		Keep:      cfg.Reports.KeepVersions,
	}, cfg.Reports.PruneInterval)
	cleaner.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, svc, repo)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	select {
	case <-cleaner.Done():
	case <-shutdownCtx.Done():
	}

	slog.Info("roi-insights stopped")
}

// bootstrapClient registers the configured bootstrap key with full permissions
// unless it already exists
func bootstrapClient(ctx context.Context, repo storage.Repository, cfg config.AuthConfig) error {
	if cfg.BootstrapKey == "" {
		return nil
	}

	existing, err := repo.GetClientByApiKey(ctx, cfg.BootstrapKey)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	client := &models.ApiClient{
		Name:        cfg.BootstrapName,
		ApiKey:      cfg.BootstrapKey,
		IsActive:    true,
		Permissions: []string{"*"},
	}
	if err := repo.CreateClient(ctx, client); err != nil {
		return err
	}

	slog.Info("bootstrap api client registered", "client", client.Name, "key_prefix", client.MaskedApiKey())
	return nil
}
