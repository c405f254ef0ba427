package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/terra-clan/roi-insights/internal/models"
)

// Config selects and configures the analysis provider
type Config struct {
	Provider       string
	Model          string
	APIKey         string
	Timeout        time.Duration
	Retries        int
	InitialBackoff time.Duration
}

// New builds the configured analyzer
func New(ctx context.Context, cfg Config, t *models.Taxonomy) (Analyzer, error) {
	switch cfg.Provider {
	case ProviderStatic:
		return NewStaticAnalyzer(t), nil
	case ProviderGemini, "":
		return NewGeminiAnalyzer(ctx, GeminiConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
			Retry: RetryPolicy{
				Attempts:     cfg.Retries,
				InitialDelay: cfg.InitialBackoff,
			},
		})
	default:
		return nil, fmt.Errorf("unknown analysis provider: %s", cfg.Provider)
	}
}
