package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/terra-clan/roi-insights/internal/models"
)

// DefaultGeminiModel is used when no model is configured
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiConfig configures the Gemini analyzer
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	Retry   RetryPolicy
}

// generateFunc sends one prompt and returns the raw response text
type generateFunc func(ctx context.Context, prompt string) (string, error)

// GeminiAnalyzer asks a Gemini model for the analysis in JSON mode
type GeminiAnalyzer struct {
	model    string
	timeout  time.Duration
	retry    RetryPolicy
	generate generateFunc
}

// Ensure interface compliance
var _ Analyzer = (*GeminiAnalyzer)(nil)

// NewGeminiAnalyzer creates the GenAI client once and reuses it for every call
func NewGeminiAnalyzer(ctx context.Context, cfg GeminiConfig) (*GeminiAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0.1)),
		TopP:             genai.Ptr(float32(0.1)),
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: SystemInstruction}},
		},
	}

	model := cfg.Model
	generate := func(ctx context.Context, prompt string) (string, error) {
		result, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
		if err != nil {
			return "", fmt.Errorf("gemini generation failed: %w", err)
		}
		return result.Text(), nil
	}

	return newGeminiAnalyzer(cfg, generate), nil
}

func newGeminiAnalyzer(cfg GeminiConfig, generate generateFunc) *GeminiAnalyzer {
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = DefaultRetryPolicy
	}
	return &GeminiAnalyzer{
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		retry:    cfg.Retry,
		generate: generate,
	}
}

// Name returns the provider name
func (g *GeminiAnalyzer) Name() string {
	return ProviderGemini
}

// Analyze sends the forms and decodes the response. Transport failures and
// undecodable or empty responses are retried with backoff.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, forms []models.Form) (*Result, error) {
	if len(forms) == 0 {
		return nil, ErrNoForms
	}

	prompt, err := UserPrompt(forms)
	if err != nil {
		return nil, err
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	var result *Result
	err = Retry(ctx, g.retry, "gemini.analyze", func(ctx context.Context) error {
		text, err := g.generate(ctx, prompt)
		if err != nil {
			return err
		}
		result, err = Decode(text)
		return err
	})
	if err != nil {
		return nil, err
	}

	result.Provider = ProviderGemini
	result.Model = g.model
	slog.Debug("analysis generated",
		"provider", ProviderGemini,
		"model", g.model,
		"insights", len(result.Analysis.Insights),
		"recommendations", len(result.Analysis.Recommendations),
	)
	return result, nil
}

// responseSchema mirrors Result so the model is constrained to the contract
func responseSchema() *genai.Schema {
	item := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":       {Type: genai.TypeString},
			"description": {Type: genai.TypeString},
			"contents":    {Type: genai.TypeString},
		},
		Required: []string{"title", "description", "contents"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"analysis": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"roi": {
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"value":       {Type: genai.TypeNumber},
							"explanation": {Type: genai.TypeString},
						},
						Required: []string{"value", "explanation"},
					},
					"insights":        {Type: genai.TypeArray, Items: item},
					"recommendations": {Type: genai.TypeArray, Items: item},
				},
				Required: []string{"roi", "insights", "recommendations"},
			},
			"summary": {Type: genai.TypeString},
		},
		Required: []string{"analysis", "summary"},
	}
}
