package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/roi-insights/internal/analysis"
	"github.com/terra-clan/roi-insights/internal/api"
	"github.com/terra-clan/roi-insights/internal/config"
	"github.com/terra-clan/roi-insights/internal/models"
	"github.com/terra-clan/roi-insights/internal/storage"
	"github.com/terra-clan/roi-insights/internal/survey"
	"github.com/terra-clan/roi-insights/internal/taxonomy"
	"github.com/terra-clan/roi-insights/internal/wizard"
)

const cliKey = "sk_cli_test_key"

func startServer(t *testing.T) *survey.Service {
	t.Helper()
	ctx := context.Background()

	repo, err := storage.NewSQLiteRepository(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.CreateClient(ctx, &models.ApiClient{
		Name: "cli", ApiKey: cliKey, IsActive: true, Permissions: []string{"*"},
	}))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	tax := taxonomy.Default()
	svc := survey.NewService(repo, tax, analysis.NewStaticAnalyzer(tax), wizard.NewRedisStore(rdb, time.Hour), survey.Options{})
	ts := httptest.NewServer(api.NewServer(config.ServerConfig{}, svc, repo).Router())
	t.Cleanup(ts.Close)

	serverURL = ts.URL
	apiKey = cliKey
	return svc
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	jsonOutput = false
	pdfOutput = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--server", serverURL, "--api-key", apiKey))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSurveysCommands(t *testing.T) {
	svc := startServer(t)
	_, err := svc.SaveSurvey(context.Background(), "pilot", models.AnswerSet{
		"total_budget":      models.Text("1000"),
		"upfront_cost":      models.Text("200"),
		"saved_hours_value": models.Text("500"),
	})
	require.NoError(t, err)

	out, err := run(t, "surveys", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "pilot")

	out, err = run(t, "surveys", "get", "pilot")
	require.NoError(t, err)
	assert.Contains(t, out, "total_budget")
	assert.Contains(t, out, "1000")

	out, err = run(t, "waterfall", "pilot")
	require.NoError(t, err)
	assert.Contains(t, out, "Initial Budget")
	assert.Contains(t, out, "30.0%")

	out, err = run(t, "surveys", "duplicate", "pilot")
	require.NoError(t, err)
	assert.Contains(t, out, "pilot (Copy)")

	_, err = run(t, "surveys", "delete", "pilot")
	require.NoError(t, err)

	_, err = run(t, "surveys", "get", "pilot")
	assert.ErrorContains(t, err, "not found")

	_, err = run(t, "surveys", "delete", "pilot")
	assert.ErrorContains(t, err, "not found")
}

func TestAnalyzeAndReportsCommands(t *testing.T) {
	svc := startServer(t)
	_, err := svc.SaveSurvey(context.Background(), "pilot", models.AnswerSet{
		"total_budget": models.Text("1000"),
		"upfront_cost": models.Text("400"),
	})
	require.NoError(t, err)

	out, err := run(t, "analyze", "pilot")
	require.NoError(t, err)
	assert.Contains(t, out, "report version 1")

	out, err = run(t, "reports", "list", "pilot")
	require.NoError(t, err)
	assert.Contains(t, out, "v1")

	out, err = run(t, "reports", "get", "pilot", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "ROI:")

	_, err = run(t, "reports", "get", "pilot", "zero")
	assert.ErrorContains(t, err, "invalid version")

	path := filepath.Join(t.TempDir(), "pilot.pdf")
	out, err = run(t, "reports", "pdf", "pilot", "1", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
}

func TestJSONOutput(t *testing.T) {
	svc := startServer(t)
	_, err := svc.SaveSurvey(context.Background(), "pilot", models.AnswerSet{"total_budget": models.Text("1000")})
	require.NoError(t, err)

	out, err := run(t, "surveys", "list", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `["pilot"]`, out)
}
