package client

import (
	"context"
	"net/http"
	"net/http/httptest"
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

const testKey = "sk_client_test_key"

func newTestClient(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()

	repo, err := storage.NewSQLiteRepository(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.CreateClient(ctx, &models.ApiClient{
		Name: "sdk", ApiKey: testKey, IsActive: true, Permissions: []string{"*"},
	}))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	tax := taxonomy.Default()
	svc := survey.NewService(repo, tax, analysis.NewStaticAnalyzer(tax), wizard.NewRedisStore(rdb, time.Hour), survey.Options{})
	ts := httptest.NewServer(api.NewServer(config.ServerConfig{}, svc, repo).Router())
	t.Cleanup(ts.Close)

	return NewClient(ts.URL+"/", testKey, WithTimeout(10*time.Second))
}

func TestSurveyRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	require.NoError(t, c.Health(ctx))

	missing, err := c.GetSurveyByName(ctx, "Q3 rollout")
	require.NoError(t, err)
	assert.Nil(t, missing)

	answers := models.AnswerSet{
		"total_budget":      models.Text("1000"),
		"upfront_cost":      models.Text("200"),
		"saved_hours_value": models.Text("500"),
		"staff_hours":       models.Number(120),
	}
	_, err = c.SaveSurvey(ctx, "Q3 rollout", answers)
	require.NoError(t, err)

	got, err := c.GetSurveyByName(ctx, "Q3 rollout")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, answers.Equal(got.Responses))

	names, err := c.ListSurveys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Q3 rollout"}, names)

	wf, err := c.GetWaterfall(ctx, "Q3 rollout")
	require.NoError(t, err)
	assert.InDelta(t, 30.0, wf.ROIPercentage, 1e-9)

	dup, err := c.DuplicateSurvey(ctx, "Q3 rollout")
	require.NoError(t, err)
	assert.Equal(t, "Q3 rollout (Copy)", dup.Name)

	deleted, err := c.DeleteSurvey(ctx, "Q3 rollout")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = c.DeleteSurvey(ctx, "Q3 rollout")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestAnalysisAndReports(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	_, err := c.SaveSurvey(ctx, "pilot", models.AnswerSet{
		"total_budget": models.Text("1000"),
		"upfront_cost": models.Text("250"),
	})
	require.NoError(t, err)

	resp, err := c.FetchSurveyAnalysis(ctx, "pilot", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Version)
	assert.NotNil(t, resp.Analysis.Insights)
	assert.True(t, strings.HasSuffix(resp.AnalysisLink, "/api/v1/surveys/pilot/reports/1/html"))

	versions, err := c.ListReportVersions(ctx, "pilot")
	require.NoError(t, err)
	require.Len(t, versions, 1)

	rep, err := c.GetReportVersion(ctx, "pilot", 1)
	require.NoError(t, err)
	require.NotNil(t, rep)
	assert.Equal(t, "static", rep.Provider)

	none, err := c.GetReportVersion(ctx, "pilot", 2)
	require.NoError(t, err)
	assert.Nil(t, none)

	pdf, err := c.DownloadReportPDF(ctx, "pilot", 1)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF-"))

	empty, err := c.ListReportVersions(ctx, "other")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestWizardSession(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	view, err := c.StartWizard(ctx, "")
	require.NoError(t, err)

	view, err = c.SetWizardAnswer(ctx, view.ID, "total_budget", models.Text("$2,500"))
	require.NoError(t, err)
	assert.True(t, view.Dirty)

	view, err = c.AdvanceWizard(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.ActiveSection)

	view, err = c.JumpWizard(ctx, view.ID, 0)
	require.NoError(t, err)
	view, err = c.RetreatWizard(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, view.ActiveSection)

	view, err = c.SaveWizard(ctx, view.ID, "budget only")
	require.NoError(t, err)
	assert.True(t, view.Submitted)

	view, err = c.FinalizeWizard(ctx, view.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "budget only", view.SurveyName)

	require.NoError(t, c.DiscardWizard(ctx, view.ID))
	_, err = c.GetWizard(ctx, view.ID)
	assert.True(t, IsNotFound(err))
}

func TestErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("envelope error", func(t *testing.T) {
		c := newTestClient(t)
		_, err := c.SaveSurvey(ctx, "a/b", nil)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Equal(t, "validation_error", apiErr.Code)
	})

	t.Run("bad key", func(t *testing.T) {
		c := newTestClient(t)
		c.apiKey = "sk_wrong_key"
		_, err := c.ListSurveys(ctx)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	})

	t.Run("non json error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream down", http.StatusBadGateway)
		}))
		defer ts.Close()

		_, err := NewClient(ts.URL, "").ListSurveys(ctx)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
		assert.Equal(t, "upstream down", apiErr.Message)
	})
}
