package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/roi-insights/internal/analysis"
	"github.com/terra-clan/roi-insights/internal/config"
	"github.com/terra-clan/roi-insights/internal/models"
	"github.com/terra-clan/roi-insights/internal/storage"
	"github.com/terra-clan/roi-insights/internal/survey"
	"github.com/terra-clan/roi-insights/internal/taxonomy"
	"github.com/terra-clan/roi-insights/internal/wizard"
)

const (
	adminKey    = "sk_test_admin_0001"
	readOnlyKey = "sk_test_reader_0001"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	repo, err := storage.NewSQLiteRepository(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.CreateClient(ctx, &models.ApiClient{
		Name: "admin", ApiKey: adminKey, IsActive: true, Permissions: []string{"*"},
	}))
	require.NoError(t, repo.CreateClient(ctx, &models.ApiClient{
		Name: "reader", ApiKey: readOnlyKey, IsActive: true, Permissions: []string{"surveys:read"},
	}))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	tax := taxonomy.Default()
	svc := survey.NewService(repo, tax, analysis.NewStaticAnalyzer(tax), wizard.NewRedisStore(rdb, time.Hour),
		survey.Options{PublicURL: "http://roi.test"})

	srv := NewServer(config.ServerConfig{RequestTimeout: 10 * time.Second}, svc, repo)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, ts *httptest.Server, key, method, path string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestHealthIsPublic(t *testing.T) {
	ts := newTestServer(t)

	resp, env := doRequest(t, ts, "", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)

	resp, _ = doRequest(t, ts, "", http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthentication(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		key    string
		method string
		path   string
		status int
		code   string
	}{
		{"missing key", "", http.MethodGet, "/api/v1/surveys", http.StatusUnauthorized, "unauthorized"},
		{"unknown key", "sk_nope_nope", http.MethodGet, "/api/v1/surveys", http.StatusUnauthorized, "unauthorized"},
		{"read allowed", readOnlyKey, http.MethodGet, "/api/v1/surveys", http.StatusOK, ""},
		{"write denied", readOnlyKey, http.MethodDelete, "/api/v1/surveys/pilot", http.StatusForbidden, "forbidden"},
		{"wizards denied", readOnlyKey, http.MethodPost, "/api/v1/wizards", http.StatusForbidden, "forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, env := doRequest(t, ts, tt.key, tt.method, tt.path, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.code != "" {
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.code, env.Error.Code)
			}
		})
	}

	t.Run("x-api-key header", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/taxonomy", nil)
		require.NoError(t, err)
		req.Header.Set("X-API-Key", readOnlyKey)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestSurveyEndpoints(t *testing.T) {
	ts := newTestServer(t)
	responses := models.AnswerSet{
		"total_budget":      models.Text("1000"),
		"upfront_cost":      models.Text("200"),
		"saved_hours_value": models.Text("500"),
	}

	resp, env := doRequest(t, ts, adminKey, http.MethodPut, "/api/v1/surveys/Pilot%20Project",
		models.SaveSurveyRequest{Responses: responses})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	saved := decodeData[models.Survey](t, env)
	assert.Equal(t, "Pilot Project", saved.Name)

	resp, env = doRequest(t, ts, adminKey, http.MethodGet, "/api/v1/surveys", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeData[models.SurveyList](t, env)
	assert.Equal(t, []string{"Pilot Project"}, list.Surveys)

	resp, env = doRequest(t, ts, adminKey, http.MethodGet, "/api/v1/surveys/Pilot%20Project/waterfall", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	wf := decodeData[models.WaterfallResult](t, env)
	assert.InDelta(t, 30.0, wf.ROIPercentage, 1e-9)
	require.Len(t, wf.ChartData, 4)

	resp, env = doRequest(t, ts, adminKey, http.MethodPost, "/api/v1/surveys/Pilot%20Project/duplicate", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Pilot Project (Copy)", decodeData[models.Survey](t, env).Name)

	resp, _ = doRequest(t, ts, adminKey, http.MethodDelete, "/api/v1/surveys/Pilot%20Project", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = doRequest(t, ts, adminKey, http.MethodGet, "/api/v1/surveys/Pilot%20Project", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", env.Error.Code)

	resp, env = doRequest(t, ts, adminKey, http.MethodPut, "/api/v1/surveys/%20%20", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", env.Error.Code)
}

func TestSurveyNamesDecodedOnce(t *testing.T) {
	ts := newTestServer(t)
	responses := models.AnswerSet{"total_budget": models.Text("1000")}

	resp, env := doRequest(t, ts, adminKey, http.MethodPut, "/api/v1/surveys/Plan%2520A",
		models.SaveSurveyRequest{Responses: responses})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Plan%20A", decodeData[models.Survey](t, env).Name)

	resp, env = doRequest(t, ts, adminKey, http.MethodGet, "/api/v1/surveys/Plan%2520A", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Plan%20A", decodeData[models.Survey](t, env).Name)

	resp, _ = doRequest(t, ts, adminKey, http.MethodGet, "/api/v1/surveys/Plan%20A", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, env = doRequest(t, ts, adminKey, http.MethodPost, "/api/v1/surveys/Plan%2520A/duplicate", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Plan%20A (Copy)", decodeData[models.Survey](t, env).Name)

	resp, _ = doRequest(t, ts, adminKey, http.MethodDelete, "/api/v1/surveys/Plan%2520A", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAnalysisAndReports(t *testing.T) {
	ts := newTestServer(t)

	resp, env := doRequest(t, ts, adminKey, http.MethodPost, "/api/v1/surveys/pilot/analysis", models.AnalyzeRequest{
		Responses: models.AnswerSet{
			"total_budget": models.Text("1000"),
			"upfront_cost": models.Text("200"),
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decodeData[models.AnalyzeResponse](t, env)
	assert.Equal(t, 1, result.Version)
	assert.Equal(t, "http://roi.test/api/v1/surveys/pilot/reports/1/html", result.AnalysisLink)

	resp, env = doRequest(t, ts, adminKey, http.MethodGet, "/api/v1/surveys/pilot/reports", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), `"total":1`)

	resp, env = doRequest(t, ts, adminKey, http.MethodGet, "/api/v1/surveys/pilot/reports/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decodeData[models.Report](t, env).Version)

	resp, _ = doRequest(t, ts, adminKey, http.MethodGet, "/api/v1/surveys/pilot/reports/1/pdf", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "pilot-v1.pdf")

	resp, _ = doRequest(t, ts, adminKey, http.MethodGet, "/api/v1/surveys/pilot/reports/1/html", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"))

	resp, env = doRequest(t, ts, adminKey, http.MethodGet, "/api/v1/surveys/pilot/reports/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", env.Error.Code)

	resp, env = doRequest(t, ts, adminKey, http.MethodGet, "/api/v1/surveys/pilot/reports/7", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, env = doRequest(t, ts, adminKey, http.MethodPost, "/api/v1/surveys/missing/analysis", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", env.Error.Code)

	// an explicit empty answer set has nothing to analyze
	resp, env = doRequest(t, ts, adminKey, http.MethodPost, "/api/v1/surveys/empty/analysis",
		json.RawMessage(`{"responses":{}}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", env.Error.Code)
}

func TestWizardEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp, env := doRequest(t, ts, adminKey, http.MethodPost, "/api/v1/wizards", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	view := decodeData[models.WizardView](t, env)
	base := "/api/v1/wizards/" + view.ID

	resp, env = doRequest(t, ts, adminKey, http.MethodPut, base+"/answers/total_budget",
		models.SetAnswerRequest{Value: models.Text("$5,000")})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decodeData[models.WizardView](t, env)
	assert.True(t, view.Dirty)

	resp, env = doRequest(t, ts, adminKey, http.MethodPut, base+"/answers/bogus",
		models.SetAnswerRequest{Value: models.Text("x")})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", env.Error.Code)

	resp, env = doRequest(t, ts, adminKey, http.MethodPost, base+"/advance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decodeData[models.WizardView](t, env).ActiveSection)

	resp, env = doRequest(t, ts, adminKey, http.MethodPost, base+"/jump", models.JumpRequest{Section: 4})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 4, decodeData[models.WizardView](t, env).ActiveSection)

	resp, _ = doRequest(t, ts, adminKey, http.MethodPost, base+"/jump", models.JumpRequest{Section: 99})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, env = doRequest(t, ts, adminKey, http.MethodPost, base+"/retreat", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, decodeData[models.WizardView](t, env).ActiveSection)

	resp, env = doRequest(t, ts, adminKey, http.MethodPost, base+"/save", models.CommitWizardRequest{Name: "draft"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decodeData[models.WizardView](t, env).Submitted)

	resp, env = doRequest(t, ts, adminKey, http.MethodPost, base+"/finalize", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "draft", decodeData[models.WizardView](t, env).SurveyName)

	resp, env = doRequest(t, ts, adminKey, http.MethodGet, "/api/v1/surveys/draft", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "$5,000", decodeData[models.Survey](t, env).Responses["total_budget"].String())

	resp, _ = doRequest(t, ts, adminKey, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doRequest(t, ts, adminKey, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAnalysisWebsocket(t *testing.T) {
	ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/surveys/pilot/analysis/ws"
	header := http.Header{"Authorization": []string{"Bearer " + adminKey}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(AnalysisMessage{
		Type: MessageStart,
		Responses: models.AnswerSet{
			"total_budget":      models.Text("1000"),
			"upfront_cost":      models.Text("200"),
			"saved_hours_value": models.Text("500"),
		},
	}))

	var stages []string
	var final AnalysisMessage
	for {
		var msg AnalysisMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type != MessageProgress {
			final = msg
			break
		}
		stages = append(stages, msg.Stage)
	}

	assert.Equal(t, []string{
		models.StageCollecting, models.StageGenerating, models.StageStoring, models.StageDone,
	}, stages)
	require.Equal(t, MessageResult, final.Type)
	require.NotNil(t, final.Result)
	assert.Equal(t, 1, final.Result.Version)
	assert.InDelta(t, 30.0, final.Result.Waterfall.ROIPercentage, 1e-9)
}

func TestAnalysisWebsocketRejectsBadStart(t *testing.T) {
	ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/surveys/pilot/analysis/ws?api_key=" + adminKey
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(AnalysisMessage{Type: "hello"}))

	var msg AnalysisMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageError, msg.Type)
	assert.Equal(t, "invalid_request", msg.Code)
}

func TestReportFilename(t *testing.T) {
	assert.Equal(t, "Pilot_Project-v2.pdf", reportFilename("Pilot Project", 2))
	assert.Equal(t, "report-v1.pdf", reportFilename("***", 1))
}
