// Package client is a Go SDK for the roi-insights API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/terra-clan/roi-insights/internal/models"
)

// Client is a Go SDK for roi-insights API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new roi-insights client
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is an error envelope returned by the server
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error: %s - %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the server
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ReportList is the response of the report versions listing
type ReportList struct {
	Reports []models.ReportVersion `json:"reports"`
	Total   int                    `json:"total"`
}

// --- Surveys ---

// ListSurveys returns the names of all saved surveys
func (c *Client) ListSurveys(ctx context.Context) ([]string, error) {
	list, err := call[models.SurveyList](ctx, c, http.MethodGet, "/api/v1/surveys", nil)
	if err != nil {
		return nil, err
	}
	if list.Surveys == nil {
		list.Surveys = []string{}
	}
	return list.Surveys, nil
}

// GetSurveyByName returns a survey, or nil when it does not exist
func (c *Client) GetSurveyByName(ctx context.Context, name string) (*models.Survey, error) {
	sv, err := call[*models.Survey](ctx, c, http.MethodGet, surveyPath(name), nil)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return withSurveyDefaults(sv), nil
}

// SaveSurvey creates or replaces the responses of a survey
func (c *Client) SaveSurvey(ctx context.Context, name string, responses models.AnswerSet) (*models.Survey, error) {
	if responses == nil {
		responses = models.AnswerSet{}
	}
	sv, err := call[*models.Survey](ctx, c, http.MethodPut, surveyPath(name), models.SaveSurveyRequest{Responses: responses})
	if err != nil {
		return nil, err
	}
	return withSurveyDefaults(sv), nil
}

// DeleteSurvey removes a survey; it returns false when there was nothing to delete
func (c *Client) DeleteSurvey(ctx context.Context, name string) (bool, error) {
	_, err := call[json.RawMessage](ctx, c, http.MethodDelete, surveyPath(name), nil)
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DuplicateSurvey copies a survey under a new name
func (c *Client) DuplicateSurvey(ctx context.Context, name string) (*models.Survey, error) {
	sv, err := call[*models.Survey](ctx, c, http.MethodPost, surveyPath(name)+"/duplicate", nil)
	if err != nil {
		return nil, err
	}
	return withSurveyDefaults(sv), nil
}

// GetWaterfall returns the waterfall of a saved survey
func (c *Client) GetWaterfall(ctx context.Context, name string) (*models.WaterfallResult, error) {
	wf, err := call[models.WaterfallResult](ctx, c, http.MethodGet, surveyPath(name)+"/waterfall", nil)
	if err != nil {
		return nil, err
	}
	if wf.ChartData == nil {
		wf.ChartData = []models.LineItem{}
	}
	return &wf, nil
}

// GetTaxonomy returns the survey taxonomy served by the API
func (c *Client) GetTaxonomy(ctx context.Context) (*models.Taxonomy, error) {
	return call[*models.Taxonomy](ctx, c, http.MethodGet, "/api/v1/taxonomy", nil)
}

// --- Analysis and reports ---

// FetchSurveyAnalysis runs an analysis and stores a new report version.
// A nil answer set analyses the saved responses.
func (c *Client) FetchSurveyAnalysis(ctx context.Context, name string, answers models.AnswerSet) (*models.AnalyzeResponse, error) {
	resp, err := call[*models.AnalyzeResponse](ctx, c, http.MethodPost, surveyPath(name)+"/analysis",
		models.AnalyzeRequest{Responses: answers})
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("empty analysis response")
	}
	withAnalysisDefaults(&resp.Analysis)
	if resp.Waterfall.ChartData == nil {
		resp.Waterfall.ChartData = []models.LineItem{}
	}
	return resp, nil
}

// ListReportVersions returns the stored report versions, newest first
func (c *Client) ListReportVersions(ctx context.Context, name string) ([]models.ReportVersion, error) {
	list, err := call[ReportList](ctx, c, http.MethodGet, surveyPath(name)+"/reports", nil)
	if err != nil {
		return nil, err
	}
	if list.Reports == nil {
		list.Reports = []models.ReportVersion{}
	}
	return list.Reports, nil
}

// GetReportVersion returns one report version, or nil when it does not exist
func (c *Client) GetReportVersion(ctx context.Context, name string, version int) (*models.Report, error) {
	rep, err := call[*models.Report](ctx, c, http.MethodGet, reportPath(name, version), nil)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if rep != nil {
		withAnalysisDefaults(&rep.Analysis)
	}
	return rep, nil
}

// DownloadReportPDF returns the PDF rendering of a report version
func (c *Client) DownloadReportPDF(ctx context.Context, name string, version int) ([]byte, error) {
	_, body, err := c.doRequest(ctx, http.MethodGet, reportPath(name, version)+"/pdf", nil)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// --- Wizard sessions ---

// StartWizard opens a wizard session, optionally seeded from a saved survey
func (c *Client) StartWizard(ctx context.Context, surveyName string) (*models.WizardView, error) {
	return call[*models.WizardView](ctx, c, http.MethodPost, "/api/v1/wizards", models.StartWizardRequest{SurveyName: surveyName})
}

// GetWizard returns the state of a wizard session
func (c *Client) GetWizard(ctx context.Context, id string) (*models.WizardView, error) {
	return call[*models.WizardView](ctx, c, http.MethodGet, wizardPath(id), nil)
}

// SetWizardAnswer records one answer
func (c *Client) SetWizardAnswer(ctx context.Context, id, questionID string, value models.Answer) (*models.WizardView, error) {
	return call[*models.WizardView](ctx, c, http.MethodPut, wizardPath(id)+"/answers/"+url.PathEscape(questionID),
		models.SetAnswerRequest{Value: value})
}

// AdvanceWizard moves forward when the active section validates
func (c *Client) AdvanceWizard(ctx context.Context, id string) (*models.WizardView, error) {
	return call[*models.WizardView](ctx, c, http.MethodPost, wizardPath(id)+"/advance", nil)
}

// RetreatWizard moves to the previous section
func (c *Client) RetreatWizard(ctx context.Context, id string) (*models.WizardView, error) {
	return call[*models.WizardView](ctx, c, http.MethodPost, wizardPath(id)+"/retreat", nil)
}

// JumpWizard moves to any section
func (c *Client) JumpWizard(ctx context.Context, id string, section int) (*models.WizardView, error) {
	return call[*models.WizardView](ctx, c, http.MethodPost, wizardPath(id)+"/jump", models.JumpRequest{Section: section})
}

// FinalizeWizard validates and saves the survey under name
func (c *Client) FinalizeWizard(ctx context.Context, id, name string) (*models.WizardView, error) {
	return call[*models.WizardView](ctx, c, http.MethodPost, wizardPath(id)+"/finalize", models.CommitWizardRequest{Name: name})
}

// SaveWizard saves the survey under name without validation
func (c *Client) SaveWizard(ctx context.Context, id, name string) (*models.WizardView, error) {
	return call[*models.WizardView](ctx, c, http.MethodPost, wizardPath(id)+"/save", models.CommitWizardRequest{Name: name})
}

// DiscardWizard drops a wizard session
func (c *Client) DiscardWizard(ctx context.Context, id string) error {
	_, err := call[json.RawMessage](ctx, c, http.MethodDelete, wizardPath(id), nil)
	return err
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	_, _, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	return err
}

// --- Helpers ---

func surveyPath(name string) string {
	return "/api/v1/surveys/" + url.PathEscape(name)
}

func reportPath(name string, version int) string {
	return fmt.Sprintf("%s/reports/%d", surveyPath(name), version)
}

func wizardPath(id string) string {
	return "/api/v1/wizards/" + url.PathEscape(id)
}

func withSurveyDefaults(sv *models.Survey) *models.Survey {
	if sv != nil && sv.Responses == nil {
		sv.Responses = models.AnswerSet{}
	}
	return sv
}

func withAnalysisDefaults(a *models.Analysis) {
	if a.Insights == nil {
		a.Insights = []models.Insight{}
	}
	if a.Recommendations == nil {
		a.Recommendations = []models.Recommendation{}
	}
}

// call performs a request and unwraps the response envelope
func call[T any](ctx context.Context, c *Client, method, path string, payload interface{}) (T, error) {
	var zero T

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return zero, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	_, respBody, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return zero, err
	}

	var result envelope[T]
	if err := json.Unmarshal(respBody, &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		apiErr := &APIError{StatusCode: http.StatusOK, Message: "request was not successful"}
		if result.Error != nil {
			apiErr.Code = result.Error.Code
			apiErr.Message = result.Error.Message
		}
		return zero, apiErr
	}

	return result.Data, nil
}

// doRequest performs an HTTP request; statuses >= 400 become *APIError
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var env envelope[json.RawMessage]
		if json.Unmarshal(respBody, &env) == nil && env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return resp.StatusCode, respBody, apiErr
	}

	return resp.StatusCode, respBody, nil
}
