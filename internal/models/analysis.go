package models

import (
	"time"
)

// ROI is the model's headline return on investment.
// Value is a ratio (1.59 means 159%).
type ROI struct {
	Value       float64 `json:"value"`
	Explanation string  `json:"explanation"`
}

// Insight is one observation about the initiative
type Insight struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Contents    string `json:"contents"`
}

// Recommendation is one piece of actionable advice
type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Contents    string `json:"contents"`
}

// Analysis is the structured part of an AI analysis
type Analysis struct {
	ROI             ROI              `json:"roi"`
	Insights        []Insight        `json:"insights"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Form is one answered question as sent to the analysis provider
type Form struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Contents    string `json:"contents"`
}

// Report is one stored analysis version of a survey
type Report struct {
	ID         string    `json:"id"`
	SurveyName string    `json:"survey_name"`
	Version    int       `json:"version"`
	Analysis   Analysis  `json:"analysis"`
	Summary    string    `json:"summary"`
	Forms      []Form    `json:"forms,omitempty"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReportVersion is the listing entry for a stored report
type ReportVersion struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// AnalyzeRequest is the optional body of POST /surveys/{name}/analysis.
// When Responses is nil the stored survey responses are analysed.
type AnalyzeRequest struct {
	Responses AnswerSet `json:"responses,omitempty"`
}

// AnalyzeResponse is returned after a successful analysis
type AnalyzeResponse struct {
	Analysis     Analysis        `json:"analysis"`
	Summary      string          `json:"summary"`
	AnalysisLink string          `json:"analysis_link"`
	Version      int             `json:"version"`
	Waterfall    WaterfallResult `json:"waterfall"`
}

// AnalysisProgress is a status update emitted while an analysis runs
type AnalysisProgress struct {
	Stage   string `json:"stage"`
	Message string `json:"message,omitempty"`
}

// Analysis progress stages
const (
	StageCollecting = "collecting"
	StageGenerating = "generating"
	StageStoring    = "storing"
	StageDone       = "done"
)
