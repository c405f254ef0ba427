// Package analysis produces the AI-generated ROI analysis of a survey.
package analysis

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/terra-clan/roi-insights/internal/models"
)

// Common errors
var (
	ErrEmptyResponse = errors.New("analysis response was empty")
	ErrNoForms       = errors.New("no answered questions to analyse")
)

// Bounds on the number of insights and recommendations kept from a response
const (
	MinItems = 3
	MaxItems = 10
)

// Providers
const (
	ProviderGemini = "gemini"
	ProviderStatic = "static"
)

// Result is a decoded analysis plus its provenance
type Result struct {
	Analysis models.Analysis `json:"analysis"`
	Summary  string          `json:"summary"`
	Provider string          `json:"-"`
	Model    string          `json:"-"`
}

// Analyzer turns answered survey forms into an analysis
type Analyzer interface {
	Analyze(ctx context.Context, forms []models.Form) (*Result, error)
	Name() string
}

// BuildForms flattens an answer set into request forms in taxonomy order.
// Unanswered questions are skipped; choice values are rendered as labels.
func BuildForms(t *models.Taxonomy, answers models.AnswerSet) []models.Form {
	forms := []models.Form{}
	if t == nil {
		return forms
	}

	for _, section := range t.Sections {
		for i := range section.Questions {
			q := &section.Questions[i]
			if !answers.IsAnswered(q.ID) {
				continue
			}
			forms = append(forms, models.Form{
				Category:    section.Name,
				Title:       q.Label,
				Description: q.ID,
				Contents:    renderAnswer(q, answers[q.ID]),
			})
		}
	}
	return forms
}

// AnswersFromForms recovers a text answer set from request forms. Choice
// answers come back as their rendered labels.
func AnswersFromForms(forms []models.Form) models.AnswerSet {
	answers := make(models.AnswerSet, len(forms))
	for _, f := range forms {
		if f.Description == "" {
			continue
		}
		answers[f.Description] = models.Text(f.Contents)
	}
	return answers
}

func renderAnswer(q *models.Question, a models.Answer) string {
	if !q.Type.HasOptions() {
		return strings.TrimSpace(a.String())
	}

	labels := make(map[string]string, len(q.Options))
	for _, o := range q.Options {
		labels[o.Value] = o.Label
	}
	label := func(v string) string {
		if l, ok := labels[v]; ok {
			return l
		}
		return v
	}

	if a.Kind() == models.AnswerList {
		values := a.Values()
		out := make([]string, 0, len(values))
		for _, v := range values {
			out = append(out, label(v))
		}
		return strings.Join(out, ", ")
	}
	return label(a.String())
}

// Normalize applies the response contract: slices are never nil, lists are
// capped at MaxItems, blank entries are dropped and a non-finite ROI becomes 0.
// A response with nothing usable is ErrEmptyResponse.
func Normalize(r *Result) error {
	if r == nil {
		return ErrEmptyResponse
	}

	a := &r.Analysis
	if math.IsNaN(a.ROI.Value) || math.IsInf(a.ROI.Value, 0) {
		a.ROI.Value = 0
	}
	a.ROI.Explanation = strings.TrimSpace(a.ROI.Explanation)
	r.Summary = strings.TrimSpace(r.Summary)

	insights := make([]models.Insight, 0, len(a.Insights))
	for _, in := range a.Insights {
		if strings.TrimSpace(in.Title) == "" && strings.TrimSpace(in.Contents) == "" {
			continue
		}
		insights = append(insights, in)
	}
	if len(insights) > MaxItems {
		insights = insights[:MaxItems]
	}
	a.Insights = insights

	recs := make([]models.Recommendation, 0, len(a.Recommendations))
	for _, rec := range a.Recommendations {
		if strings.TrimSpace(rec.Title) == "" && strings.TrimSpace(rec.Contents) == "" {
			continue
		}
		recs = append(recs, rec)
	}
	if len(recs) > MaxItems {
		recs = recs[:MaxItems]
	}
	a.Recommendations = recs

	if r.Summary == "" && a.ROI.Explanation == "" && len(insights) == 0 && len(recs) == 0 {
		return ErrEmptyResponse
	}
	return nil
}
