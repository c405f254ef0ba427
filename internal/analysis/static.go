package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/terra-clan/roi-insights/internal/models"
	"github.com/terra-clan/roi-insights/internal/waterfall"
)

// StaticAnalyzer derives a deterministic analysis from the waterfall of the
// answered forms. It needs no network access.
type StaticAnalyzer struct {
	taxonomy *models.Taxonomy
}

// Ensure interface compliance
var _ Analyzer = (*StaticAnalyzer)(nil)

// NewStaticAnalyzer creates an offline analyzer over the taxonomy
func NewStaticAnalyzer(t *models.Taxonomy) *StaticAnalyzer {
	return &StaticAnalyzer{taxonomy: t}
}

// Name returns the provider name
func (s *StaticAnalyzer) Name() string {
	return ProviderStatic
}

// Analyze reports the waterfall ROI (net change over the initial budget) as a
// ratio, so the analysis and the waterfall agree on the headline figure.
func (s *StaticAnalyzer) Analyze(ctx context.Context, forms []models.Form) (*Result, error) {
	if len(forms) == 0 {
		return nil, ErrNoForms
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wf := waterfall.Transform(AnswersFromForms(forms), s.taxonomy)

	var benefits, costs float64
	var topBenefit, topCost *models.LineItem
	for i := range wf.ChartData {
		item := &wf.ChartData[i]
		switch item.Role {
		case models.RoleBenefit:
			benefits += item.Value
			if topBenefit == nil || item.Value > topBenefit.Value {
				topBenefit = item
			}
		case models.RoleCost:
			costs -= item.Value
			if topCost == nil || item.Value < topCost.Value {
				topCost = item
			}
		}
	}

	roi := wf.ROIPercentage / 100

	result := &Result{
		Analysis: models.Analysis{
			ROI: models.ROI{
				Value:       roi,
				Explanation: roiExplanation(roi, wf),
			},
			Insights:        staticInsights(wf, topBenefit, topCost, benefits, costs),
			Recommendations: staticRecommendations(roi),
		},
		Summary:  staticSummary(roi, wf.InitialBudget, benefits, costs, topBenefit, topCost),
		Provider: ProviderStatic,
	}

	if err := Normalize(result); err != nil {
		return nil, err
	}
	return result, nil
}

func roiExplanation(roi float64, wf waterfall.Result) string {
	if wf.InitialBudget == 0 {
		return "No total budget was provided, so the return on investment cannot be computed."
	}
	return fmt.Sprintf("A net change of %s against the initial budget of %s gives an ROI of %.2f (%.0f%%).",
		waterfall.FormatCurrency(wf.NetChange), waterfall.FormatCurrency(wf.InitialBudget), roi, roi*100)
}

func staticInsights(wf waterfall.Result, topBenefit, topCost *models.LineItem, benefits, costs float64) []models.Insight {
	var insights []models.Insight

	if topBenefit != nil {
		insights = append(insights, models.Insight{
			Title:       "Largest benefit",
			Description: topBenefit.Name,
			Contents: fmt.Sprintf("%s contributes %s, %.0f%% of your expected benefits.",
				topBenefit.Description, waterfall.FormatCurrency(topBenefit.Value), share(topBenefit.Value, benefits)),
		})
	}
	if topCost != nil {
		insights = append(insights, models.Insight{
			Title:       "Largest cost",
			Description: topCost.Name,
			Contents: fmt.Sprintf("%s accounts for %s, %.0f%% of your expected costs.",
				topCost.Description, waterfall.FormatCurrency(-topCost.Value), share(-topCost.Value, costs)),
		})
	}

	if wf.InitialBudget > 0 {
		status := "fit within"
		if costs > wf.InitialBudget {
			status = "exceed"
		}
		insights = append(insights, models.Insight{
			Title:       "Budget coverage",
			Description: fmt.Sprintf("Costs %s the budget", status),
			Contents: fmt.Sprintf("Projected costs of %s %s your budget of %s; the net position after benefits is %s.",
				waterfall.FormatCurrency(costs), status, waterfall.FormatCurrency(wf.InitialBudget), waterfall.FormatCurrency(wf.NetImpact)),
		})
	} else {
		insights = append(insights, models.Insight{
			Title:       "No budget baseline",
			Description: "Budget not provided",
			Contents:    "Without a total budget the net impact cannot be compared against what you plan to spend.",
		})
	}

	return insights
}

func staticRecommendations(roi float64) []models.Recommendation {
	recs := []models.Recommendation{
		{
			Title:       "Track realised benefits",
			Description: "Measure against the baseline",
			Contents:    "Record the current hours, error rates and resource usage before rollout so benefits can be measured rather than estimated.",
		},
		{
			Title:       "Invest in adoption",
			Description: "Plan training and communication",
			Contents:    "Budget time for training and stakeholder communication; adoption drives most of the expected savings.",
		},
	}

	if roi < 0 {
		recs = append(recs, models.Recommendation{
			Title:       "Revisit the cost base",
			Description: "Costs exceed benefits",
			Contents:    "Negotiate licensing, phase the rollout or narrow the scope until projected benefits exceed costs.",
		})
	} else {
		recs = append(recs, models.Recommendation{
			Title:       "Protect the business case",
			Description: "Keep costs on plan",
			Contents:    "Review spending against the plan each quarter so that cost overruns do not erode the projected return.",
		})
	}
	return recs
}

func staticSummary(roi, budget, benefits, costs float64, topBenefit, topCost *models.LineItem) string {
	var b strings.Builder
	b.WriteString("## Summary\n\n")

	switch {
	case budget == 0:
		b.WriteString("You have not provided a total budget yet, so viability cannot be assessed.")
	case roi >= 0:
		fmt.Fprintf(&b, "Your initiative looks **financially viable** with an ROI of %.0f%%.", roi*100)
	default:
		fmt.Fprintf(&b, "Your initiative is **not yet financially viable**: the ROI is %.0f%%.", roi*100)
	}

	if topBenefit != nil {
		fmt.Fprintf(&b, " The main benefit is %s (%s).", strings.ToLower(topBenefit.Name), waterfall.FormatCurrency(topBenefit.Value))
	}
	if topCost != nil {
		fmt.Fprintf(&b, " The main cost is %s (%s).", strings.ToLower(topCost.Name), waterfall.FormatCurrency(-topCost.Value))
	}
	fmt.Fprintf(&b, "\n\nTotal benefits: %s. Total costs: %s.", waterfall.FormatCurrency(benefits), waterfall.FormatCurrency(costs))
	return b.String()
}

func share(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}
