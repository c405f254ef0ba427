// Package waterfall turns an answer set into the signed line items of a
// cost/benefit waterfall chart and a headline ROI percentage.
package waterfall

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/terra-clan/roi-insights/internal/models"
)

// Result is the chart data and headline numbers for one answer set
type Result = models.WaterfallResult

// Synthetic item names
const (
	StartingName = "Initial Budget"
	TotalName    = "Net Impact"
)

// Categories is the monetary view of a taxonomy
type Categories struct {
	// InitialBudget is nil when the taxonomy has no budget question
	InitialBudget *models.Question
	// Items holds every cost and benefit question in taxonomy order
	Items []*models.Question
}

// Categorize collects the monetary questions of the taxonomy.
// Categories come from configuration; nothing is inferred from labels.
func Categorize(t *models.Taxonomy) Categories {
	var c Categories
	if t == nil {
		return c
	}
	for i := range t.Sections {
		for j := range t.Sections[i].Questions {
			q := &t.Sections[i].Questions[j]
			switch q.Category {
			case models.CategoryInitialBudget:
				if c.InitialBudget == nil {
					c.InitialBudget = q
				}
			case models.CategoryCost, models.CategoryBenefit:
				c.Items = append(c.Items, q)
			}
		}
	}
	return c
}

var leadingNumber = regexp.MustCompile(`^[-+]?(\d+(\.\d*)?|\.\d+)`)

// ParseCurrency reads a free-text money amount. Currency symbols, thousands
// separators and whitespace are removed, then the leading numeric run is
// parsed ("1,200.50 USD" is 1200.5, "12k" is 12). The magnitude is returned;
// the sign of a line item comes from its category. ok is false when no
// number could be read.
func ParseCurrency(s string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', '¥', ',', '_':
			return -1
		}
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	run := leadingNumber.FindString(cleaned)
	if run == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(run, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false
	}
	return math.Abs(v), true
}

// amount extracts the magnitude of a monetary answer; unusable answers are zero
func amount(a models.Answer) float64 {
	switch a.Kind() {
	case models.AnswerNumber:
		v, _ := a.Float()
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return math.Abs(v)
	case models.AnswerText:
		v, _ := ParseCurrency(a.String())
		return v
	default:
		return 0
	}
}

func itemName(q *models.Question) string {
	if q.ChartName != "" {
		return q.ChartName
	}
	return q.Label
}

// Transform builds the waterfall for an answer set. It is pure and never
// fails: when there is no budget and no non-zero cost or benefit the chart is
// empty. Otherwise the chart is the starting item, one item per non-zero cost
// or benefit in taxonomy order, and the total item.
func Transform(answers models.AnswerSet, t *models.Taxonomy) Result {
	cats := Categorize(t)

	var budget float64
	if cats.InitialBudget != nil {
		budget = amount(answers[cats.InitialBudget.ID])
	}

	running := budget
	var netChange float64
	var items []models.LineItem
	for _, q := range cats.Items {
		v := amount(answers[q.ID])
		if v == 0 {
			continue
		}

		role := models.RoleBenefit
		if q.Category == models.CategoryCost {
			role = models.RoleCost
			v = -v
		}
		running += v
		netChange += v

		items = append(items, models.LineItem{
			QuestionID:  q.ID,
			Name:        itemName(q),
			Value:       v,
			Description: q.Label,
			Role:        role,
			Total:       running,
		})
	}

	if len(items) == 0 && budget == 0 {
		return Result{ChartData: []models.LineItem{}}
	}

	starting := models.LineItem{
		Name:  StartingName,
		Value: budget,
		Role:  models.RoleStarting,
		Total: budget,
	}
	if cats.InitialBudget != nil {
		starting.QuestionID = cats.InitialBudget.ID
		starting.Description = cats.InitialBudget.Label
	}

	chart := make([]models.LineItem, 0, len(items)+2)
	chart = append(chart, starting)
	chart = append(chart, items...)
	chart = append(chart, models.LineItem{
		Name:  TotalName,
		Value: running,
		Role:  models.RoleTotal,
		Total: running,
	})

	return Result{
		ChartData:     chart,
		ROIPercentage: ROIPercentage(netChange, budget),
		InitialBudget: budget,
		NetImpact:     running,
		NetChange:     netChange,
	}
}

// ROIPercentage is net change over the initial budget, in percent.
// A zero budget reports 0.
func ROIPercentage(netChange, budget float64) float64 {
	if budget == 0 {
		return 0
	}
	return netChange / budget * 100
}
