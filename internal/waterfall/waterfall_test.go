package waterfall

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/roi-insights/internal/models"
	"github.com/terra-clan/roi-insights/internal/taxonomy"
)

func financeTaxonomy() *models.Taxonomy {
	return &models.Taxonomy{Sections: []models.Section{
		{Name: "Budget", Questions: []models.Question{
			{ID: "company", Type: models.QuestionText, Label: "Company"},
			{ID: "budget", Type: models.QuestionText, Label: "Total budget", Category: models.CategoryInitialBudget},
		}},
		{Name: "Impact", Questions: []models.Question{
			{ID: "savings", Type: models.QuestionText, Label: "Annual labour savings", ChartName: "Labor Savings", Category: models.CategoryBenefit},
			{ID: "license", Type: models.QuestionText, Label: "License cost", Category: models.CategoryCost},
			{ID: "training", Type: models.QuestionText, Label: "Training cost", Category: models.CategoryCost},
		}},
	}}
}

func TestTransformReferenceCase(t *testing.T) {
	answers := models.AnswerSet{
		"budget":  models.Text("$1,000"),
		"savings": models.Number(500),
		"license": models.Text("200"),
	}

	got := Transform(answers, financeTaxonomy())

	want := Result{
		ChartData: []models.LineItem{
			{QuestionID: "budget", Name: StartingName, Value: 1000, Description: "Total budget", Role: models.RoleStarting, Total: 1000},
			{QuestionID: "savings", Name: "Labor Savings", Value: 500, Description: "Annual labour savings", Role: models.RoleBenefit, Total: 1500},
			{QuestionID: "license", Name: "License cost", Value: -200, Description: "License cost", Role: models.RoleCost, Total: 1300},
			{Name: TotalName, Value: 1300, Role: models.RoleTotal, Total: 1300},
		},
		ROIPercentage: 30,
		InitialBudget: 1000,
		NetImpact:     1300,
		NetChange:     300,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Transform() mismatch (-want +got):\n%s", diff)
	}
}

func TestTransformEmpty(t *testing.T) {
	tests := []struct {
		name    string
		answers models.AnswerSet
	}{
		{"nil answers", nil},
		{"no financial answers", models.AnswerSet{"company": models.Text("Acme")}},
		{"all zero or blank", models.AnswerSet{
			"budget":   models.Text(""),
			"savings":  models.Number(0),
			"license":  models.Text("n/a"),
			"training": models.Text("  "),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Transform(tt.answers, financeTaxonomy())
			assert.True(t, got.IsEmpty())
			assert.NotNil(t, got.ChartData)
			assert.Zero(t, got.ROIPercentage)
		})
	}
}

func TestTransformBudgetOnly(t *testing.T) {
	got := Transform(models.AnswerSet{"budget": models.Number(5000)}, financeTaxonomy())

	require.Len(t, got.ChartData, 2)
	assert.Equal(t, models.RoleStarting, got.ChartData[0].Role)
	assert.Equal(t, models.RoleTotal, got.ChartData[1].Role)
	assert.Equal(t, 5000.0, got.NetImpact)
	assert.Zero(t, got.ROIPercentage)
}

func TestTransformZeroBudgetGuardsROI(t *testing.T) {
	got := Transform(models.AnswerSet{"license": models.Text("750")}, financeTaxonomy())

	require.Len(t, got.ChartData, 3)
	assert.Equal(t, -750.0, got.NetImpact)
	assert.Zero(t, got.ROIPercentage)
}

func TestTransformInvariants(t *testing.T) {
	inputs := []models.AnswerSet{
		{"budget": models.Text("10000"), "savings": models.Text("2500"), "license": models.Text("1200"), "training": models.Text("300")},
		{"budget": models.Text("1,234.56"), "training": models.Number(-99.5)},
		{"savings": models.Text("$40k"), "license": models.Text("12 per seat")},
	}

	for _, answers := range inputs {
		got := Transform(answers, financeTaxonomy())
		require.NotEmpty(t, got.ChartData)

		regular := 0
		for _, item := range got.ChartData {
			if item.Role == models.RoleCost || item.Role == models.RoleBenefit {
				regular++
			}
		}
		assert.Len(t, got.ChartData, regular+2)

		first := got.ChartData[0]
		last := got.ChartData[len(got.ChartData)-1]
		sum := first.Value
		running := first.Value
		for _, item := range got.ChartData[1 : len(got.ChartData)-1] {
			sum += item.Value
			running += item.Value
			assert.InDelta(t, running, item.Total, 1e-9)
			if item.Role == models.RoleCost {
				assert.Negative(t, item.Value)
			} else {
				assert.Positive(t, item.Value)
			}
		}
		assert.InDelta(t, sum, last.Total, 1e-9)
		assert.InDelta(t, got.NetImpact, last.Total, 1e-9)

		again := Transform(answers, financeTaxonomy())
		if diff := cmp.Diff(got, again); diff != "" {
			t.Errorf("Transform() not deterministic:\n%s", diff)
		}
	}
}

func TestTransformBuiltinTaxonomy(t *testing.T) {
	answers := models.AnswerSet{
		"total_budget":      models.Text("$100,000"),
		"saved_hours_value": models.Text("$60,000"),
		"upfront_cost":      models.Text("$20,000"),
		"subscription_fee":  models.Text("$10,000"),
	}

	got := Transform(answers, taxonomy.Default())

	require.Len(t, got.ChartData, 5)
	assert.Equal(t, 30000.0, got.NetChange)
	assert.InDelta(t, 30.0, got.ROIPercentage, 1e-9)
}

func TestCategorize(t *testing.T) {
	cats := Categorize(financeTaxonomy())
	require.NotNil(t, cats.InitialBudget)
	assert.Equal(t, "budget", cats.InitialBudget.ID)

	ids := make([]string, 0, len(cats.Items))
	for _, q := range cats.Items {
		ids = append(ids, q.ID)
	}
	assert.Equal(t, []string{"savings", "license", "training"}, ids)

	assert.Nil(t, Categorize(nil).InitialBudget)
}

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1000", 1000, true},
		{"$1,000", 1000, true},
		{" $ 12,500.75 ", 12500.75, true},
		{"-200", 200, true},
		{"€3.5", 3.5, true},
		{".5", 0.5, true},
		{"40k", 40, true},
		{"12 per seat", 12, true},
		{"about 12", 0, false},
		{"", 0, false},
		{"n/a", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseCurrency(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
