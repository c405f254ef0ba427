package models

// LineItemRole tags a waterfall line item
type LineItemRole string

const (
	RoleStarting LineItemRole = "starting"
	RoleCost     LineItemRole = "cost"
	RoleBenefit  LineItemRole = "benefit"
	RoleTotal    LineItemRole = "total"
)

// LineItem is one bar of the waterfall chart.
// For cost and benefit items Value is the signed delta; for the starting and
// total items Value reports the running total instead of contributing a delta.
type LineItem struct {
	QuestionID  string       `json:"question_id,omitempty"`
	Name        string       `json:"name"`
	Value       float64      `json:"value"`
	Description string       `json:"description,omitempty"`
	Role        LineItemRole `json:"role"`
	Total       float64      `json:"total"`
}

// WaterfallResult is the chart and headline numbers derived from an answer set
type WaterfallResult struct {
	ChartData     []LineItem `json:"chart_data"`
	ROIPercentage float64    `json:"roi_percentage"`
	InitialBudget float64    `json:"initial_budget"`
	NetImpact     float64    `json:"net_impact"`
	NetChange     float64    `json:"net_change"`
}

// IsEmpty reports whether there is nothing to chart
func (r WaterfallResult) IsEmpty() bool {
	return len(r.ChartData) == 0
}
