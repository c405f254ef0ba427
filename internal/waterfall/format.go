package waterfall

import (
	"fmt"
	"math"

	"github.com/terra-clan/roi-insights/internal/models"
)

// Row is one line of the tabular breakdown
type Row struct {
	Name    string
	Kind    string
	Amount  string
	Running string
}

// FormatCurrency abbreviates an amount the way the chart labels do:
// $1.2M, $5K, $250. Negative amounts get a leading minus.
func FormatCurrency(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	switch {
	case v >= 1e6:
		return fmt.Sprintf("%s$%.1fM", sign, v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%s$%.0fK", sign, v/1e3)
	default:
		return fmt.Sprintf("%s$%.0f", sign, v)
	}
}

// FormatPercent renders an ROI percentage with one decimal
func FormatPercent(p float64) string {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", p)
}

// Breakdown renders the chart as table rows
func Breakdown(r Result) []Row {
	rows := make([]Row, 0, len(r.ChartData))
	for _, item := range r.ChartData {
		row := Row{
			Name:    item.Name,
			Running: FormatCurrency(item.Total),
		}
		switch item.Role {
		case models.RoleStarting:
			row.Kind = "Starting budget"
			row.Amount = FormatCurrency(item.Value)
		case models.RoleTotal:
			row.Kind = "Net impact"
			row.Amount = FormatCurrency(item.Value)
		case models.RoleCost:
			row.Kind = "Cost"
			row.Amount = FormatCurrency(item.Value)
		default:
			row.Kind = "Benefit"
			row.Amount = "+" + FormatCurrency(item.Value)
		}
		rows = append(rows, row)
	}
	return rows
}
