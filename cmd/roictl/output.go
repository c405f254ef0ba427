package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/terra-clan/roi-insights/internal/models"
	"github.com/terra-clan/roi-insights/internal/waterfall"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	roiStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...)
}

func printSurvey(w io.Writer, sv *models.Survey) error {
	fmt.Fprintln(w, headingStyle.Render(sv.Name))
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("created %s, modified %s",
		sv.DateCreated.Format("2006-01-02 15:04"), sv.DateModified.Format("2006-01-02 15:04"))))

	ids := make([]string, 0, len(sv.Responses))
	for id := range sv.Responses {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	t := newTable("Question", "Answer")
	for _, id := range ids {
		t.Row(id, sv.Responses[id].String())
	}
	fmt.Fprintln(w, t.Render())
	return nil
}

func printWaterfall(w io.Writer, wf models.WaterfallResult) error {
	if wf.IsEmpty() {
		fmt.Fprintln(w, "No financial data to chart.")
		return nil
	}

	t := newTable("Item", "Type", "Amount", "Running total")
	for _, row := range waterfall.Breakdown(wf) {
		t.Row(row.Name, row.Kind, row.Amount, row.Running)
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, "ROI: "+roiStyle.Render(waterfall.FormatPercent(wf.ROIPercentage)))
	return nil
}

func printVersions(w io.Writer, versions []models.ReportVersion) error {
	if len(versions) == 0 {
		fmt.Fprintln(w, "No reports.")
		return nil
	}

	t := newTable("Version", "Created")
	for _, v := range versions {
		t.Row(fmt.Sprintf("v%d", v.Version), v.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(w, t.Render())
	return nil
}

func printReport(w io.Writer, rep *models.Report) error {
	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("%s, report v%d", rep.SurveyName, rep.Version)))
	fmt.Fprintln(w, "ROI: "+roiStyle.Render(waterfall.FormatPercent(rep.Analysis.ROI.Value*100)))
	if rep.Analysis.ROI.Explanation != "" {
		fmt.Fprintln(w, rep.Analysis.ROI.Explanation)
	}

	if err := printMarkdown(w, rep.Summary); err != nil {
		return err
	}

	for _, in := range rep.Analysis.Insights {
		fmt.Fprintln(w, headingStyle.Render("Insight: "+in.Title))
		if err := printMarkdown(w, in.Contents); err != nil {
			return err
		}
	}
	for _, rec := range rep.Analysis.Recommendations {
		fmt.Fprintln(w, headingStyle.Render("Recommendation: "+rec.Title))
		if err := printMarkdown(w, rec.Contents); err != nil {
			return err
		}
	}
	return nil
}

func printMarkdown(w io.Writer, md string) error {
	if md == "" {
		return nil
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
