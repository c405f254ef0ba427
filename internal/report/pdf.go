// Package report renders stored analyses as PDF and HTML documents.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/terra-clan/roi-insights/internal/models"
	"github.com/terra-clan/roi-insights/internal/waterfall"
)

// Disclaimer is printed at the end of every exported report
const Disclaimer = "Disclaimer: these ROI insights are generated automatically and may need human review " +
	"for accuracy and applicability. Verify the results with a qualified expert before making business decisions."

const (
	pageWidth    = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 20.0
	contentWidth = pageWidth - marginLeft - marginRight
)

// pdfReport holds the document being written
type pdfReport struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// PDF renders a report version with its waterfall breakdown
func PDF(rep *models.Report, wf models.WaterfallResult) ([]byte, error) {
	if rep == nil {
		return nil, fmt.Errorf("report is required")
	}

	r := &pdfReport{pdf: fpdf.New("P", "mm", "A4", "")}
	r.tr = r.pdf.UnicodeTranslatorFromDescriptor("")

	r.pdf.SetMargins(marginLeft, marginTop, marginRight)
	r.pdf.SetAutoPageBreak(true, marginBottom)
	r.pdf.SetTitle(r.tr(rep.SurveyName+" ROI Analysis"), false)
	r.pdf.AliasNbPages("")
	r.pdf.SetFooterFunc(func() {
		r.pdf.SetY(-15)
		r.pdf.SetFont("Arial", "I", 8)
		r.pdf.SetTextColor(128, 128, 128)
		r.pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", r.pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	r.pdf.AddPage()
	r.addTitle(rep)
	r.addROI(rep.Analysis.ROI)
	r.addSummary(rep.Summary)
	r.addWaterfall(wf)
	r.addItems("Insights", insightItems(rep.Analysis.Insights))
	r.addItems("Recommendations", recommendationItems(rep.Analysis.Recommendations))
	r.addDisclaimer()

	var buf bytes.Buffer
	if err := r.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *pdfReport) addTitle(rep *models.Report) {
	r.pdf.SetFillColor(2, 48, 71)
	r.pdf.SetTextColor(255, 255, 255)
	r.pdf.SetFont("Arial", "B", 20)
	r.pdf.CellFormat(contentWidth, 14, r.tr(rep.SurveyName), "", 1, "L", true, 0, "")

	r.pdf.SetFont("Arial", "", 10)
	sub := fmt.Sprintf("ROI analysis, version %d, generated %s", rep.Version, rep.CreatedAt.UTC().Format(time.DateOnly))
	r.pdf.CellFormat(contentWidth, 8, r.tr(sub), "", 1, "L", true, 0, "")
	r.pdf.Ln(6)
}

func (r *pdfReport) addROI(roi models.ROI) {
	r.heading("ROI Summary")

	if roi.Value > 0 {
		r.pdf.SetTextColor(67, 160, 71)
	} else {
		r.pdf.SetTextColor(220, 0, 0)
	}
	r.pdf.SetFont("Arial", "B", 24)
	r.pdf.CellFormat(contentWidth, 12, fmt.Sprintf("%.1f%%", roi.Value*100), "", 1, "L", false, 0, "")

	if roi.Explanation != "" {
		r.body(roi.Explanation)
	}
	r.pdf.Ln(4)
}

func (r *pdfReport) addSummary(summary string) {
	if summary == "" {
		return
	}
	r.heading("Executive Summary")
	r.body(MarkdownToText(summary))
	r.pdf.Ln(4)
}

func (r *pdfReport) addWaterfall(wf models.WaterfallResult) {
	r.heading("Financial Impact Breakdown")
	if wf.IsEmpty() {
		r.body("Financial data is not available for this survey.")
		r.pdf.Ln(4)
		return
	}

	widths := []float64{70, 40, 35, 35}
	headers := []string{"Item", "Type", "Amount", "Running total"}

	r.pdf.SetFont("Arial", "B", 9)
	r.pdf.SetFillColor(2, 48, 71)
	r.pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		r.pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	r.pdf.Ln(-1)

	r.pdf.SetFont("Arial", "", 9)
	r.pdf.SetTextColor(0, 0, 0)
	for i, row := range waterfall.Breakdown(wf) {
		if i%2 == 0 {
			r.pdf.SetFillColor(245, 247, 250)
		} else {
			r.pdf.SetFillColor(255, 255, 255)
		}
		r.pdf.CellFormat(widths[0], 6, r.tr(row.Name), "1", 0, "L", true, 0, "")
		r.pdf.CellFormat(widths[1], 6, row.Kind, "1", 0, "L", true, 0, "")
		r.pdf.CellFormat(widths[2], 6, row.Amount, "1", 0, "R", true, 0, "")
		r.pdf.CellFormat(widths[3], 6, row.Running, "1", 0, "R", true, 0, "")
		r.pdf.Ln(-1)
	}

	r.pdf.Ln(2)
	r.pdf.SetFont("Arial", "B", 10)
	r.pdf.CellFormat(contentWidth, 6,
		fmt.Sprintf("Net impact %s, ROI %s", waterfall.FormatCurrency(wf.NetImpact), waterfall.FormatPercent(wf.ROIPercentage)),
		"", 1, "L", false, 0, "")
	r.pdf.Ln(4)
}

type item struct {
	title       string
	description string
	contents    string
}

func insightItems(in []models.Insight) []item {
	out := make([]item, 0, len(in))
	for _, i := range in {
		out = append(out, item{i.Title, i.Description, i.Contents})
	}
	return out
}

func recommendationItems(in []models.Recommendation) []item {
	out := make([]item, 0, len(in))
	for _, i := range in {
		out = append(out, item{i.Title, i.Description, i.Contents})
	}
	return out
}

func (r *pdfReport) addItems(title string, items []item) {
	if len(items) == 0 {
		return
	}
	r.heading(title)

	for n, it := range items {
		r.pdf.SetFont("Arial", "B", 11)
		r.pdf.SetTextColor(0, 51, 102)
		r.pdf.MultiCell(contentWidth, 6, r.tr(fmt.Sprintf("%d. %s", n+1, it.title)), "", "L", false)
		if it.description != "" {
			r.pdf.SetFont("Arial", "I", 9)
			r.pdf.SetTextColor(90, 90, 90)
			r.pdf.MultiCell(contentWidth, 5, r.tr(it.description), "", "L", false)
		}
		r.body(MarkdownToText(it.contents))
		r.pdf.Ln(2)
	}
	r.pdf.Ln(2)
}

func (r *pdfReport) addDisclaimer() {
	r.pdf.Ln(4)
	r.pdf.SetDrawColor(0, 51, 102)
	r.pdf.Line(marginLeft, r.pdf.GetY(), marginLeft+contentWidth, r.pdf.GetY())
	r.pdf.Ln(2)
	r.pdf.SetFont("Arial", "I", 8)
	r.pdf.SetTextColor(100, 100, 100)
	r.pdf.MultiCell(contentWidth, 4, Disclaimer, "", "L", false)
}

func (r *pdfReport) heading(s string) {
	r.pdf.SetFont("Arial", "B", 14)
	r.pdf.SetTextColor(2, 48, 71)
	r.pdf.CellFormat(contentWidth, 9, r.tr(s), "B", 1, "L", false, 0, "")
	r.pdf.Ln(2)
}

func (r *pdfReport) body(s string) {
	r.pdf.SetFont("Arial", "", 10)
	r.pdf.SetTextColor(0, 0, 0)
	r.pdf.MultiCell(contentWidth, 5, r.tr(s), "", "L", false)
}
