package report

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/terra-clan/roi-insights/internal/models"
	"github.com/terra-clan/roi-insights/internal/waterfall"
)

var pageTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<header>
<h1>{{.Title}}</h1>
<p>Version {{.Version}}, generated {{.Generated}}</p>
</header>
<section id="roi">
<h2>ROI Summary</h2>
<p class="roi">{{.ROI}}</p>
{{if .Explanation}}<p>{{.Explanation}}</p>{{end}}
</section>
{{if .Summary}}<section id="summary">
<h2>Executive Summary</h2>
{{.Summary}}
</section>{{end}}
{{if .Waterfall}}<section id="waterfall">
<h2>Financial Impact Breakdown</h2>
<table>
<thead><tr><th>Item</th><th>Type</th><th>Amount</th><th>Running total</th></tr></thead>
<tbody>
{{range .Waterfall}}<tr><td>{{.Name}}</td><td>{{.Kind}}</td><td>{{.Amount}}</td><td>{{.Running}}</td></tr>
{{end}}</tbody>
</table>
</section>{{end}}
{{range .Sections}}{{if .Items}}<section>
<h2>{{.Title}}</h2>
{{range .Items}}<article>
<h3>{{.Title}}</h3>
{{if .Description}}<p><em>{{.Description}}</em></p>{{end}}
{{.Contents}}
</article>
{{end}}</section>
{{end}}{{end}}<footer><p>{{.Disclaimer}}</p></footer>
</body>
</html>
`))

type htmlItem struct {
	Title       string
	Description string
	Contents    template.HTML
}

type htmlSection struct {
	Title string
	Items []htmlItem
}

type htmlPage struct {
	Title       string
	Version     int
	Generated   string
	ROI         string
	Explanation string
	Summary     template.HTML
	Waterfall   []waterfall.Row
	Sections    []htmlSection
	Disclaimer  string
}

// HTML renders a report version as a standalone page. Markdown in the summary
// and item contents is converted; everything else is escaped.
func HTML(rep *models.Report, wf models.WaterfallResult) (string, error) {
	if rep == nil {
		return "", fmt.Errorf("report is required")
	}

	summary, err := MarkdownToHTML(rep.Summary)
	if err != nil {
		return "", err
	}

	insights, err := htmlItems(insightItems(rep.Analysis.Insights))
	if err != nil {
		return "", err
	}
	recs, err := htmlItems(recommendationItems(rep.Analysis.Recommendations))
	if err != nil {
		return "", err
	}

	page := htmlPage{
		Title:       rep.SurveyName + " ROI Analysis",
		Version:     rep.Version,
		Generated:   rep.CreatedAt.UTC().Format("2006-01-02 15:04 MST"),
		ROI:         fmt.Sprintf("%.1f%%", rep.Analysis.ROI.Value*100),
		Explanation: rep.Analysis.ROI.Explanation,
		Summary:     template.HTML(summary),
		Waterfall:   waterfall.Breakdown(wf),
		Sections: []htmlSection{
			{Title: "Insights", Items: insights},
			{Title: "Recommendations", Items: recs},
		},
		Disclaimer: Disclaimer,
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		return "", fmt.Errorf("failed to render html: %w", err)
	}
	return buf.String(), nil
}

func htmlItems(items []item) ([]htmlItem, error) {
	out := make([]htmlItem, 0, len(items))
	for _, it := range items {
		contents, err := MarkdownToHTML(it.contents)
		if err != nil {
			return nil, err
		}
		out = append(out, htmlItem{
			Title:       it.title,
			Description: it.description,
			Contents:    template.HTML(contents),
		})
	}
	return out, nil
}
