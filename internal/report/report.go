// Package report renders the analysis result as a single self-contained
// HTML document: narrative sections, charts, the limitations list, and a
// parameters appendix. This is the deck-feeding surface; the styling
// defaults follow the project deck palette.
package report

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"pjimarket/internal/config"
	"pjimarket/internal/types"
)

const assetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// reportTemplate lays the document out: title block, market summary,
// charts (wide or half-width), tier summary, limitations, parameters.
var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{ .Title }}</title>
<script src="{{ .AssetsHost }}echarts.min.js"></script>
<style>
  body { font-family: "Segoe UI", sans-serif; color: {{ .TextColor }}; margin: 2em auto; max-width: 1160px; }
  h1 { color: {{ .AccentColor }}; }
  h2 { border-bottom: 2px solid {{ .AccentColor }}; padding-bottom: 0.2em; }
  .meta { color: #777; font-size: 0.85em; }
  .kpi { display: inline-block; margin: 0 2em 1em 0; }
  .kpi .value { font-size: 1.8em; color: {{ .AccentColor }}; font-weight: bold; }
  .chart-wide { width: 100%; margin: 1em 0; }
  .chart-half { display: inline-block; vertical-align: top; margin: 1em 1em 1em 0; }
  ul.limitations li { margin: 0.3em 0; }
  table.params { border-collapse: collapse; font-size: 0.85em; }
  table.params td { border: 1px solid #ddd; padding: 0.3em 0.8em; }
  footer { margin-top: 3em; color: #999; font-size: 0.8em; border-top: 1px solid #eee; padding-top: 0.5em; }
</style>
</head>
<body>
<h1>{{ .Title }}</h1>
<p class="meta">Run {{ .RunID }} · generated {{ .Generated }} · period {{ .Period }}</p>

<h2>Market summary</h2>
{{ range .KPIs }}<div class="kpi"><div class="value">{{ .Value }}</div><div>{{ .Label }}</div></div>
{{ end }}
<p>{{ .Narrative }}</p>

<h2>Analysis</h2>
{{ range .Charts }}<div class="{{ if .Wide }}chart-wide{{ else }}chart-half{{ end }}">{{ .Element }}</div>
{{ end }}
{{ range .Charts }}{{ .Script }}
{{ end }}

<h2>Tier distribution</h2>
<p>{{ .TierSummary }}</p>
<p class="meta">{{ .TierRules }}</p>

<h2>Limitations</h2>
{{ if .Limitations }}<ul class="limitations">
{{ range .Limitations }}<li>{{ . }}</li>
{{ end }}</ul>{{ else }}<p>No data limitations recorded for this run.</p>{{ end }}

<h2>Parameters</h2>
<table class="params">
{{ range .Params }}<tr><td>{{ index . 0 }}</td><td>{{ index . 1 }}</td></tr>
{{ end }}</table>

<footer>{{ .Footer }}</footer>
</body>
</html>
`))

type kpi struct {
	Label string
	Value string
}

type chartView struct {
	Element template.HTML
	Script  template.HTML
	Wide    bool
}

type reportData struct {
	Title       string
	RunID       string
	Generated   string
	Period      string
	AccentColor template.CSS
	TextColor   template.CSS
	AssetsHost  string
	KPIs        []kpi
	Narrative   string
	Charts      []chartView
	TierSummary string
	TierRules   string
	Limitations []string
	Params      [][2]string
	Footer      string
}

// Write renders the report into the export directory and returns its path.
func Write(cfg *config.Config, result *types.Result) (string, error) {
	if err := os.MkdirAll(cfg.Export.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	data := buildData(cfg, result)
	path := filepath.Join(cfg.Export.Dir, reportStem(result)+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if err := reportTemplate.Execute(f, data); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to flush report: %w", err)
	}
	return path, nil
}

func reportStem(result *types.Result) string {
	id := result.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	if id == "" {
		id = "unversioned"
	}
	return "pjimarket_" + id
}

func buildData(cfg *config.Config, result *types.Result) reportData {
	period := ""
	if len(result.Years) > 0 {
		period = fmt.Sprintf("%d-%d", result.Years[0], result.Years[len(result.Years)-1])
	}

	totalVolume := 0
	for _, yt := range result.YearTotals {
		totalVolume += yt.Total
	}

	var kpis []kpi
	kpis = append(kpis, kpi{Label: "primary procedures", Value: fmt.Sprintf("%d", totalVolume)})
	for _, m := range result.Market {
		if m.Bound == "mid" {
			kpis = append(kpis,
				kpi{Label: "expected infections (mid)", Value: fmt.Sprintf("%.0f", m.Infections)},
				kpi{Label: "TAM (mid)", Value: fmt.Sprintf("€%.0fk", m.ValueEUR/1000)})
		}
	}
	kpis = append(kpis, kpi{Label: "hospitals scored", Value: fmt.Sprintf("%d", len(result.Hospitals))})

	var charts []chartView
	for _, cb := range buildCharts(cfg, result) {
		charts = append(charts, chartView{
			Element: template.HTML(cb.Snippet.Element),
			Script:  template.HTML(cb.Snippet.Script),
			Wide:    cb.Wide,
		})
	}

	tierCounts := map[types.Tier]int{}
	for _, h := range result.Hospitals {
		tierCounts[h.Tier]++
	}

	return reportData{
		Title:       cfg.Export.Title,
		RunID:       result.RunID,
		Generated:   result.GeneratedAt.Format("2006-01-02 15:04 UTC"),
		Period:      period,
		AccentColor: template.CSS(cfg.Export.AccentHex),
		TextColor:   template.CSS(cfg.Export.TextHex),
		AssetsHost:  assetsHost,
		KPIs:        kpis,
		Narrative: fmt.Sprintf(
			"Across %s the dataset reports %d primary hip and knee implantations in scope. "+
				"Applied infection rates of %.1f%%, %.1f%%, and %.1f%% bound the expected annual PJI load; "+
				"the composite opportunity score ranks hospitals by volume, class, department fit, and antibiotic adequacy gap.",
			period, totalVolume, result.Params.Rates.Low*100, result.Params.Rates.Mid*100, result.Params.Rates.High*100),
		Charts: charts,
		TierSummary: fmt.Sprintf("Tier A: %d hospitals · Tier B: %d · Tier C: %d",
			tierCounts[types.TierA], tierCounts[types.TierB], tierCounts[types.TierC]),
		TierRules:   tierRules(&result.Params),
		Limitations: result.Limitations,
		Params:      paramRows(result),
		Footer:      cfg.Export.Footer,
	}
}

func tierRules(cfg *config.Config) string {
	return fmt.Sprintf(
		"Tier A requires at least %d procedures in the period with an orthopaedics/trauma department; "+
			"general hospitals additionally need an adequacy score at or below %.0f. "+
			"Tier B requires at least %d procedures with a department match.",
		cfg.Tiers.MinVolumeA, cfg.Tiers.AAICutoff, cfg.Tiers.MinVolumeB)
}

// paramRows documents the run's own parameters, never the live config.
func paramRows(result *types.Result) [][2]string {
	rows := [][2]string{
		{"run_id", result.RunID},
	}
	return append(rows, result.Params.ParamRows()...)
}
