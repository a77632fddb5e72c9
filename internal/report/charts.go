package report

import (
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/render"

	"pjimarket/internal/config"
	"pjimarket/internal/types"
)

// chartBlock is one rendered chart plus its layout hint. Trend lines run
// full width; categorical bars sit side by side.
type chartBlock struct {
	Snippet render.ChartSnippet
	Wide    bool
}

// volumeTrendChart plots the net primary volume per year and group.
func volumeTrendChart(result *types.Result) chartBlock {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Primary procedures per year"}),
		charts.WithInitializationOpts(opts.Initialization{Width: "1100px", Height: "420px"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)

	years := make([]string, 0, len(result.YearTotals))
	for _, yt := range result.YearTotals {
		years = append(years, fmt.Sprintf("%d", yt.Year))
	}
	line.SetXAxis(years)

	for _, group := range result.Params.GroupNames() {
		data := make([]opts.LineData, 0, len(result.YearTotals))
		for _, yt := range result.YearTotals {
			data = append(data, opts.LineData{Value: yt.Groups[group]})
		}
		line.AddSeries(group, data)
	}

	totals := make([]opts.LineData, 0, len(result.YearTotals))
	for _, yt := range result.YearTotals {
		totals = append(totals, opts.LineData{Value: yt.Total})
	}
	line.AddSeries("total", totals)

	return chartBlock{Snippet: line.RenderSnippet(), Wide: true}
}

// eiiRangeChart plots the expected infection range per year, at the rate
// bounds the run was computed with.
func eiiRangeChart(result *types.Result) chartBlock {
	rates := result.Params.Rates
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Expected infections per year",
			Subtitle: fmt.Sprintf("rate bounds %.1f%% / %.1f%% / %.1f%%",
				rates.Low*100, rates.Mid*100, rates.High*100)}),
		charts.WithInitializationOpts(opts.Initialization{Width: "540px", Height: "400px"}),
	)

	years := make([]string, 0, len(result.YearTotals))
	low := make([]opts.BarData, 0, len(result.YearTotals))
	mid := make([]opts.BarData, 0, len(result.YearTotals))
	high := make([]opts.BarData, 0, len(result.YearTotals))
	for _, yt := range result.YearTotals {
		years = append(years, fmt.Sprintf("%d", yt.Year))
		low = append(low, opts.BarData{Value: round1(float64(yt.Total) * rates.Low)})
		mid = append(mid, opts.BarData{Value: round1(float64(yt.Total) * rates.Mid)})
		high = append(high, opts.BarData{Value: round1(float64(yt.Total) * rates.High)})
	}
	bar.SetXAxis(years).
		AddSeries("low", low).
		AddSeries("mid", mid).
		AddSeries("high", high)

	return chartBlock{Snippet: bar.RenderSnippet(), Wide: false}
}

// topHospitalsChart plots the composite score of the top-N hospitals.
func topHospitalsChart(cfg *config.Config, result *types.Result) chartBlock {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("Top %d opportunity scores", cfg.Export.TopN)}),
		charts.WithInitializationOpts(opts.Initialization{Width: "540px", Height: "400px"}),
	)

	var names []string
	var scores []opts.BarData
	for _, h := range result.Hospitals {
		if !h.Score.Valid {
			continue
		}
		names = append(names, h.Name)
		scores = append(scores, opts.BarData{Value: round1(h.Score.Value)})
		if len(names) >= cfg.Export.TopN {
			break
		}
	}
	bar.SetXAxis(names).AddSeries("score", scores)

	return chartBlock{Snippet: bar.RenderSnippet(), Wide: false}
}

// regionChart plots the volume per Bundesland.
func regionChart(result *types.Result) chartBlock {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Volume by Bundesland"}),
		charts.WithInitializationOpts(opts.Initialization{Width: "1100px", Height: "420px"}),
	)

	var states []string
	var volumes []opts.BarData
	for _, r := range result.Regions {
		states = append(states, r.State)
		volumes = append(volumes, opts.BarData{Value: r.Volume})
	}
	bar.SetXAxis(states).AddSeries("volume", volumes)

	return chartBlock{Snippet: bar.RenderSnippet(), Wide: true}
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

// buildCharts assembles all report charts in presentation order.
func buildCharts(cfg *config.Config, result *types.Result) []chartBlock {
	return []chartBlock{
		volumeTrendChart(result),
		eiiRangeChart(result),
		topHospitalsChart(cfg, result),
		regionChart(result),
	}
}
