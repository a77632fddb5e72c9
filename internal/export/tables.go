// Package export renders an analysis result into the deliverable formats:
// flat delimited tables and one multi-sheet workbook. Both formats are
// built from the same table definitions so the numbers cannot drift apart.
package export

import (
	"fmt"
	"strconv"

	"pjimarket/internal/types"
)

// table is one exported dataset: a name (sheet / file stem), a header row,
// and data rows. Cells are string, int, or float64.
type table struct {
	Name    string
	Headers []string
	Rows    [][]any
}

// metricCell renders a possibly not-computable metric.
func metricCell(m types.Metric) any {
	if !m.Valid {
		return "n/a"
	}
	return m.Value
}

// formatCell renders a cell for delimited output.
func formatCell(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', 2, 64)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// yearTotalsTable lists the per-year group sums, exclusions, net total,
// observed PJI diagnoses, and the expected infection range. Rate bounds
// and group names come from the run's own parameters.
func yearTotalsTable(result *types.Result) table {
	groups := result.Params.GroupNames()
	headers := []string{"year"}
	headers = append(headers, groups...)
	headers = append(headers, "excluded", "total", "observed_pji", "eii_low", "eii_mid", "eii_high")

	t := table{Name: "year_totals", Headers: headers}
	for _, yt := range result.YearTotals {
		row := []any{yt.Year}
		for _, g := range groups {
			row = append(row, yt.Groups[g])
		}
		rates := result.Params.Rates
		eii := types.EIIRange{
			Low:  float64(yt.Total) * rates.Low,
			Mid:  float64(yt.Total) * rates.Mid,
			High: float64(yt.Total) * rates.High,
		}
		observed := any("n/a")
		if v, ok := result.Observed[yt.Year]; ok {
			observed = v
		}
		row = append(row, yt.Excluded, yt.Total, observed, eii.Low, eii.Mid, eii.High)
		t.Rows = append(t.Rows, row)
	}
	return t
}

// hospitalsTable lists every scored hospital, highest opportunity first.
func hospitalsTable(result *types.Result) table {
	t := table{
		Name: "hospital_scores",
		Headers: []string{
			"ik", "name", "state", "type", "volume", "dept_match",
			"eii_low", "eii_mid", "eii_high",
			"aai", "volume_score", "type_score", "dept_score", "gap_score",
			"score", "tier",
		},
	}
	for _, h := range result.Hospitals {
		t.Rows = append(t.Rows, []any{
			h.IK, h.Name, h.State, string(h.Type), h.Volume, boolCell(h.DeptMatch),
			h.EII.Low, h.EII.Mid, h.EII.High,
			metricCell(h.AAI), metricCell(h.VolumeScore), h.TypeScore, h.DeptScore, metricCell(h.GapScore),
			metricCell(h.Score), string(h.Tier),
		})
	}
	return t
}

func boolCell(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// regionsTable lists the per-Bundesland rollup.
func regionsTable(result *types.Result) table {
	t := table{
		Name:    "regions",
		Headers: []string{"state", "hospitals", "volume", "share_pct"},
	}
	for _, r := range result.Regions {
		t.Rows = append(t.Rows, []any{r.State, r.Hospitals, r.Volume, metricCell(r.Share)})
	}
	return t
}

// marketTable lists the TAM per rate bound.
func marketTable(result *types.Result) table {
	t := table{
		Name:    "market",
		Headers: []string{"bound", "rate", "expected_infections", "courses", "value_eur"},
	}
	for _, m := range result.Market {
		t.Rows = append(t.Rows, []any{m.Bound, m.Rate, m.Infections, m.Courses, m.ValueEUR})
	}
	return t
}

// limitationsTable lists the data limitations of the run.
func limitationsTable(result *types.Result) table {
	t := table{Name: "limitations", Headers: []string{"limitation"}}
	for _, l := range result.Limitations {
		t.Rows = append(t.Rows, []any{l})
	}
	return t
}

// tables assembles all exported datasets for one result.
func tables(result *types.Result) []table {
	return []table{
		yearTotalsTable(result),
		hospitalsTable(result),
		regionsTable(result),
		marketTable(result),
		limitationsTable(result),
	}
}
