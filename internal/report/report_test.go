package report

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pjimarket/internal/config"
	"pjimarket/internal/types"
)

func testResult() *types.Result {
	return &types.Result{
		RunID:       "0f1e2d3c-4b5a-6978-8897-a6b5c4d3e2f1",
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Params:      *config.DefaultConfig(),
		Years:       []int{2021, 2022},
		YearTotals: []types.YearTotal{
			{Year: 2021, Groups: map[string]int{"hip": 500, "knee": 300}, Total: 800},
			{Year: 2022, Groups: map[string]int{"hip": 600, "knee": 400}, Total: 1000},
		},
		Hospitals: []types.HospitalMetrics{
			{IK: "260910002", Name: "Universitätsklinikum München", State: "Bayern",
				Type: types.TypeUniversity, Volume: 1000,
				Score: types.SomeMetric(87), Tier: types.TierA},
			{IK: "260510001", Name: "Klinikum Dortmund", State: "Nordrhein-Westfalen",
				Type: types.TypeGeneral, Volume: 600,
				Score: types.SomeMetric(65), Tier: types.TierB},
		},
		Regions: []types.RegionRollup{
			{State: "Bayern", Hospitals: 1, Volume: 1000, Share: types.SomeMetric(62.5)},
		},
		Market: []types.MarketEstimate{
			{Bound: "low", Rate: 0.01, Infections: 18, Courses: 18, ValueEUR: 225_000},
			{Bound: "mid", Rate: 0.015, Infections: 27, Courses: 27, ValueEUR: 337_500},
			{Bound: "high", Rate: 0.02, Infections: 36, Courses: 36, ValueEUR: 450_000},
		},
		Limitations: []string{"quality-report free text absent for 1 of 2 hospitals"},
	}
}

func TestWrite(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Export.Dir = t.TempDir()

	path, err := Write(cfg, testResult())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "pjimarket_0f1e2d3c.html"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(data)

	// Title, run metadata, and branding.
	assert.Contains(t, html, "PJI Antibiotic Market Sizing")
	assert.Contains(t, html, "0f1e2d3c-4b5a-6978-8897-a6b5c4d3e2f1")
	assert.Contains(t, html, "#FF325D")
	assert.Contains(t, html, "2021-2022")

	// KPIs and narrative.
	assert.Contains(t, html, "1800")
	assert.Contains(t, html, "expected infections (mid)")
	assert.Contains(t, html, "TAM (mid)")

	// All four charts are embedded with their scripts.
	assert.Equal(t, 4, strings.Count(html, `class="chart-`))
	assert.GreaterOrEqual(t, strings.Count(html, "echarts.init"), 4)
	assert.Contains(t, html, "echarts.min.js")

	// Tier distribution and limitations.
	assert.Contains(t, html, "Tier A: 1 hospitals")
	assert.Contains(t, html, "free text absent")

	// Parameters appendix.
	assert.Contains(t, html, "scoring.weights")
}

func TestWrite_UsesRunRates(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Export.Dir = t.TempDir()
	// Rates edited after the run must not change what the report claims
	// the numbers were computed with.
	cfg.Rates = config.RateBounds{Low: 0.02, Mid: 0.03, High: 0.05}

	path, err := Write(cfg, testResult())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(data)

	assert.Contains(t, html, "1.5%")
	assert.NotContains(t, html, "3.0%")
}

func TestWrite_NoLimitations(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Export.Dir = t.TempDir()

	result := testResult()
	result.Limitations = nil

	path, err := Write(cfg, result)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "No data limitations recorded")
}
