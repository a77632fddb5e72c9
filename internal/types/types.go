// Package types defines the domain model shared by the store, analysis,
// and export layers: raw quality-report rows, derived metric rows, and the
// decoding rules for German institution identifiers (IK).
package types

import (
	"fmt"
	"strings"
	"time"

	"pjimarket/internal/config"
)

// HospitalType classifies a hospital for scoring purposes.
type HospitalType string

const (
	TypeUniversity HospitalType = "university"
	TypeSpecialist HospitalType = "specialist"
	TypeGeneral    HospitalType = "general"
)

// Tier buckets a hospital by commercial priority.
type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
)

// Hospital is one row of the hospitals table. State and Type are derived
// at ingest time from the IK and the reported name.
type Hospital struct {
	IK    string
	Name  string
	Beds  int
	State string
	Type  HospitalType
}

// Department is one reported specialist department (Fachabteilung).
type Department struct {
	IK   string
	Code string
	Name string
}

// ProcedureCount is one OPS code count from a yearly quality report.
type ProcedureCount struct {
	IK    string
	Year  int
	Code  string
	Count int
}

// DiagnosisCount is one ICD-10 code count from a yearly quality report.
type DiagnosisCount struct {
	IK    string
	Year  int
	Code  string
	Count int
}

// TextSignal is a free-text field from a quality report, used as input to
// the antibiotic adequacy scoring.
type TextSignal struct {
	IK      string
	Year    int
	Field   string
	Content string
}

// Metric is a ratio or score that may be not computable, typically because
// the denominator group was empty or a source field was absent. Consumers
// must check Valid before reading Value.
type Metric struct {
	Value float64
	Valid bool
}

// SomeMetric returns a computable metric.
func SomeMetric(v float64) Metric { return Metric{Value: v, Valid: true} }

// NoMetric returns a not-computable placeholder.
func NoMetric() Metric { return Metric{} }

// String renders the metric for tables and reports.
func (m Metric) String() string {
	if !m.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", m.Value)
}

// YearSpan is the inclusive analysis period.
type YearSpan struct {
	From int
	To   int
}

// Years expands the span into the individual years.
func (ys YearSpan) Years() []int {
	if ys.From > ys.To {
		return nil
	}
	out := make([]int, 0, ys.To-ys.From+1)
	for y := ys.From; y <= ys.To; y++ {
		out = append(out, y)
	}
	return out
}

// YearTotal is the per-year aggregation over the configured OPS prefix
// groups, net of exclusions. Groups maps prefix group name to its summed
// count; Total is the net sum across groups.
type YearTotal struct {
	Year     int
	Groups   map[string]int
	Excluded int
	Total    int
}

// EIIRange is the expected infection count at the configured low, mid, and
// high rate bounds.
type EIIRange struct {
	Low  float64
	Mid  float64
	High float64
}

// HospitalVolume is the summed primary procedure volume for one hospital
// over the analysis year range, plus the flags the scoring layer needs.
type HospitalVolume struct {
	IK       string
	Name     string
	State    string
	Type     HospitalType
	Volume   int
	PerYear  map[int]int
	DeptHit  bool
	TextSeen bool
}

// HospitalMetrics carries everything the scoring layer derives for one
// hospital.
type HospitalMetrics struct {
	IK        string
	Name      string
	State     string
	Type      HospitalType
	Volume    int
	DeptMatch bool

	EII EIIRange
	AAI Metric

	VolumeScore Metric
	TypeScore   float64
	DeptScore   float64
	GapScore    Metric

	Score Metric
	Tier  Tier
}

// RegionRollup aggregates volumes and hospital counts per Bundesland.
type RegionRollup struct {
	State     string
	Hospitals int
	Volume    int
	Share     Metric
}

// MarketEstimate is the TAM at one infection-rate bound.
type MarketEstimate struct {
	Bound      string
	Rate       float64
	Infections float64
	Courses    float64
	ValueEUR   float64
}

// Result is one complete analysis run. Params pins the configuration the
// run was computed with; exports and reports read rate bounds, weights,
// and thresholds from it, never from the live config, so a run keeps its
// basis even after the config file changes.
type Result struct {
	RunID       string
	GeneratedAt time.Time
	Params      config.Config
	Years       []int
	YearTotals  []YearTotal
	Observed    map[int]int
	Hospitals   []HospitalMetrics
	Regions     []RegionRollup
	Market      []MarketEstimate
	Limitations []string
}

// ikStates maps the Bundesland digits of an IK (positions 3-4) to the
// state name, following the Länder key order.
var ikStates = map[string]string{
	"01": "Schleswig-Holstein",
	"02": "Hamburg",
	"03": "Niedersachsen",
	"04": "Bremen",
	"05": "Nordrhein-Westfalen",
	"06": "Hessen",
	"07": "Rheinland-Pfalz",
	"08": "Baden-Württemberg",
	"09": "Bayern",
	"10": "Saarland",
	"11": "Berlin",
	"12": "Brandenburg",
	"13": "Mecklenburg-Vorpommern",
	"14": "Sachsen",
	"15": "Sachsen-Anhalt",
	"16": "Thüringen",
}

// StateFromIK decodes the Bundesland from a nine-digit IK. Returns an
// error for malformed identifiers or unknown region digits.
func StateFromIK(ik string) (string, error) {
	if len(ik) != 9 {
		return "", fmt.Errorf("malformed IK %q: want 9 digits, got %d", ik, len(ik))
	}
	for _, r := range ik {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("malformed IK %q: non-digit character", ik)
		}
	}
	state, ok := ikStates[ik[2:4]]
	if !ok {
		return "", fmt.Errorf("IK %q: unknown region code %q", ik, ik[2:4])
	}
	return state, nil
}

// InferHospitalType guesses the hospital class from its reported name.
// University hospitals and specialist orthopaedic clinics are recognized by
// name keywords; everything else is treated as a general hospital.
func InferHospitalType(name string) HospitalType {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "universitätsklinikum"),
		strings.Contains(n, "universitätsmedizin"),
		strings.Contains(n, "uniklinik"):
		return TypeUniversity
	case strings.Contains(n, "fachklinik"),
		strings.Contains(n, "orthopädische klinik"),
		strings.Contains(n, "berufsgenossenschaftliche"),
		strings.HasPrefix(n, "bg "):
		return TypeSpecialist
	default:
		return TypeGeneral
	}
}
