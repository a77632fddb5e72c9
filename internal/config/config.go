// Package config holds all pjimarket configuration: data source, code
// groups, rate bounds, scoring weights, tier thresholds, and export
// settings. Configuration is loaded from a YAML file with environment
// overrides; unset fields fall back to the documented defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Config holds all pjimarket configuration.
type Config struct {
	// Database configures the relational source.
	Database DatabaseConfig `yaml:"database"`

	// Codes configures the OPS/ICD code groups.
	Codes CodesConfig `yaml:"codes"`

	// Years bounds the analysis period (inclusive).
	Years YearRange `yaml:"years"`

	// Rates are the infection-rate bounds applied to procedure volume.
	Rates RateBounds `yaml:"rates"`

	// Market configures the TAM arithmetic.
	Market MarketConfig `yaml:"market"`

	// Scoring configures the composite opportunity score.
	Scoring ScoringConfig `yaml:"scoring"`

	// Tiers configures tier assignment thresholds.
	Tiers TierConfig `yaml:"tiers"`

	// Adequacy configures the AAI text-signal scoring.
	Adequacy AdequacyConfig `yaml:"adequacy"`

	// Export configures output files and report branding.
	Export ExportConfig `yaml:"export"`
}

// DatabaseConfig selects the SQL driver and target.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, postgres
	DSN    string `yaml:"dsn"`    // file path for sqlite, conninfo for postgres
}

// CodesConfig names the OPS prefix groups, the exclusion prefixes, and the
// ICD prefixes counted as observed prosthetic joint infections.
type CodesConfig struct {
	// Groups maps a segment name to the OPS prefixes counted for it.
	Groups map[string][]string `yaml:"groups"`

	// Exclusions are OPS prefixes subtracted from the totals (revisions
	// and replacements are not primary implantations).
	Exclusions []string `yaml:"exclusions"`

	// InfectionICD are the ICD-10 prefixes counted as observed PJI load.
	InfectionICD []string `yaml:"infection_icd"`

	// OrthoDepartments are the Fachabteilung codes counted as a
	// department match.
	OrthoDepartments []string `yaml:"ortho_departments"`
}

// YearRange bounds the analysis period.
type YearRange struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

// RateBounds are the post-operative infection rates applied to volume.
// Values are fractions, not percentages.
type RateBounds struct {
	Low  float64 `yaml:"low"`
	Mid  float64 `yaml:"mid"`
	High float64 `yaml:"high"`
}

// MarketConfig holds the TAM economics.
type MarketConfig struct {
	CoursesPerInfection float64 `yaml:"courses_per_infection"`
	PricePerCourseEUR   float64 `yaml:"price_per_course_eur"`
}

// ScoringConfig holds the composite score weights. Weights are integer
// percentages and must sum to exactly 100.
type ScoringConfig struct {
	VolumeWeight int `yaml:"volume_weight"`
	TypeWeight   int `yaml:"type_weight"`
	DeptWeight   int `yaml:"dept_weight"`
	GapWeight    int `yaml:"gap_weight"`
}

// TierConfig holds the thresholds tier assignment tests against.
type TierConfig struct {
	// MinVolumeA is the minimum period volume for Tier A.
	MinVolumeA int `yaml:"min_volume_a"`
	// MinVolumeB is the minimum period volume for Tier B.
	MinVolumeB int `yaml:"min_volume_b"`
	// AAICutoff admits general hospitals to Tier A when their adequacy
	// score is at or below it.
	AAICutoff float64 `yaml:"aai_cutoff"`
}

// AdequacyConfig holds the keyword signals scored into the AAI.
type AdequacyConfig struct {
	// Signals maps a lowercase keyword to the points it contributes.
	// The total is capped at 100.
	Signals map[string]int `yaml:"signals"`
}

// ExportConfig configures output files and report branding.
type ExportConfig struct {
	Dir        string `yaml:"dir"`
	Delimiter  string `yaml:"delimiter"`
	TopN       int    `yaml:"top_n"`
	Title      string `yaml:"title"`
	Footer     string `yaml:"footer"`
	AccentHex  string `yaml:"accent_hex"`
	TextHex    string `yaml:"text_hex"`
}

// DefaultConfig returns the default configuration: hip and knee primary
// endoprosthetics, revision exclusions, T84.5 infections, 1/1.5/2 percent
// rate bounds.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "data/pjimarket.db",
		},
		Codes: CodesConfig{
			Groups: map[string][]string{
				"hip":  {"5-820"},
				"knee": {"5-822"},
			},
			Exclusions:   []string{"5-821", "5-823"},
			InfectionICD: []string{"T84.5"},
			OrthoDepartments: []string{
				"1600", // Unfallchirurgie
				"2300", // Orthopädie
				"2315", // Orthopädie und Unfallchirurgie
				"2316", // Orthopädie/Schwerpunkt Rheumatologie
			},
		},
		Years: YearRange{From: 2019, To: 2023},
		Rates: RateBounds{Low: 0.010, Mid: 0.015, High: 0.020},
		Market: MarketConfig{
			CoursesPerInfection: 1.0,
			PricePerCourseEUR:   12500,
		},
		Scoring: ScoringConfig{
			VolumeWeight: 40,
			TypeWeight:   20,
			DeptWeight:   20,
			GapWeight:    20,
		},
		Tiers: TierConfig{
			MinVolumeA: 500,
			MinVolumeB: 150,
			AAICutoff:  40,
		},
		Adequacy: AdequacyConfig{
			Signals: map[string]int{
				"antibiotic stewardship": 30,
				"antibiotika-stewardship": 30,
				"abs-team":               20,
				"infektiologie":          20,
				"mikrobiologie":          15,
				"krankenhaushygiene":     15,
			},
		},
		Export: ExportConfig{
			Dir:       "out",
			Delimiter: ";",
			TopN:      25,
			Title:     "PJI Antibiotic Market Sizing",
			Footer:    "Confidential",
			AccentHex: "#FF325D",
			TextHex:   "#2D185C",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied after parsing, and the
// result is validated.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides lets deployment environments redirect the data source
// and output directory without editing the config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PJIMARKET_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("PJIMARKET_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("PJIMARKET_OUT_DIR"); v != "" {
		c.Export.Dir = v
	}
}

// Validate rejects configurations the analysis cannot run on.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if len(c.Codes.Groups) == 0 {
		return fmt.Errorf("config: at least one OPS code group required")
	}
	if c.Years.From > c.Years.To {
		return fmt.Errorf("config: year range %d-%d is inverted", c.Years.From, c.Years.To)
	}
	if !(c.Rates.Low > 0 && c.Rates.Low < c.Rates.Mid && c.Rates.Mid < c.Rates.High && c.Rates.High < 1) {
		return fmt.Errorf("config: rate bounds must be ascending fractions in (0,1), got %v/%v/%v",
			c.Rates.Low, c.Rates.Mid, c.Rates.High)
	}
	sum := c.Scoring.VolumeWeight + c.Scoring.TypeWeight + c.Scoring.DeptWeight + c.Scoring.GapWeight
	if sum != 100 {
		return fmt.Errorf("config: scoring weights must sum to 100, got %d", sum)
	}
	if c.Tiers.MinVolumeB > c.Tiers.MinVolumeA {
		return fmt.Errorf("config: tier B volume threshold exceeds tier A (%d > %d)",
			c.Tiers.MinVolumeB, c.Tiers.MinVolumeA)
	}
	if c.Export.Delimiter == "" || len([]rune(c.Export.Delimiter)) != 1 {
		return fmt.Errorf("config: delimiter must be a single character, got %q", c.Export.Delimiter)
	}
	if c.Export.TopN <= 0 {
		return fmt.Errorf("config: export top_n must be positive, got %d", c.Export.TopN)
	}
	return nil
}

// GroupNames returns the code group names in stable order.
func (c *Config) GroupNames() []string {
	names := make([]string, 0, len(c.Codes.Groups))
	for name := range c.Codes.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParamRows renders the effective parameters as label/value pairs for the
// XLSX parameters sheet and the report appendix.
func (c *Config) ParamRows() [][2]string {
	rows := [][2]string{
		{"database.driver", c.Database.Driver},
		{"years", fmt.Sprintf("%d-%d", c.Years.From, c.Years.To)},
		{"rates.low", fmt.Sprintf("%.3f", c.Rates.Low)},
		{"rates.mid", fmt.Sprintf("%.3f", c.Rates.Mid)},
		{"rates.high", fmt.Sprintf("%.3f", c.Rates.High)},
		{"market.courses_per_infection", fmt.Sprintf("%.2f", c.Market.CoursesPerInfection)},
		{"market.price_per_course_eur", fmt.Sprintf("%.2f", c.Market.PricePerCourseEUR)},
		{"scoring.weights", fmt.Sprintf("volume=%d type=%d dept=%d gap=%d",
			c.Scoring.VolumeWeight, c.Scoring.TypeWeight, c.Scoring.DeptWeight, c.Scoring.GapWeight)},
		{"tiers.min_volume_a", fmt.Sprintf("%d", c.Tiers.MinVolumeA)},
		{"tiers.min_volume_b", fmt.Sprintf("%d", c.Tiers.MinVolumeB)},
		{"tiers.aai_cutoff", fmt.Sprintf("%.1f", c.Tiers.AAICutoff)},
	}
	for _, name := range c.GroupNames() {
		rows = append(rows, [2]string{
			"codes.groups." + name,
			fmt.Sprintf("%v", c.Codes.Groups[name]),
		})
	}
	rows = append(rows, [2]string{"codes.exclusions", fmt.Sprintf("%v", c.Codes.Exclusions)})
	rows = append(rows, [2]string{"codes.infection_icd", fmt.Sprintf("%v", c.Codes.InfectionICD)})
	return rows
}
