// pjimarket sizes the market for a prosthetic joint infection antibiotic
// from a hospital quality-report dataset: ingest the extracts, aggregate
// procedure and diagnosis counts, derive the expected infection range and
// opportunity scores, and export tables, a workbook, and an HTML report.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pjimarket/internal/config"
	"pjimarket/internal/store"
)

var (
	// Global flags
	cfgPath string
	verbose bool
	timeout time.Duration

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pjimarket",
	Short: "PJI antibiotic market sizing from hospital quality reports",
	Long: `pjimarket runs the market-sizing analysis for a prosthetic joint
infection (PJI) antibiotic over a SQL-backed hospital quality-report
dataset.

The pipeline aggregates OPS procedure and ICD-10 diagnosis counts by
year, hospital, and Bundesland, derives the expected infection range
from configurable rate bounds, scores each hospital with a weighted
composite, assigns priority tiers, and exports delimited tables, a
multi-sheet workbook, and an HTML report with charts.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger.Debug("Configuration loaded",
			zap.String("path", cfgPath),
			zap.String("driver", cfg.Database.Driver),
			zap.Int("year_from", cfg.Years.From),
			zap.Int("year_to", cfg.Years.To))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// openStore opens the configured analysis database.
func openStore() (*store.Store, error) {
	s, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Debug("Database opened",
		zap.String("driver", cfg.Database.Driver),
		zap.String("dsn", cfg.Database.DSN))
	return s, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "pjimarket.yaml", "Path to the YAML configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Timeout for database operations")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
