package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pjimarket/internal/analysis"
	"pjimarket/internal/export"
	"pjimarket/internal/report"
)

var runExtractDir string

// runCmd executes the whole pipeline in one sequential pass.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest, analyze, export, and report in one pass",
	Long: `Runs the complete pipeline sequentially: ingest the extract directory
(skipped when --dir is empty or missing), run the analysis, persist the
run, write the CSV tables and workbook, and render the HTML report.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVarP(&runExtractDir, "dir", "d", "", "Extract directory to ingest before analyzing (optional)")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if runExtractDir != "" {
		if _, err := os.Stat(runExtractDir); err != nil {
			return fmt.Errorf("extract directory %s not usable: %w", runExtractDir, err)
		}
		stats, err := s.Ingest(ctx, runExtractDir, []rune(cfg.Export.Delimiter)[0])
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
		logger.Info("Ingest complete",
			zap.Int("rows", stats.Total()),
			zap.Int("skipped", stats.SkippedTotal()))
	}

	result, err := analysis.New(cfg, s).Run(ctx)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	if err := s.SaveRun(ctx, result); err != nil {
		return fmt.Errorf("failed to persist run: %w", err)
	}

	csvPaths, err := export.WriteCSV(cfg, result)
	if err != nil {
		return fmt.Errorf("csv export failed: %w", err)
	}
	workbook, err := export.WriteXLSX(cfg, result)
	if err != nil {
		return fmt.Errorf("xlsx export failed: %w", err)
	}
	reportPath, err := report.Write(cfg, result)
	if err != nil {
		return fmt.Errorf("report rendering failed: %w", err)
	}

	logger.Info("Pipeline complete",
		zap.String("run_id", result.RunID),
		zap.Int("csv_files", len(csvPaths)),
		zap.String("workbook", workbook),
		zap.String("report", reportPath))

	fmt.Println(renderSummary(cfg, result))
	fmt.Printf("Workbook: %s\nReport:   %s\n", workbook, reportPath)
	return nil
}
