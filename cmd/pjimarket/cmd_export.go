package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pjimarket/internal/export"
	"pjimarket/internal/report"
)

// exportCmd writes the CSV tables and the XLSX workbook.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write CSV tables and the XLSX workbook for the latest run",
	RunE:  runExport,
}

// reportCmd renders the HTML report.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the HTML report for the latest run",
	RunE:  runReport,
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := s.LatestRun(ctx)
	if err != nil {
		return fmt.Errorf("failed to load latest run: %w", err)
	}
	if result == nil {
		return fmt.Errorf("no analysis run found; run `pjimarket analyze` first")
	}

	paths, err := export.WriteCSV(cfg, result)
	if err != nil {
		return fmt.Errorf("csv export failed: %w", err)
	}
	workbook, err := export.WriteXLSX(cfg, result)
	if err != nil {
		return fmt.Errorf("xlsx export failed: %w", err)
	}

	logger.Info("Export complete",
		zap.String("run_id", result.RunID),
		zap.Int("csv_files", len(paths)),
		zap.String("workbook", workbook))

	for _, p := range paths {
		fmt.Println(p)
	}
	fmt.Println(workbook)
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := s.LatestRun(ctx)
	if err != nil {
		return fmt.Errorf("failed to load latest run: %w", err)
	}
	if result == nil {
		return fmt.Errorf("no analysis run found; run `pjimarket analyze` first")
	}

	path, err := report.Write(cfg, result)
	if err != nil {
		return fmt.Errorf("report rendering failed: %w", err)
	}

	logger.Info("Report written",
		zap.String("run_id", result.RunID),
		zap.String("path", path))
	fmt.Println(path)
	return nil
}
