package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pjimarket/internal/analysis"
)

// analyzeCmd runs the aggregation and derived-metrics pass.
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the aggregation and scoring pass",
	Long: `Aggregates procedure and diagnosis counts over the configured year
range, derives the expected infection range, adequacy index, composite
opportunity scores, and tier assignments, and persists the result as a
new run. A summary table is printed to the terminal.`,
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	logger.Info("Running analysis",
		zap.Int("year_from", cfg.Years.From),
		zap.Int("year_to", cfg.Years.To))

	result, err := analysis.New(cfg, s).Run(ctx)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	if err := s.SaveRun(ctx, result); err != nil {
		return fmt.Errorf("failed to persist run: %w", err)
	}

	logger.Info("Analysis complete",
		zap.String("run_id", result.RunID),
		zap.Int("hospitals", len(result.Hospitals)),
		zap.Int("limitations", len(result.Limitations)))

	fmt.Println(renderSummary(cfg, result))
	return nil
}
