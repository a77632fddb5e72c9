package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// statusCmd shows database row counts and the latest run.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database row counts and the latest analysis run",
	RunE:  showStatus,
}

func showStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	counts, err := s.TableCounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to read table counts: %w", err)
	}

	fmt.Printf("Database: %s (%s)\n", s.Path(), cfg.Database.Driver)
	for _, table := range []string{"hospitals", "departments", "procedures", "diagnoses", "text_signals", "runs"} {
		fmt.Printf("  %-13s %d\n", table, counts[table])
	}

	runID, created, err := s.LastRunInfo(ctx)
	if err != nil {
		return fmt.Errorf("failed to read run info: %w", err)
	}
	if runID == "" {
		fmt.Println("No analysis runs yet.")
		return nil
	}
	fmt.Printf("Latest run: %s at %s\n", runID, created.Format("2006-01-02 15:04:05 UTC"))
	return nil
}
