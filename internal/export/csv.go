package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"pjimarket/internal/config"
	"pjimarket/internal/types"
)

// runStem builds the file stem carrying the run ID, so a deck can cite the
// exact export it was built from.
func runStem(result *types.Result) string {
	id := result.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	if id == "" {
		id = "unversioned"
	}
	return "pjimarket_" + id
}

// WriteCSV writes one delimited file per exported table into the output
// directory and returns the paths written.
func WriteCSV(cfg *config.Config, result *types.Result) ([]string, error) {
	if err := os.MkdirAll(cfg.Export.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	stem := runStem(result)
	var paths []string
	for _, t := range tables(result) {
		path := filepath.Join(cfg.Export.Dir, fmt.Sprintf("%s_%s.csv", stem, t.Name))
		if err := writeCSVTable(path, []rune(cfg.Export.Delimiter)[0], t); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", t.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeCSVTable(path string, delimiter rune, t table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = delimiter

	if err := w.Write(t.Headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(v)
		}
		if err := w.Write(cells); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return f.Close()
}
