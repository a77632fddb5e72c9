package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"pjimarket/internal/config"
	"pjimarket/internal/types"
)

// sheetNames maps table stems to workbook sheet names.
var sheetNames = map[string]string{
	"year_totals":     "Year Totals",
	"hospital_scores": "Hospital Scores",
	"regions":         "Regions",
	"market":          "Market",
	"limitations":     "Limitations",
}

// WriteXLSX writes the full result as one workbook: a sheet per table plus
// a Parameters sheet recording the exact configuration and run ID the
// numbers were produced with. Returns the workbook path.
func WriteXLSX(cfg *config.Config, result *types.Result) (string, error) {
	if err := os.MkdirAll(cfg.Export.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{accentFill(cfg)}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create header style: %w", err)
	}

	first := true
	for _, t := range tables(result) {
		sheet := sheetNames[t.Name]
		if sheet == "" {
			sheet = t.Name
		}
		if first {
			// Rename the default sheet instead of leaving an empty one.
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return "", fmt.Errorf("failed to rename first sheet: %w", err)
			}
			first = false
		} else if _, err := f.NewSheet(sheet); err != nil {
			return "", fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}
		if err := writeSheet(f, sheet, headerStyle, t); err != nil {
			return "", fmt.Errorf("failed to fill sheet %s: %w", sheet, err)
		}
	}

	if err := writeParamsSheet(f, result, headerStyle); err != nil {
		return "", err
	}

	path := filepath.Join(cfg.Export.Dir, runStem(result)+".xlsx")
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}
	return path, nil
}

// accentFill strips the leading # excelize does not want.
func accentFill(cfg *config.Config) string {
	hex := cfg.Export.AccentHex
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if hex == "" {
		hex = "FF325D"
	}
	return hex
}

func writeSheet(f *excelize.File, sheet string, headerStyle int, t table) error {
	for col, h := range t.Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, err := excelize.CoordinatesToCellName(len(t.Headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for r, row := range t.Rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeParamsSheet records the run's own parameters, not the live config:
// the sheet documents what the numbers were computed with.
func writeParamsSheet(f *excelize.File, result *types.Result, headerStyle int) error {
	const sheet = "Parameters"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create parameters sheet: %w", err)
	}

	rows := [][2]string{
		{"run_id", result.RunID},
		{"generated_at", result.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
	}
	rows = append(rows, result.Params.ParamRows()...)

	if err := f.SetCellValue(sheet, "A1", "parameter"); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, "B1", "value"); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "B1", headerStyle); err != nil {
		return err
	}
	for i, kv := range rows {
		if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", i+2), kv[0]); err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, fmt.Sprintf("B%d", i+2), kv[1]); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheet, "A", "A", 32); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "B", "B", 60)
}
