package store

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"pjimarket/internal/types"
)

// IngestStats reports what a bulk load did. Malformed rows are skipped and
// counted, never fatal; the report's limitations section surfaces them.
type IngestStats struct {
	Hospitals   int
	Departments int
	Procedures  int
	Diagnoses   int
	Texts       int
	Skipped     map[string]int
}

// Total returns the number of rows loaded across all tables.
func (st IngestStats) Total() int {
	return st.Hospitals + st.Departments + st.Procedures + st.Diagnoses + st.Texts
}

// SkippedTotal returns the number of malformed rows across all files.
func (st IngestStats) SkippedTotal() int {
	n := 0
	for _, v := range st.Skipped {
		n += v
	}
	return n
}

// ingestFiles lists the expected extract files in load order.
var ingestFiles = []string{
	"hospitals.csv",
	"departments.csv",
	"procedures.csv",
	"diagnoses.csv",
	"texts.csv",
}

// Ingest bulk-loads delimited quality-report extracts from dir inside one
// transaction. Expected files: hospitals.csv (ik;name;beds),
// departments.csv (ik;code;name), procedures.csv (ik;year;code;count),
// diagnoses.csv (ik;year;code;count), texts.csv (ik;year;field;content).
// Missing files are skipped; a directory with none of them is an error.
func (s *Store) Ingest(ctx context.Context, dir string, delimiter rune) (IngestStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := IngestStats{Skipped: make(map[string]int)}

	found := 0
	for _, name := range ingestFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			found++
		}
	}
	if found == 0 {
		return stats, fmt.Errorf("no extract files found in %s", dir)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("failed to begin ingest transaction: %w", err)
	}
	defer tx.Rollback()

	for _, name := range ingestFiles {
		path := filepath.Join(dir, name)
		rows, err := readDelimited(path, delimiter)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return stats, fmt.Errorf("failed to read %s: %w", name, err)
		}
		switch name {
		case "hospitals.csv":
			err = s.loadHospitals(ctx, tx, rows, &stats)
		case "departments.csv":
			err = s.loadDepartments(ctx, tx, rows, &stats)
		case "procedures.csv":
			err = s.loadCounts(ctx, tx, "procedures", name, rows, &stats.Procedures, stats.Skipped)
		case "diagnoses.csv":
			err = s.loadCounts(ctx, tx, "diagnoses", name, rows, &stats.Diagnoses, stats.Skipped)
		case "texts.csv":
			err = s.loadTexts(ctx, tx, rows, &stats)
		}
		if err != nil {
			return stats, fmt.Errorf("failed to load %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("failed to commit ingest: %w", err)
	}
	return stats, nil
}

// readDelimited reads a whole delimited file. A leading header line
// starting with "ik" is dropped; everything else is left to the loaders.
func readDelimited(path string, delimiter rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv parse error: %w", err)
		}
		if len(rows) == 0 && len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "ik") {
			continue // header
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func (s *Store) loadHospitals(ctx context.Context, tx *sql.Tx, rows [][]string, stats *IngestStats) error {
	for _, rec := range rows {
		if len(rec) < 2 {
			stats.Skipped["hospitals.csv"]++
			continue
		}
		ik := strings.TrimSpace(rec[0])
		name := strings.TrimSpace(rec[1])
		beds := 0
		if len(rec) > 2 && strings.TrimSpace(rec[2]) != "" {
			b, err := strconv.Atoi(strings.TrimSpace(rec[2]))
			if err != nil || b < 0 {
				stats.Skipped["hospitals.csv"]++
				continue
			}
			beds = b
		}
		state, err := types.StateFromIK(ik)
		if err != nil || name == "" {
			stats.Skipped["hospitals.csv"]++
			continue
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO hospitals (ik, name, beds, state, hospital_type) VALUES ($1, $2, $3, $4, $5)`,
			ik, name, beds, state, string(types.InferHospitalType(name)))
		if err != nil {
			return fmt.Errorf("insert hospital %s: %w", ik, err)
		}
		stats.Hospitals++
	}
	return nil
}

func (s *Store) loadDepartments(ctx context.Context, tx *sql.Tx, rows [][]string, stats *IngestStats) error {
	for _, rec := range rows {
		if len(rec) < 2 || strings.TrimSpace(rec[0]) == "" || strings.TrimSpace(rec[1]) == "" {
			stats.Skipped["departments.csv"]++
			continue
		}
		name := ""
		if len(rec) > 2 {
			name = strings.TrimSpace(rec[2])
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO departments (ik, code, name) VALUES ($1, $2, $3)`,
			strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1]), name)
		if err != nil {
			return fmt.Errorf("insert department: %w", err)
		}
		stats.Departments++
	}
	return nil
}

func (s *Store) loadCounts(ctx context.Context, tx *sql.Tx, table, file string, rows [][]string, loaded *int, skipped map[string]int) error {
	for _, rec := range rows {
		if len(rec) < 4 {
			skipped[file]++
			continue
		}
		ik := strings.TrimSpace(rec[0])
		year, errY := strconv.Atoi(strings.TrimSpace(rec[1]))
		code := strings.TrimSpace(rec[2])
		count, errC := strconv.Atoi(strings.TrimSpace(rec[3]))
		if ik == "" || code == "" || errY != nil || errC != nil || count < 0 || year < 2000 || year > 2100 {
			skipped[file]++
			continue
		}
		// Table name is one of the two fixed aggregate tables.
		_, err := tx.ExecContext(ctx,
			`INSERT INTO `+table+` (ik, year, code, cnt) VALUES ($1, $2, $3, $4)`,
			ik, year, code, count)
		if err != nil {
			return fmt.Errorf("insert %s row: %w", table, err)
		}
		*loaded++
	}
	return nil
}

func (s *Store) loadTexts(ctx context.Context, tx *sql.Tx, rows [][]string, stats *IngestStats) error {
	for _, rec := range rows {
		if len(rec) < 4 {
			stats.Skipped["texts.csv"]++
			continue
		}
		ik := strings.TrimSpace(rec[0])
		year, errY := strconv.Atoi(strings.TrimSpace(rec[1]))
		field := strings.TrimSpace(rec[2])
		content := rec[3]
		if ik == "" || field == "" || errY != nil {
			stats.Skipped["texts.csv"]++
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO text_signals (ik, year, field, content) VALUES ($1, $2, $3, $4)`,
			ik, year, field, content)
		if err != nil {
			return fmt.Errorf("insert text signal: %w", err)
		}
		stats.Texts++
	}
	return nil
}
