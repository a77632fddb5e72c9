package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// writeExtract writes one delimited extract file into dir.
func writeExtract(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestIngest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	writeExtract(t, dir, "hospitals.csv",
		"ik;name;beds\n"+
			"260510001;Klinikum Dortmund;1200\n"+
			"260910002;Universitätsklinikum München;2000\n"+
			"badik;Kaputt;100\n") // malformed IK, skipped
	writeExtract(t, dir, "departments.csv",
		"260510001;2300;Orthopädie\n"+
			"260510001;1600;Unfallchirurgie\n")
	writeExtract(t, dir, "procedures.csv",
		"260510001;2021;5-820.00;200\n"+
			"260510001;2021;5-821.00;40\n"+
			"260910002;2021;5-822.10;abc\n") // bad count, skipped
	writeExtract(t, dir, "diagnoses.csv",
		"260510001;2021;T84.5;12\n")
	writeExtract(t, dir, "texts.csv",
		"260510001;2021;hygiene;ABS-Team etabliert\n")

	stats, err := s.Ingest(ctx, dir, ';')
	if err != nil {
		t.Fatalf("Ingest error: %v", err)
	}

	if stats.Hospitals != 2 {
		t.Errorf("Hospitals = %d, want 2", stats.Hospitals)
	}
	if stats.Departments != 2 {
		t.Errorf("Departments = %d, want 2", stats.Departments)
	}
	if stats.Procedures != 2 {
		t.Errorf("Procedures = %d, want 2", stats.Procedures)
	}
	if stats.Diagnoses != 1 {
		t.Errorf("Diagnoses = %d, want 1", stats.Diagnoses)
	}
	if stats.Texts != 1 {
		t.Errorf("Texts = %d, want 1", stats.Texts)
	}
	if stats.Skipped["hospitals.csv"] != 1 {
		t.Errorf("hospitals skipped = %d, want 1", stats.Skipped["hospitals.csv"])
	}
	if stats.Skipped["procedures.csv"] != 1 {
		t.Errorf("procedures skipped = %d, want 1", stats.Skipped["procedures.csv"])
	}
	if stats.SkippedTotal() != 2 {
		t.Errorf("SkippedTotal = %d, want 2", stats.SkippedTotal())
	}
	if stats.Total() != 8 {
		t.Errorf("Total = %d, want 8", stats.Total())
	}

	// Hospital enrichment: state and type derived at load time.
	var state, htype string
	row := s.db.QueryRow(`SELECT state, hospital_type FROM hospitals WHERE ik = '260910002'`)
	if err := row.Scan(&state, &htype); err != nil {
		t.Fatalf("scan hospital: %v", err)
	}
	if state != "Bayern" {
		t.Errorf("state = %s, want Bayern", state)
	}
	if htype != "university" {
		t.Errorf("hospital_type = %s, want university", htype)
	}
}

func TestIngest_EmptyDirFails(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Ingest(context.Background(), t.TempDir(), ';'); err == nil {
		t.Fatal("expected error for directory without extracts")
	}
}

func TestIngest_PartialFileSetIsAccepted(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	writeExtract(t, dir, "procedures.csv", "260510001;2021;5-820.00;200\n")

	stats, err := s.Ingest(context.Background(), dir, ';')
	if err != nil {
		t.Fatalf("Ingest error: %v", err)
	}
	if stats.Procedures != 1 || stats.Hospitals != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestIngest_SecondLoadOfSameRowsFails(t *testing.T) {
	// Extracts are loaded once; re-loading the same (ik, year, code) rows
	// violates the primary key and rolls the transaction back.
	s := newTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()
	writeExtract(t, dir, "procedures.csv", "260510001;2021;5-820.00;200\n")

	if _, err := s.Ingest(ctx, dir, ';'); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if _, err := s.Ingest(ctx, dir, ';'); err == nil {
		t.Fatal("expected duplicate ingest to fail")
	}

	counts, err := s.TableCounts(ctx)
	if err != nil {
		t.Fatalf("TableCounts: %v", err)
	}
	if counts["procedures"] != 1 {
		t.Errorf("procedures = %d after failed re-ingest, want 1", counts["procedures"])
	}
}
