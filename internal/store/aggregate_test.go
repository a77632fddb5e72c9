package store

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pjimarket/internal/types"
)

var testGroups = map[string][]string{
	"hip":  {"5-820"},
	"knee": {"5-822"},
}

var testExclusions = []string{"5-821", "5-823"}

// seedFixture loads a small two-hospital dataset covering both code groups,
// an exclusion code, and an out-of-range year.
func seedFixture(t *testing.T, s *Store) {
	t.Helper()
	seedHospital(t, s, "260510001", "Klinikum Dortmund", "Nordrhein-Westfalen", types.TypeGeneral)
	seedHospital(t, s, "260910002", "Universitätsklinikum München", "Bayern", types.TypeUniversity)

	seedProcedure(t, s, "260510001", 2021, "5-820.00", 200)
	seedProcedure(t, s, "260510001", 2021, "5-822.10", 100)
	seedProcedure(t, s, "260510001", 2021, "5-821.00", 40) // revision, excluded
	seedProcedure(t, s, "260510001", 2022, "5-820.01", 220)
	seedProcedure(t, s, "260910002", 2021, "5-820.30", 300)
	seedProcedure(t, s, "260910002", 2022, "5-822.20", 150)
	seedProcedure(t, s, "260910002", 2019, "5-820.00", 999) // outside span
}

func TestTotalsByYear(t *testing.T) {
	s := newTestStore(t)
	seedFixture(t, s)

	got, err := s.TotalsByYear(context.Background(),
		types.YearSpan{From: 2021, To: 2022}, testGroups, testExclusions)
	if err != nil {
		t.Fatalf("TotalsByYear error: %v", err)
	}

	want := []types.YearTotal{
		{Year: 2021, Groups: map[string]int{"hip": 500, "knee": 100}, Excluded: 40, Total: 600},
		{Year: 2022, Groups: map[string]int{"hip": 220, "knee": 150}, Excluded: 0, Total: 370},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TotalsByYear mismatch (-want +got):\n%s", diff)
	}
}

// Per-group sums must add up to the reported total for every year.
func TestTotalsByYear_GroupSumsEqualTotal(t *testing.T) {
	s := newTestStore(t)
	seedFixture(t, s)

	totals, err := s.TotalsByYear(context.Background(),
		types.YearSpan{From: 2019, To: 2022}, testGroups, testExclusions)
	if err != nil {
		t.Fatalf("TotalsByYear error: %v", err)
	}
	for _, yt := range totals {
		sum := 0
		for _, v := range yt.Groups {
			sum += v
		}
		if sum != yt.Total {
			t.Errorf("year %d: group sum %d != total %d", yt.Year, sum, yt.Total)
		}
	}
}

// Exclusion filtering is idempotent: removing the excluded rows from the
// source and re-running yields the same net totals.
func TestTotalsByYear_ExclusionIdempotent(t *testing.T) {
	s := newTestStore(t)
	seedFixture(t, s)
	span := types.YearSpan{From: 2021, To: 2022}

	first, err := s.TotalsByYear(context.Background(), span, testGroups, testExclusions)
	if err != nil {
		t.Fatalf("TotalsByYear error: %v", err)
	}

	// Physically delete everything the exclusion prefixes match, then
	// apply the same exclusion set again.
	if _, err := s.db.Exec(`DELETE FROM procedures WHERE code LIKE '5-821%' OR code LIKE '5-823%'`); err != nil {
		t.Fatalf("delete excluded rows: %v", err)
	}
	second, err := s.TotalsByYear(context.Background(), span, testGroups, testExclusions)
	if err != nil {
		t.Fatalf("TotalsByYear error: %v", err)
	}

	for i := range first {
		if first[i].Total != second[i].Total {
			t.Errorf("year %d: net total changed after second exclusion pass: %d != %d",
				first[i].Year, first[i].Total, second[i].Total)
		}
		if diff := cmp.Diff(first[i].Groups, second[i].Groups); diff != "" {
			t.Errorf("year %d: group sums changed (-first +second):\n%s", first[i].Year, diff)
		}
	}
}

func TestHospitalVolumes(t *testing.T) {
	s := newTestStore(t)
	seedFixture(t, s)
	ctx := context.Background()

	// Department and text rows for the first hospital only.
	if _, err := s.db.Exec(`INSERT INTO departments (ik, code, name) VALUES ('260510001', '2300', 'Orthopädie')`); err != nil {
		t.Fatalf("seed department: %v", err)
	}
	if _, err := s.db.Exec(`INSERT INTO text_signals (ik, year, field, content) VALUES ('260510001', 2021, 'hygiene', 'ABS-Team etabliert')`); err != nil {
		t.Fatalf("seed text: %v", err)
	}

	vols, err := s.HospitalVolumes(ctx, types.YearSpan{From: 2021, To: 2022},
		testGroups, testExclusions, []string{"2300", "2315"})
	if err != nil {
		t.Fatalf("HospitalVolumes error: %v", err)
	}
	if len(vols) != 2 {
		t.Fatalf("expected 2 hospitals, got %d", len(vols))
	}

	byIK := map[string]types.HospitalVolume{}
	for _, v := range vols {
		byIK[v.IK] = v
	}

	dortmund := byIK["260510001"]
	if dortmund.Volume != 520 { // 200+100+220, revision excluded
		t.Errorf("Dortmund volume = %d, want 520", dortmund.Volume)
	}
	if !dortmund.DeptHit {
		t.Error("Dortmund should have a department match")
	}
	if !dortmund.TextSeen {
		t.Error("Dortmund should have text signals")
	}
	if dortmund.PerYear[2021] != 300 || dortmund.PerYear[2022] != 220 {
		t.Errorf("Dortmund per-year = %v", dortmund.PerYear)
	}

	munich := byIK["260910002"]
	if munich.Volume != 450 {
		t.Errorf("München volume = %d, want 450", munich.Volume)
	}
	if munich.DeptHit || munich.TextSeen {
		t.Errorf("München should have no department match or text signals: %+v", munich)
	}
}

func TestDiagnosisTotals(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inserts := []struct {
		ik   string
		year int
		code string
		cnt  int
	}{
		{"260510001", 2021, "T84.5", 12},
		{"260510001", 2021, "T84.50", 5},
		{"260510001", 2021, "M16.1", 400}, // unrelated
		{"260910002", 2022, "T84.5", 9},
	}
	for _, in := range inserts {
		if _, err := s.db.Exec(`INSERT INTO diagnoses (ik, year, code, cnt) VALUES ($1, $2, $3, $4)`,
			in.ik, in.year, in.code, in.cnt); err != nil {
			t.Fatalf("seed diagnosis: %v", err)
		}
	}

	got, err := s.DiagnosisTotals(ctx, types.YearSpan{From: 2021, To: 2022}, []string{"T84.5"})
	if err != nil {
		t.Fatalf("DiagnosisTotals error: %v", err)
	}
	want := map[int]int{2021: 17, 2022: 9}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DiagnosisTotals mismatch (-want +got):\n%s", diff)
	}
}

func TestTextSignals_ConcatenatesPerHospital(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rows := []struct {
		ik, field, content string
		year               int
	}{
		{"260510001", "hygiene", "ABS-Team etabliert", 2021},
		{"260510001", "quality", "Mikrobiologie im Haus", 2022},
		{"260910002", "hygiene", "Stationsapotheker", 2021},
	}
	for _, r := range rows {
		if _, err := s.db.Exec(`INSERT INTO text_signals (ik, year, field, content) VALUES ($1, $2, $3, $4)`,
			r.ik, r.year, r.field, r.content); err != nil {
			t.Fatalf("seed text: %v", err)
		}
	}

	got, err := s.TextSignals(ctx, types.YearSpan{From: 2021, To: 2022})
	if err != nil {
		t.Fatalf("TextSignals error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 hospitals with text, got %d", len(got))
	}
	if got["260510001"] != "ABS-Team etabliert\nMikrobiologie im Haus" {
		t.Errorf("unexpected concatenation: %q", got["260510001"])
	}
}

func TestRegionVolumes(t *testing.T) {
	s := newTestStore(t)
	seedFixture(t, s)

	got, err := s.RegionVolumes(context.Background(),
		types.YearSpan{From: 2021, To: 2022}, testGroups, testExclusions)
	if err != nil {
		t.Fatalf("RegionVolumes error: %v", err)
	}

	want := []types.RegionRollup{
		{State: "Bayern", Hospitals: 1, Volume: 450},
		{State: "Nordrhein-Westfalen", Hospitals: 1, Volume: 520},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RegionVolumes mismatch (-want +got):\n%s", diff)
	}
}
