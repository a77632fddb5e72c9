package types

import "testing"

func TestStateFromIK(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ik    string
		state string
		ok    bool
	}{
		{"260510123", "Nordrhein-Westfalen", true},
		{"260910456", "Bayern", true},
		{"261110789", "Berlin", true},
		{"260110001", "Schleswig-Holstein", true},
		{"261610002", "Thüringen", true},
		{"12345", "", false},         // too short
		{"26x510123", "", false},     // non-digit
		{"269910123", "", false},     // unknown region code
		{"", "", false},              // empty
		{"2605101234", "", false},    // too long
	}

	for _, tt := range tests {
		state, err := StateFromIK(tt.ik)
		if tt.ok {
			if err != nil {
				t.Errorf("StateFromIK(%q) error: %v", tt.ik, err)
				continue
			}
			if state != tt.state {
				t.Errorf("StateFromIK(%q) = %q, want %q", tt.ik, state, tt.state)
			}
		} else if err == nil {
			t.Errorf("StateFromIK(%q) expected error, got %q", tt.ik, state)
		}
	}
}

func TestInferHospitalType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want HospitalType
	}{
		{"Universitätsklinikum Heidelberg", TypeUniversity},
		{"Universitätsmedizin Mainz", TypeUniversity},
		{"Uniklinik Köln", TypeUniversity},
		{"Orthopädische Klinik Markgröningen", TypeSpecialist},
		{"Fachklinik für Endoprothetik", TypeSpecialist},
		{"BG Klinikum Hamburg", TypeSpecialist},
		{"Berufsgenossenschaftliche Unfallklinik Tübingen", TypeSpecialist},
		{"St. Elisabeth Krankenhaus", TypeGeneral},
		{"Klinikum Dortmund", TypeGeneral},
		{"", TypeGeneral},
	}

	for _, tt := range tests {
		if got := InferHospitalType(tt.name); got != tt.want {
			t.Errorf("InferHospitalType(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestMetricString(t *testing.T) {
	t.Parallel()

	if s := NoMetric().String(); s != "n/a" {
		t.Errorf("NoMetric().String() = %q, want n/a", s)
	}
	if s := SomeMetric(42.26).String(); s != "42.3" {
		t.Errorf("SomeMetric(42.26).String() = %q, want 42.3", s)
	}
}
