package normalize

import (
	"testing"

	"github.com/dshills/simcheck/internal/schema"
)

func raw(row int, kv ...any) schema.RawRecord {
	fields := make(map[string]schema.RawValue)
	for i := 0; i+1 < len(kv); i += 2 {
		key := kv[i].(string)
		switch v := kv[i+1].(type) {
		case string:
			if v == "" {
				fields[key] = schema.Empty()
			} else {
				fields[key] = schema.Text(v)
			}
		case float64:
			fields[key] = schema.Number(v)
		case int:
			fields[key] = schema.Number(float64(v))
		}
	}
	return schema.RawRecord{Row: row, Fields: fields}
}

func TestNormalize_CompleteRecord(t *testing.T) {
	rec, ok := Normalize(raw(1,
		"run_id", " R001 ",
		"max_stress_mpa", "120",
		"max_displacement_mm", "1.0",
		"iteration_count", "10",
		"solver_status_text", "  Converged  ",
		"solver_type", "ANSYS",
	))
	if !ok {
		t.Fatal("Normalize ok = false, want true")
	}
	if rec.RunID != "R001" {
		t.Errorf("RunID = %q, want R001", rec.RunID)
	}
	if rec.MaxStressMPa == nil || *rec.MaxStressMPa != 120 {
		t.Errorf("MaxStressMPa = %v, want 120", rec.MaxStressMPa)
	}
	if rec.MaxDisplacementMM == nil || *rec.MaxDisplacementMM != 1.0 {
		t.Errorf("MaxDisplacementMM = %v, want 1.0", rec.MaxDisplacementMM)
	}
	if rec.IterationCount == nil || *rec.IterationCount != 10 {
		t.Errorf("IterationCount = %v, want 10", rec.IterationCount)
	}
	if rec.SolverStatusText != "Converged" {
		t.Errorf("SolverStatusText = %q, want trimmed %q", rec.SolverStatusText, "Converged")
	}
	if rec.HasMissingData {
		t.Error("HasMissingData = true, want false")
	}
	if rec.Attributes["solver_type"] != "ANSYS" {
		t.Errorf("Attributes[solver_type] = %q, want ANSYS", rec.Attributes["solver_type"])
	}
}

func TestNormalize_UnparseableBecomesUndefined(t *testing.T) {
	cases := []struct {
		name  string
		value string
	}{
		{"not available", "N/A"},
		{"empty", ""},
		{"trailing garbage", "12abc"},
		{"word", "high"},
		{"nan", "NaN"},
		{"infinity", "Inf"},
		{"hex float", "0x1p4"},
		{"signed hex", "-0X10"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec, ok := Normalize(raw(1,
				"run_id", "R003",
				"max_stress_mpa", c.value,
				"max_displacement_mm", "1.2",
				"iteration_count", "12",
			))
			if !ok {
				t.Fatal("Normalize ok = false, want true")
			}
			if rec.MaxStressMPa != nil {
				t.Errorf("MaxStressMPa = %v, want undefined", *rec.MaxStressMPa)
			}
			if !rec.HasMissingData {
				t.Error("HasMissingData = false, want true")
			}
		})
	}
}

func TestNormalize_IterationCount(t *testing.T) {
	cases := []struct {
		name    string
		value   schema.RawValue
		want    int
		defined bool
	}{
		{"text integer", schema.Text("45"), 45, true},
		{"integral float text", schema.Text("12.0"), 12, true},
		{"spreadsheet number", schema.Number(30), 30, true},
		{"zero", schema.Text("0"), 0, true},
		{"fractional", schema.Text("12.5"), 0, false},
		{"negative", schema.Text("-3"), 0, false},
		{"empty", schema.Empty(), 0, false},
		{"above int32", schema.Text("3000000000"), 3000000000, true},
		{"hex", schema.Text("0x20"), 0, false},
		{"beyond int64", schema.Text("1e19"), 0, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := parseCount(c.value)
			if !c.defined {
				if got != nil {
					t.Errorf("parseCount(%v) = %d, want undefined", c.value, *got)
				}
				return
			}
			if got == nil || *got != c.want {
				t.Errorf("parseCount(%v) = %v, want %d", c.value, got, c.want)
			}
		})
	}
}

func TestNormalize_LargeIterationCountIsDefined(t *testing.T) {
	rec, ok := Normalize(raw(1,
		"run_id", "R900",
		"max_stress_mpa", "120",
		"max_displacement_mm", "1.0",
		"iteration_count", "3000000000",
	))
	if !ok {
		t.Fatal("Normalize ok = false, want true")
	}
	if rec.IterationCount == nil || *rec.IterationCount != 3000000000 {
		t.Errorf("IterationCount = %v, want 3000000000", rec.IterationCount)
	}
	if rec.HasMissingData {
		t.Error("HasMissingData = true, want false")
	}
}

func TestNormalize_MissingRunID(t *testing.T) {
	for _, id := range []string{"", "   "} {
		if _, ok := Normalize(raw(4, "run_id", id, "max_stress_mpa", "100")); ok {
			t.Errorf("Normalize(run_id=%q) ok = true, want false", id)
		}
	}
	if _, ok := Normalize(raw(4, "max_stress_mpa", "100")); ok {
		t.Error("Normalize(no run_id column) ok = true, want false")
	}
}

func TestNormalize_NumericRunIDAndStatus(t *testing.T) {
	rec, ok := Normalize(raw(1, "run_id", 17, "solver_status_text", 3))
	if !ok || rec.RunID != "17" {
		t.Errorf("RunID = %q ok=%v, want 17", rec.RunID, ok)
	}
	if rec.SolverStatusText != "3" {
		t.Errorf("SolverStatusText = %q, want 3", rec.SolverStatusText)
	}
}

func TestNormalize_AbsentStatusIsEmpty(t *testing.T) {
	rec, _ := Normalize(raw(1, "run_id", "R1"))
	if rec.SolverStatusText != "" {
		t.Errorf("SolverStatusText = %q, want empty", rec.SolverStatusText)
	}
	if !rec.HasMissingData {
		t.Error("HasMissingData = false for record without numeric columns")
	}
}

func TestNormalize_Aliases(t *testing.T) {
	rec, ok := Normalize(raw(1,
		"run_id", "R002",
		"max_stress_MPa", "890",
		"displacement_mm", "5.6",
		"convergence_iters", "22",
		"status_text", "Converged successfully",
	))
	if !ok {
		t.Fatal("Normalize ok = false")
	}
	if rec.HasMissingData {
		t.Errorf("HasMissingData = true with alias headers: %+v", rec)
	}
	if rec.SolverStatusText != "Converged successfully" {
		t.Errorf("SolverStatusText = %q", rec.SolverStatusText)
	}
}

func TestNormalize_CanonicalBeatsAlias(t *testing.T) {
	rec, _ := Normalize(raw(1,
		"run_id", "R1",
		"displacement_mm", "9.9",
		"max_displacement_mm", "1.1",
	))
	if rec.MaxDisplacementMM == nil || *rec.MaxDisplacementMM != 1.1 {
		t.Errorf("MaxDisplacementMM = %v, want canonical column value 1.1", rec.MaxDisplacementMM)
	}

	rec, _ = Normalize(raw(1,
		"run_id", "R1",
		"displacement_mm", "9.9",
		"max_displacement_mm", "",
	))
	if rec.MaxDisplacementMM == nil || *rec.MaxDisplacementMM != 9.9 {
		t.Errorf("MaxDisplacementMM = %v, want alias value 9.9 when canonical is empty", rec.MaxDisplacementMM)
	}
}

func TestNormalize_Pure(t *testing.T) {
	r := raw(2, "run_id", "R9", "max_stress_mpa", "300", "max_displacement_mm", "x", "iteration_count", "5")
	a, _ := Normalize(r)
	b, _ := Normalize(r)
	if a.RunID != b.RunID || *a.MaxStressMPa != *b.MaxStressMPa || a.HasMissingData != b.HasMissingData {
		t.Errorf("Normalize not deterministic: %+v vs %+v", a, b)
	}
}

func TestNormalizeBatch_OrderAndSkips(t *testing.T) {
	raws := []schema.RawRecord{
		raw(1, "run_id", "R001", "max_stress_mpa", "1"),
		raw(2, "run_id", "", "max_stress_mpa", "2"),
		raw(3, "run_id", "R003", "max_stress_mpa", "3"),
		raw(4, "run_id", "R001", "max_stress_mpa", "4"),
		raw(5, "run_id", "R005", "max_stress_mpa", "5"),
	}
	recs, skipped := NormalizeBatch(raws)

	wantIDs := []string{"R001", "R003", "R005"}
	if len(recs) != len(wantIDs) {
		t.Fatalf("len(records) = %d, want %d", len(recs), len(wantIDs))
	}
	for i, id := range wantIDs {
		if recs[i].RunID != id {
			t.Errorf("records[%d].RunID = %q, want %q", i, recs[i].RunID, id)
		}
	}
	if len(skipped) != 2 {
		t.Fatalf("len(skipped) = %d, want 2", len(skipped))
	}
	if skipped[0].Row != 2 || skipped[0].Reason != "missing run_id" {
		t.Errorf("skipped[0] = %+v", skipped[0])
	}
	if skipped[1].Row != 4 || skipped[1].RunID != "R001" || skipped[1].Reason != "duplicate run_id" {
		t.Errorf("skipped[1] = %+v", skipped[1])
	}
}
