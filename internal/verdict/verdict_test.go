package verdict

import (
	"strings"
	"testing"

	"github.com/dshills/simcheck/internal/schema"
)

var allSeverities = []schema.Severity{schema.SeverityPass, schema.SeverityWarning, schema.SeverityFail}

func TestOrdinal(t *testing.T) {
	for i := 1; i < len(allSeverities); i++ {
		prev, curr := allSeverities[i-1], allSeverities[i]
		if Ordinal(prev) >= Ordinal(curr) {
			t.Errorf("Ordinal(%q) >= Ordinal(%q): not strictly ascending", prev, curr)
		}
		if Ordinal(curr) != i {
			t.Errorf("Ordinal(%q) = %d, want %d", curr, Ordinal(curr), i)
		}
	}
}

func TestOrdinal_Unknown(t *testing.T) {
	if got := Ordinal(schema.Severity("UNKNOWN")); got != -1 {
		t.Errorf("Ordinal(UNKNOWN) = %d, want -1", got)
	}
}

func TestMax(t *testing.T) {
	cases := []struct {
		a, b, want schema.Severity
	}{
		{schema.SeverityPass, schema.SeverityPass, schema.SeverityPass},
		{schema.SeverityPass, schema.SeverityWarning, schema.SeverityWarning},
		{schema.SeverityFail, schema.SeverityWarning, schema.SeverityFail},
		{schema.SeverityWarning, schema.SeverityFail, schema.SeverityFail},
	}
	for _, c := range cases {
		if got := Max(c.a, c.b); got != c.want {
			t.Errorf("Max(%q, %q) = %q, want %q", c.a, c.b, got, c.want)
		}
	}
}

func TestMerge_NotAnomalous(t *testing.T) {
	rv := schema.RuleVerdict{Severity: schema.SeverityWarning, Reasons: []string{"solver required excessive iterations (55 > 40)"}}
	got := Merge(rv, schema.AnomalyScore{Scored: true, Score: -0.41})
	if got.Severity != schema.SeverityWarning {
		t.Errorf("Severity = %q, want WARNING", got.Severity)
	}
	if len(got.Reasons) != 1 || got.Reasons[0] != rv.Reasons[0] {
		t.Errorf("Reasons = %v, want %v", got.Reasons, rv.Reasons)
	}
}

func TestMerge_AnomalousPassEscalatesToWarning(t *testing.T) {
	rv := schema.RuleVerdict{Severity: schema.SeverityPass, Reasons: []string{}}
	got := Merge(rv, schema.AnomalyScore{Scored: true, Anomalous: true, Score: -0.7123})
	if got.Severity != schema.SeverityWarning {
		t.Errorf("Severity = %q, want WARNING", got.Severity)
	}
	want := "statistical anomaly detected relative to the rest of the batch (score=-0.712)"
	if len(got.Reasons) != 1 || got.Reasons[0] != want {
		t.Errorf("Reasons = %v, want [%q]", got.Reasons, want)
	}
}

func TestMerge_AnomalousFailStaysFailWithReasonLast(t *testing.T) {
	rv := schema.RuleVerdict{
		Severity: schema.SeverityFail,
		Reasons:  []string{"stress exceeds yield strength (890 > 450 MPa)", "solver required excessive iterations (55 > 40)"},
	}
	got := Merge(rv, schema.AnomalyScore{Scored: true, Anomalous: true, Score: -0.8})
	if got.Severity != schema.SeverityFail {
		t.Errorf("Severity = %q, want FAIL", got.Severity)
	}
	if len(got.Reasons) != 3 {
		t.Fatalf("Reasons = %v, want 3 entries", got.Reasons)
	}
	if got.Reasons[0] != rv.Reasons[0] || got.Reasons[1] != rv.Reasons[1] {
		t.Errorf("rule reason order not preserved: %v", got.Reasons)
	}
	if !strings.HasPrefix(got.Reasons[2], "statistical anomaly detected") {
		t.Errorf("last reason = %q, want anomaly reason", got.Reasons[2])
	}
}

func TestMerge_DoesNotMutateRuleVerdict(t *testing.T) {
	reasons := make([]string, 1, 4)
	reasons[0] = "solver required excessive iterations (55 > 40)"
	rv := schema.RuleVerdict{Severity: schema.SeverityWarning, Reasons: reasons}
	_ = Merge(rv, schema.AnomalyScore{Anomalous: true, Score: -0.6})
	if len(rv.Reasons) != 1 || reasons[:2][1] != "" {
		t.Errorf("Merge wrote into the rule verdict's backing array: %v", reasons[:2])
	}
}

// Merge never lowers the rule severity and never reaches FAIL from the
// anomaly flag alone.
func TestMerge_NeverDowngrades(t *testing.T) {
	for _, sev := range allSeverities {
		for _, anomalous := range []bool{false, true} {
			rv := schema.RuleVerdict{Severity: sev, Reasons: []string{}}
			got := Merge(rv, schema.AnomalyScore{Scored: true, Anomalous: anomalous, Score: -0.6})
			if Ordinal(got.Severity) < Ordinal(sev) {
				t.Errorf("Merge(%q, anomalous=%v) = %q: downgraded", sev, anomalous, got.Severity)
			}
			if sev != schema.SeverityFail && got.Severity == schema.SeverityFail {
				t.Errorf("Merge(%q, anomalous=%v) = FAIL from anomaly alone", sev, anomalous)
			}
		}
	}
}

func TestCountSeveritiesAndWorst(t *testing.T) {
	vs := []schema.FinalVerdict{
		{Severity: schema.SeverityPass},
		{Severity: schema.SeverityFail},
		{Severity: schema.SeverityWarning},
		{Severity: schema.SeverityPass},
	}
	pass, warn, fail := CountSeverities(vs)
	if pass != 2 || warn != 1 || fail != 1 {
		t.Errorf("CountSeverities = %d/%d/%d, want 2/1/1", pass, warn, fail)
	}
	if got := Worst(vs); got != schema.SeverityFail {
		t.Errorf("Worst = %q, want FAIL", got)
	}
	if got := Worst(nil); got != schema.SeverityPass {
		t.Errorf("Worst(nil) = %q, want PASS", got)
	}
}
