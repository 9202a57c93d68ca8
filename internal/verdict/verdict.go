// Package verdict provides the severity ordering and the logic that merges a
// rule verdict with an anomaly score into the reported verdict.
package verdict

import (
	"fmt"

	"github.com/dshills/simcheck/internal/schema"
)

// Ordinal returns the numeric ordinal for a severity, used to compare
// severity order. PASS=0, WARNING=1, FAIL=2, unknown=-1.
// Used by --fail-on comparison: exit 2 if Ordinal(worst) >= Ordinal(threshold).
func Ordinal(s schema.Severity) int {
	switch s {
	case schema.SeverityPass:
		return 0
	case schema.SeverityWarning:
		return 1
	case schema.SeverityFail:
		return 2
	default:
		return -1
	}
}

// Max returns the more severe of a and b.
func Max(a, b schema.Severity) schema.Severity {
	if Ordinal(b) > Ordinal(a) {
		return b
	}
	return a
}

// AnomalyReason formats the explanation attached to anomalous records.
func AnomalyReason(score float64) string {
	return fmt.Sprintf("statistical anomaly detected relative to the rest of the batch (score=%.3f)", score)
}

// Merge combines a record's rule verdict and anomaly score.
//
// Rules:
//  1. The rule severity is authoritative and never lowered.
//  2. An anomalous PASS becomes WARNING. Anomaly alone never yields FAIL.
//  3. An anomalous FAIL stays FAIL; the anomaly is still reported.
//  4. The anomaly reason, when present, is last.
func Merge(rv schema.RuleVerdict, as schema.AnomalyScore) schema.FinalVerdict {
	fv := schema.FinalVerdict{
		Severity: rv.Severity,
		Reasons:  make([]string, 0, len(rv.Reasons)+1),
	}
	fv.Reasons = append(fv.Reasons, rv.Reasons...)

	if !as.Anomalous {
		return fv
	}
	if Ordinal(fv.Severity) < Ordinal(schema.SeverityWarning) {
		fv.Severity = schema.SeverityWarning
	}
	fv.Reasons = append(fv.Reasons, AnomalyReason(as.Score))
	return fv
}

// CountSeverities aggregates severity counts across verdicts.
func CountSeverities(verdicts []schema.FinalVerdict) (pass, warning, fail int) {
	for _, v := range verdicts {
		switch v.Severity {
		case schema.SeverityPass:
			pass++
		case schema.SeverityWarning:
			warning++
		case schema.SeverityFail:
			fail++
		}
	}
	return
}

// Worst returns the highest severity among verdicts, PASS for none.
func Worst(verdicts []schema.FinalVerdict) schema.Severity {
	worst := schema.SeverityPass
	for _, v := range verdicts {
		worst = Max(worst, v.Severity)
	}
	return worst
}
