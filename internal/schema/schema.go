// Package schema defines all canonical data types for simcheck records,
// verdicts and the report format.
package schema

import (
	"strconv"

	"github.com/dshills/simcheck/internal/config"
)

// Severity is the quality tier assigned to a simulation run.
type Severity string

const (
	SeverityPass    Severity = "PASS"
	SeverityWarning Severity = "WARNING"
	SeverityFail    Severity = "FAIL"
)

// ValueKind tags the variant held by a RawValue.
type ValueKind int

const (
	KindEmpty ValueKind = iota
	KindText
	KindNumber
)

func (k ValueKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	default:
		return "empty"
	}
}

// RawValue is a single untyped input cell: empty, text, or a number the
// source format declared as numeric. Only the field selected by Kind is
// meaningful.
type RawValue struct {
	Kind   ValueKind
	Text   string
	Number float64
}

// Empty returns an empty RawValue.
func Empty() RawValue { return RawValue{Kind: KindEmpty} }

// Text returns a textual RawValue. Numeric-looking strings stay text.
func Text(s string) RawValue { return RawValue{Kind: KindText, Text: s} }

// Number returns a numeric RawValue.
func Number(f float64) RawValue { return RawValue{Kind: KindNumber, Number: f} }

// String renders the value as it would appear in a CSV cell.
func (v RawValue) String() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	default:
		return ""
	}
}

// RawRecord is one simulation run as read from input, keyed by the
// (lower-cased, trimmed) column header. Row is the 1-based data row,
// counted from the header by position in the source.
type RawRecord struct {
	Row    int
	Fields map[string]RawValue
}

// Get returns the value for column, or an empty value when absent.
func (r RawRecord) Get(column string) RawValue {
	v, ok := r.Fields[column]
	if !ok {
		return Empty()
	}
	return v
}

// NormalizedRecord is the typed view of a RawRecord. A nil pointer field is
// undefined: absent or not parseable.
type NormalizedRecord struct {
	RunID             string            `json:"run_id"`
	Row               int               `json:"row"`
	MaxStressMPa      *float64          `json:"max_stress_mpa"`
	MaxDisplacementMM *float64          `json:"max_displacement_mm"`
	IterationCount    *int              `json:"iteration_count"`
	SolverStatusText  string            `json:"solver_status_text"`
	HasMissingData    bool              `json:"has_missing_data"`
	Attributes        map[string]string `json:"attributes,omitempty"`
}

// Features returns the numeric feature vector (stress, displacement,
// iterations). ok is false when any feature is undefined.
func (n NormalizedRecord) Features() (features []float64, ok bool) {
	if n.MaxStressMPa == nil || n.MaxDisplacementMM == nil || n.IterationCount == nil {
		return nil, false
	}
	return []float64{*n.MaxStressMPa, *n.MaxDisplacementMM, float64(*n.IterationCount)}, true
}

// FeatureNames names the columns of Features, in order.
var FeatureNames = []string{"max_stress_mpa", "max_displacement_mm", "iteration_count"}

// RuleVerdict is the deterministic rule-based outcome for one record.
// Reasons is empty when Severity is PASS.
type RuleVerdict struct {
	Severity Severity `json:"severity"`
	Reasons  []string `json:"reasons"`
}

// AnomalyScore is the batch-relative outlier assessment of one record.
// Score is lower for more anomalous records; unscored records carry the
// neutral score 0.
type AnomalyScore struct {
	Scored    bool    `json:"scored"`
	Anomalous bool    `json:"anomalous"`
	Score     float64 `json:"score"`
}

// FinalVerdict is the reported outcome for one record.
type FinalVerdict struct {
	Severity Severity `json:"severity"`
	Reasons  []string `json:"reasons"`
}

// Report is the top-level output document.
type Report struct {
	Tool       string            `json:"tool"`
	Version    string            `json:"version"`
	BatchID    string            `json:"batch_id"`
	Input      Input             `json:"input"`
	Thresholds config.Thresholds `json:"thresholds"`
	Summary    Summary           `json:"summary"`
	Stats      []FeatureStats    `json:"stats"`
	Results    []RecordResult    `json:"results"`
	Skipped    []SkippedRecord   `json:"skipped"`
	Narrative  string            `json:"narrative,omitempty"`
}

// Input records the parameters used for this run.
type Input struct {
	File    string `json:"file"`
	Profile string `json:"profile"`
	Seed    int64  `json:"seed"`
}

// Summary holds batch-level counts.
type Summary struct {
	Total      int      `json:"total"`
	Classified int      `json:"classified"`
	Skipped    int      `json:"skipped"`
	Pass       int      `json:"pass"`
	Warning    int      `json:"warning"`
	Fail       int      `json:"fail"`
	Anomalies  int      `json:"anomalies"`
	Worst      Severity `json:"worst"`
}

// FeatureStats describes the distribution of one numeric feature over the
// records where it is defined.
type FeatureStats struct {
	Feature string  `json:"feature"`
	Count   int     `json:"count"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
	Min     float64 `json:"min"`
	Q25     float64 `json:"q25"`
	Median  float64 `json:"median"`
	Q75     float64 `json:"q75"`
	Max     float64 `json:"max"`
}

// RecordResult is the per-record line of a report.
type RecordResult struct {
	RunID    string       `json:"run_id"`
	Severity Severity     `json:"severity"`
	Reasons  []string     `json:"reasons"`
	Values   RecordValues `json:"values"`
	Anomaly  AnomalyScore `json:"anomaly"`
}

// RecordValues echoes the normalized inputs behind a verdict.
type RecordValues struct {
	MaxStressMPa      *float64          `json:"max_stress_mpa"`
	MaxDisplacementMM *float64          `json:"max_displacement_mm"`
	IterationCount    *int              `json:"iteration_count"`
	SolverStatusText  string            `json:"solver_status_text"`
	Attributes        map[string]string `json:"attributes,omitempty"`
}

// SkippedRecord identifies an input row excluded from the batch.
type SkippedRecord struct {
	Row    int    `json:"row"`
	RunID  string `json:"run_id,omitempty"`
	Reason string `json:"reason"`
}
