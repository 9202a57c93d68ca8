// Package normalize coerces raw input records into typed NormalizedRecords.
// Coercion never fails: values that do not parse become undefined and mark
// the record as having missing data.
package normalize

import (
	"math"
	"strconv"
	"strings"

	"github.com/dshills/simcheck/internal/schema"
)

// Canonical column names.
const (
	ColRunID        = "run_id"
	ColStress       = "max_stress_mpa"
	ColDisplacement = "max_displacement_mm"
	ColIterations   = "iteration_count"
	ColStatus       = "solver_status_text"
)

// aliases maps accepted input headers to canonical column names. Headers are
// matched after lower-casing and trimming.
var aliases = map[string]string{
	"run_id":              ColRunID,
	"max_stress_mpa":      ColStress,
	"max_displacement_mm": ColDisplacement,
	"displacement_mm":     ColDisplacement,
	"iteration_count":     ColIterations,
	"convergence_iters":   ColIterations,
	"solver_status_text":  ColStatus,
	"status_text":         ColStatus,
}

// Canonical returns the canonical column for header, or "" when header is
// not one of the classified columns.
func Canonical(header string) string {
	return aliases[strings.ToLower(strings.TrimSpace(header))]
}

// Normalize converts raw into a NormalizedRecord. ok is false only when the
// record has no run identifier, in which case it must be dropped.
func Normalize(raw schema.RawRecord) (rec schema.NormalizedRecord, ok bool) {
	fields := make(map[string]schema.RawValue, len(raw.Fields))
	attrs := make(map[string]string)
	for header, v := range raw.Fields {
		key := strings.ToLower(strings.TrimSpace(header))
		if col := Canonical(header); col != "" {
			// With both spellings present, a non-empty value wins, then
			// the canonical spelling.
			prev, seen := fields[col]
			switch {
			case !seen, prev.Kind == schema.KindEmpty:
				fields[col] = v
			case v.Kind != schema.KindEmpty && key == col:
				fields[col] = v
			}
			continue
		}
		if key != "" {
			attrs[key] = strings.TrimSpace(v.String())
		}
	}

	rec.Row = raw.Row
	rec.RunID = strings.TrimSpace(fields[ColRunID].String())
	if rec.RunID == "" {
		return rec, false
	}

	rec.MaxStressMPa = parseFloat(fields[ColStress])
	rec.MaxDisplacementMM = parseFloat(fields[ColDisplacement])
	rec.IterationCount = parseCount(fields[ColIterations])
	rec.SolverStatusText = strings.TrimSpace(fields[ColStatus].String())
	rec.HasMissingData = rec.MaxStressMPa == nil || rec.MaxDisplacementMM == nil || rec.IterationCount == nil
	if len(attrs) > 0 {
		rec.Attributes = attrs
	}
	return rec, true
}

// parseFloat strictly parses v. Empty values, non-numeric text and
// non-finite numbers are undefined.
func parseFloat(v schema.RawValue) *float64 {
	var f float64
	switch v.Kind {
	case schema.KindNumber:
		f = v.Number
	case schema.KindText:
		text := strings.TrimSpace(v.Text)
		if isHex(text) {
			return nil
		}
		parsed, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// isHex reports whether text is a hexadecimal literal, which
// strconv.ParseFloat would otherwise accept.
func isHex(text string) bool {
	text = strings.TrimLeft(text, "+-")
	return len(text) > 1 && text[0] == '0' && (text[1] == 'x' || text[1] == 'X')
}

// parseCount parses a non-negative integer. Integral floats such as 12.0
// are accepted because spreadsheets store every number as a float.
func parseCount(v schema.RawValue) *int {
	f := parseFloat(v)
	if f == nil || *f < 0 || *f != math.Trunc(*f) || *f >= math.MaxInt64 {
		return nil
	}
	n := int(*f)
	return &n
}

// NormalizeBatch normalizes raws in order. Records without a run_id, and
// later records repeating an earlier run_id, are excluded and reported in
// skipped.
func NormalizeBatch(raws []schema.RawRecord) (records []schema.NormalizedRecord, skipped []schema.SkippedRecord) {
	records = make([]schema.NormalizedRecord, 0, len(raws))
	seen := make(map[string]bool, len(raws))
	for _, raw := range raws {
		rec, ok := Normalize(raw)
		if !ok {
			skipped = append(skipped, schema.SkippedRecord{Row: raw.Row, Reason: "missing run_id"})
			continue
		}
		if seen[rec.RunID] {
			skipped = append(skipped, schema.SkippedRecord{Row: raw.Row, RunID: rec.RunID, Reason: "duplicate run_id"})
			continue
		}
		seen[rec.RunID] = true
		records = append(records, rec)
	}
	return records, skipped
}
