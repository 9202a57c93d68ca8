package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dshills/simcheck/internal/schema"
)

const (
	sheetVerdicts = "Verdicts"
	sheetSummary  = "Summary"
)

// RenderXLSX writes a workbook with a Verdicts sheet (one row per record)
// and a Summary sheet (counts, thresholds and feature statistics).
func RenderXLSX(report *schema.Report, w io.Writer) error {
	if report == nil {
		return fmt.Errorf("render: nil report")
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetVerdicts); err != nil {
		return fmt.Errorf("render: xlsx: %w", err)
	}
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return fmt.Errorf("render: xlsx: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("render: xlsx style: %w", err)
	}

	verdictRows := [][]any{{
		"Run ID", "Severity", "Reasons", "Max Stress (MPa)", "Max Displacement (mm)",
		"Iterations", "Solver Status", "Anomaly Score", "Anomalous",
	}}
	for _, r := range report.Results {
		var score any
		if r.Anomaly.Scored {
			score = r.Anomaly.Score
		}
		verdictRows = append(verdictRows, []any{
			r.RunID, string(r.Severity), strings.Join(r.Reasons, "; "),
			ptr(r.Values.MaxStressMPa), ptr(r.Values.MaxDisplacementMM), ptr(r.Values.IterationCount),
			r.Values.SolverStatusText, score, r.Anomaly.Anomalous,
		})
	}
	if err := writeRows(f, sheetVerdicts, verdictRows); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetVerdicts, "A1", "I1", bold); err != nil {
		return fmt.Errorf("render: xlsx style: %w", err)
	}
	if err := f.SetColWidth(sheetVerdicts, "C", "C", 80); err != nil {
		return fmt.Errorf("render: xlsx: %w", err)
	}

	s := report.Summary
	t := report.Thresholds
	summaryRows := [][]any{
		{"Batch", report.BatchID},
		{"Input", report.Input.File},
		{"Profile", report.Input.Profile},
		{"Seed", report.Input.Seed},
		{"Total", s.Total},
		{"Classified", s.Classified},
		{"Skipped", s.Skipped},
		{"Pass", s.Pass},
		{"Warning", s.Warning},
		{"Fail", s.Fail},
		{"Anomalies", s.Anomalies},
		{"Worst", string(s.Worst)},
		{},
		{"Yield strength (MPa)", t.YieldStrengthMPa},
		{"Max displacement (mm)", t.MaxDisplacementMM},
		{"Max iterations", t.MaxIterations},
		{"Anomaly contamination", t.AnomalyContamination},
		{},
		{"Feature", "Count", "Mean", "Std", "Min", "25%", "Median", "75%", "Max"},
	}
	statsHeader := len(summaryRows)
	for _, fs := range report.Stats {
		summaryRows = append(summaryRows, []any{
			fs.Feature, fs.Count, fs.Mean, fs.StdDev, fs.Min, fs.Q25, fs.Median, fs.Q75, fs.Max,
		})
	}
	if err := writeRows(f, sheetSummary, summaryRows); err != nil {
		return err
	}
	hdr := fmt.Sprintf("A%d", statsHeader)
	end := fmt.Sprintf("I%d", statsHeader)
	if err := f.SetCellStyle(sheetSummary, hdr, end, bold); err != nil {
		return fmt.Errorf("render: xlsx style: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("render: xlsx write: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("render: xlsx: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("render: xlsx %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// ptr dereferences optional values; nil becomes a blank cell.
func ptr[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}
