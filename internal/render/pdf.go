package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/phpdave11/gofpdf"

	"github.com/dshills/simcheck/internal/schema"
)

// RenderPDF writes a printable engineering summary: counts, limits and
// every non-passing run with its reasons.
func RenderPDF(report *schema.Report, w io.Writer) error {
	if report == nil {
		return fmt.Errorf("render: nil report")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	left, _, _, _ := pdf.GetMargins()
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Simulation Batch Report")
	pdf.Ln(12)

	s := report.Summary
	t := report.Thresholds
	pdf.SetFont("Helvetica", "", 11)
	lines := []string{
		fmt.Sprintf("Batch: %s", report.BatchID),
		fmt.Sprintf("Input: %s (profile %s, seed %d)", report.Input.File, report.Input.Profile, report.Input.Seed),
		fmt.Sprintf("Worst severity: %s", s.Worst),
		fmt.Sprintf("Records: %d classified, %d skipped of %d", s.Classified, s.Skipped, s.Total),
		fmt.Sprintf("Pass %d, Warning %d, Fail %d, Anomalies %d", s.Pass, s.Warning, s.Fail, s.Anomalies),
		fmt.Sprintf("Limits: yield %s MPa, displacement %s mm, iterations %d, contamination %s",
			num(t.YieldStrengthMPa), num(t.MaxDisplacementMM), t.MaxIterations, num(t.AnomalyContamination)),
	}
	for _, l := range lines {
		pdf.Cell(0, 6, tr(l))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Flagged runs")
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 10)
	flagged := 0
	for _, r := range report.Results {
		if r.Severity == schema.SeverityPass {
			continue
		}
		flagged++
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(30, 6, tr(r.RunID), "", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, string(r.Severity), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 6, tr(strings.Join(r.Reasons, "\n")), "", "L", false)
		pdf.SetX(left)
	}
	if flagged == 0 {
		pdf.Cell(0, 6, "All runs passed.")
		pdf.Ln(6)
	}

	if len(report.Skipped) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "Skipped rows")
		pdf.Ln(9)
		pdf.SetFont("Helvetica", "", 10)
		for _, sk := range report.Skipped {
			pdf.Cell(0, 6, tr(fmt.Sprintf("Row %d %s: %s", sk.Row, sk.RunID, sk.Reason)))
			pdf.Ln(6)
		}
	}

	if report.Narrative != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "Engineering review")
		pdf.Ln(9)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(report.Narrative), "", "L", false)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render: pdf: %w", err)
	}
	return nil
}
