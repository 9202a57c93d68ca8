// Package render produces output from a fully assembled schema.Report.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dshills/simcheck/internal/schema"
)

// Output formats.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatXLSX     = "xlsx"
	FormatPDF      = "pdf"
)

// Formats lists the supported output formats.
func Formats() []string {
	return []string{FormatJSON, FormatMarkdown, FormatHTML, FormatXLSX, FormatPDF}
}

// Binary reports whether format produces non-text output.
func Binary(format string) bool {
	return format == FormatXLSX || format == FormatPDF
}

// Write renders report in format to w.
func Write(w io.Writer, report *schema.Report, format string) error {
	if report == nil {
		return fmt.Errorf("render: nil report")
	}
	switch format {
	case FormatJSON:
		b, err := RenderJSON(report)
		if err != nil {
			return err
		}
		_, err = w.Write(append(b, '\n'))
		return err
	case FormatMarkdown:
		_, err := io.WriteString(w, RenderMarkdown(report))
		return err
	case FormatHTML:
		_, err := w.Write(RenderHTML(report))
		return err
	case FormatXLSX:
		return RenderXLSX(report, w)
	case FormatPDF:
		return RenderPDF(report, w)
	default:
		return fmt.Errorf("render: unknown format %q (want one of %s)", format, strings.Join(Formats(), ", "))
	}
}

// RenderJSON produces a pretty-printed JSON representation of the report.
// The output round-trips through json.Unmarshal back to an equal Report.
func RenderJSON(report *schema.Report) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("render: nil report")
	}
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render: json marshal: %w", err)
	}
	return b, nil
}

// RenderMarkdown produces a GitHub-flavoured Markdown summary of the report.
// Every classified run_id appears in the verdict table.
func RenderMarkdown(report *schema.Report) string {
	if report == nil {
		return ""
	}
	var sb strings.Builder
	s := report.Summary

	sb.WriteString("## Simulation Batch Report\n\n")
	fmt.Fprintf(&sb, "**Worst severity:** %s  \n", s.Worst)
	fmt.Fprintf(&sb, "**Records:** %d classified, %d skipped of %d  \n", s.Classified, s.Skipped, s.Total)
	fmt.Fprintf(&sb, "**Pass:** %d | **Warning:** %d | **Fail:** %d | **Anomalies:** %d\n\n",
		s.Pass, s.Warning, s.Fail, s.Anomalies)
	if report.Input.File != "" {
		fmt.Fprintf(&sb, "Input `%s`, profile `%s`, seed %d.\n\n", report.Input.File, report.Input.Profile, report.Input.Seed)
	}

	t := report.Thresholds
	sb.WriteString("## Thresholds\n\n")
	sb.WriteString("| Limit | Value |\n")
	sb.WriteString("|---|---|\n")
	fmt.Fprintf(&sb, "| Yield strength | %s MPa |\n", num(t.YieldStrengthMPa))
	fmt.Fprintf(&sb, "| Max displacement | %s mm |\n", num(t.MaxDisplacementMM))
	fmt.Fprintf(&sb, "| Max iterations | %d |\n", t.MaxIterations)
	fmt.Fprintf(&sb, "| Anomaly contamination | %s |\n\n", num(t.AnomalyContamination))

	if len(report.Stats) > 0 {
		sb.WriteString("## Feature Statistics\n\n")
		sb.WriteString("| Feature | Count | Mean | Std | Min | 25% | Median | 75% | Max |\n")
		sb.WriteString("|---|---|---|---|---|---|---|---|---|\n")
		for _, fs := range report.Stats {
			fmt.Fprintf(&sb, "| %s | %d | %.3f | %.3f | %s | %s | %s | %s | %s |\n",
				fs.Feature, fs.Count, fs.Mean, fs.StdDev,
				num(fs.Min), num(fs.Q25), num(fs.Median), num(fs.Q75), num(fs.Max))
		}
		sb.WriteString("\n")
	}

	if len(report.Results) > 0 {
		sb.WriteString("## Verdicts\n\n")
		sb.WriteString("| Run | Severity | Stress (MPa) | Displacement (mm) | Iterations | Reasons |\n")
		sb.WriteString("|---|---|---|---|---|---|\n")
		for _, r := range report.Results {
			reasons := "-"
			if len(r.Reasons) > 0 {
				reasons = mdEscape(strings.Join(r.Reasons, "; "))
			}
			fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s |\n",
				mdEscape(r.RunID), r.Severity,
				optFloat(r.Values.MaxStressMPa), optFloat(r.Values.MaxDisplacementMM), optInt(r.Values.IterationCount),
				reasons)
		}
		sb.WriteString("\n")
	}

	if len(report.Skipped) > 0 {
		sb.WriteString("## Skipped Records\n\n")
		sb.WriteString("| Row | Run | Reason |\n")
		sb.WriteString("|---|---|---|\n")
		for _, sk := range report.Skipped {
			fmt.Fprintf(&sb, "| %d | %s | %s |\n", sk.Row, mdEscape(sk.RunID), mdEscape(sk.Reason))
		}
		sb.WriteString("\n")
	}

	if report.Narrative != "" {
		sb.WriteString("## Engineering Review\n\n")
		sb.WriteString(strings.TrimSpace(report.Narrative))
		sb.WriteString("\n")
	}

	return sb.String()
}

// mdEscape replaces characters that would break Markdown table cells.
func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return s
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return num(*v)
}

func optInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}
