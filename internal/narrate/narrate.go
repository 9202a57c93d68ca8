// Package narrate asks a language model for a short engineering review of
// a classified batch. The review is prose attached to the report; it never
// changes a verdict.
package narrate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dshills/simcheck/internal/profile"
	"github.com/dshills/simcheck/internal/schema"
)

// ErrEmptyNarrative is returned when the provider answers with no text.
var ErrEmptyNarrative = errors.New("narrate: provider returned an empty narrative")

// ErrNoContent is returned by a provider whose reply carries no text.
var ErrNoContent = errors.New("response contained no text content")

// Provider is the interface for LLM backends.
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float64) (string, error)
}

// NewProvider is the factory for creating LLM providers. It is a package-level
// variable so tests can replace it with a mock; restore it with t.Cleanup.
var NewProvider func(providerName, model string) (Provider, error) = defaultNewProvider

// Options configures a Summarize call.
type Options struct {
	Provider    string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Summarize returns an engineering review of report written by the
// configured provider.
func Summarize(ctx context.Context, report *schema.Report, prof profile.Profile, opts Options) (string, error) {
	if report == nil {
		return "", fmt.Errorf("narrate: nil report")
	}
	provider, err := NewProvider(opts.Provider, opts.Model)
	if err != nil {
		return "", fmt.Errorf("narrate: create provider: %w", err)
	}

	raw, err := provider.Complete(ctx, buildSystemPrompt(prof), buildUserPrompt(report), opts.MaxTokens, opts.Temperature)
	if err != nil {
		return "", fmt.Errorf("narrate: complete: %w", err)
	}
	text := stripMarkdownFences(raw)
	if text == "" {
		return "", ErrEmptyNarrative
	}
	return text, nil
}

// joinText concatenates the text parts of a provider reply, failing with
// ErrNoContent when nothing but whitespace came back.
func joinText(provider string, parts []string) (string, error) {
	text := strings.Join(parts, "")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", provider, ErrNoContent)
	}
	return text, nil
}

func buildSystemPrompt(prof profile.Profile) string {
	var sb strings.Builder
	sb.WriteString("You are a simulation quality reviewer for structural and fluid solver runs.\n\n")
	sb.WriteString("You are given a batch that has already been classified PASS, WARNING or FAIL " +
		"by fixed engineering limits and an isolation-forest outlier model. " +
		"Do not reclassify any run and do not invent values that are not in the input.\n\n")
	sb.WriteString("Write a short review in plain Markdown paragraphs and bullet lists, no headings. Cover:\n" +
		"- runs that report convergence but violate physical limits;\n" +
		"- runs with missing data that cannot be validated;\n" +
		"- extreme values that more likely indicate a setup or unit error than real behaviour;\n" +
		"- borderline runs that deserve manual review;\n" +
		"- limitations of the statistical flags for a batch of this size.\n\n")
	if prof.NarrationAddendum != "" {
		sb.WriteString(prof.NarrationAddendum)
		sb.WriteString("\n")
	}
	return sb.String()
}

func buildUserPrompt(report *schema.Report) string {
	var sb strings.Builder
	t := report.Thresholds
	s := report.Summary

	sb.WriteString("LIMITS\n")
	fmt.Fprintf(&sb, "yield strength %s MPa; max displacement %s mm; max iterations %d; anomaly contamination %s\n\n",
		fmtFloat(t.YieldStrengthMPa), fmtFloat(t.MaxDisplacementMM), t.MaxIterations, fmtFloat(t.AnomalyContamination))

	sb.WriteString("SUMMARY\n")
	fmt.Fprintf(&sb, "%d records, %d classified, %d skipped; PASS %d, WARNING %d, FAIL %d; %d statistical anomalies\n\n",
		s.Total, s.Classified, s.Skipped, s.Pass, s.Warning, s.Fail, s.Anomalies)

	if len(report.Stats) > 0 {
		sb.WriteString("FEATURE STATISTICS\n")
		for _, fs := range report.Stats {
			fmt.Fprintf(&sb, "%s: n=%d mean=%.3f std=%.3f min=%s median=%s max=%s\n",
				fs.Feature, fs.Count, fs.Mean, fs.StdDev, fmtFloat(fs.Min), fmtFloat(fs.Median), fmtFloat(fs.Max))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("NON-PASSING RUNS\n")
	n := 0
	for _, r := range report.Results {
		if r.Severity == schema.SeverityPass {
			continue
		}
		n++
		fmt.Fprintf(&sb, "- %s [%s] stress=%s displacement=%s iterations=%s status=%q\n",
			r.RunID, r.Severity, optFloat(r.Values.MaxStressMPa), optFloat(r.Values.MaxDisplacementMM),
			optInt(r.Values.IterationCount), r.Values.SolverStatusText)
		for _, reason := range r.Reasons {
			fmt.Fprintf(&sb, "    * %s\n", reason)
		}
	}
	if n == 0 {
		sb.WriteString("(none)\n")
	}

	if len(report.Skipped) > 0 {
		sb.WriteString("\nSKIPPED ROWS\n")
		for _, sk := range report.Skipped {
			fmt.Fprintf(&sb, "- row %d %s: %s\n", sk.Row, sk.RunID, sk.Reason)
		}
	}
	return sb.String()
}

// fenceRe matches a response wrapped entirely in one code fence.
var fenceRe = regexp.MustCompile("(?s)^(?:`{3}|~{3})[^\\n]*\\n(.*?)(?:`{3}|~{3})\\s*$")

// stripMarkdownFences removes a code fence wrapped around the whole
// response, which some models add even when asked for prose.
func stripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

func fmtFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}

func optFloat(v *float64) string {
	if v == nil {
		return "missing"
	}
	return fmtFloat(*v)
}

func optInt(v *int) string {
	if v == nil {
		return "missing"
	}
	return fmt.Sprintf("%d", *v)
}

// defaultNewProvider dispatches to the appropriate provider implementation.
func defaultNewProvider(providerName, model string) (Provider, error) {
	switch strings.ToLower(providerName) {
	case "anthropic", "":
		return newAnthropicProvider(model)
	case "openai":
		return newOpenAIProvider(model)
	case "google":
		return newGoogleProvider(model)
	default:
		return nil, fmt.Errorf("narrate: unknown provider %q", providerName)
	}
}
