package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/simcheck/internal/classify"
	"github.com/dshills/simcheck/internal/loader"
	"github.com/dshills/simcheck/internal/logging"
	"github.com/dshills/simcheck/internal/narrate"
	"github.com/dshills/simcheck/internal/render"
	"github.com/dshills/simcheck/internal/schema"
	"github.com/dshills/simcheck/internal/verdict"
)

// classifyFlags holds every input of a classify run.
type classifyFlags struct {
	configFlags
	input    string
	format   string
	out      string
	timeout  time.Duration
	failOn   string
	narrate  bool
	provider string
	model    string
	stdout   io.Writer
}

func newClassifyCmd() *cobra.Command {
	var f classifyFlags
	cmd := &cobra.Command{
		Use:   "classify <input.csv|input.xlsx>",
		Short: "Classify every run in a batch of simulation results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.input = args[0]
			f.seedSet = cmd.Flags().Changed("seed")
			f.stdout = cmd.OutOrStdout()
			return runClassify(cmd.Context(), f)
		},
	}
	f.register(cmd)
	fs := cmd.Flags()
	fs.StringVar(&f.format, "format", render.FormatMarkdown, "output format: "+strings.Join(render.Formats(), ", "))
	fs.StringVar(&f.out, "out", "", "output file (default stdout)")
	fs.DurationVar(&f.timeout, "timeout", 0, "wall-clock budget for the whole batch (0 = config value)")
	fs.StringVar(&f.failOn, "fail-on", "", "exit 2 when the worst severity is at least PASS, WARNING or FAIL")
	fs.BoolVar(&f.narrate, "narrate", false, "attach an LLM-written engineering review")
	fs.StringVar(&f.provider, "provider", "", "narration provider: anthropic, openai or google")
	fs.StringVar(&f.model, "model", "", "narration model")
	return cmd
}

// runClassify loads, classifies and renders one batch. Errors carry the
// process exit code.
func runClassify(ctx context.Context, f classifyFlags) error {
	if f.input == "" {
		return exitf(exitCodeBadInput, "no input file")
	}
	if !slices.Contains(render.Formats(), f.format) {
		return exitf(exitCodeBadInput, "unknown format %q (want one of %s)", f.format, strings.Join(render.Formats(), ", "))
	}
	if f.out == "" && render.Binary(f.format) {
		return exitf(exitCodeBadInput, "format %s is binary and needs --out", f.format)
	}
	var failOn schema.Severity
	if f.failOn != "" {
		failOn = schema.Severity(strings.ToUpper(f.failOn))
		if verdict.Ordinal(failOn) < 0 {
			return exitf(exitCodeBadInput, "invalid --fail-on %q (want PASS, WARNING or FAIL)", f.failOn)
		}
	}

	cfg, prof, err := resolveConfig(f.configFlags)
	if err != nil {
		return &exitError{code: exitCodeBadInput, err: err}
	}
	if f.timeout > 0 {
		cfg.Timeout = f.timeout
	}
	if f.narrate {
		cfg.Narrate.Enabled = true
	}
	if f.provider != "" {
		cfg.Narrate.Provider = strings.ToLower(f.provider)
	}
	if f.model != "" {
		cfg.Narrate.Model = f.model
	}
	if err := cfg.Check(); err != nil {
		return &exitError{code: exitCodeBadInput, err: err}
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return &exitError{code: exitCodeBadInput, err: err}
	}
	defer func() { _ = log.Sync() }()

	raws, err := loader.Load(f.input)
	if err != nil {
		return &exitError{code: exitCodeBadInput, err: err}
	}
	log.Debug("loaded batch", zap.String("file", f.input), zap.Int("rows", len(raws)), zap.String("profile", cfg.Profile))

	res, err := classify.New(cfg, log).Run(ctx, raws)
	if err != nil {
		return &exitError{code: exitCodeClassify, err: err}
	}

	report, err := classify.BuildReport(res, cfg, classify.Meta{
		Tool:    "simcheck",
		Version: version,
		File:    f.input,
		Profile: cfg.Profile,
	})
	if err != nil {
		return &exitError{code: exitCodeInternal, err: err}
	}

	if cfg.Narrate.Enabled {
		text, err := narrate.Summarize(ctx, report, prof, narrate.Options{
			Provider:    cfg.Narrate.Provider,
			Model:       cfg.Narrate.Model,
			MaxTokens:   cfg.Narrate.MaxTokens,
			Temperature: cfg.Narrate.Temperature,
		})
		if err != nil {
			return &exitError{code: exitCodeNarrateFail, err: err}
		}
		report.Narrative = text
	}

	if err := writeReport(report, f); err != nil {
		return &exitError{code: exitCodeInternal, err: err}
	}

	if failOn != "" && verdict.Ordinal(report.Summary.Worst) >= verdict.Ordinal(failOn) {
		return exitf(exitCodeFailOn, "worst severity %s meets --fail-on %s", report.Summary.Worst, failOn)
	}
	return nil
}

func writeReport(report *schema.Report, f classifyFlags) error {
	if f.out == "" {
		w := f.stdout
		if w == nil {
			w = os.Stdout
		}
		return render.Write(w, report, f.format)
	}
	file, err := os.Create(f.out)
	if err != nil {
		return fmt.Errorf("create %s: %w", f.out, err)
	}
	if err := render.Write(file, report, f.format); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
