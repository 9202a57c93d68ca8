package classify

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dshills/simcheck/internal/config"
	"github.com/dshills/simcheck/internal/schema"
	"github.com/dshills/simcheck/internal/stats"
	"github.com/dshills/simcheck/internal/verdict"
)

// Meta describes the invocation a report belongs to.
type Meta struct {
	Tool    string
	Version string
	File    string
	Profile string
}

// BuildReport assembles a report from a completed batch.
func BuildReport(res *Result, cfg *config.Config, meta Meta) (*schema.Report, error) {
	if res == nil {
		return nil, fmt.Errorf("classify: nil result")
	}
	featureStats, err := stats.Describe(res.Records)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	finals := res.Finals()
	pass, warning, fail := verdict.CountSeverities(finals)

	results := make([]schema.RecordResult, len(res.Records))
	for i, rec := range res.Records {
		fv := res.Verdicts[i].Final
		results[i] = schema.RecordResult{
			RunID:    rec.RunID,
			Severity: fv.Severity,
			Reasons:  fv.Reasons,
			Values: schema.RecordValues{
				MaxStressMPa:      rec.MaxStressMPa,
				MaxDisplacementMM: rec.MaxDisplacementMM,
				IterationCount:    rec.IterationCount,
				SolverStatusText:  rec.SolverStatusText,
				Attributes:        rec.Attributes,
			},
			Anomaly: res.Scores[rec.RunID],
		}
	}

	skipped := res.Skipped
	if skipped == nil {
		skipped = []schema.SkippedRecord{}
	}

	return &schema.Report{
		Tool:    meta.Tool,
		Version: meta.Version,
		BatchID: uuid.NewString(),
		Input: schema.Input{
			File:    meta.File,
			Profile: meta.Profile,
			Seed:    cfg.Anomaly.Seed,
		},
		Thresholds: cfg.Thresholds,
		Summary: schema.Summary{
			Total:      res.Total,
			Classified: len(res.Records),
			Skipped:    len(res.Skipped),
			Pass:       pass,
			Warning:    warning,
			Fail:       fail,
			Anomalies:  res.Anomalies(),
			Worst:      verdict.Worst(finals),
		},
		Stats:   featureStats,
		Results: results,
		Skipped: skipped,
	}, nil
}
