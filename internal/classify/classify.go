// Package classify runs the classification pipeline over one batch:
// normalize, evaluate rules, fit and score the anomaly model, merge.
// No verdict is released until every record in the batch has one.
package classify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/simcheck/internal/anomaly"
	"github.com/dshills/simcheck/internal/config"
	"github.com/dshills/simcheck/internal/logging"
	"github.com/dshills/simcheck/internal/normalize"
	"github.com/dshills/simcheck/internal/rules"
	"github.com/dshills/simcheck/internal/schema"
	"github.com/dshills/simcheck/internal/verdict"
)

// Verdict pairs a record with its final classification.
type Verdict struct {
	RunID string
	Final schema.FinalVerdict
}

// Result is the outcome of classifying one batch. Records, Verdicts and
// the input order agree index for index.
type Result struct {
	Total    int
	Records  []schema.NormalizedRecord
	Verdicts []Verdict
	Skipped  []schema.SkippedRecord
	Scores   map[string]schema.AnomalyScore
	Model    *anomaly.Model
}

// Finals returns the final verdicts in input order.
func (r *Result) Finals() []schema.FinalVerdict {
	out := make([]schema.FinalVerdict, len(r.Verdicts))
	for i, v := range r.Verdicts {
		out[i] = v.Final
	}
	return out
}

// Anomalies returns how many records the model flagged.
func (r *Result) Anomalies() int {
	n := 0
	for _, s := range r.Scores {
		if s.Anomalous {
			n++
		}
	}
	return n
}

// Classifier holds the read-only configuration for a batch run.
type Classifier struct {
	cfg       *config.Config
	log       *zap.Logger
	evaluator *rules.Evaluator
	detector  *anomaly.Detector
}

// New returns a Classifier for cfg. A nil logger discards output.
func New(cfg *config.Config, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Classifier{
		cfg:       cfg,
		log:       logger,
		evaluator: rules.New(cfg.Thresholds, cfg.Rules.NonConvergencePhrases),
		detector:  anomaly.New(anomaly.OptionsFrom(cfg)),
	}
}

// Run classifies raws. When the configuration sets a timeout it bounds the
// whole batch. Any error aborts the run and no partial result is returned.
func (c *Classifier) Run(ctx context.Context, raws []schema.RawRecord) (*Result, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	records, skipped := normalize.NormalizeBatch(raws)
	for _, s := range skipped {
		c.log.Warn("skipped record",
			zap.Int("row", s.Row),
			zap.String("run_id", s.RunID),
			zap.String("reason", s.Reason))
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	c.log.Debug("evaluating rules", zap.Strings("rules", c.evaluator.Rules()))
	ruleVerdicts := make([]schema.RuleVerdict, len(records))
	for i, rec := range records {
		ruleVerdicts[i] = c.evaluator.Evaluate(rec)
	}

	scores, model, err := c.detector.FitAndScore(ctx, records)
	if err != nil {
		if errors.Is(err, anomaly.ErrNoBaseline) {
			return nil, fmt.Errorf("classify: %d records, none complete: %w", len(records), err)
		}
		return nil, fmt.Errorf("classify: %w", err)
	}
	c.log.Debug("fitted anomaly model",
		zap.Int("trees", model.Size()),
		zap.Int("sample_size", model.SampleSize()),
		zap.Float64("threshold", model.Threshold()))

	res := &Result{
		Total:    len(raws),
		Records:  records,
		Verdicts: make([]Verdict, len(records)),
		Skipped:  skipped,
		Scores:   scores,
		Model:    model,
	}
	for i, rec := range records {
		fv := verdict.Merge(ruleVerdicts[i], scores[rec.RunID])
		res.Verdicts[i] = Verdict{RunID: rec.RunID, Final: fv}
		c.log.Debug("classified",
			zap.String("run_id", rec.RunID),
			zap.String("severity", string(fv.Severity)),
			zap.Strings("reasons", fv.Reasons))
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	pass, warning, fail := verdict.CountSeverities(res.Finals())
	c.log.Info("batch classified",
		zap.Int("records", len(raws)),
		zap.Int("classified", len(records)),
		zap.Int("skipped", len(skipped)),
		zap.Int("anomalies", res.Anomalies()),
		zap.Int("pass", pass),
		zap.Int("warning", warning),
		zap.Int("fail", fail))
	return res, nil
}
