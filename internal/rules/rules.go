// Package rules applies the deterministic engineering and solver-health
// checks to a normalized record. No statistics are involved here.
package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/simcheck/internal/config"
	"github.com/dshills/simcheck/internal/schema"
	"github.com/dshills/simcheck/internal/verdict"
)

// Rule IDs, in evaluation order.
const (
	RuleMissingData    = "missing-data"
	RuleYieldStrength  = "yield-strength"
	RuleDisplacement   = "displacement-limit"
	RuleIterations     = "iteration-limit"
	RuleNonConvergence = "non-convergence"
)

// MissingDataReason is reported for records with undefined numeric fields.
const MissingDataReason = "missing or non-numeric required data"

// Rule is one threshold check. Match returns the reason text when the rule
// fires. A Terminal rule stops evaluation of the rules after it.
type Rule struct {
	ID       string
	Severity schema.Severity
	Terminal bool
	Match    func(rec schema.NormalizedRecord) (reason string, ok bool)
}

// Evaluator applies an ordered rule list. It is immutable and safe for
// concurrent use.
type Evaluator struct {
	rules []Rule
}

// New builds the standard rule list for thresholds t. phrases are the
// non-convergence fragments matched against the solver status text; nil
// means config.DefaultNonConvergencePhrases.
//
// Rules (in order of evaluation):
//  1. Any undefined numeric field → FAIL, stop
//  2. Stress above yield → FAIL, whatever the status text says
//  3. Displacement above limit → FAIL
//  4. Iterations above limit → WARNING
//  5. Status text reports non-convergence → FAIL
//  6. Otherwise → PASS
func New(t config.Thresholds, phrases []string) *Evaluator {
	if phrases == nil {
		phrases = config.DefaultNonConvergencePhrases
	}
	lowered := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lowered = append(lowered, p)
		}
	}

	return &Evaluator{rules: []Rule{
		{
			ID:       RuleMissingData,
			Severity: schema.SeverityFail,
			Terminal: true,
			Match: func(rec schema.NormalizedRecord) (string, bool) {
				return MissingDataReason, rec.HasMissingData
			},
		},
		{
			ID:       RuleYieldStrength,
			Severity: schema.SeverityFail,
			Match: func(rec schema.NormalizedRecord) (string, bool) {
				if rec.MaxStressMPa == nil || !(*rec.MaxStressMPa > t.YieldStrengthMPa) {
					return "", false
				}
				return fmt.Sprintf("stress exceeds yield strength (%s > %s MPa)",
					formatNumber(*rec.MaxStressMPa), formatNumber(t.YieldStrengthMPa)), true
			},
		},
		{
			ID:       RuleDisplacement,
			Severity: schema.SeverityFail,
			Match: func(rec schema.NormalizedRecord) (string, bool) {
				if rec.MaxDisplacementMM == nil || !(*rec.MaxDisplacementMM > t.MaxDisplacementMM) {
					return "", false
				}
				return fmt.Sprintf("displacement exceeds safe limit (%s > %s mm)",
					formatNumber(*rec.MaxDisplacementMM), formatNumber(t.MaxDisplacementMM)), true
			},
		},
		{
			ID:       RuleIterations,
			Severity: schema.SeverityWarning,
			Match: func(rec schema.NormalizedRecord) (string, bool) {
				if rec.IterationCount == nil || *rec.IterationCount <= t.MaxIterations {
					return "", false
				}
				return fmt.Sprintf("solver required excessive iterations (%d > %d)",
					*rec.IterationCount, t.MaxIterations), true
			},
		},
		{
			ID:       RuleNonConvergence,
			Severity: schema.SeverityFail,
			Match: func(rec schema.NormalizedRecord) (string, bool) {
				status := strings.ToLower(rec.SolverStatusText)
				for _, p := range lowered {
					if strings.Contains(status, p) {
						return fmt.Sprintf("solver reported non-convergence: '%s'", rec.SolverStatusText), true
					}
				}
				return "", false
			},
		},
	}}
}

// Rules returns the rule IDs in evaluation order.
func (e *Evaluator) Rules() []string {
	ids := make([]string, len(e.rules))
	for i, r := range e.rules {
		ids[i] = r.ID
	}
	return ids
}

// Evaluate runs every rule against rec. The severity is the highest among
// the rules that fired; the reasons are all of theirs, in rule order.
func (e *Evaluator) Evaluate(rec schema.NormalizedRecord) schema.RuleVerdict {
	rv := schema.RuleVerdict{Severity: schema.SeverityPass, Reasons: []string{}}
	for _, r := range e.rules {
		reason, ok := r.Match(rec)
		if !ok {
			continue
		}
		rv.Severity = verdict.Max(rv.Severity, r.Severity)
		rv.Reasons = append(rv.Reasons, reason)
		if r.Terminal {
			break
		}
	}
	return rv
}

// formatNumber renders v in its shortest exact form: 890, 2.5, 12.75.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
