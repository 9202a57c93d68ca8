// Package anomaly scores simulation runs against the rest of their batch
// with an isolation forest. A record's score only has meaning relative to
// the batch it was fitted with.
package anomaly

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/dshills/simcheck/internal/config"
	"github.com/dshills/simcheck/internal/schema"
)

// ErrNoBaseline is returned when a batch holds no record with every numeric
// field defined, so there is nothing to fit.
var ErrNoBaseline = errors.New("anomaly: no complete records to fit a baseline")

// ErrFeatureCount is returned when a vector's width differs from the
// width the model was fitted with.
var ErrFeatureCount = errors.New("anomaly: feature count mismatch")

// NeutralScore is assigned to records that are not scored.
const NeutralScore = 0.0

// Options configures the isolation forest.
type Options struct {
	// Contamination is the expected fraction of anomalous records; it sets
	// the flagging threshold. Must be in (0, 0.5].
	Contamination float64
	// Trees is the number of isolation trees.
	Trees int
	// MaxSamples caps the per-tree subsample size.
	MaxSamples int
	// Seed makes fitting reproducible.
	Seed int64
}

// DefaultOptions returns the default forest parameters.
func DefaultOptions() Options {
	return Options{
		Contamination: 0.25,
		Trees:         100,
		MaxSamples:    256,
		Seed:          42,
	}
}

// OptionsFrom extracts forest options from cfg. Contamination, Trees and
// MaxSamples left at zero keep their defaults; a nil cfg yields
// DefaultOptions. The seed is always taken from cfg since zero is a valid
// seed.
func OptionsFrom(cfg *config.Config) Options {
	opts := DefaultOptions()
	if cfg == nil {
		return opts
	}
	if cfg.Thresholds.AnomalyContamination != 0 {
		opts.Contamination = cfg.Thresholds.AnomalyContamination
	}
	if cfg.Anomaly.Trees != 0 {
		opts.Trees = cfg.Anomaly.Trees
	}
	if cfg.Anomaly.MaxSamples != 0 {
		opts.MaxSamples = cfg.Anomaly.MaxSamples
	}
	opts.Seed = cfg.Anomaly.Seed
	return opts
}

// Detector fits a fresh model per batch. It holds no state between calls.
type Detector struct {
	opts Options
}

// New returns a Detector. Invalid options are rejected by FitAndScore.
func New(opts Options) *Detector {
	return &Detector{opts: opts}
}

func (d *Detector) validate() error {
	if !(d.opts.Contamination > 0 && d.opts.Contamination <= 0.5) {
		return fmt.Errorf("anomaly: contamination must be in (0, 0.5], got %v", d.opts.Contamination)
	}
	if d.opts.Trees < 1 {
		return fmt.Errorf("anomaly: trees must be at least 1, got %d", d.opts.Trees)
	}
	if d.opts.MaxSamples < 1 {
		return fmt.Errorf("anomaly: max samples must be at least 1, got %d", d.opts.MaxSamples)
	}
	return nil
}

// Fit grows a model over the feature rows X (one row per record, columns
// as in schema.FeatureNames). The returned model's threshold is calibrated
// on X with the configured contamination.
func (d *Detector) Fit(ctx context.Context, X [][]float64) (*Model, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	if len(X) == 0 {
		return nil, ErrNoBaseline
	}
	cols := len(X[0])
	data := make([]float64, 0, len(X)*cols)
	for i, row := range X {
		if len(row) != cols {
			return nil, fmt.Errorf("anomaly: row %d has %d features, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}

	m, err := fit(ctx, mat.NewDense(len(X), cols, data), d.opts)
	if err != nil {
		return nil, fmt.Errorf("anomaly: fit: %w", err)
	}

	scores := make([]float64, len(X))
	for i, row := range X {
		scores[i] = m.score(row)
	}
	m.threshold = percentile(scores, 100*d.opts.Contamination)
	return m, nil
}

// FitAndScore fits a model over the complete records of a batch and scores
// each of them. Records with missing data are neither fitted nor scored;
// they get an unflagged neutral score. The result is keyed by RunID and
// covers every input record.
//
// Identical input and options always yield identical scores and flags.
// Very small batches may flag ordinary records, because the contamination
// fraction always selects its share of the batch.
func (d *Detector) FitAndScore(ctx context.Context, records []schema.NormalizedRecord) (map[string]schema.AnomalyScore, *Model, error) {
	out := make(map[string]schema.AnomalyScore, len(records))
	var (
		X   [][]float64
		ids []string
	)
	for _, rec := range records {
		features, ok := rec.Features()
		if rec.HasMissingData || !ok {
			out[rec.RunID] = schema.AnomalyScore{Score: NeutralScore}
			continue
		}
		X = append(X, features)
		ids = append(ids, rec.RunID)
	}
	if len(X) == 0 {
		return nil, nil, ErrNoBaseline
	}

	m, err := d.Fit(ctx, X)
	if err != nil {
		return nil, nil, err
	}
	for i, row := range X {
		s := m.score(row)
		out[ids[i]] = schema.AnomalyScore{Scored: true, Anomalous: m.IsAnomalous(s), Score: s}
	}
	return out, m, nil
}

// percentile returns the p-th percentile of values using linear
// interpolation between closest ranks.
func percentile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
