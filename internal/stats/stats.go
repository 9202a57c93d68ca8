// Package stats computes descriptive statistics of the numeric features of
// a batch, over the records where each feature is defined.
package stats

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/dshills/simcheck/internal/schema"
)

// Describe returns one FeatureStats per entry of schema.FeatureNames.
// Undefined values are ignored; a feature with no values has Count 0 and
// zero statistics.
func Describe(records []schema.NormalizedRecord) ([]schema.FeatureStats, error) {
	columns := make([][]float64, len(schema.FeatureNames))
	for _, rec := range records {
		if rec.MaxStressMPa != nil {
			columns[0] = append(columns[0], *rec.MaxStressMPa)
		}
		if rec.MaxDisplacementMM != nil {
			columns[1] = append(columns[1], *rec.MaxDisplacementMM)
		}
		if rec.IterationCount != nil {
			columns[2] = append(columns[2], float64(*rec.IterationCount))
		}
	}

	out := make([]schema.FeatureStats, len(schema.FeatureNames))
	for i, name := range schema.FeatureNames {
		fs, err := describe(name, columns[i])
		if err != nil {
			return nil, fmt.Errorf("stats: %s: %w", name, err)
		}
		out[i] = fs
	}
	return out, nil
}

func describe(name string, data stats.Float64Data) (schema.FeatureStats, error) {
	fs := schema.FeatureStats{Feature: name, Count: len(data)}
	if len(data) == 0 {
		return fs, nil
	}

	var err error
	if fs.Mean, err = stats.Mean(data); err != nil {
		return fs, err
	}
	// The sample deviation is undefined for a single value.
	if len(data) > 1 {
		if fs.StdDev, err = stats.StandardDeviationSample(data); err != nil {
			return fs, err
		}
	}
	if fs.Min, err = stats.Min(data); err != nil {
		return fs, err
	}
	if fs.Max, err = stats.Max(data); err != nil {
		return fs, err
	}
	if fs.Median, err = stats.Median(data); err != nil {
		return fs, err
	}
	if fs.Q25, err = stats.PercentileNearestRank(data, 25); err != nil {
		return fs, err
	}
	if fs.Q75, err = stats.PercentileNearestRank(data, 75); err != nil {
		return fs, err
	}
	return fs, nil
}
