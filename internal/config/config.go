// Package config holds the process-wide simcheck configuration: the
// engineering thresholds, anomaly model parameters, logging and narration
// settings.
//
// Sources, lowest priority first:
//  1. Built-in defaults (DefaultConfig, or a profile's thresholds)
//  2. YAML config file (--config)
//  3. Environment variables (SIMCHECK_* prefix, "." replaced by "_")
//  4. CLI flags, applied by the caller after Load
//
// A Config is read-only once validated; components receive copies.
package config

import (
	"time"
)

// Thresholds are the engineering and solver-health limits every record is
// checked against.
type Thresholds struct {
	YieldStrengthMPa     float64 `mapstructure:"yield_strength_mpa" json:"yield_strength_mpa" yaml:"yield_strength_mpa"`
	MaxDisplacementMM    float64 `mapstructure:"max_displacement_mm" json:"max_displacement_mm" yaml:"max_displacement_mm"`
	MaxIterations        int     `mapstructure:"max_iterations" json:"max_iterations" yaml:"max_iterations"`
	AnomalyContamination float64 `mapstructure:"anomaly_contamination" json:"anomaly_contamination" yaml:"anomaly_contamination"`
}

// Rules configures the text checks of the rule evaluator.
type Rules struct {
	// NonConvergencePhrases are matched case-insensitively against the
	// solver status text.
	NonConvergencePhrases []string `mapstructure:"non_convergence_phrases" yaml:"non_convergence_phrases"`
}

// Anomaly configures the isolation forest.
type Anomaly struct {
	Trees      int   `mapstructure:"trees" yaml:"trees"`
	MaxSamples int   `mapstructure:"max_samples" yaml:"max_samples"`
	Seed       int64 `mapstructure:"seed" yaml:"seed"`
}

// Logging configures the zap logger.
type Logging struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// Narrate configures the optional LLM-written engineering summary.
type Narrate struct {
	Enabled     bool    `mapstructure:"enabled" yaml:"enabled"`
	Provider    string  `mapstructure:"provider" yaml:"provider"`
	Model       string  `mapstructure:"model" yaml:"model"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
}

// Config contains all configuration fields.
type Config struct {
	Profile    string        `mapstructure:"profile" yaml:"profile"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Thresholds Thresholds    `mapstructure:"thresholds" yaml:"thresholds"`
	Rules      Rules         `mapstructure:"rules" yaml:"rules"`
	Anomaly    Anomaly       `mapstructure:"anomaly" yaml:"anomaly"`
	Logging    Logging       `mapstructure:"logging" yaml:"logging"`
	Narrate    Narrate       `mapstructure:"narrate" yaml:"narrate"`
}

// DefaultNonConvergencePhrases are the status-text fragments that mark a
// run as not converged.
var DefaultNonConvergencePhrases = []string{
	"did not converge",
	"not converged",
	"non-convergence",
	"diverged",
	"divergence",
	"failed",
}

// DefaultThresholds returns the standard structural limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		YieldStrengthMPa:     450,
		MaxDisplacementMM:    2.5,
		MaxIterations:        40,
		AnomalyContamination: 0.25,
	}
}

// DefaultConfig returns a configuration with all default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Profile = "general"
	cfg.Timeout = 0 // no budget
	cfg.Thresholds = DefaultThresholds()

	cfg.Rules.NonConvergencePhrases = append([]string(nil), DefaultNonConvergencePhrases...)

	cfg.Anomaly.Trees = 100
	cfg.Anomaly.MaxSamples = 256
	cfg.Anomaly.Seed = 42

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "console"
	cfg.Logging.MaxSizeMB = 10
	cfg.Logging.MaxBackups = 3

	cfg.Narrate.Enabled = false
	cfg.Narrate.Provider = "anthropic"
	cfg.Narrate.Model = "claude-sonnet-4-5"
	cfg.Narrate.MaxTokens = 1024
	cfg.Narrate.Temperature = 0.2

	return cfg
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Rules.NonConvergencePhrases = append([]string(nil), c.Rules.NonConvergencePhrases...)
	return &out
}
