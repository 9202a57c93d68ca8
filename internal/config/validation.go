package config

import (
	"fmt"
	"math"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validate validates the thresholds and returns validation errors.
func (t Thresholds) Validate() []error {
	var errs []error

	if !(t.YieldStrengthMPa > 0) || math.IsInf(t.YieldStrengthMPa, 0) {
		errs = append(errs, &ValidationError{
			Field:   "thresholds.yield_strength_mpa",
			Message: fmt.Sprintf("must be a positive finite number, got %v", t.YieldStrengthMPa),
		})
	}
	if !(t.MaxDisplacementMM > 0) || math.IsInf(t.MaxDisplacementMM, 0) {
		errs = append(errs, &ValidationError{
			Field:   "thresholds.max_displacement_mm",
			Message: fmt.Sprintf("must be a positive finite number, got %v", t.MaxDisplacementMM),
		})
	}
	if t.MaxIterations < 0 {
		errs = append(errs, &ValidationError{
			Field:   "thresholds.max_iterations",
			Message: fmt.Sprintf("must not be negative, got %d", t.MaxIterations),
		})
	}
	// Same bounds as the isolation forest's contamination parameter.
	if !(t.AnomalyContamination > 0 && t.AnomalyContamination <= 0.5) {
		errs = append(errs, &ValidationError{
			Field:   "thresholds.anomaly_contamination",
			Message: fmt.Sprintf("must be in (0, 0.5], got %v", t.AnomalyContamination),
		})
	}

	return errs
}

// Validate validates the configuration and returns validation errors.
func (c *Config) Validate() []error {
	errs := c.Thresholds.Validate()

	if c.Timeout < 0 {
		errs = append(errs, &ValidationError{
			Field:   "timeout",
			Message: fmt.Sprintf("must not be negative, got %s", c.Timeout),
		})
	}

	for i, p := range c.Rules.NonConvergencePhrases {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, &ValidationError{
				Field:   fmt.Sprintf("rules.non_convergence_phrases[%d]", i),
				Message: "phrase must not be blank",
			})
		}
	}

	if c.Anomaly.Trees < 1 {
		errs = append(errs, &ValidationError{
			Field:   "anomaly.trees",
			Message: fmt.Sprintf("must be at least 1, got %d", c.Anomaly.Trees),
		})
	}
	if c.Anomaly.MaxSamples < 1 {
		errs = append(errs, &ValidationError{
			Field:   "anomaly.max_samples",
			Message: fmt.Sprintf("must be at least 1, got %d", c.Anomaly.MaxSamples),
		})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("must be one of debug, info, warn, error, got %q", c.Logging.Level),
		})
	}
	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, &ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("must be console or json, got %q", c.Logging.Format),
		})
	}

	validProviders := map[string]bool{"anthropic": true, "openai": true, "google": true}
	if !validProviders[strings.ToLower(c.Narrate.Provider)] {
		errs = append(errs, &ValidationError{
			Field:   "narrate.provider",
			Message: fmt.Sprintf("must be anthropic, openai or google, got %q", c.Narrate.Provider),
		})
	}
	if c.Narrate.Enabled && c.Narrate.MaxTokens < 1 {
		errs = append(errs, &ValidationError{
			Field:   "narrate.max_tokens",
			Message: fmt.Sprintf("must be at least 1 when narration is enabled, got %d", c.Narrate.MaxTokens),
		})
	}

	return errs
}

// Check combines the results of Validate into a single error, or nil.
func (c *Config) Check() error {
	errs := c.Validate()
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
