package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides, e.g.
// SIMCHECK_THRESHOLDS_YIELD_STRENGTH_MPA.
const EnvPrefix = "SIMCHECK"

// Load builds a Config from defaults, an optional YAML file at path and the
// environment. defaults may be nil, in which case DefaultConfig is used. A
// missing file is not an error; a malformed one is. The result is not
// validated; call Check.
func Load(path string, defaults *Config) (*Config, error) {
	if defaults == nil {
		defaults = DefaultConfig()
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, defaults)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("profile", d.Profile)
	v.SetDefault("timeout", d.Timeout)

	v.SetDefault("thresholds.yield_strength_mpa", d.Thresholds.YieldStrengthMPa)
	v.SetDefault("thresholds.max_displacement_mm", d.Thresholds.MaxDisplacementMM)
	v.SetDefault("thresholds.max_iterations", d.Thresholds.MaxIterations)
	v.SetDefault("thresholds.anomaly_contamination", d.Thresholds.AnomalyContamination)

	v.SetDefault("rules.non_convergence_phrases", d.Rules.NonConvergencePhrases)

	v.SetDefault("anomaly.trees", d.Anomaly.Trees)
	v.SetDefault("anomaly.max_samples", d.Anomaly.MaxSamples)
	v.SetDefault("anomaly.seed", d.Anomaly.Seed)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)

	v.SetDefault("narrate.enabled", d.Narrate.Enabled)
	v.SetDefault("narrate.provider", d.Narrate.Provider)
	v.SetDefault("narrate.model", d.Narrate.Model)
	v.SetDefault("narrate.max_tokens", d.Narrate.MaxTokens)
	v.SetDefault("narrate.temperature", d.Narrate.Temperature)
}
