package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/simcheck/internal/config"
	"github.com/dshills/simcheck/internal/profile"
)

var version = "0.1.0"

// Exit codes.
const (
	exitCodeInternal    = 1
	exitCodeFailOn      = 2
	exitCodeBadInput    = 3
	exitCodeClassify    = 4
	exitCodeNarrateFail = 5
)

// exitError carries a process exit code alongside the underlying error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitf(code int, format string, args ...any) error {
	return &exitError{code: code, err: fmt.Errorf(format, args...)}
}

func main() {
	// API keys for narration may live in a local .env file.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "simcheck: .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "simcheck",
		Short:         "Classify simulation runs as PASS, WARNING or FAIL",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newClassifyCmd(), newProfilesCmd(), newConfigCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "simcheck: %v\n", err)
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(exitCodeInternal)
	}
}

// configFlags select and override the effective configuration.
type configFlags struct {
	configFile    string
	profileName   string
	contamination float64
	seed          int64
	seedSet       bool
	logLevel      string
}

func (f *configFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.configFile, "config", "", "YAML config file")
	fs.StringVar(&f.profileName, "profile", "", "threshold profile (default from config, else general)")
	fs.Float64Var(&f.contamination, "contamination", 0, "expected anomaly fraction in (0, 0.5]")
	fs.Int64Var(&f.seed, "seed", 0, "anomaly model random seed")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
}

// resolveConfig builds the effective configuration: the profile's
// thresholds, then the config file and environment, then flags.
func resolveConfig(f configFlags) (*config.Config, profile.Profile, error) {
	base, err := config.Load(f.configFile, nil)
	if err != nil {
		return nil, profile.Profile{}, err
	}
	name := f.profileName
	if name == "" {
		name = base.Profile
	}
	prof, err := profile.Load(name)
	if err != nil {
		return nil, profile.Profile{}, err
	}

	cfg, err := config.Load(f.configFile, prof.Apply(config.DefaultConfig()))
	if err != nil {
		return nil, profile.Profile{}, err
	}
	cfg.Profile = prof.Name
	if f.contamination != 0 {
		cfg.Thresholds.AnomalyContamination = f.contamination
	}
	if f.seedSet {
		cfg.Anomaly.Seed = f.seed
	}
	if f.logLevel != "" {
		cfg.Logging.Level = strings.ToLower(f.logLevel)
	}
	return cfg, prof, nil
}

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List built-in threshold profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listProfiles(cmd.OutOrStdout())
		},
	}
}

func listProfiles(w io.Writer) error {
	for _, name := range profile.Names() {
		p, err := profile.Load(name)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%-12s %s\n", p.Name, p.Description); err != nil {
			return err
		}
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	var f configFlags
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f.seedSet = cmd.Flags().Changed("seed")
			return printConfig(cmd.OutOrStdout(), f)
		},
	}
	f.register(cmd)
	return cmd
}

func printConfig(w io.Writer, f configFlags) error {
	cfg, _, err := resolveConfig(f)
	if err != nil {
		return &exitError{code: exitCodeBadInput, err: err}
	}
	if err := cfg.Check(); err != nil {
		return &exitError{code: exitCodeBadInput, err: err}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
