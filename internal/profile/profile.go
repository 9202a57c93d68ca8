// Package profile defines named threshold presets. Each profile also carries
// a NarrationAddendum that is appended to the system prompt when an
// engineering narrative is requested.
package profile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/simcheck/internal/config"
)

// Profile describes a review strategy for a batch of simulation runs.
type Profile struct {
	Name              string
	Description       string
	Thresholds        config.Thresholds
	NarrationAddendum string
}

// builtins is the registry of built-in profiles keyed by name.
var builtins = map[string]Profile{
	"general": {
		Name:        "general",
		Description: "Default structural limits: 450 MPa yield, 2.5 mm displacement, 40 iterations.",
		Thresholds:  config.DefaultThresholds(),
		NarrationAddendum: "Review the batch as a routine quality gate. Call out runs that " +
			"report convergence but violate physical limits, and runs with missing data " +
			"that cannot be validated.",
	},
	"strict": {
		Name:        "strict",
		Description: "Sign-off review with tighter limits: 400 MPa, 2.0 mm, 30 iterations.",
		Thresholds: config.Thresholds{
			YieldStrengthMPa:     400,
			MaxDisplacementMM:    2.0,
			MaxIterations:        30,
			AnomalyContamination: 0.25,
		},
		NarrationAddendum: "This batch is under sign-off review. Treat every WARNING as a " +
			"blocker that needs an owner, and recommend a re-run or mesh study for each FAIL.",
	},
	"exploratory": {
		Name:        "exploratory",
		Description: "Design sweeps: default limits, anomaly contamination lowered to 0.10.",
		Thresholds: config.Thresholds{
			YieldStrengthMPa:     450,
			MaxDisplacementMM:    2.5,
			MaxIterations:        40,
			AnomalyContamination: 0.10,
		},
		NarrationAddendum: "This batch is an exploratory design sweep. Statistical outliers " +
			"may be intentional design points; distinguish them from likely solver errors.",
	},
}

// Names returns the built-in profile names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load returns the named built-in profile or an error if the name is unknown.
func Load(name string) (Profile, error) {
	p, ok := builtins[name]
	if !ok {
		return Profile{}, fmt.Errorf("profile: unknown profile %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return p, nil
}

// Apply returns a copy of base with the profile's name and thresholds.
func (p Profile) Apply(base *config.Config) *config.Config {
	cfg := base.Clone()
	cfg.Profile = p.Name
	cfg.Thresholds = p.Thresholds
	return cfg
}
