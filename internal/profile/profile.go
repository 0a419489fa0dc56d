// Package profile implements the dev/prod/benchmark launch profiles
// spec.md's domain-stack table calls out: per-profile timeout multipliers,
// download concurrency, and whether a GC pass runs opportunistically after
// install.
package profile

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Name is one of the three built-in profiles.
type Name string

const (
	Dev       Name = "dev"
	Prod      Name = "prod"
	Benchmark Name = "benchmark"
)

// ParseName accepts the long forms the original profiles.rs takes
// ("development", "production", "bench") alongside the canonical names.
func ParseName(s string) (Name, error) {
	switch strings.ToLower(s) {
	case "dev", "development":
		return Dev, nil
	case "prod", "production":
		return Prod, nil
	case "bench", "benchmark":
		return Benchmark, nil
	default:
		return "", fmt.Errorf("invalid profile %q: valid options are dev, prod, benchmark", s)
	}
}

// Config is a profile's effect on the rest of the toolchain.
type Config struct {
	Name Name `yaml:"name"`

	// TimeoutMultiplier is the profile's factor for the index/resolver/
	// download deadlines spec.md §5 pins as defaults. It is loaded but no
	// component in this module reads it; deadlines stay at their defaults.
	TimeoutMultiplier float64 `yaml:"timeout_multiplier"`

	// DownloadConcurrency is the profile's download fan-out cap. It is
	// loaded but not passed to the downloader, which keeps
	// download.DefaultConcurrency.
	DownloadConcurrency int `yaml:"download_concurrency"`

	// GCAfterInstall runs a best-effort, dry-run-free cache.Collect pass
	// after a successful install, opportunistically keeping the cache
	// under its budget without a separate `gc` invocation.
	GCAfterInstall bool `yaml:"gc_after_install"`

	// LogLevel is the profile's log level name ("info", "warn"). The module
	// has no logger, and nothing reads this field.
	LogLevel string `yaml:"log_level"`

	// EnvVars are extra environment variables for this profile. The runner
	// does not add them to the child process environment; nothing reads
	// this field.
	EnvVars map[string]string `yaml:"env_vars,omitempty"`
}

// Defaults returns the built-in configuration for name, mirroring the
// original's ProfileConfig::dev/prod/benchmark presets.
func Defaults(name Name) Config {
	switch name {
	case Prod:
		return Config{Name: Prod, TimeoutMultiplier: 1.0, DownloadConcurrency: 10, GCAfterInstall: true, LogLevel: "warn"}
	case Benchmark:
		return Config{Name: Benchmark, TimeoutMultiplier: 2.0, DownloadConcurrency: 16, GCAfterInstall: false, LogLevel: "warn"}
	default:
		return Config{Name: Dev, TimeoutMultiplier: 1.0, DownloadConcurrency: 4, GCAfterInstall: false, LogLevel: "info"}
	}
}

// Load reads a YAML override file at path and merges it onto name's
// defaults: any zero-valued field in the file is left at the default
// (yaml.v3's Unmarshal into an already-populated struct does exactly this
// for the fields present in the document).
//
// A missing file is not an error — it just means "use the built-in
// defaults for name", the common case for any profile but a team that
// has opted into an override.
func Load(path string, name Name) (Config, error) {
	cfg := Defaults(name)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read profile override %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse profile override %s: %w", path, err)
	}
	return cfg, nil
}

// DetectName resolves the active profile from PYBUN_PROFILE, defaulting to
// dev when unset or invalid, matching the original's detect_profile.
func DetectName() Name {
	if raw := os.Getenv("PYBUN_PROFILE"); raw != "" {
		if name, err := ParseName(raw); err == nil {
			return name
		}
	}
	return Dev
}
