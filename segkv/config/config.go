// Package config is the typed-config-record collaborator spec.md treats as
// external ("a collaborator produces a typed config record", spec §1 Non-goals):
// it loads a YAML file (plus a handful of env var overrides) into Options, a
// plain struct the container's own Option functions translate from. No package
// under segkv/ other than this one parses configuration.
//
// Grounded on the teacher's JSON-based ConfigManager, swapped for
// gopkg.in/yaml.v3 to match the rest of the retrieved corpus's service
// configuration style.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Options mirrors spec §6's configuration surface table.
type Options struct {
	SegmentCount       int    `yaml:"segmentCount"`
	Storage            string `yaml:"storage"`
	MaxEntries         int    `yaml:"maxEntries"`
	PassivationEnabled bool   `yaml:"passivationEnabled"`
	VersionEntries     bool   `yaml:"versionEntries"`

	LogDir     string `yaml:"logDir"`
	ServiceTag string `yaml:"serviceTag"`
	StorePath  string `yaml:"storePath"`
}

// Default returns the zero-config baseline: a single unbounded, non-passivating
// segment, matching the container's own defaultConfig.
func Default() Options {
	return Options{
		SegmentCount: 1,
		Storage:      "object",
		LogDir:       "logs",
		ServiceTag:   "segkv",
	}
}

// Load reads path as YAML into Options, starting from Default() so a partial file
// only overrides what it mentions, then applies env var overrides (see
// applyEnvOverrides).
func Load(path string) (Options, error) {
	opts := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyEnvOverrides(&opts)
	return opts, nil
}

// applyEnvOverrides lets a small set of deployment knobs be set without editing
// the YAML file, the way the teacher's bot-token/env wiring did for secrets — here
// scoped to the handful of options worth overriding per-process (e.g. a
// per-instance service tag in a clustered deployment).
func applyEnvOverrides(opts *Options) {
	if v := os.Getenv("SEGKV_SEGMENT_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.SegmentCount = n
		}
	}
	if v := os.Getenv("SEGKV_MAX_ENTRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.MaxEntries = n
		}
	}
	if v := os.Getenv("SEGKV_SERVICE_TAG"); v != "" {
		opts.ServiceTag = v
	}
	if v := os.Getenv("SEGKV_LOG_DIR"); v != "" {
		opts.LogDir = v
	}
}
