// Package config provides configuration loading and validation for LogLens.
package config

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ccollicutt/loglens/pkg/timeline"
)

// Config is the root configuration structure loaded from YAML.
// Every field is optional; DefaultConfig supplies the values used when a
// field is absent.
type Config struct {
	// Encodings is the ordered list of candidate text encodings tried on
	// the first line of each source.
	Encodings []string `yaml:"encodings"`

	// HeartbeatLines is how often, in lines, a single-file load reports
	// progress. Zero selects the default.
	HeartbeatLines int `yaml:"heartbeat_lines"`

	// Archive controls which zip members are loaded when no explicit
	// member list is given.
	Archive ArchiveConfig `yaml:"archive"`

	// Granularity forces the initial timeline bucket width (minute, hour,
	// day). Empty picks one from the source type.
	Granularity string `yaml:"granularity,omitempty"`

	// SearchDebounce delays interactive search until typing pauses.
	SearchDebounce time.Duration `yaml:"search_debounce"`

	// LogLevel is the diagnostic log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// populated during validation
	granularity timeline.Granularity
	level       zerolog.Level
}

// ArchiveConfig selects archive members.
type ArchiveConfig struct {
	// Prefixes are the accepted basename prefixes for the default selection.
	Prefixes []string `yaml:"prefixes"`

	// Include holds doublestar patterns a member name must match.
	Include []string `yaml:"include"`

	// Skip holds doublestar patterns for members that are never loaded.
	Skip []string `yaml:"skip"`
}

// GranularityOverride returns the configured granularity and whether one
// was set.
func (c *Config) GranularityOverride() (timeline.Granularity, bool) {
	return c.granularity, c.granularity != ""
}

// Level returns the parsed diagnostic log level.
func (c *Config) Level() zerolog.Level {
	return c.level
}
