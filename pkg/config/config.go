package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/loglens/pkg/timeline"
)

// Load reads and validates a configuration file. An empty path yields the
// defaults with environment overrides applied.
func Load(_ context.Context, path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks a configuration for errors, fills zero values with
// defaults and parses the granularity and log level.
func Validate(cfg *Config) error {
	if err := validateEncodings(cfg); err != nil {
		return fmt.Errorf("encodings: %w", err)
	}

	if cfg.HeartbeatLines < 0 {
		return fmt.Errorf("heartbeat_lines: must be >= 0, got %d", cfg.HeartbeatLines)
	}
	if cfg.HeartbeatLines == 0 {
		cfg.HeartbeatLines = DefaultHeartbeatLines
	}

	if err := validateArchive(&cfg.Archive); err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	cfg.granularity = ""
	if cfg.Granularity != "" {
		g, err := timeline.ParseGranularity(cfg.Granularity)
		if err != nil {
			return fmt.Errorf("granularity: %w", err)
		}
		cfg.granularity = g
	}

	if cfg.SearchDebounce < 0 {
		return fmt.Errorf("search_debounce: must be >= 0, got %s", cfg.SearchDebounce)
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	cfg.level = level

	return nil
}

func validateEncodings(cfg *Config) error {
	if len(cfg.Encodings) == 0 {
		return errors.New("at least one encoding is required")
	}

	for i, name := range cfg.Encodings {
		norm := strings.ToLower(strings.TrimSpace(name))
		if !slices.Contains(SupportedEncodings, norm) {
			return fmt.Errorf("unsupported encoding %q (must be one of %s)",
				name, strings.Join(SupportedEncodings, ", "))
		}
		cfg.Encodings[i] = norm
	}

	return nil
}

func validateArchive(ac *ArchiveConfig) error {
	if len(ac.Include) == 0 {
		return errors.New("include: at least one pattern is required")
	}

	for _, p := range ac.Include {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("include: invalid pattern %q", p)
		}
	}

	for _, p := range ac.Skip {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("skip: invalid pattern %q", p)
		}
	}

	for _, p := range ac.Prefixes {
		if strings.Contains(p, "/") {
			return fmt.Errorf("prefixes: %q must be a basename prefix", p)
		}
	}

	return nil
}
