package config

import (
	"os"
	"strings"
	"time"
)

// Default values for configuration.
const (
	DefaultHeartbeatLines = 20000
	DefaultSearchDebounce = 300 * time.Millisecond
	DefaultLogLevel       = "info"
)

// Environment variable names.
const (
	EnvEncodings   = "LOGLENS_ENCODINGS"
	EnvGranularity = "LOGLENS_GRANULARITY"
	EnvLogLevel    = "LOGLENS_LOG_LEVEL"
)

// SupportedEncodings lists every encoding name the loader understands.
var SupportedEncodings = []string{
	"utf-8", "utf-8-sig", "latin1", "cp1252", "iso-8859-1", "windows-1252",
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Encodings:      []string{"utf-8", "utf-8-sig", "latin1", "cp1252"},
		HeartbeatLines: DefaultHeartbeatLines,
		Archive: ArchiveConfig{
			Prefixes: []string{"app", "error"},
			Include:  []string{"**/*.log", "**/*.log.gz"},
			Skip:     []string{"__MACOSX/**", "**/._*"},
		},
		SearchDebounce: DefaultSearchDebounce,
		LogLevel:       DefaultLogLevel,
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if v := os.Getenv(EnvEncodings); v != "" {
		var encs []string
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				encs = append(encs, name)
			}
		}
		c.Encodings = encs
	}

	if v := os.Getenv(EnvGranularity); v != "" {
		c.Granularity = v
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}
