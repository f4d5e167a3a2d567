package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccollicutt/loglens/pkg/timeline"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
encodings: [utf-8, Latin1]
heartbeat_lines: 500
archive:
  prefixes: [app]
granularity: minute
search_debounce: 150ms
log_level: debug
`
	path := writeTempFile(t, "config.yaml", content)
	cfg, err := Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"utf-8", "latin1"}, cfg.Encodings)
	assert.Equal(t, 500, cfg.HeartbeatLines)
	assert.Equal(t, []string{"app"}, cfg.Archive.Prefixes)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, []string{"**/*.log", "**/*.log.gz"}, cfg.Archive.Include)
	assert.Equal(t, 150*time.Millisecond, cfg.SearchDebounce)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())

	g, ok := cfg.GranularityOverride()
	assert.True(t, ok)
	assert.Equal(t, timeline.Minute, g)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig().Encodings, cfg.Encodings)
	assert.Equal(t, DefaultHeartbeatLines, cfg.HeartbeatLines)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())

	_, ok := cfg.GranularityOverride()
	assert.False(t, ok)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(context.Background(), "/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTempFile(t, "invalid.yaml", `invalid: yaml: content: [`)
	_, err := Load(context.Background(), path)
	assert.Error(t, err)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvEncodings, "cp1252, utf-8")
	t.Setenv(EnvGranularity, "day")
	t.Setenv(EnvLogLevel, "warn")

	path := writeTempFile(t, "config.yaml", "granularity: hour\n")
	cfg, err := Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"cp1252", "utf-8"}, cfg.Encodings)
	g, ok := cfg.GranularityOverride()
	require.True(t, ok)
	assert.Equal(t, timeline.Day, g)
	assert.Equal(t, zerolog.WarnLevel, cfg.Level())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "no encodings",
			mutate:  func(c *Config) { c.Encodings = nil },
			wantErr: "encodings",
		},
		{
			name:    "unknown encoding",
			mutate:  func(c *Config) { c.Encodings = []string{"ebcdic"} },
			wantErr: "unsupported encoding",
		},
		{
			name:    "negative heartbeat",
			mutate:  func(c *Config) { c.HeartbeatLines = -1 },
			wantErr: "heartbeat_lines",
		},
		{
			name:    "bad include pattern",
			mutate:  func(c *Config) { c.Archive.Include = []string{"[oops"} },
			wantErr: "include",
		},
		{
			name:    "no include pattern",
			mutate:  func(c *Config) { c.Archive.Include = nil },
			wantErr: "include",
		},
		{
			name:    "bad skip pattern",
			mutate:  func(c *Config) { c.Archive.Skip = []string{"{a,b"} },
			wantErr: "skip",
		},
		{
			name:    "prefix with separator",
			mutate:  func(c *Config) { c.Archive.Prefixes = []string{"logs/app"} },
			wantErr: "prefixes",
		},
		{
			name:    "bad granularity",
			mutate:  func(c *Config) { c.Granularity = "week" },
			wantErr: "granularity",
		},
		{
			name:    "negative debounce",
			mutate:  func(c *Config) { c.SearchDebounce = -time.Second },
			wantErr: "search_debounce",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.LogLevel = "loud" },
			wantErr: "log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_FillsZeroHeartbeat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HeartbeatLines = 0
	cfg.LogLevel = ""

	require.NoError(t, Validate(cfg))
	assert.Equal(t, DefaultHeartbeatLines, cfg.HeartbeatLines)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
